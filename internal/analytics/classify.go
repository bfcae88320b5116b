package analytics

import "strings"

// ExpenseTag is a known expense bucket. TagNone marks an untagged category.
type ExpenseTag int

const (
	TagNone ExpenseTag = iota
	TagShipEntegra
	TagPrinwork
	TagRexven
	TagEtsyAds
	TagEtsyPlus
	TagListingFee
	TagCloudFix
)

// tagKeywords is evaluated in order; the first keyword contained in the
// category wins.
var tagKeywords = []struct {
	tag     ExpenseTag
	keyword string
}{
	{TagShipEntegra, "shipentegra"},
	{TagPrinwork, "prinwork"},
	{TagRexven, "rexven"},
	{TagEtsyAds, "etsy ads"},
	{TagEtsyPlus, "etsy plus"},
	{TagListingFee, "listing fee"},
	{TagCloudFix, "cloudfix"},
}

func (t ExpenseTag) String() string {
	switch t {
	case TagShipEntegra:
		return "shipentegra"
	case TagPrinwork:
		return "prinwork"
	case TagRexven:
		return "rexven"
	case TagEtsyAds:
		return "etsy_ads"
	case TagEtsyPlus:
		return "etsy_plus"
	case TagListingFee:
		return "listing_fees"
	case TagCloudFix:
		return "cloudfix"
	default:
		return "none"
	}
}

// External reports whether the tag belongs to a fulfilment or agency
// partner. External expenses count toward total cost only.
func (t ExpenseTag) External() bool {
	switch t {
	case TagShipEntegra, TagPrinwork, TagRexven:
		return true
	default:
		return false
	}
}

type Classification struct {
	Tag      ExpenseTag
	External bool
}

func Classify(category string) Classification {
	normalized := strings.ToLower(strings.TrimSpace(category))
	if normalized == "" {
		return Classification{Tag: TagNone}
	}
	for _, entry := range tagKeywords {
		if strings.Contains(normalized, entry.keyword) {
			return Classification{Tag: entry.tag, External: entry.tag.External()}
		}
	}
	return Classification{Tag: TagNone}
}
