package analytics

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"lfpanel/backend/internal/domain"
)

// LocalOffset is the fixed business timezone offset (UTC+3, no DST).
const LocalOffset = 3 * time.Hour

// MonthBucketThresholdDays is the largest span, in whole days, that is still
// reported with day buckets.
const MonthBucketThresholdDays = 60

type Granularity int

const (
	Day Granularity = iota
	Month
)

func (g Granularity) String() string {
	if g == Month {
		return "month"
	}
	return "day"
}

const (
	LocaleTR = "tr"
	LocaleEN = "en"
)

var (
	monthsTR = [12]string{"Oca", "Şub", "Mar", "Nis", "May", "Haz", "Tem", "Ağu", "Eyl", "Eki", "Kas", "Ara"}
	monthsEN = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

	localeMatcher = language.NewMatcher([]language.Tag{language.Turkish, language.English})
)

// ToLocalDay shifts a stored instant into the business's civil time. The
// result is expressed in UTC so its calendar fields read as local ones.
func ToLocalDay(t time.Time) time.Time {
	return t.UTC().Add(LocalOffset)
}

// GranularityFor picks the bucket size for a whole report range.
func GranularityFor(r domain.DateRange) Granularity {
	if r.To.Before(r.From) {
		return Day
	}
	days := int(r.To.Sub(r.From) / (24 * time.Hour))
	if days > MonthBucketThresholdDays {
		return Month
	}
	return Day
}

func MonthKey(local time.Time) string {
	return local.Format("2006-01")
}

func DayKey(local time.Time) string {
	return local.Format("2006-01-02")
}

func bucketKey(local time.Time, g Granularity) string {
	if g == Month {
		return MonthKey(local)
	}
	return DayKey(local)
}

// ResolveLocale maps language preferences (query values or Accept-Language
// headers) to a supported locale. Empty preferences yield fallback.
func ResolveLocale(fallback string, prefs ...string) string {
	var nonEmpty []string
	for _, p := range prefs {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		if fallback == LocaleEN {
			return LocaleEN
		}
		return LocaleTR
	}
	tag, _ := language.MatchStrings(localeMatcher, nonEmpty...)
	if base, _ := tag.Base(); base.String() == LocaleEN {
		return LocaleEN
	}
	return LocaleTR
}

// Labeler renders bucket labels for one locale.
type Labeler struct {
	locale string
	months [12]string
}

func NewLabeler(locale string) Labeler {
	if locale == LocaleEN {
		return Labeler{locale: LocaleEN, months: monthsEN}
	}
	return Labeler{locale: LocaleTR, months: monthsTR}
}

func (l Labeler) Locale() string {
	return l.locale
}

// Label renders "d MMM" for day buckets and "MMM yyyy" for month buckets.
func (l Labeler) Label(local time.Time, g Granularity) string {
	month := l.months[local.Month()-1]
	if g == Month {
		return fmt.Sprintf("%s %d", month, local.Year())
	}
	return fmt.Sprintf("%d %s", local.Day(), month)
}

func (l Labeler) otherCategory() string {
	if l.locale == LocaleEN {
		return "Other"
	}
	return "Diğer"
}

func (l Labeler) totalLabel() string {
	if l.locale == LocaleEN {
		return "Total"
	}
	return "Toplam"
}
