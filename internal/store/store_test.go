package store

import (
	"testing"
	"time"

	"lfpanel/backend/internal/domain"
)

func TestRecordQueryMatches(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	q := RecordQuery{Store: "etsy-main", From: from, To: to}
	if !q.Matches("etsy-main", from) || !q.Matches("etsy-main", to) {
		t.Fatalf("expected inclusive bounds to match")
	}
	if q.Matches("etsy-second", from.Add(time.Hour)) {
		t.Fatalf("expected other store to be filtered")
	}
	if q.Matches("etsy-main", to.Add(time.Second)) {
		t.Fatalf("expected record after range to be filtered")
	}

	all := RecordQuery{Store: domain.AllStores}
	if !all.Matches("anything", time.Time{}) {
		t.Fatalf("expected unbounded all-store query to match")
	}
}
