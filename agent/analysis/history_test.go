package analysis

import (
	"strings"
	"testing"
	"time"

	contractx "github.com/suthimate/offerlens/agent/contract"
)

var analysisNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func diff(from, to int, changedAt time.Time, changes ...contractx.FieldChange) contractx.VersionDiff {
	return contractx.VersionDiff{
		EntityID:    "offer-1",
		FromVersion: from,
		ToVersion:   to,
		ChangedBy:   "ops",
		ChangedAt:   changedAt,
		Changes:     changes,
	}
}

func TestAnalyzeHistoryEmptyAndExcluded(t *testing.T) {
	t.Parallel()

	if got := AnalyzeHistory(nil, DefaultHistoryRules(), analysisNow); got != NoCriticalChangesSentinel {
		t.Fatalf("empty history = %q, want sentinel", got)
	}

	diffs := []contractx.VersionDiff{
		diff(1, 2, analysisNow.Add(-time.Hour),
			contractx.FieldChange{FieldName: "legacy_foo", OldValue: "a", NewValue: "b"},
			contractx.FieldChange{FieldName: "updated_at", OldValue: "x", NewValue: "y"},
			contractx.FieldChange{FieldName: "internal_sync_id", OldValue: "1", NewValue: "2"},
		),
	}
	got := AnalyzeHistory(diffs, DefaultHistoryRules(), analysisNow)
	if got != NoCriticalChangesSentinel {
		t.Fatalf("all-excluded history = %q, want sentinel", got)
	}
	if strings.Contains(got, "legacy_foo") {
		t.Fatalf("excluded field leaked: %q", got)
	}
}

func TestAnalyzeHistoryClearedField(t *testing.T) {
	t.Parallel()

	diffs := []contractx.VersionDiff{
		diff(4, 5, analysisNow.Add(-2*time.Hour),
			contractx.FieldChange{FieldName: "price_plan", OldValue: "premium-monthly", NewValue: ""},
		),
	}
	got := AnalyzeHistory(diffs, DefaultHistoryRules(), analysisNow)
	if !strings.Contains(got, `field "price_plan" was cleared (previous value "premium-monthly")`) {
		t.Fatalf("missing cleared-field note:\n%s", got)
	}
}

func TestAnalyzeHistoryEndDateInPast(t *testing.T) {
	t.Parallel()

	diffs := []contractx.VersionDiff{
		diff(7, 8, analysisNow.Add(-24*time.Hour),
			contractx.FieldChange{FieldName: "end_date", OldValue: "2025-12-31", NewValue: "2025-06-01"},
		),
	}
	got := AnalyzeHistory(diffs, DefaultHistoryRules(), analysisNow)
	if !strings.Contains(got, "CRITICAL end date is now in the past") {
		t.Fatalf("missing expiry note:\n%s", got)
	}
}

func TestAnalyzeHistoryEndDateInFuture(t *testing.T) {
	t.Parallel()

	diffs := []contractx.VersionDiff{
		diff(7, 8, analysisNow.Add(-24*time.Hour),
			contractx.FieldChange{FieldName: "end_date", OldValue: "2025-06-01", NewValue: "2026-01-01"},
		),
	}
	got := AnalyzeHistory(diffs, DefaultHistoryRules(), analysisNow)
	if strings.Contains(got, "CRITICAL") {
		t.Fatalf("future end date must not be critical:\n%s", got)
	}
	if !strings.Contains(got, "end date is in the future") {
		t.Fatalf("missing future end date note:\n%s", got)
	}
}

func TestAnalyzeHistoryInactiveTransition(t *testing.T) {
	t.Parallel()

	diffs := []contractx.VersionDiff{
		diff(2, 3, analysisNow.Add(-3*time.Hour),
			contractx.FieldChange{FieldName: "status", OldValue: "ACTIVE", NewValue: "PAUSED"},
		),
	}
	got := AnalyzeHistory(diffs, DefaultHistoryRules(), analysisNow)
	if !strings.Contains(got, `CRITICAL entity transitioned into inactive state "PAUSED"`) {
		t.Fatalf("missing inactive transition note:\n%s", got)
	}
}

func TestAnalyzeHistoryChronologicalOrder(t *testing.T) {
	t.Parallel()

	diffs := []contractx.VersionDiff{
		diff(1, 2, analysisNow.Add(-48*time.Hour),
			contractx.FieldChange{FieldName: "name", OldValue: "Old", NewValue: "New"},
		),
		diff(2, 3, analysisNow.Add(-24*time.Hour),
			contractx.FieldChange{FieldName: "status", OldValue: "ACTIVE", NewValue: "EXPIRED"},
		),
	}
	got := AnalyzeHistory(diffs, DefaultHistoryRules(), analysisNow)
	first := strings.Index(got, "v1->v2")
	second := strings.Index(got, "v2->v3")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("notes must follow input order:\n%s", got)
	}
}
