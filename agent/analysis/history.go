package analysis

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/suthimate/offerlens/agent/contract"
)

// NoCriticalChangesSentinel is returned when every field change in the
// supplied history was excluded or benign.
const NoCriticalChangesSentinel = "No critical changes were found in the entity history."

// HistoryRules configures which fields the history analyzer ignores.
type HistoryRules struct {
	ExcludedPrefixes []string
	ExcludedFields   []string
}

func DefaultHistoryRules() HistoryRules {
	return HistoryRules{
		ExcludedPrefixes: []string{"legacy_", "internal_", "audit_"},
		ExcludedFields:   []string{"updated_at", "updatedAt", "version", "etag", "last_modified_by"},
	}
}

func (r HistoryRules) excluded(fieldName string) bool {
	for _, prefix := range r.ExcludedPrefixes {
		if strings.HasPrefix(fieldName, prefix) {
			return true
		}
	}
	for _, name := range r.ExcludedFields {
		if fieldName == name {
			return true
		}
	}
	return false
}

// AnalyzeHistory walks version diffs in input (chronological) order and
// emits one note per non-excluded field change, with stronger wording
// for cleared values, date-field transitions relative to now, and
// status transitions into inactive states.
func AnalyzeHistory(diffs []contractx.VersionDiff, rules HistoryRules, now time.Time) string {
	var notes []string
	for _, diff := range diffs {
		for _, change := range diff.Changes {
			if rules.excluded(change.FieldName) {
				continue
			}
			notes = append(notes, changeNotes(diff, change, now)...)
		}
	}
	if len(notes) == 0 {
		return NoCriticalChangesSentinel
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Entity history analysis (%d notable changes):\n", len(notes))
	for _, note := range notes {
		b.WriteString("- ")
		b.WriteString(note)
		b.WriteString("\n")
	}
	return b.String()
}

func changeNotes(diff contractx.VersionDiff, change contractx.FieldChange, now time.Time) []string {
	prefix := fmt.Sprintf("v%d->v%d (%s)", diff.FromVersion, diff.ToVersion, diff.ChangedAt.UTC().Format("2006-01-02 15:04"))

	notes := []string{fmt.Sprintf("%s: field %q changed from %q to %q",
		prefix, change.FieldName, change.OldValue, change.NewValue)}

	oldEmpty := isEmptyValue(change.OldValue)
	newEmpty := isEmptyValue(change.NewValue)
	if newEmpty && !oldEmpty {
		notes = append(notes, fmt.Sprintf("%s: field %q was cleared (previous value %q) - likely cause of missing data",
			prefix, change.FieldName, change.OldValue))
		return notes
	}

	field := strings.ToLower(change.FieldName)
	switch {
	case strings.Contains(field, "start_date") || strings.Contains(field, "startdate"):
		if t, ok := parseChangeTime(change.NewValue); ok {
			if t.After(now) {
				notes = append(notes, fmt.Sprintf("%s: start date moved into the future (%s) - entity is not yet active",
					prefix, t.UTC().Format(time.RFC3339)))
			} else {
				notes = append(notes, fmt.Sprintf("%s: start date is in the past (%s)",
					prefix, t.UTC().Format(time.RFC3339)))
			}
		}
	case strings.Contains(field, "end_date") || strings.Contains(field, "enddate"):
		if t, ok := parseChangeTime(change.NewValue); ok {
			if t.Before(now) {
				notes = append(notes, fmt.Sprintf("%s: CRITICAL end date is now in the past (%s) - entity has expired",
					prefix, t.UTC().Format(time.RFC3339)))
			} else {
				notes = append(notes, fmt.Sprintf("%s: end date is in the future (%s)",
					prefix, t.UTC().Format(time.RFC3339)))
			}
		}
	case field == "status" || strings.Contains(field, "active") || strings.Contains(field, "state"):
		if isInactiveValue(change.NewValue) && !isInactiveValue(change.OldValue) {
			notes = append(notes, fmt.Sprintf("%s: CRITICAL entity transitioned into inactive state %q",
				prefix, change.NewValue))
		}
	}
	return notes
}

func isEmptyValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "null", "nil", "none", "[]", "{}":
		return true
	}
	return false
}

func isInactiveValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "inactive", "disabled", "expired", "archived", "paused", "deleted", "false", "0":
		return true
	}
	return false
}

func parseChangeTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
