// Package analysis contains the deterministic, network-free analyzers
// that turn fetched evidence into text for the summarization step.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/suthimate/offerlens/agent/contract"
)

const (
	// NoLogsSentinel is returned instead of an empty report so the
	// summarizer always has something concrete to cite.
	NoLogsSentinel = "No matching logs were found for the requested entities and time range."

	unmatchedBucket = "unmatched"
	topUniquePerID  = 5
)

// benignErrorSubstrings are known-noise patterns excluded before any
// counting. Matching is case-insensitive substring.
var benignErrorSubstrings = []string{
	"connection reset by peer",
	"client disconnected before response",
	"health check endpoint",
	"token refreshed proactively",
}

// AnalyzeErrors produces the top-unique-errors report grouped by owning
// entity id. Deterministic: same records in, byte-identical text out.
func AnalyzeErrors(logs []contractx.LogRecord, entityIDs []string) string {
	return analyzeSeverity(logs, entityIDs, "Error", isErrorSeverity)
}

// AnalyzeWarnings is the warning-severity counterpart of AnalyzeErrors.
func AnalyzeWarnings(logs []contractx.LogRecord, entityIDs []string) string {
	return analyzeSeverity(logs, entityIDs, "Warning", isWarningSeverity)
}

func isErrorSeverity(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "err", "critical", "fatal":
		return true
	}
	return false
}

func isWarningSeverity(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warn", "warning":
		return true
	}
	return false
}

type uniqueEntry struct {
	key       string
	exception string
	message   string
	count     int
}

func analyzeSeverity(
	logs []contractx.LogRecord,
	entityIDs []string,
	label string,
	matchSeverity func(string) bool,
) string {
	filtered := make([]contractx.LogRecord, 0, len(logs))
	for _, rec := range logs {
		if !matchSeverity(rec.Severity) {
			continue
		}
		if isBenign(rec) {
			continue
		}
		filtered = append(filtered, rec)
	}
	if len(filtered) == 0 {
		return NoLogsSentinel
	}

	buckets := make(map[string][]contractx.LogRecord, len(entityIDs)+1)
	serviceCounts := make(map[string]int)
	for _, rec := range filtered {
		bucket := inferOwner(rec, entityIDs)
		buckets[bucket] = append(buckets[bucket], rec)
		if svc := strings.TrimSpace(rec.Service); svc != "" {
			serviceCounts[svc]++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s log analysis (%d records after filtering):\n", label, len(filtered))

	order := append([]string(nil), entityIDs...)
	order = append(order, unmatchedBucket)
	for _, bucket := range order {
		recs := buckets[bucket]
		if len(recs) == 0 {
			continue
		}
		if bucket == unmatchedBucket {
			fmt.Fprintf(&b, "Logs not attributable to a specific entity (%d):\n", len(recs))
		} else {
			fmt.Fprintf(&b, "Entity %s (%d):\n", bucket, len(recs))
		}
		for i, e := range rankUnique(recs) {
			if i >= topUniquePerID {
				break
			}
			line := e.exception
			if line == "" {
				line = e.message
			} else if e.message != "" && e.message != e.exception {
				line = e.exception + " | " + e.message
			}
			fmt.Fprintf(&b, "  %d. (x%d) %s\n", i+1, e.count, line)
		}
	}

	b.WriteString("Occurrences by service:")
	for _, sc := range sortedServiceCounts(serviceCounts) {
		fmt.Fprintf(&b, " %s=%d", sc.name, sc.count)
	}
	b.WriteString("\n")
	return b.String()
}

func isBenign(rec contractx.LogRecord) bool {
	text := strings.ToLower(rec.Message + " " + rec.ExceptionText)
	for _, sub := range benignErrorSubstrings {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

// inferOwner attributes a log record to one of the known entity ids, by
// attribute field first, then by word-boundary search over the message
// and exception text. Records matching nothing land in the catch-all
// bucket.
func inferOwner(rec contractx.LogRecord, entityIDs []string) string {
	if v, ok := rec.Attributes["entity_id"]; ok {
		for _, id := range entityIDs {
			if v == id {
				return id
			}
		}
	}
	for _, id := range entityIDs {
		if containsWord(rec.Message, id) || containsWord(rec.ExceptionText, id) {
			return id
		}
	}
	return unmatchedBucket
}

// containsWord reports whether sub occurs in text delimited by
// non-alphanumeric characters, so an id never matches inside a longer
// identifier.
func containsWord(text, sub string) bool {
	if sub == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(text[start:], sub)
		if idx < 0 {
			return false
		}
		idx += start
		before := idx - 1
		after := idx + len(sub)
		leftOK := before < 0 || !isWordChar(text[before])
		rightOK := after >= len(text) || !isWordChar(text[after])
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
		if start >= len(text) {
			return false
		}
	}
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// rankUnique collapses records sharing (trimmed exception, trimmed
// message) and orders them most frequent first, then by key so that
// equal counts have a stable order.
func rankUnique(recs []contractx.LogRecord) []uniqueEntry {
	byKey := make(map[string]*uniqueEntry, len(recs))
	for _, rec := range recs {
		exc := strings.TrimSpace(rec.ExceptionText)
		msg := strings.TrimSpace(rec.Message)
		key := exc + "\x00" + msg
		if e, ok := byKey[key]; ok {
			e.count++
			continue
		}
		byKey[key] = &uniqueEntry{key: key, exception: exc, message: msg, count: 1}
	}

	entries := make([]uniqueEntry, 0, len(byKey))
	for _, e := range byKey {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	return entries
}

type serviceCount struct {
	name  string
	count int
}

func sortedServiceCounts(counts map[string]int) []serviceCount {
	out := make([]serviceCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, serviceCount{name: name, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}
