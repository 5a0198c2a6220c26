// Package memory persists diagnostic episodes and the aggregate
// patterns derived from them, and retrieves similar past cases.
package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	contractx "github.com/suthimate/offerlens/agent/contract"
)

// NextSuccessRate recomputes the running success mean incrementally:
// newMean = (oldMean*oldCount + isSuccess) / (oldCount+1).
func NextSuccessRate(oldRate float64, oldCount int64, success bool) float64 {
	s := 0.0
	if success {
		s = 1.0
	}
	return (oldRate*float64(oldCount) + s) / float64(oldCount+1)
}

// NewPattern starts an empty pattern row for a triple.
func NewPattern(
	category contractx.QueryCategory,
	entityType contractx.EntityType,
	env contractx.Environment,
	now time.Time,
) contractx.DiagnosticPattern {
	return contractx.DiagnosticPattern{
		PatternID:   uuid.NewString(),
		Category:    category,
		EntityType:  entityType,
		Environment: env,
		LastUpdated: now.UTC(),
	}
}

// ObservePattern folds one completed case into a pattern: success-rate
// recompute, usage increment, tool union.
func ObservePattern(p *contractx.DiagnosticPattern, toolsUsed []string, success bool, now time.Time) {
	p.SuccessRate = NextSuccessRate(p.SuccessRate, p.UsageCount, success)
	p.UsageCount++
	p.CommonTools = unionTools(p.CommonTools, toolsUsed)
	p.LastUpdated = now.UTC()
}

func unionTools(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, lists := range [][]string{existing, incoming} {
		for _, tool := range lists {
			if tool == "" {
				continue
			}
			if _, ok := seen[tool]; ok {
				continue
			}
			seen[tool] = struct{}{}
			out = append(out, tool)
		}
	}
	sort.Strings(out)
	return out
}
