package state

import (
	"strings"
	"time"

	contractx "github.com/suthimate/offerlens/agent/contract"
)

// TurnFields are the sticky intent fields the interpreter refines turn
// by turn.
type TurnFields struct {
	Category    contractx.QueryCategory
	EntityIDs   []string
	EntityType  contractx.EntityType
	Environment contractx.Environment
	TimeRange   string
}

// MergeTurn combines the previous turn's sticky fields with a fresh
// extraction, one rule per field:
//   - category is reset each turn, so the extracted value always wins;
//   - entity ids replace the prior set only when the extractor found any;
//   - entity type and environment overwrite only with a concrete value,
//     unknown falls back to the prior turn;
//   - time range keeps an explicit extraction, else the prior value,
//     else the day-of-week default.
//
// Pure: neither input is mutated.
func MergeTurn(prev TurnFields, ex contractx.Extraction, now time.Time) TurnFields {
	merged := TurnFields{
		Category:    ex.Category,
		EntityIDs:   append([]string(nil), prev.EntityIDs...),
		EntityType:  prev.EntityType,
		Environment: prev.Environment,
		TimeRange:   prev.TimeRange,
	}
	if merged.Category == "" {
		merged.Category = contractx.CategoryUnknown
	}

	if ids := dedupIDs(ex.EntityIDs); len(ids) > 0 {
		merged.EntityIDs = ids
	}

	if et := NormalizeEntityType(string(ex.EntityType)); et != contractx.EntityUnknown {
		merged.EntityType = et
	}
	if merged.EntityType == "" {
		merged.EntityType = contractx.EntityUnknown
	}

	if env := NormalizeEnvironment(string(ex.Environment)); env != contractx.EnvUnknown {
		merged.Environment = env
	}
	if merged.Environment == "" {
		merged.Environment = contractx.EnvUnknown
	}

	if tr := strings.TrimSpace(ex.TimeRange); tr != "" {
		merged.TimeRange = tr
	}
	if merged.TimeRange == "" {
		merged.TimeRange = DefaultTimeRange(now)
	}

	return merged
}

// DefaultTimeRange widens the lookback over weekends so a Monday-morning
// investigation still covers what happened since Friday.
func DefaultTimeRange(now time.Time) string {
	switch now.Weekday() {
	case time.Saturday:
		return "48h"
	case time.Sunday:
		return "72h"
	default:
		return "24h"
	}
}

// NormalizeEnvironment folds backend aliases into the canonical
// environment enum. "QA" is the staging tier under its older name.
// Anything unrecognized maps to unknown, never to a concrete tier.
func NormalizeEnvironment(raw string) contractx.Environment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return contractx.EnvProduction
	case "staging", "stage", "qa":
		return contractx.EnvStaging
	case "development", "dev":
		return contractx.EnvDevelopment
	default:
		return contractx.EnvUnknown
	}
}

func NormalizeEntityType(raw string) contractx.EntityType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "campaign":
		return contractx.EntityCampaign
	case "offer":
		return contractx.EntityOffer
	case "product":
		return contractx.EntityProduct
	case "sku":
		return contractx.EntitySKU
	case "general":
		return contractx.EntityGeneral
	default:
		return contractx.EntityUnknown
	}
}

func dedupIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Fields snapshots the sticky fields of a conversation.
func (s *ConversationState) Fields() TurnFields {
	return TurnFields{
		Category:    s.QueryCategory,
		EntityIDs:   append([]string(nil), s.EntityIDs...),
		EntityType:  s.EntityType,
		Environment: s.Environment,
		TimeRange:   s.TimeRange,
	}
}

// ApplyFields writes merged sticky fields back onto the conversation.
func (s *ConversationState) ApplyFields(f TurnFields) {
	s.QueryCategory = f.Category
	s.EntityIDs = f.EntityIDs
	s.EntityType = f.EntityType
	s.Environment = f.Environment
	s.TimeRange = f.TimeRange
}
