package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/suthimate/offerlens/agent/contract"
	memoryx "github.com/suthimate/offerlens/agent/memory"
)

// StoreCase persists the completed investigation and folds its outcome
// into the pattern for this triple. Persistence failures are logged
// and dropped; the user already has their answer, and a pattern write
// failure never undoes a stored case.
func StoreCase(ctx context.Context, in *GraphState, store contractx.CaseStore, newCaseID func() string) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: case storage requires a session", contractx.ErrValidation)
	}
	st := in.Session
	out := GraphOutput{Reply: in.AssistantReply}

	if strings.TrimSpace(st.UserQuery) == "" || st.QueryCategory == "" {
		return out, nil
	}

	c := contractx.DiagnosticCase{
		CaseID:          newCaseID(),
		Timestamp:       in.Now,
		Category:        st.QueryCategory,
		EntityType:      st.EntityType,
		EntityIDs:       append([]string(nil), st.EntityIDs...),
		Environment:     st.Environment,
		UserQuery:       st.UserQuery,
		ToolsUsed:       append([]string(nil), in.ToolsUsed...),
		FinalSummary:    st.FinalSummary,
		OverallRlReward: st.OverallRlReward,
	}
	if err := store.StoreCase(ctx, c); err != nil {
		log.Error().Err(err).Str("session_id", st.SessionID).Msg("case write failed, investigation not recorded")
		return out, nil
	}
	out.CaseID = c.CaseID

	pattern := in.Pattern
	if pattern == nil {
		p := memoryx.NewPattern(st.QueryCategory, st.EntityType, st.Environment, in.Now)
		pattern = &p
	}
	memoryx.ObservePattern(pattern, in.ToolsUsed, !in.FallbackSummary, in.Now)
	if err := store.StorePattern(ctx, *pattern); err != nil {
		log.Warn().Err(err).Str("case_id", c.CaseID).Msg("pattern update failed, case remains stored")
	}
	return out, nil
}
