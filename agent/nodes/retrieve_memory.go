package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/suthimate/offerlens/agent/contract"
	memoryx "github.com/suthimate/offerlens/agent/memory"
)

const similarCaseLimit = 5

// RetrieveMemory loads similar past cases and the pattern record for
// the current (category, entityType, environment) triple. Memory is an
// enrichment: every failure here is logged and swallowed so the
// diagnosis still runs on fresh evidence.
func RetrieveMemory(ctx context.Context, in *GraphState, store contractx.CaseStore, ranker memoryx.CaseRanker) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: memory retrieval requires a session", contractx.ErrValidation)
	}
	st := in.Session
	if EnvironmentUnresolved(st) {
		// The environment branch right after this node will halt the
		// turn; retrieving against an unknown environment would only
		// pull unrelated cases.
		return in, nil
	}

	cases, err := store.RetrieveSimilarCases(ctx, st.QueryCategory, st.EntityType, st.Environment, similarCaseLimit)
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("similar case retrieval failed, continuing without memory")
	} else {
		if ranker != nil && len(cases) > 1 {
			ranked, rankErr := ranker.Rank(ctx, st.UserQuery, cases)
			if rankErr != nil {
				log.Debug().Err(rankErr).Msg("semantic rerank failed, keeping recency order")
			} else {
				cases = ranked
			}
		}
		in.SimilarCases = cases
	}

	pattern, err := store.GetPattern(ctx, st.QueryCategory, st.EntityType, st.Environment)
	switch {
	case err == nil:
		in.Pattern = pattern
	case errors.Is(err, contractx.ErrPatternNotFound):
		// First case of this triple; the store node seeds the pattern.
	default:
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("pattern lookup failed, continuing without memory")
	}
	return in, nil
}
