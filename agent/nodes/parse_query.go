package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/suthimate/offerlens/agent/contract"
	statex "github.com/suthimate/offerlens/agent/state"
)

// ParseQuery runs the interpreter over the transcript and folds the
// extraction into the session fields. An interpreter failure never
// aborts the turn: the fallback extraction keeps the session fields
// sticky and the turn proceeds to the clarification gate.
func ParseQuery(ctx context.Context, in *GraphState, interpreter contractx.Interpreter) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: parse query requires a session", contractx.ErrValidation)
	}
	st := in.Session

	ex, err := interpreter.Extract(ctx, contractx.ExtractRequest{
		Transcript:  st.Transcript(),
		LatestQuery: st.UserQuery,
		Now:         in.Now,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("extraction failed, falling back to conservative defaults")
		ex = contractx.FallbackExtraction()
	}

	merged := statex.MergeTurn(st.Fields(), ex, in.Now)
	st.ApplyFields(merged)

	reply := strings.TrimSpace(ex.InitialResponse)
	if q := clarifyingQuestion(merged, reply); q != "" {
		if reply != "" {
			reply += " "
		}
		reply += q
	}
	in.PendingReply = reply
	return in, nil
}

// clarifyingQuestion builds the follow-up question for fields the
// merged state still lacks. Uncategorized and general questions get
// none, and a question is skipped when the model's own response
// already asks for that field.
func clarifyingQuestion(f statex.TurnFields, initialResponse string) string {
	switch f.Category {
	case contractx.CategoryUnknown, contractx.CategoryGeneralQuestion:
		return ""
	}
	lower := strings.ToLower(initialResponse)

	var parts []string
	if f.EntityType == contractx.EntityUnknown && len(f.EntityIDs) > 0 && !mentionsEntityType(lower) {
		parts = append(parts, "Could you tell me what kind of entity these ids refer to (offer, campaign, product, or SKU)?")
	}
	if f.Environment == contractx.EnvUnknown && !strings.Contains(lower, "environment") {
		parts = append(parts, "Which environment should I look at (production, staging, or development)?")
	}
	return strings.Join(parts, " ")
}

func mentionsEntityType(lower string) bool {
	for _, marker := range []string{"entity type", "type of entity", "kind of entity", "which type"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
