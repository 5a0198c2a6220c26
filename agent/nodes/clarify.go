package nodes

import (
	"context"
	"fmt"

	contractx "github.com/suthimate/offerlens/agent/contract"
	statex "github.com/suthimate/offerlens/agent/state"
)

const askMoreDetailReply = "I need a little more information before I can investigate. Could you share the entity ids, their type, and the environment you are asking about?"

// EntityTypeUnresolved reports whether the session names entities
// whose type the user has not yet pinned down. Ids without a type are
// uninvestigable, so the turn halts to ask.
func EntityTypeUnresolved(st *statex.ConversationState) bool {
	return st.EntityType == contractx.EntityUnknown && len(st.EntityIDs) > 0
}

// EnvironmentUnresolved reports whether the environment is still
// unknown. Unknown never falls through to production; the turn halts
// instead.
func EnvironmentUnresolved(st *statex.ConversationState) bool {
	return st.Environment == contractx.EnvUnknown
}

// AskClarification ends the turn with the pending question. The reply
// is recorded and the session saved so the next turn's transcript
// carries both the question and whatever fields this turn pinned down.
func AskClarification(ctx context.Context, in *GraphState, store statex.SessionStore) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: clarification requires a session", contractx.ErrValidation)
	}
	reply := in.PendingReply
	if reply == "" {
		reply = askMoreDetailReply
	}
	in.Session.AppendAssistant(reply)
	in.Session.Touch(in.Now)
	if _, err := SaveState(ctx, in, store); err != nil {
		return GraphOutput{}, err
	}
	return GraphOutput{Reply: reply}, nil
}
