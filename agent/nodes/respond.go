package nodes

import (
	"fmt"

	contractx "github.com/suthimate/offerlens/agent/contract"
)

// RespondToUser records the final summary as the assistant's reply for
// this turn.
func RespondToUser(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: responding requires a session", contractx.ErrValidation)
	}
	reply := in.Session.FinalSummary
	if reply == "" {
		reply = in.PendingReply
	}
	if reply == "" {
		reply = FallbackSummary
	}
	in.AssistantReply = reply
	in.Session.AppendAssistant(reply)
	in.Session.Touch(in.Now)
	return in, nil
}
