// Package nodes implements the individual stages of the diagnostic
// workflow. Each node takes the shared graph state, does one thing,
// and hands the state on; the assistant package wires them into the
// compiled graph.
package nodes

import (
	"errors"
	"time"

	contractx "github.com/suthimate/offerlens/agent/contract"
	statex "github.com/suthimate/offerlens/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

// GraphInput is one user turn as the caller hands it over.
type GraphInput struct {
	SessionID string
	Text      string
}

// GraphState travels through one workflow run. The conversation state
// inside it is the session's long-lived record; everything else is
// scoped to this run.
type GraphState struct {
	SessionID string
	Text      string

	Session *statex.ConversationState
	Now     time.Time

	// PendingReply accumulates the interpreter's initial response plus
	// any clarifying question appended to it.
	PendingReply string

	SimilarCases []contractx.DiagnosticCase
	Pattern      *contractx.DiagnosticPattern

	ToolsUsed       []string
	FallbackSummary bool

	AssistantReply string
}

// GraphOutput is the terminal result of a run. CaseID is empty for
// clarification turns.
type GraphOutput struct {
	Reply  string
	CaseID string
}
