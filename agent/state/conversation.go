package state

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/suthimate/offerlens/agent/contract"
)

const (
	RoleSystem    = "system"
	RoleHuman     = "human"
	RoleAssistant = "assistant"
)

var (
	ErrNilConversation = errors.New("conversation state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

// Message is one role-tagged record in the conversation transcript.
// ToolCallID / ToolResultID exist so the merge step can recognize a
// status message that was already appended by an earlier fetch attempt.
type Message struct {
	Role         string `json:"role"`
	Content      string `json:"content"`
	ToolCallID   string `json:"toolCallId,omitempty"`
	ToolResultID string `json:"toolResultId,omitempty"`
}

// ConversationState is the mutable record threaded through every step
// of one diagnostic episode. One instance per session; mutated in place
// across turns and within a single workflow run. History is append-only:
// Messages are never rewritten, only added to.
type ConversationState struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages,omitempty"`

	// Transient per-turn input, overwritten each turn.
	UserQuery string `json:"userQuery,omitempty"`

	// Sticky fields: a turn may refine them, never silently downgrade.
	EntityIDs   []string              `json:"entityIds,omitempty"`
	EntityType  contractx.EntityType  `json:"entityType,omitempty"`
	Environment contractx.Environment `json:"environment,omitempty"`
	TimeRange   string                `json:"timeRange,omitempty"`

	// Reset at the start of each turn.
	QueryCategory contractx.QueryCategory `json:"queryCategory,omitempty"`

	// Evidence collections, populated by the fetch stage.
	DatadogLogs         []contractx.LogRecord    `json:"datadogLogs,omitempty"`
	EntityHistory       []contractx.VersionDiff  `json:"entityHistory,omitempty"`
	GenieOfferDetails   []contractx.CatalogOffer `json:"genieOfferDetails,omitempty"`
	OfferServiceDetails []contractx.CatalogOffer `json:"offerServiceDetails,omitempty"`
	OfferPriceDetails   []contractx.PriceQuote   `json:"offerPriceDetails,omitempty"`

	AnalysisResults map[string]string `json:"analysisResults,omitempty"`
	FinalSummary    string            `json:"finalSummary,omitempty"`

	// Feedback accumulators, attached post-hoc to a stored episode.
	MessageFeedbacks map[string]string `json:"messageFeedbacks,omitempty"`
	OverallRlReward  float64           `json:"overallRlReward,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

func NewConversationState(sessionID string, now time.Time) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		UpdatedAt: now.UTC(),
	}
}

// BeginTurn records the new user utterance and clears everything that
// belongs to the previous turn's processing. Sticky fields are left
// alone; MergeTurn decides what carries over.
func (s *ConversationState) BeginTurn(userQuery string, now time.Time) {
	s.UserQuery = userQuery
	s.Messages = append(s.Messages, Message{Role: RoleHuman, Content: userQuery})

	s.QueryCategory = ""
	s.DatadogLogs = nil
	s.EntityHistory = nil
	s.GenieOfferDetails = nil
	s.OfferServiceDetails = nil
	s.OfferPriceDetails = nil
	s.AnalysisResults = nil
	s.FinalSummary = ""
	s.UpdatedAt = now.UTC()
}

func (s *ConversationState) AppendAssistant(content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	s.Messages = append(s.Messages, Message{Role: RoleAssistant, Content: content})
}

// Transcript renders the human/assistant history for LLM prompts.
// System messages are excluded: the provider allows exactly one leading
// system message, which each LLM runner supplies itself.
func (s *ConversationState) Transcript() []contractx.ChatTurn {
	turns := make([]contractx.ChatTurn, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Role == RoleSystem {
			continue
		}
		turns = append(turns, contractx.ChatTurn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// TurnCount reports how many user turns the conversation has seen.
func (s *ConversationState) TurnCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleHuman {
			n++
		}
	}
	return n
}

func (s *ConversationState) SetAnalysis(kind, text string) {
	if s.AnalysisResults == nil {
		s.AnalysisResults = make(map[string]string, 4)
	}
	s.AnalysisResults[kind] = text
}

func (s *ConversationState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}
