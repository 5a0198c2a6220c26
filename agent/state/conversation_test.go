package state

import (
	"testing"
	"time"
)

func TestTurnCount(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	st := NewConversationState("sess-1", now)
	if got := st.TurnCount(); got != 0 {
		t.Fatalf("fresh conversation has no turns, got %d", got)
	}

	st.BeginTurn("camp-7 stopped serving", now)
	st.AppendAssistant("Retrieved 2 history records.")
	st.BeginTurn("is it still broken?", now.Add(time.Minute))
	if got := st.TurnCount(); got != 2 {
		t.Fatalf("assistant messages must not count as turns, got %d", got)
	}
}
