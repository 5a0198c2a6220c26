package state

import (
	"strings"
	"testing"
)

func TestMessageIdentityPrecedence(t *testing.T) {
	t.Parallel()

	withCall := Message{Role: RoleAssistant, Content: "x", ToolCallID: "tc-1", ToolResultID: "tr-1"}
	if got := MessageIdentity(withCall); got != "call:tc-1" {
		t.Fatalf("tool call id must win, got %q", got)
	}

	withResult := Message{Role: RoleAssistant, Content: "x", ToolResultID: "tr-1"}
	if got := MessageIdentity(withResult); got != "result:tr-1" {
		t.Fatalf("tool result id is the second choice, got %q", got)
	}

	plain := MessageIdentity(Message{Role: RoleHuman, Content: "hello"})
	if !strings.HasPrefix(plain, "hash:"+RoleHuman+":") {
		t.Fatalf("plain messages hash role and content, got %q", plain)
	}
	if plain == MessageIdentity(Message{Role: RoleAssistant, Content: "hello"}) {
		t.Fatalf("same content under a different role must not collide")
	}
}

func TestDedupAppend(t *testing.T) {
	t.Parallel()

	dst := []Message{
		{Role: RoleAssistant, Content: "old", ToolCallID: "tc-1"},
	}
	got := DedupAppend(dst,
		Message{Role: RoleAssistant, Content: "new text same id", ToolCallID: "tc-1"},
		Message{Role: RoleAssistant, Content: "fresh", ToolCallID: "tc-2"},
		Message{Role: RoleAssistant, Content: "fresh", ToolCallID: "tc-2"},
		Message{Role: RoleHuman, Content: "question"},
	)

	if len(got) != 3 {
		t.Fatalf("expected 3 messages after dedup, got %d: %+v", len(got), got)
	}
	if got[0].Content != "old" {
		t.Fatalf("the first occurrence wins, got %q", got[0].Content)
	}
	if got[1].ToolCallID != "tc-2" || got[2].Role != RoleHuman {
		t.Fatalf("unexpected merge order: %+v", got)
	}
}
