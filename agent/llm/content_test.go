package llm

import (
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestMessageTextPlainContent(t *testing.T) {
	t.Parallel()

	got, ok := MessageText(&schema.Message{Content: "diagnosis text"})
	if !ok || got != "diagnosis text" {
		t.Fatalf("MessageText = %q, %v", got, ok)
	}
}

func TestMessageTextMultiContentConcatenates(t *testing.T) {
	t.Parallel()

	msg := &schema.Message{
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: "part one "},
			{Type: schema.ChatMessagePartTypeImageURL},
			{Type: schema.ChatMessagePartTypeText, Text: "part two"},
		},
	}
	got, ok := MessageText(msg)
	if !ok || got != "part one part two" {
		t.Fatalf("MessageText = %q, %v", got, ok)
	}
}

func TestMessageTextNoText(t *testing.T) {
	t.Parallel()

	if _, ok := MessageText(nil); ok {
		t.Fatal("nil message must not report text")
	}
	if _, ok := MessageText(&schema.Message{Content: "   "}); ok {
		t.Fatal("whitespace-only content must not report text")
	}
	onlyImages := &schema.Message{
		MultiContent: []schema.ChatMessagePart{{Type: schema.ChatMessagePartTypeImageURL}},
	}
	if _, ok := MessageText(onlyImages); ok {
		t.Fatal("image-only multi content must not report text")
	}
}
