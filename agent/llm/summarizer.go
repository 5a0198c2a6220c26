package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/suthimate/offerlens/agent/contract"
	statex "github.com/suthimate/offerlens/agent/state"
)

// NoTextPlaceholder is surfaced when the model responded with content
// parts but none of them were text.
const NoTextPlaceholder = "[model returned no text content]"

// ModelSummarizer produces the final diagnosis from the accumulated
// transcript and the analyzer outputs, in one LLM call.
type ModelSummarizer struct {
	runner       compose.Runnable[[]*schema.Message, *schema.Message]
	systemPrompt string
}

func NewSummarizer(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (*ModelSummarizer, error) {
	runner, err := compileChatGraph(ctx, chatModel, "summarizer.chat_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile summarizer graph: %v", contractx.ErrModelInvoke, err)
	}
	return &ModelSummarizer{runner: runner, systemPrompt: systemPrompt}, nil
}

func (m *ModelSummarizer) Summarize(ctx context.Context, req contractx.SummaryRequest) (string, error) {
	if strings.TrimSpace(req.UserQuery) == "" {
		return "", fmt.Errorf("%w: user query is required", contractx.ErrValidation)
	}

	// One leading system message only; any system turns in the
	// transcript are stripped before the provider sees them.
	msgs := make([]*schema.Message, 0, len(req.Transcript)+2)
	msgs = append(msgs, schema.SystemMessage(m.systemPrompt))
	for _, turn := range req.Transcript {
		switch turn.Role {
		case statex.RoleHuman:
			msgs = append(msgs, schema.UserMessage(turn.Content))
		case statex.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(turn.Content, nil))
		}
	}
	msgs = append(msgs, schema.UserMessage(renderFindings(req)))

	out, err := m.runner.Invoke(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: summarizer invoke: %v", contractx.ErrModelInvoke, err)
	}

	text, ok := MessageText(out)
	if !ok {
		return NoTextPlaceholder, nil
	}
	return strings.TrimSpace(text), nil
}

func renderFindings(req contractx.SummaryRequest) string {
	kinds := make([]string, 0, len(req.AnalysisResults))
	for kind := range req.AnalysisResults {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var b strings.Builder
	b.WriteString("Original question: ")
	b.WriteString(req.UserQuery)
	b.WriteString("\n\nCollected evidence analysis:\n")
	for _, kind := range kinds {
		fmt.Fprintf(&b, "\n## %s\n%s\n", kind, req.AnalysisResults[kind])
	}
	b.WriteString("\nSynthesize a diagnosis for the original question from the evidence above.")
	return b.String()
}
