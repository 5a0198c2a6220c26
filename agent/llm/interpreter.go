package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/suthimate/offerlens/agent/contract"
	statex "github.com/suthimate/offerlens/agent/state"
)

// ModelInterpreter extracts structured intent from the latest user
// utterance with a single schema-constrained LLM call.
type ModelInterpreter struct {
	runner compose.Runnable[map[string]any, extractionLLMOutput]
}

type extractionLLMOutput struct {
	Category        string   `json:"category"`
	EntityIDs       []string `json:"entity_ids,omitempty"`
	EntityType      string   `json:"entity_type"`
	Environment     string   `json:"environment"`
	TimeRange       string   `json:"time_range,omitempty"`
	InitialResponse string   `json:"initial_response,omitempty"`
}

func NewInterpreter(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (*ModelInterpreter, error) {
	runner, err := compileStructuredGraph[extractionLLMOutput](ctx, chatModel, systemPrompt, "interpreter.extract_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile interpreter graph: %v", contractx.ErrModelInvoke, err)
	}
	return &ModelInterpreter{runner: runner}, nil
}

func (m *ModelInterpreter) Extract(ctx context.Context, req contractx.ExtractRequest) (contractx.Extraction, error) {
	if strings.TrimSpace(req.LatestQuery) == "" {
		return contractx.Extraction{}, fmt.Errorf("%w: latest query is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"transcript":   req.Transcript,
		"latest_query": req.LatestQuery,
		"now":          req.Now.UTC().Format(time.RFC3339),
	}
	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return contractx.Extraction{}, fmt.Errorf("%w: marshal interpreter payload: %v", contractx.ErrValidation, err)
	}

	out, err := m.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return contractx.Extraction{}, fmt.Errorf("%w: interpreter invoke: %v", contractx.ErrModelInvoke, err)
	}

	category, ok := parseCategory(out.Category)
	if !ok {
		return contractx.Extraction{}, fmt.Errorf("%w: unsupported category=%q", contractx.ErrSchemaViolation, out.Category)
	}

	// Environment and entity type fold to the canonical enum; anything
	// the model invented becomes unknown rather than a schema error,
	// since unknown is itself a meaningful answer here.
	return contractx.Extraction{
		Category:        category,
		EntityIDs:       out.EntityIDs,
		EntityType:      statex.NormalizeEntityType(out.EntityType),
		Environment:     statex.NormalizeEnvironment(out.Environment),
		TimeRange:       strings.TrimSpace(out.TimeRange),
		InitialResponse: strings.TrimSpace(out.InitialResponse),
	}, nil
}

func parseCategory(raw string) (contractx.QueryCategory, bool) {
	switch contractx.QueryCategory(strings.ToUpper(strings.TrimSpace(raw))) {
	case contractx.CategoryEntityStatus:
		return contractx.CategoryEntityStatus, true
	case contractx.CategoryOfferPrice:
		return contractx.CategoryOfferPrice, true
	case contractx.CategoryDataInconsistency:
		return contractx.CategoryDataInconsistency, true
	case contractx.CategoryMissingEntity:
		return contractx.CategoryMissingEntity, true
	case contractx.CategoryCampaignSetup:
		return contractx.CategoryCampaignSetup, true
	case contractx.CategoryGeneralQuestion:
		return contractx.CategoryGeneralQuestion, true
	case contractx.CategoryUnknown:
		return contractx.CategoryUnknown, true
	default:
		return "", false
	}
}
