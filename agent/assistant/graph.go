package assistant

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/suthimate/offerlens/agent/contract"
	nodex "github.com/suthimate/offerlens/agent/nodes"
)

// compileTurnGraph builds the per-turn workflow. Two branch points can
// end the turn early with a clarifying question; otherwise the run
// gathers evidence, analyzes it, summarizes, and stores the case.
func (a *Assistant) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, a.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_or_create_state",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateState(ctx, in, a.sessions)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_or_create_state: %w", err)
	}

	if err := graph.AddLambdaNode("parse_query",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ParseQuery(ctx, in, a.interpreter)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node parse_query: %w", err)
	}

	if err := graph.AddLambdaNode("ask_entity_type",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.AskClarification(ctx, in, a.sessions)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node ask_entity_type: %w", err)
	}

	if err := graph.AddLambdaNode("retrieve_memory",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RetrieveMemory(ctx, in, a.cases, a.ranker)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node retrieve_memory: %w", err)
	}

	if err := graph.AddLambdaNode("ask_environment",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.AskClarification(ctx, in, a.sessions)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node ask_environment: %w", err)
	}

	if err := graph.AddLambdaNode("fetch_evidence",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.FetchEvidence(ctx, in, a.backends, a.fetchTimeout)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node fetch_evidence: %w", err)
	}

	if err := graph.AddLambdaNode("analyze_evidence",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AnalyzeEvidence(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node analyze_evidence: %w", err)
	}

	if err := graph.AddLambdaNode("summarize_findings",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SummarizeFindings(ctx, in, a.summarizer)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node summarize_findings: %w", err)
	}

	if err := graph.AddLambdaNode("respond_to_user",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RespondToUser(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node respond_to_user: %w", err)
	}

	if err := graph.AddLambdaNode("save_state",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveState(ctx, in, a.sessions)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_state: %w", err)
	}

	if err := graph.AddLambdaNode("store_case",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.StoreCase(ctx, in, a.cases, a.newCaseID)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node store_case: %w", err)
	}

	entityTypeBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil || in.Session == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			if nodex.EntityTypeUnresolved(in.Session) {
				return "ask_entity_type", nil
			}
			return "retrieve_memory", nil
		},
		map[string]bool{
			"ask_entity_type": true,
			"retrieve_memory": true,
		},
	)
	if err := graph.AddBranch("parse_query", entityTypeBranch); err != nil {
		return nil, fmt.Errorf("add entity type branch: %w", err)
	}

	environmentBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil || in.Session == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			if nodex.EnvironmentUnresolved(in.Session) {
				return "ask_environment", nil
			}
			return "fetch_evidence", nil
		},
		map[string]bool{
			"ask_environment": true,
			"fetch_evidence":  true,
		},
	)
	if err := graph.AddBranch("retrieve_memory", environmentBranch); err != nil {
		return nil, fmt.Errorf("add environment branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_or_create_state"},
		{"load_or_create_state", "parse_query"},
		{"ask_entity_type", compose.END},
		{"ask_environment", compose.END},
		{"fetch_evidence", "analyze_evidence"},
		{"analyze_evidence", "summarize_findings"},
		{"summarize_findings", "respond_to_user"},
		{"respond_to_user", "save_state"},
		{"save_state", "store_case"},
		{"store_case", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("assistant.process_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile assistant graph: %w", err)
	}
	return runner, nil
}
