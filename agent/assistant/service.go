// Package assistant wires the workflow nodes into the compiled
// diagnostic graph and exposes the two entry points the serving layer
// calls: ProcessTurn and SubmitFeedback.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	contractx "github.com/suthimate/offerlens/agent/contract"
	memoryx "github.com/suthimate/offerlens/agent/memory"
	nodex "github.com/suthimate/offerlens/agent/nodes"
	statex "github.com/suthimate/offerlens/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Config struct {
	// FetchTimeout bounds each evidence operation. Zero means the
	// default.
	FetchTimeout time.Duration

	// Ranker optionally reorders retrieved cases by semantic
	// similarity to the live query. Nil keeps recency order.
	Ranker memoryx.CaseRanker
}

type Assistant struct {
	sessions    statex.SessionStore
	cases       contractx.CaseStore
	interpreter contractx.Interpreter
	summarizer  contractx.Summarizer
	backends    contractx.Backends
	ranker      memoryx.CaseRanker

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	fetchTimeout time.Duration

	now       func() time.Time
	newCaseID func() string
}

func New(
	sessions statex.SessionStore,
	cases contractx.CaseStore,
	interpreter contractx.Interpreter,
	summarizer contractx.Summarizer,
	backends contractx.Backends,
	cfg Config,
) (*Assistant, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cases == nil {
		return nil, errors.New("case store is required")
	}
	if interpreter == nil {
		return nil, errors.New("interpreter is required")
	}
	if summarizer == nil {
		return nil, errors.New("summarizer is required")
	}
	if backends.Logs == nil {
		return nil, errors.New("log backend is required")
	}
	if backends.History == nil {
		return nil, errors.New("history backend is required")
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = nodex.DefaultFetchTimeout
	}

	a := &Assistant{
		sessions:     sessions,
		cases:        cases,
		interpreter:  interpreter,
		summarizer:   summarizer,
		backends:     backends,
		ranker:       cfg.Ranker,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
		newCaseID:    uuid.NewString,
	}

	graphRunner, err := a.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	a.graphRunner = graphRunner

	return a, nil
}

// ProcessTurn runs one user turn through the diagnostic workflow and
// returns the assistant's reply. CaseID is set only when the turn
// produced a stored investigation.
func (a *Assistant) ProcessTurn(ctx context.Context, sessionID string, text string) (contractx.TurnResult, error) {
	out, err := a.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return contractx.TurnResult{}, err
	}
	return contractx.TurnResult{ResponseText: out.Reply, CaseID: out.CaseID}, nil
}

// SubmitFeedback attaches after-the-fact user feedback to a stored
// case. Feedback for a case id the store has never seen is dropped by
// the store, not surfaced as an error.
func (a *Assistant) SubmitFeedback(ctx context.Context, caseID string, feedback map[string]string, reward *float64) error {
	caseID = strings.TrimSpace(caseID)
	if caseID == "" {
		return fmt.Errorf("%w: case id is required", contractx.ErrValidation)
	}
	if len(feedback) == 0 && reward == nil {
		return fmt.Errorf("%w: feedback or reward is required", contractx.ErrValidation)
	}
	return a.cases.UpdateCaseWithFeedback(ctx, caseID, feedback, reward)
}
