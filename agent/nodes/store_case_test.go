package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/suthimate/offerlens/agent/contract"
	memoryx "github.com/suthimate/offerlens/agent/memory"
	statex "github.com/suthimate/offerlens/agent/state"
)

type storeCaseFake struct {
	*memoryx.MemoryCaseStore
	patternErr error
}

func (s *storeCaseFake) StorePattern(ctx context.Context, p contractx.DiagnosticPattern) error {
	if s.patternErr != nil {
		return s.patternErr
	}
	return s.MemoryCaseStore.StorePattern(ctx, p)
}

func completedState() *GraphState {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	st := statex.NewConversationState("sess-1", now)
	st.BeginTurn("why is offer-1 down?", now)
	st.EntityIDs = []string{"offer-1"}
	st.EntityType = contractx.EntityOffer
	st.Environment = contractx.EnvProduction
	st.QueryCategory = contractx.CategoryEntityStatus
	st.FinalSummary = "the offer expired"
	return &GraphState{
		SessionID:      "sess-1",
		Session:        st,
		Now:            now,
		ToolsUsed:      []string{"entity_history", "datadog_logs"},
		AssistantReply: "the offer expired",
	}
}

func TestStoreCasePersistsCaseAndPattern(t *testing.T) {
	t.Parallel()

	store := memoryx.NewMemoryCaseStore()
	in := completedState()

	out, err := StoreCase(context.Background(), in, store, func() string { return "case-1" })
	if err != nil {
		t.Fatalf("StoreCase: %v", err)
	}
	if out.CaseID != "case-1" || out.Reply != "the offer expired" {
		t.Fatalf("unexpected output: %+v", out)
	}

	p, err := store.GetPattern(context.Background(), contractx.CategoryEntityStatus, contractx.EntityOffer, contractx.EnvProduction)
	if err != nil {
		t.Fatalf("GetPattern: %v", err)
	}
	if p.UsageCount != 1 || p.SuccessRate != 1 {
		t.Fatalf("pattern not observed: %+v", p)
	}
}

func TestStoreCaseSkipsIncompleteTurn(t *testing.T) {
	t.Parallel()

	store := memoryx.NewMemoryCaseStore()
	in := completedState()
	in.Session.QueryCategory = ""

	out, err := StoreCase(context.Background(), in, store, func() string { return "case-1" })
	if err != nil {
		t.Fatalf("StoreCase: %v", err)
	}
	if out.CaseID != "" {
		t.Fatalf("incomplete turn must not store a case, got %q", out.CaseID)
	}
}

func TestStoreCasePatternFailureKeepsCase(t *testing.T) {
	t.Parallel()

	store := &storeCaseFake{MemoryCaseStore: memoryx.NewMemoryCaseStore(), patternErr: errors.New("pg down")}
	in := completedState()

	out, err := StoreCase(context.Background(), in, store, func() string { return "case-1" })
	if err != nil {
		t.Fatalf("StoreCase: %v", err)
	}
	if out.CaseID != "case-1" {
		t.Fatalf("a pattern write failure must not undo the case, got %q", out.CaseID)
	}
	cases, err := store.RetrieveSimilarCases(context.Background(), contractx.CategoryEntityStatus, contractx.EntityOffer, contractx.EnvProduction, 1)
	if err != nil || len(cases) != 1 {
		t.Fatalf("stored case missing: %v %v", cases, err)
	}
}

func TestStoreCaseFallbackCountsAsFailure(t *testing.T) {
	t.Parallel()

	store := memoryx.NewMemoryCaseStore()
	in := completedState()
	in.FallbackSummary = true

	if _, err := StoreCase(context.Background(), in, store, func() string { return "case-1" }); err != nil {
		t.Fatalf("StoreCase: %v", err)
	}
	p, err := store.GetPattern(context.Background(), contractx.CategoryEntityStatus, contractx.EntityOffer, contractx.EnvProduction)
	if err != nil {
		t.Fatalf("GetPattern: %v", err)
	}
	if p.SuccessRate != 0 {
		t.Fatalf("fallback summaries are not successes: %+v", p)
	}
}
