package nodes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	contractx "github.com/suthimate/offerlens/agent/contract"
	statex "github.com/suthimate/offerlens/agent/state"
)

type stubLogs struct {
	mu    sync.Mutex
	logs  []contractx.LogRecord
	err   error
	calls int
}

func (s *stubLogs) FetchLogs(ctx context.Context, ids []string, timeRange, query string) ([]contractx.LogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.logs, s.err
}

type stubHistory struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubHistory) FetchHistory(ctx context.Context, entityType contractx.EntityType, id string, limit int) ([]contractx.VersionDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []contractx.VersionDiff{{EntityID: id, FromVersion: 1, ToVersion: 2}}, nil
}

type stubGenie struct {
	mu    sync.Mutex
	err   error
	delay map[string]time.Duration
	calls int
}

func (s *stubGenie) FetchOffer(ctx context.Context, id string, env contractx.Environment) (*contractx.CatalogOffer, error) {
	s.mu.Lock()
	d := s.delay[id]
	s.calls++
	err := s.err
	s.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
	if err != nil {
		return nil, err
	}
	return &contractx.CatalogOffer{ID: id, Name: "Offer " + id, Status: "ACTIVE", Source: "genie"}, nil
}

type stubOfferService struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubOfferService) FetchOffers(ctx context.Context, ids []string, env contractx.Environment) ([]contractx.CatalogOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]contractx.CatalogOffer, 0, len(ids))
	for _, id := range ids {
		out = append(out, contractx.CatalogOffer{ID: id, Source: "offer-service"})
	}
	return out, nil
}

type stubPrices struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubPrices) FetchOfferPrice(ctx context.Context, id string, env contractx.Environment) (contractx.PriceQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return contractx.PriceQuote{}, s.err
	}
	return contractx.PriceQuote{OfferID: id, CurrencyCode: "USD", Amount: 9.99, BillingPeriod: "month"}, nil
}

func fetchFixture() (contractx.Backends, *stubLogs, *stubHistory, *stubGenie, *stubOfferService, *stubPrices) {
	logs := &stubLogs{}
	history := &stubHistory{}
	genie := &stubGenie{delay: map[string]time.Duration{}}
	offerService := &stubOfferService{}
	prices := &stubPrices{}
	return contractx.Backends{
		Logs:         logs,
		History:      history,
		Genie:        genie,
		OfferService: offerService,
		Prices:       prices,
	}, logs, history, genie, offerService, prices
}

func fetchState(entityType contractx.EntityType, category contractx.QueryCategory, ids ...string) *GraphState {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	st := statex.NewConversationState("sess-1", now)
	st.BeginTurn("investigate", now)
	st.EntityIDs = ids
	st.EntityType = entityType
	st.Environment = contractx.EnvProduction
	st.QueryCategory = category
	st.TimeRange = "24h"
	return &GraphState{SessionID: "sess-1", Session: st, Now: now}
}

func TestFetchEvidenceNoIDsNoOps(t *testing.T) {
	t.Parallel()

	backends, logs, history, _, _, _ := fetchFixture()
	in := fetchState(contractx.EntityGeneral, contractx.CategoryGeneralQuestion)

	out, err := FetchEvidence(context.Background(), in, backends, time.Second)
	if err != nil {
		t.Fatalf("FetchEvidence: %v", err)
	}
	if logs.calls+history.calls != 0 {
		t.Fatal("no backend may run without entity ids")
	}
	if len(out.ToolsUsed) != 0 {
		t.Fatalf("no tools should be recorded, got %v", out.ToolsUsed)
	}
}

func TestFetchEvidenceOfferPriceSelection(t *testing.T) {
	t.Parallel()

	backends, logs, history, genie, offerService, prices := fetchFixture()
	in := fetchState(contractx.EntityOffer, contractx.CategoryOfferPrice, "offer-1", "offer-2")

	out, err := FetchEvidence(context.Background(), in, backends, time.Second)
	if err != nil {
		t.Fatalf("FetchEvidence: %v", err)
	}

	if logs.calls != 1 || offerService.calls != 1 {
		t.Fatalf("batched ops must run once, logs=%d offerService=%d", logs.calls, offerService.calls)
	}
	if history.calls != 2 || genie.calls != 2 || prices.calls != 2 {
		t.Fatalf("per-id ops must run per id, history=%d genie=%d prices=%d", history.calls, genie.calls, prices.calls)
	}

	want := []string{"entity_history", "datadog_logs", "genie_offer", "offer_service", "offer_price"}
	if diff := cmp.Diff(want, out.ToolsUsed); diff != "" {
		t.Fatalf("tools mismatch (-want +got):\n%s", diff)
	}
	if len(in.Session.OfferPriceDetails) != 2 {
		t.Fatalf("expected 2 price quotes, got %d", len(in.Session.OfferPriceDetails))
	}
}

func TestFetchEvidenceCampaignSkipsOfferBackends(t *testing.T) {
	t.Parallel()

	backends, _, _, genie, offerService, prices := fetchFixture()
	in := fetchState(contractx.EntityCampaign, contractx.CategoryEntityStatus, "camp-1")

	out, err := FetchEvidence(context.Background(), in, backends, time.Second)
	if err != nil {
		t.Fatalf("FetchEvidence: %v", err)
	}
	if genie.calls+offerService.calls+prices.calls != 0 {
		t.Fatal("offer backends must not run for a campaign")
	}
	want := []string{"entity_history", "datadog_logs"}
	if diff := cmp.Diff(want, out.ToolsUsed); diff != "" {
		t.Fatalf("tools mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchEvidenceFailureIsolation(t *testing.T) {
	t.Parallel()

	backends, _, _, genie, _, _ := fetchFixture()
	genie.err = errors.New("genie 502")
	in := fetchState(contractx.EntityOffer, contractx.CategoryEntityStatus, "offer-1")

	out, err := FetchEvidence(context.Background(), in, backends, time.Second)
	if err != nil {
		t.Fatalf("one failing backend must not abort the fetch: %v", err)
	}

	note, ok := in.Session.AnalysisResults["genie_offer"]
	if !ok || !strings.Contains(note, "Could not retrieve") {
		t.Fatalf("missing failure annotation, got %q", note)
	}
	if len(in.Session.OfferServiceDetails) != 1 {
		t.Fatalf("surviving op results must be applied: %+v", in.Session.OfferServiceDetails)
	}
	if !containsTool(out.ToolsUsed, "genie_offer") {
		t.Fatalf("attempted tool must still be recorded, got %v", out.ToolsUsed)
	}
}

func TestFetchEvidenceDeterministicMergeOrder(t *testing.T) {
	t.Parallel()

	backends, _, _, genie, _, _ := fetchFixture()
	// The first id finishes last; merge order must still follow the
	// selection order, not completion order.
	genie.delay["offer-a"] = 30 * time.Millisecond
	in := fetchState(contractx.EntityOffer, contractx.CategoryEntityStatus, "offer-a", "offer-b")

	if _, err := FetchEvidence(context.Background(), in, backends, time.Second); err != nil {
		t.Fatalf("FetchEvidence: %v", err)
	}

	details := in.Session.GenieOfferDetails
	if len(details) != 2 || details[0].ID != "offer-a" || details[1].ID != "offer-b" {
		t.Fatalf("merge order must be deterministic, got %+v", details)
	}
}

func TestFetchEvidenceNilSelectedBackend(t *testing.T) {
	t.Parallel()

	backends, _, _, _, _, _ := fetchFixture()
	backends.Genie = nil
	in := fetchState(contractx.EntityOffer, contractx.CategoryEntityStatus, "offer-1")

	if _, err := FetchEvidence(context.Background(), in, backends, time.Second); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("a nil backend for a selected op is a wiring bug, got %v", err)
	}
}

func containsTool(tools []string, want string) bool {
	for _, tool := range tools {
		if tool == want {
			return true
		}
	}
	return false
}
