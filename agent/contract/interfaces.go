package contract

import (
	"context"
	"time"
)

// Interpreter turns the latest user utterance plus the conversation so
// far into a structured Extraction. Implementations fail with
// ErrModelInvoke / ErrSchemaViolation; callers substitute
// FallbackExtraction rather than aborting the turn.
type Interpreter interface {
	Extract(ctx context.Context, req ExtractRequest) (Extraction, error)
}

type ExtractRequest struct {
	Transcript  []ChatTurn `json:"transcript"`
	LatestQuery string     `json:"latest_query"`
	Now         time.Time  `json:"now"`
}

// Summarizer produces the final diagnosis text from the accumulated
// evidence. Callers substitute a fixed fallback string on error.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

type SummaryRequest struct {
	Transcript      []ChatTurn        `json:"transcript"`
	UserQuery       string            `json:"user_query"`
	AnalysisResults map[string]string `json:"analysis_results"`
}

// Evidence backends. Each call may fail with transport errors; the
// fetch stage catches at the call boundary and converts failures into
// annotations, never aborting the group.

type LogSearcher interface {
	FetchLogs(ctx context.Context, ids []string, timeRange, query string) ([]LogRecord, error)
}

type HistoryClient interface {
	FetchHistory(ctx context.Context, entityType EntityType, id string, limit int) ([]VersionDiff, error)
}

// CatalogClient is catalog system A (genie): one lookup per offer id.
type CatalogClient interface {
	FetchOffer(ctx context.Context, id string, env Environment) (*CatalogOffer, error)
}

// OfferServiceClient is catalog system B: one batched lookup per turn.
type OfferServiceClient interface {
	FetchOffers(ctx context.Context, ids []string, env Environment) ([]CatalogOffer, error)
}

type PriceClient interface {
	FetchOfferPrice(ctx context.Context, id string, env Environment) (PriceQuote, error)
}

// Backends bundles the evidence collaborators handed to the fetch stage.
type Backends struct {
	Logs         LogSearcher
	History      HistoryClient
	Genie        CatalogClient
	OfferService OfferServiceClient
	Prices       PriceClient
}

// CaseStore is the case-memory persistence contract.
type CaseStore interface {
	// RetrieveSimilarCases returns up to limit past cases matching all
	// three keys exactly, most recent first.
	RetrieveSimilarCases(ctx context.Context, category QueryCategory, entityType EntityType, env Environment, limit int) ([]DiagnosticCase, error)

	// StoreCase is an idempotent upsert keyed by CaseID.
	StoreCase(ctx context.Context, c DiagnosticCase) error

	// UpdateCaseWithFeedback merges feedback per key into the stored
	// MessageFeedbacks map and optionally overwrites OverallRlReward.
	// A missing caseID is logged, not returned as an error: feedback may
	// arrive after the case record's normal lifecycle.
	UpdateCaseWithFeedback(ctx context.Context, caseID string, feedback map[string]string, reward *float64) error

	GetPattern(ctx context.Context, category QueryCategory, entityType EntityType, env Environment) (*DiagnosticPattern, error)
	StorePattern(ctx context.Context, p DiagnosticPattern) error
}
