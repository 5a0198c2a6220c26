package contract

import (
	"fmt"
	"time"
)

// QueryCategory classifies what kind of problem a user turn is about.
// The string values are a wire contract shared with stored cases and
// downstream tooling; do not rename them.
type QueryCategory string

const (
	CategoryEntityStatus      QueryCategory = "ENTITY_STATUS"
	CategoryOfferPrice        QueryCategory = "OFFER_PRICE"
	CategoryDataInconsistency QueryCategory = "DATA_INCONSISTENCY"
	CategoryMissingEntity     QueryCategory = "MISSING_ENTITY"
	CategoryCampaignSetup     QueryCategory = "CAMPAIGN_SETUP"
	CategoryGeneralQuestion   QueryCategory = "GENERAL_QUESTION"
	CategoryUnknown           QueryCategory = "UNKNOWN_CATEGORY"
)

type EntityType string

const (
	EntityCampaign EntityType = "campaign"
	EntityOffer    EntityType = "offer"
	EntityProduct  EntityType = "product"
	EntitySKU      EntityType = "sku"
	EntityGeneral  EntityType = "general"
	EntityUnknown  EntityType = "unknown"
)

// Environment is the deployment tier an investigation targets.
// EnvUnknown is a first-class value meaning "the user did not say",
// distinct from a field that was never set; it always triggers
// clarification before any backend is called.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
	EnvUnknown     Environment = "unknown"
)

// BackendAlias maps an Environment to the short tier name backends
// route on. An unknown environment is an error here on purpose: the
// clarification gate must stop the run before any routing decision,
// so reaching this with EnvUnknown indicates a bug upstream.
func (e Environment) BackendAlias() (string, error) {
	switch e {
	case EnvProduction:
		return "prod", nil
	case EnvStaging:
		return "qa", nil
	case EnvDevelopment:
		return "dev", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, string(e))
	}
}

// ChatTurn is one human/assistant exchange rendered for an LLM prompt.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Extraction is the structured intent pulled out of a user turn.
type Extraction struct {
	Category        QueryCategory `json:"category"`
	EntityIDs       []string      `json:"entityIds,omitempty"`
	EntityType      EntityType    `json:"entityType"`
	Environment     Environment   `json:"environment"`
	TimeRange       string        `json:"time_range,omitempty"`
	InitialResponse string        `json:"initial_response,omitempty"`
}

// FallbackExtraction is the canonical "could not understand" result
// substituted when the interpreter call fails.
func FallbackExtraction() Extraction {
	return Extraction{
		Category:    CategoryUnknown,
		EntityType:  EntityUnknown,
		Environment: EnvUnknown,
	}
}

// LogRecord is one log line returned by the log-search backend.
type LogRecord struct {
	Service       string            `json:"service"`
	Severity      string            `json:"severity"`
	Message       string            `json:"message"`
	ExceptionText string            `json:"exception_text,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// FieldChange is one field-level delta inside a version diff.
type FieldChange struct {
	FieldName string `json:"field_name"`
	OldValue  string `json:"old_value"`
	NewValue  string `json:"new_value"`
}

// VersionDiff describes the change set between two persisted versions
// of an entity.
type VersionDiff struct {
	EntityID    string        `json:"entity_id"`
	FromVersion int           `json:"from_version"`
	ToVersion   int           `json:"to_version"`
	ChangedBy   string        `json:"changed_by,omitempty"`
	ChangedAt   time.Time     `json:"changed_at"`
	Changes     []FieldChange `json:"changes"`
}

// CatalogOffer is an offer record as one of the catalog systems sees it.
// Source names the system of record ("genie" or "offer-service").
type CatalogOffer struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Status     string            `json:"status,omitempty"`
	Source     string            `json:"source"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// PriceQuote is the pricing backend's answer for a single offer.
type PriceQuote struct {
	OfferID       string  `json:"offer_id"`
	CurrencyCode  string  `json:"currency_code"`
	Amount        float64 `json:"amount"`
	BillingPeriod string  `json:"billing_period,omitempty"`
}

// DiagnosticCase is one completed (non-clarification) diagnostic turn,
// persisted for similarity retrieval. Immutable once written except for
// the feedback merge.
type DiagnosticCase struct {
	CaseID           string            `json:"caseId"`
	Timestamp        time.Time         `json:"timestamp"`
	Category         QueryCategory     `json:"category"`
	EntityType       EntityType        `json:"entityType"`
	EntityIDs        []string          `json:"entityIds,omitempty"`
	Environment      Environment       `json:"environment"`
	UserQuery        string            `json:"userQuery"`
	ToolsUsed        []string          `json:"toolsUsed,omitempty"`
	FinalSummary     string            `json:"finalSummary"`
	OverallRlReward  float64           `json:"overallRlReward"`
	MessageFeedbacks map[string]string `json:"messageFeedbacks,omitempty"`
}

// DiagnosticPattern aggregates cases sharing a
// (category, entityType, environment) triple.
type DiagnosticPattern struct {
	PatternID   string        `json:"patternId"`
	Category    QueryCategory `json:"category"`
	EntityType  EntityType    `json:"entityType"`
	Environment Environment   `json:"environment"`
	CommonTools []string      `json:"commonTools,omitempty"`
	SuccessRate float64       `json:"successRate"`
	UsageCount  int64         `json:"usageCount"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

// TurnResult is what ProcessTurn hands back to the serving layer.
// CaseID is set only when the turn completed a full diagnostic cycle,
// so the caller knows whether to surface a feedback UI.
type TurnResult struct {
	ResponseText string `json:"responseText"`
	CaseID       string `json:"caseId,omitempty"`
}
