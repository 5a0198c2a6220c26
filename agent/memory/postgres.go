package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	contractx "github.com/suthimate/offerlens/agent/contract"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

type caseRow struct {
	bun.BaseModel `bun:"table:diagnostic_cases,alias:dc"`

	CaseID           string            `bun:"case_id,pk"`
	Timestamp        time.Time         `bun:"timestamp,notnull"`
	Category         string            `bun:"category,notnull"`
	EntityType       string            `bun:"entity_type,notnull"`
	EntityIDs        []string          `bun:"entity_ids,array"`
	Environment      string            `bun:"environment,notnull"`
	UserQuery        string            `bun:"user_query"`
	ToolsUsed        []string          `bun:"tools_used,array"`
	FinalSummary     string            `bun:"final_summary"`
	OverallRlReward  float64           `bun:"overall_rl_reward"`
	MessageFeedbacks map[string]string `bun:"message_feedbacks,type:jsonb"`
}

type patternRow struct {
	bun.BaseModel `bun:"table:diagnostic_patterns,alias:dp"`

	PatternID   string    `bun:"pattern_id,pk"`
	Category    string    `bun:"category,notnull"`
	EntityType  string    `bun:"entity_type,notnull"`
	Environment string    `bun:"environment,notnull"`
	CommonTools []string  `bun:"common_tools,array"`
	SuccessRate float64   `bun:"success_rate"`
	UsageCount  int64     `bun:"usage_count"`
	LastUpdated time.Time `bun:"last_updated,notnull"`
}

// PostgresCaseStore is the durable CaseStore, one table per record kind.
// Cases are the source of truth; patterns are a derived index.
type PostgresCaseStore struct {
	db *bun.DB
}

var _ contractx.CaseStore = (*PostgresCaseStore)(nil)

func NewPostgresCaseStore(cfg PostgresConfig) *PostgresCaseStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(cfg.Timeout),
	))
	return &PostgresCaseStore{db: bun.NewDB(sqldb, pgdialect.New())}
}

// Init verifies connectivity and creates the schema. Callers treat any
// error here as fatal: a process that cannot reach the case store must
// not accept turns.
func (s *PostgresCaseStore) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping case store: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*caseRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create diagnostic_cases: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*patternRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create diagnostic_patterns: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*patternRow)(nil)).
		Index("diagnostic_patterns_triple_idx").
		Unique().
		IfNotExists().
		Column("category", "entity_type", "environment").
		Exec(ctx); err != nil {
		return fmt.Errorf("create pattern triple index: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*caseRow)(nil)).
		Index("diagnostic_cases_triple_ts_idx").
		IfNotExists().
		Column("category", "entity_type", "environment", "timestamp").
		Exec(ctx); err != nil {
		return fmt.Errorf("create case retrieval index: %w", err)
	}
	return nil
}

func (s *PostgresCaseStore) Close() error {
	return s.db.Close()
}

func (s *PostgresCaseStore) RetrieveSimilarCases(
	ctx context.Context,
	category contractx.QueryCategory,
	entityType contractx.EntityType,
	env contractx.Environment,
	limit int,
) ([]contractx.DiagnosticCase, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []caseRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("category = ?", string(category)).
		Where("entity_type = ?", string(entityType)).
		Where("environment = ?", string(env)).
		Order("timestamp DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve similar cases: %w", err)
	}

	cases := make([]contractx.DiagnosticCase, 0, len(rows))
	for _, row := range rows {
		cases = append(cases, row.toCase())
	}
	return cases, nil
}

func (s *PostgresCaseStore) StoreCase(ctx context.Context, c contractx.DiagnosticCase) error {
	if c.CaseID == "" {
		return fmt.Errorf("%w: case id is required", contractx.ErrValidation)
	}
	row := toCaseRow(c)
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (case_id) DO UPDATE").
		Set("final_summary = EXCLUDED.final_summary").
		Set("tools_used = EXCLUDED.tools_used").
		Set("overall_rl_reward = EXCLUDED.overall_rl_reward").
		Set("message_feedbacks = EXCLUDED.message_feedbacks").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store case %s: %w", c.CaseID, err)
	}
	return nil
}

func (s *PostgresCaseStore) UpdateCaseWithFeedback(
	ctx context.Context,
	caseID string,
	feedback map[string]string,
	reward *float64,
) error {
	var row caseRow
	err := s.db.NewSelect().Model(&row).Where("case_id = ?", caseID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		// Feedback can outlive the case's normal lifecycle; dropping it
		// is preferable to failing the caller.
		log.Warn().Str("case_id", caseID).Msg("feedback for unknown case dropped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load case %s for feedback: %w", caseID, err)
	}

	if row.MessageFeedbacks == nil {
		row.MessageFeedbacks = make(map[string]string, len(feedback))
	}
	for k, v := range feedback {
		row.MessageFeedbacks[k] = v
	}
	if reward != nil {
		row.OverallRlReward = *reward
	}

	_, err = s.db.NewUpdate().
		Model(&row).
		WherePK().
		Column("message_feedbacks", "overall_rl_reward").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update case %s feedback: %w", caseID, err)
	}
	return nil
}

func (s *PostgresCaseStore) GetPattern(
	ctx context.Context,
	category contractx.QueryCategory,
	entityType contractx.EntityType,
	env contractx.Environment,
) (*contractx.DiagnosticPattern, error) {
	var row patternRow
	err := s.db.NewSelect().
		Model(&row).
		Where("category = ?", string(category)).
		Where("entity_type = ?", string(entityType)).
		Where("environment = ?", string(env)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contractx.ErrPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pattern: %w", err)
	}
	p := row.toPattern()
	return &p, nil
}

func (s *PostgresCaseStore) StorePattern(ctx context.Context, p contractx.DiagnosticPattern) error {
	row := toPatternRow(p)
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (category, entity_type, environment) DO UPDATE").
		Set("common_tools = EXCLUDED.common_tools").
		Set("success_rate = EXCLUDED.success_rate").
		Set("usage_count = EXCLUDED.usage_count").
		Set("last_updated = EXCLUDED.last_updated").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store pattern %s: %w", p.PatternID, err)
	}
	return nil
}

func toCaseRow(c contractx.DiagnosticCase) caseRow {
	return caseRow{
		CaseID:           c.CaseID,
		Timestamp:        c.Timestamp.UTC(),
		Category:         string(c.Category),
		EntityType:       string(c.EntityType),
		EntityIDs:        c.EntityIDs,
		Environment:      string(c.Environment),
		UserQuery:        c.UserQuery,
		ToolsUsed:        c.ToolsUsed,
		FinalSummary:     c.FinalSummary,
		OverallRlReward:  c.OverallRlReward,
		MessageFeedbacks: c.MessageFeedbacks,
	}
}

func (r caseRow) toCase() contractx.DiagnosticCase {
	return contractx.DiagnosticCase{
		CaseID:           r.CaseID,
		Timestamp:        r.Timestamp,
		Category:         contractx.QueryCategory(r.Category),
		EntityType:       contractx.EntityType(r.EntityType),
		EntityIDs:        r.EntityIDs,
		Environment:      contractx.Environment(r.Environment),
		UserQuery:        r.UserQuery,
		ToolsUsed:        r.ToolsUsed,
		FinalSummary:     r.FinalSummary,
		OverallRlReward:  r.OverallRlReward,
		MessageFeedbacks: r.MessageFeedbacks,
	}
}

func toPatternRow(p contractx.DiagnosticPattern) patternRow {
	return patternRow{
		PatternID:   p.PatternID,
		Category:    string(p.Category),
		EntityType:  string(p.EntityType),
		Environment: string(p.Environment),
		CommonTools: p.CommonTools,
		SuccessRate: p.SuccessRate,
		UsageCount:  p.UsageCount,
		LastUpdated: p.LastUpdated.UTC(),
	}
}

func (r patternRow) toPattern() contractx.DiagnosticPattern {
	return contractx.DiagnosticPattern{
		PatternID:   r.PatternID,
		Category:    contractx.QueryCategory(r.Category),
		EntityType:  contractx.EntityType(r.EntityType),
		Environment: contractx.Environment(r.Environment),
		CommonTools: r.CommonTools,
		SuccessRate: r.SuccessRate,
		UsageCount:  r.UsageCount,
		LastUpdated: r.LastUpdated,
	}
}
