package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	contractx "github.com/suthimate/offerlens/agent/contract"
)

// MemoryCaseStore is a process-local CaseStore, the simplest viable
// implementation and the one tests build on.
type MemoryCaseStore struct {
	mu       sync.RWMutex
	cases    map[string]contractx.DiagnosticCase
	patterns map[string]contractx.DiagnosticPattern
}

var _ contractx.CaseStore = (*MemoryCaseStore)(nil)

func NewMemoryCaseStore() *MemoryCaseStore {
	return &MemoryCaseStore{
		cases:    make(map[string]contractx.DiagnosticCase),
		patterns: make(map[string]contractx.DiagnosticPattern),
	}
}

func tripleKey(category contractx.QueryCategory, entityType contractx.EntityType, env contractx.Environment) string {
	return string(category) + "|" + string(entityType) + "|" + string(env)
}

func (s *MemoryCaseStore) RetrieveSimilarCases(
	_ context.Context,
	category contractx.QueryCategory,
	entityType contractx.EntityType,
	env contractx.Environment,
	limit int,
) ([]contractx.DiagnosticCase, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]contractx.DiagnosticCase, 0, limit)
	for _, c := range s.cases {
		if c.Category == category && c.EntityType == entityType && c.Environment == env {
			matches = append(matches, cloneCase(c))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *MemoryCaseStore) StoreCase(_ context.Context, c contractx.DiagnosticCase) error {
	if c.CaseID == "" {
		return contractx.ErrValidation
	}
	s.mu.Lock()
	s.cases[c.CaseID] = cloneCase(c)
	s.mu.Unlock()
	return nil
}

func (s *MemoryCaseStore) UpdateCaseWithFeedback(
	_ context.Context,
	caseID string,
	feedback map[string]string,
	reward *float64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok {
		log.Warn().Str("case_id", caseID).Msg("feedback for unknown case dropped")
		return nil
	}
	if c.MessageFeedbacks == nil {
		c.MessageFeedbacks = make(map[string]string, len(feedback))
	}
	for k, v := range feedback {
		c.MessageFeedbacks[k] = v
	}
	if reward != nil {
		c.OverallRlReward = *reward
	}
	s.cases[caseID] = c
	return nil
}

func (s *MemoryCaseStore) GetPattern(
	_ context.Context,
	category contractx.QueryCategory,
	entityType contractx.EntityType,
	env contractx.Environment,
) (*contractx.DiagnosticPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patterns[tripleKey(category, entityType, env)]
	if !ok {
		return nil, contractx.ErrPatternNotFound
	}
	clone := p
	clone.CommonTools = append([]string(nil), p.CommonTools...)
	return &clone, nil
}

func (s *MemoryCaseStore) StorePattern(_ context.Context, p contractx.DiagnosticPattern) error {
	s.mu.Lock()
	clone := p
	clone.CommonTools = append([]string(nil), p.CommonTools...)
	s.patterns[tripleKey(p.Category, p.EntityType, p.Environment)] = clone
	s.mu.Unlock()
	return nil
}

func cloneCase(c contractx.DiagnosticCase) contractx.DiagnosticCase {
	clone := c
	clone.EntityIDs = append([]string(nil), c.EntityIDs...)
	clone.ToolsUsed = append([]string(nil), c.ToolsUsed...)
	if c.MessageFeedbacks != nil {
		clone.MessageFeedbacks = make(map[string]string, len(c.MessageFeedbacks))
		for k, v := range c.MessageFeedbacks {
			clone.MessageFeedbacks[k] = v
		}
	}
	return clone
}
