package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/suthimate/offerlens/agent/contract"
	statex "github.com/suthimate/offerlens/agent/state"
)

// ValidateRequest checks the raw turn input and stamps the run clock.
func ValidateRequest(in GraphInput, now func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: %w", contractx.ErrValidation, ErrInvalidSession)
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: %w", contractx.ErrValidation, ErrInvalidMessage)
	}
	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       now().UTC(),
	}, nil
}

// LoadOrCreateState fetches the session record, creating a fresh one
// for an unseen session id, and opens the new turn on it.
func LoadOrCreateState(ctx context.Context, in *GraphState, store statex.SessionStore) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: state load requires graph state", contractx.ErrValidation)
	}
	st, err := store.Get(ctx, in.SessionID)
	switch {
	case err == nil:
	case errors.Is(err, statex.ErrSessionNotFound):
		st = statex.NewConversationState(in.SessionID, in.Now)
	default:
		return nil, fmt.Errorf("load session %s: %w", in.SessionID, err)
	}
	st.BeginTurn(in.Text, in.Now)
	in.Session = st
	return in, nil
}

// SaveState writes the session back. A save failure is logged, not
// returned: the reply the user is waiting on outranks the bookkeeping.
func SaveState(ctx context.Context, in *GraphState, store statex.SessionStore) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: state save requires a session", contractx.ErrValidation)
	}
	if err := store.Put(ctx, in.Session); err != nil {
		log.Error().Err(err).Str("session_id", in.SessionID).Msg("session save failed, continuing with in-memory state")
	}
	return in, nil
}
