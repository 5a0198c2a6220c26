package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUpstashSessionStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashSessionStore{}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "offerlens:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "offerlens:session:abc")
	}
}

func TestUpstashSessionStoreRedisKeyEmptySession(t *testing.T) {
	t.Parallel()

	store := &UpstashSessionStore{}
	if _, err := store.redisKey("   "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSession", err)
	}
}

func TestUpstashSessionStorePutSetsTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashSessionStore(
		UpstashConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithTTL(time.Hour),
	)
	if err != nil {
		t.Fatalf("NewUpstashSessionStore: %v", err)
	}

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	if err := store.Put(context.Background(), NewConversationState("session-1", now)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if len(gotCommand) != 5 {
		t.Fatalf("expected SET key payload EX ttl, got %v", gotCommand)
	}
	if gotCommand[0] != "SET" || gotCommand[1] != "offerlens:session:session-1" {
		t.Fatalf("unexpected command head: %v", gotCommand[:2])
	}
	if gotCommand[3] != "EX" {
		t.Fatalf("expected EX flag, got %v", gotCommand[3])
	}
	if ttl, ok := gotCommand[4].(float64); !ok || int64(ttl) != 3600 {
		t.Fatalf("expected ttl 3600, got %v", gotCommand[4])
	}
}

func TestUpstashSessionStoreGetNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashSessionStore(
		UpstashConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashSessionStore: %v", err)
	}

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestUpstashSessionStoreGetRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	stored := NewConversationState("session-1", now)
	stored.BeginTurn("why is offer-1 down?", now)
	payload, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashSessionStore(
		UpstashConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashSessionStore: %v", err)
	}

	got, err := store.Get(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserQuery != "why is offer-1 down?" {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestUpstashSessionStoreServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGPASS invalid token"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashSessionStore(
		UpstashConfig{URL: server.URL, Token: "bad"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashSessionStore: %v", err)
	}

	if _, err := store.Get(context.Background(), "session-1"); err == nil {
		t.Fatal("expected an error from the redis error field")
	}
}
