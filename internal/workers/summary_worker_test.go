package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls []summaryJob
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, sessionID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, summaryJob{SessionID: sessionID, UserID: userID})
	return g.err
}

func TestParseJob(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		ok     bool
	}{
		{"complete", map[string]any{"session_id": "s1", "user_id": "u1"}, true},
		{"missing user", map[string]any{"session_id": "s1"}, false},
		{"missing session", map[string]any{"user_id": "u1"}, false},
		{"wrong type", map[string]any{"session_id": 42, "user_id": "u1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseJob(redis.XMessage{ID: "1-0", Values: tt.values})
			if ok != tt.ok {
				t.Fatalf("parseJob() ok = %v, want %v", ok, tt.ok)
			}
		})
	}
}

func TestHandleMsgCallsGenerator(t *testing.T) {
	gen := &fakeGenerator{}
	p := &SummaryWorkerPool{Generator: gen, Logger: logrus.New(), JobTimeout: time.Second}

	p.handleMsg(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"session_id": "s1", "user_id": "u1"}})
	p.handleMsg(context.Background(), redis.XMessage{ID: "2-0", Values: map[string]any{"session_id": "s2"}})

	if len(gen.calls) != 1 || gen.calls[0] != (summaryJob{SessionID: "s1", UserID: "u1"}) {
		t.Fatalf("calls = %+v, want one call for s1/u1", gen.calls)
	}
}

func TestHandleMsgSurvivesGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	p := &SummaryWorkerPool{Generator: gen, Logger: logrus.New(), JobTimeout: time.Second}

	p.handleMsg(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"session_id": "s1", "user_id": "u1"}})
	if len(gen.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(gen.calls))
	}
}

func TestStartRequiresDependencies(t *testing.T) {
	p := &SummaryWorkerPool{}
	if err := p.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil, want missing dependency error")
	}
}

func TestEnqueueRejectsEmptySession(t *testing.T) {
	q := NewSummaryQueue(nil, "")
	if q.Stream != DefaultSummaryStream {
		t.Fatalf("Stream = %q, want %q", q.Stream, DefaultSummaryStream)
	}
	if err := q.Enqueue(context.Background(), "", "u1"); err == nil {
		t.Fatal("Enqueue() error = nil, want error for empty session")
	}
}
