package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/dmalikzadeh/ai-interview/internal/voice"
)

type stillTicker struct{ c chan time.Time }

func (s stillTicker) C() <-chan time.Time { return s.c }
func (s stillTicker) Stop()               {}

type cannedInterviewer struct{}

func (cannedInterviewer) NextTurn(_ context.Context, _ interview.TurnRequest) (interview.TurnResponse, error) {
	return interview.TurnResponse{Message: "Tell me more.", Note: interview.NeutralNote()}, nil
}

type liveFixture struct {
	svc      *liveService
	sessions *memSessionRepo
	queue    *fakeQueue
	rec      *Recorder
}

func preparedSession(id string, created time.Time) models.Session {
	return models.Session{
		SessionID:    id,
		UserID:       "u1",
		Status:       models.SessionPrepared,
		Interview:    testConfig,
		FirstMessage: "Hi Sam, welcome!",
		CreatedAt:    created,
	}
}

func newLiveFixture(t *testing.T, sessions ...models.Session) *liveFixture {
	t.Helper()
	f := &liveFixture{sessions: newMemSessionRepo(sessions...), queue: &fakeQueue{}}
	sessionSvc := NewSessionService(f.sessions)
	f.rec = NewRecorder(NewConversationService(newMemConvoRepo(), nil, nil), sessionSvc, f.queue, nil, nil)
	f.svc = NewLiveService(sessionSvc, cannedInterviewer{}, f.rec, interview.ControllerConfig{GraceDelay: 10 * time.Millisecond}, nil).(*liveService)
	f.svc.newTicker = func(time.Duration) interview.Ticker { return stillTicker{c: make(chan time.Time)} }
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = f.svc.Shutdown(ctx)
		f.rec.Close()
	})
	return f
}

func newTestVoice() *voice.Channel {
	return voice.NewChannel(&voice.MockSynthesizer{}, voice.NewMockPlayer(), voice.NewMockRecognizer(), voice.Config{FinalSilence: 50 * time.Millisecond}, nil)
}

func (f *liveFixture) launch(t *testing.T, id string) *LiveSession {
	t.Helper()
	sess, err := NewSessionService(f.sessions).Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", id, err)
	}
	ls, err := f.svc.Launch(context.Background(), sess, newTestVoice(), nil)
	if err != nil {
		t.Fatalf("Launch(%s) error = %v", id, err)
	}
	return ls
}

func waitDone(t *testing.T, ls *LiveSession) {
	t.Helper()
	select {
	case <-ls.Controller.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session %s did not stop", ls.SessionID)
	}
}

func waitGone(t *testing.T, svc *liveService, id string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := svc.Get(id); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %s still registered", id)
}

func TestLaunchRequiresPreparedSession(t *testing.T) {
	f := newLiveFixture(t)
	sess := preparedSession("s1", time.Now())
	sess.Status = models.SessionEnded

	if _, err := f.svc.Launch(context.Background(), &sess, newTestVoice(), nil); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("Launch() error = %v, want CONFLICT", err)
	}
}

func TestLaunchRunsUntilEnded(t *testing.T) {
	f := newLiveFixture(t, preparedSession("s1", time.Now()))
	ls := f.launch(t, "s1")

	if got := f.sessions.get("s1").Status; got != models.SessionLive {
		t.Fatalf("status = %q, want live", got)
	}
	if _, ok := f.svc.Get("s1"); !ok {
		t.Fatalf("session not registered")
	}
	if list := f.svc.List(); len(list) != 1 || list[0].UserID != "u1" || list[0].SessionID != "s1" {
		t.Fatalf("List() = %+v", list)
	}

	ls.Controller.End()
	waitDone(t, ls)
	waitGone(t, f.svc, "s1")
	f.rec.Close()

	got := f.sessions.get("s1")
	if got.Status != models.SessionEnded || got.EndReason != interview.EndUser || got.SummaryStatus != models.SummaryPending {
		t.Fatalf("session = %+v", got)
	}
	if jobs := f.queue.Jobs(); len(jobs) != 1 {
		t.Fatalf("jobs = %v, want one summary job", jobs)
	}
}

func TestLaunchRejectsSessionAlreadyLive(t *testing.T) {
	f := newLiveFixture(t, preparedSession("s1", time.Now()))
	sess, _ := NewSessionService(f.sessions).Get(context.Background(), "s1")
	f.launch(t, "s1")

	if _, err := f.svc.Launch(context.Background(), sess, newTestVoice(), nil); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("second Launch() error = %v, want CONFLICT", err)
	}
}

func TestDiscardLiveSessionSkipsSummary(t *testing.T) {
	f := newLiveFixture(t, preparedSession("s1", time.Now()))
	ls := f.launch(t, "s1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.svc.Discard(ctx, "u1", "s1"); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	waitDone(t, ls)
	f.rec.Close()

	if got := f.sessions.get("s1").Status; got != models.SessionDiscarded {
		t.Fatalf("status = %q, want discarded", got)
	}
	if ls.Store.Len() != 0 {
		t.Fatalf("store still holds %d turns", ls.Store.Len())
	}
	if jobs := f.queue.Jobs(); len(jobs) != 0 {
		t.Fatalf("jobs = %v, want none", jobs)
	}

	if err := f.svc.Discard(ctx, "u1", "s1"); err != nil {
		t.Fatalf("second Discard() error = %v", err)
	}
}

func TestDiscardEndedSessionConflicts(t *testing.T) {
	ended := preparedSession("s1", time.Now())
	ended.Status = models.SessionEnded
	f := newLiveFixture(t, ended)

	if err := f.svc.Discard(context.Background(), "u1", "s1"); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("Discard() error = %v, want CONFLICT", err)
	}
}

func TestResetUserDiscardsOpenSessions(t *testing.T) {
	now := time.Now()
	ended := preparedSession("old", now.Add(-time.Hour))
	ended.Status = models.SessionEnded
	f := newLiveFixture(t, preparedSession("a", now.Add(-time.Minute)), preparedSession("b", now), ended)

	if err := f.svc.ResetUser(context.Background(), "u1"); err != nil {
		t.Fatalf("ResetUser() error = %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if got := f.sessions.get(id).Status; got != models.SessionDiscarded {
			t.Fatalf("%s status = %q, want discarded", id, got)
		}
	}
	if got := f.sessions.get("old").Status; got != models.SessionEnded {
		t.Fatalf("ended session status = %q", got)
	}
}

func TestShutdownCancelsLiveSessions(t *testing.T) {
	f := newLiveFixture(t, preparedSession("s1", time.Now()))
	ls := f.launch(t, "s1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.svc.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	waitDone(t, ls)
	f.rec.Close()

	if got := f.sessions.get("s1"); got.Status != models.SessionEnded || got.EndReason != interview.EndCanceled {
		t.Fatalf("session = %+v", got)
	}
}
