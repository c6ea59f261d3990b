package services

import (
	"context"
	"sync"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/events"
	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/observability"
	"github.com/sirupsen/logrus"
)

// SummaryQueue schedules summary generation for an ended session.
type SummaryQueue interface {
	Enqueue(ctx context.Context, sessionID, userID string) error
}

// EventPublisher is the subset of *events.Publisher the recorder uses.
type EventPublisher interface {
	PublishTurn(ctx context.Context, ev events.TurnEvent) error
	PublishSession(ctx context.Context, ev events.SessionEvent) error
}

const recorderQueueSize = 256

// Recorder persists what live controllers produce. Observer callbacks run
// on controller loops, so the work is handed to a single background worker
// that keeps per-session order.
type Recorder struct {
	convos   ConversationService
	sessions SessionService
	queue    SummaryQueue
	events   EventPublisher
	metrics  *observability.Metrics
	log      *logrus.Entry
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan func(context.Context)
	wg     sync.WaitGroup
}

func NewRecorder(convos ConversationService, sessions SessionService, queue SummaryQueue, pub EventPublisher, l *logrus.Logger) *Recorder {
	if l == nil {
		l = logrus.New()
	}
	r := &Recorder{
		convos:   convos,
		sessions: sessions,
		queue:    queue,
		events:   pub,
		metrics:  observability.DefaultMetrics,
		log:      l.WithField("component", "recorder"),
		timeout:  10 * time.Second,
		jobs:     make(chan func(context.Context), recorderQueueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for job := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		job(ctx)
		cancel()
	}
}

// submit blocks when the queue is full; a stalled database slows the
// controllers instead of losing turns.
func (r *Recorder) submit(job func(context.Context)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.log.Error("recorder closed, dropping job")
		return
	}
	r.jobs <- job
}

// Close drains pending jobs.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// For returns the observer for one live session. skipEnd reports whether
// the session was discarded, in which case its end is not recorded.
func (r *Recorder) For(userID, sessionID string, skipEnd func() bool) interview.Observer {
	return &sessionRecorder{r: r, userID: userID, sessionID: sessionID, skipEnd: skipEnd}
}

type sessionRecorder struct {
	interview.NopObserver

	r         *Recorder
	userID    string
	sessionID string
	skipEnd   func() bool
	seq       int
}

func (o *sessionRecorder) TurnAppended(t interview.Turn) {
	o.r.metrics.RecordTurn(string(t.Role))
	seq := o.seq
	o.seq++

	o.r.submit(func(ctx context.Context) {
		if _, err := o.r.convos.Append(ctx, o.userID, o.sessionID, seq, t); err != nil {
			o.r.log.WithError(err).WithField("session_id", o.sessionID).Error("failed to persist turn")
		}
		if o.r.events == nil {
			return
		}
		ev := events.TurnEvent{
			SessionID: o.sessionID,
			UserID:    o.userID,
			Index:     seq,
			Role:      string(t.Role),
			Text:      t.Text,
			Closing:   t.Closing,
			At:        t.At,
		}
		if t.Note != nil {
			score := t.Note.Score
			ev.Score = &score
		}
		_ = o.r.events.PublishTurn(ctx, ev)
	})
}

func (o *sessionRecorder) Notice(kind string, err error) {
	o.r.metrics.RecordNotice(kind)
	o.r.log.WithError(err).WithFields(logrus.Fields{"session_id": o.sessionID, "notice": kind}).Warn("session notice")
}

func (o *sessionRecorder) Ended(reason string, turns []interview.Turn) {
	o.r.metrics.RecordSessionEnd(reason)
	if o.skipEnd != nil && o.skipEnd() {
		return
	}
	count := len(turns)

	o.r.submit(func(ctx context.Context) {
		log := o.r.log.WithFields(logrus.Fields{"session_id": o.sessionID, "reason": reason})
		if _, err := o.r.sessions.End(ctx, o.sessionID, reason, count); err != nil {
			log.WithError(err).Error("failed to record session end")
			return
		}
		if err := o.r.queue.Enqueue(ctx, o.sessionID, o.userID); err != nil {
			log.WithError(err).Error("failed to enqueue summary")
			// leave it retryable
			if _, serr := o.r.sessions.SwapSummaryStatus(ctx, o.sessionID, []string{models.SummaryPending}, models.SummaryFailed); serr != nil {
				log.WithError(serr).Error("failed to mark summary failed")
			}
		}
		if o.r.events != nil {
			_ = o.r.events.PublishSession(ctx, events.SessionEvent{
				Type:      events.TypeSessionEnded,
				SessionID: o.sessionID,
				UserID:    o.userID,
				Reason:    reason,
				Turns:     count,
				At:        time.Now().UTC(),
			})
		}
		log.WithField("turns", count).Info("session ended")
	})
}
