package interview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/voice"
	"github.com/sirupsen/logrus"
)

const (
	DefaultGraceDelay     = 300 * time.Millisecond
	DefaultRequestTimeout = 45 * time.Second
)

type ControllerConfig struct {
	// GraceDelay lets the client's audio output settle before listening
	// resumes after a pause or unmute.
	GraceDelay     time.Duration
	RequestTimeout time.Duration
}

// Status is a point-in-time view of a live controller.
type Status struct {
	SessionID string     `json:"session_id"`
	Phase     string     `json:"phase"`
	Muted     bool       `json:"muted"`
	Speaking  bool       `json:"speaking"`
	Volume    float64    `json:"volume"`
	Clock     ClockState `json:"clock"`
	Turns     int        `json:"turns"`
}

// Controller runs the turn-taking machine for one live session. All
// transitions happen on a single goroutine; speech, AI requests and the
// grace delay run asynchronously and report back as events.
type Controller struct {
	id    string
	store *Store
	clock *Clock
	voice Voice
	ai    Interviewer
	obs   Observer
	cfg   ControllerConfig
	log   *logrus.Entry

	events chan event
	done   chan struct{}

	// owned by the loop goroutine
	m          machine
	stopListen func()
	cancelReq  context.CancelFunc
	graceTimer *time.Timer
	reason     string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	snapshot machine
	started  bool
}

func NewController(sessionID string, store *Store, v Voice, ai Interviewer, obs Observer, cfg ControllerConfig, log *logrus.Entry) *Controller {
	if cfg.GraceDelay <= 0 {
		cfg.GraceDelay = DefaultGraceDelay
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if obs == nil {
		obs = NopObserver{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Controller{
		id:     sessionID,
		store:  store,
		clock:  store.Clock(),
		voice:  v,
		ai:     ai,
		obs:    obs,
		cfg:    cfg,
		log:    log.WithFields(logrus.Fields{"component": "turn_controller", "session_id": sessionID}),
		events: make(chan event, 64),
		done:   make(chan struct{}),
	}
}

func (c *Controller) ID() string { return c.id }

// Start launches the event loop and begins the session. firstMessage is
// spoken first when non-empty; otherwise the controller starts listening.
// The loop stops when the session ends or ctx is cancelled.
func (c *Controller) Start(ctx context.Context, firstMessage string) error {
	cfg := c.store.Config()
	if cfg.DurationSeconds <= 0 {
		return ErrInvalidDuration
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	c.clock.OnTick(func(s ClockState) {
		c.post(event{kind: evTick, clock: s})
	})
	c.events <- event{kind: evStart, text: firstMessage, clock: ClockState{TotalSeconds: cfg.DurationSeconds}}

	go c.run(ctx)
	return nil
}

func (c *Controller) Pause()  { c.post(event{kind: evPause}) }
func (c *Controller) Resume() { c.post(event{kind: evResume}) }

func (c *Controller) SetMuted(muted bool) { c.post(event{kind: evMute, muted: muted}) }

func (c *Controller) ToggleMute() { c.post(event{kind: evMute, toggle: true}) }

// End stops the session early. Idempotent.
func (c *Controller) End() { c.post(event{kind: evEnd, reason: EndUser}) }

// FeedAudio forwards microphone audio; dropped unless listening.
func (c *Controller) FeedAudio(ctx context.Context, chunk []byte) error {
	return c.voice.FeedAudio(ctx, chunk)
}

// Done is closed once the loop has exited and every audio session has
// been released.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Reason reports why the session ended; valid after Done is closed.
func (c *Controller) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	m := c.snapshot
	c.mu.Unlock()
	return Status{
		SessionID: c.id,
		Phase:     m.phase.String(),
		Muted:     m.muted,
		Speaking:  c.voice.IsSpeaking(),
		Volume:    c.voice.VolumeLevel(),
		Clock:     c.clock.State(),
		Turns:     c.store.Len(),
	}
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot.phase
}

func (c *Controller) post(ev event) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) run(ctx context.Context) {
	defer c.teardown()
	for {
		select {
		case <-ctx.Done():
			c.dispatch(event{kind: evEnd, reason: EndCanceled})
			return
		case ev := <-c.events:
			c.dispatch(ev)
			if c.m.phase == PhaseEnded {
				return
			}
		}
	}
}

func (c *Controller) dispatch(ev event) {
	if ev.kind == evTick {
		c.obs.Clock(ev.clock)
	}

	prev := c.m.phase
	next, effs := transition(c.m, ev)
	c.m = next
	for _, e := range effs {
		c.execute(e)
	}

	c.mu.Lock()
	c.snapshot = c.m
	c.mu.Unlock()

	if c.m.phase != prev {
		c.log.WithFields(logrus.Fields{"from": prev.String(), "phase": c.m.phase.String()}).Debug("phase changed")
		c.obs.PhaseChanged(c.m.phase)
	}
}

// execute performs one effect. Blocking work runs in goroutines that post
// their completion back to the loop.
func (c *Controller) execute(e effect) {
	switch e.kind {
	case effStartClock:
		if err := c.clock.Start(e.total); err != nil {
			c.log.WithError(err).Error("clock start failed")
		}
	case effPauseClock:
		c.clock.Pause()
	case effResumeClock:
		c.clock.Resume()
	case effStopClock:
		c.clock.Stop()

	case effSpeak:
		id, text := e.id, e.text
		go func() {
			err := c.voice.Speak(c.ctx, text)
			c.post(event{kind: evSpeechDone, id: id, err: err})
		}()
	case effStopSpeaking:
		c.voice.StopSpeaking()
	case effPauseSpeaking:
		c.voice.PauseSpeaking()
	case effResumeSpeaking:
		c.voice.ResumeSpeaking()

	case effListen:
		// opening the recognition stream dials the backend, so it reports back
		id := e.id
		go func() {
			stop, err := c.voice.Listen(c.ctx,
				func(text string) { c.obs.Partial(text) },
				func(text string) { c.post(event{kind: evFinal, id: id, text: text}) },
				func(err error) { c.post(event{kind: evListenFailed, id: id, err: err}) },
			)
			if err != nil {
				if !errors.Is(err, voice.ErrListenCanceled) {
					c.log.WithError(err).Warn("listen failed to start")
				}
				c.post(event{kind: evListenFailed, id: id, err: err})
				return
			}
			c.post(event{kind: evListenStarted, id: id, release: stop})
		}()
	case effAdoptListen:
		if c.stopListen != nil {
			c.stopListen()
		}
		c.stopListen = e.release
	case effReleaseListen:
		if e.release != nil {
			e.release()
		}
	case effStopListening:
		if c.stopListen != nil {
			c.stopListen()
			c.stopListen = nil
		}

	case effRequest:
		c.issueRequest(e.id)
	case effCancelRequest:
		if c.cancelReq != nil {
			c.cancelReq()
			c.cancelReq = nil
		}

	case effAppend:
		if err := c.store.AppendTurn(e.turn); err != nil {
			c.log.WithError(err).WithField("role", e.turn.Role).Warn("turn not appended")
			break
		}
		c.obs.TurnAppended(e.turn)

	case effScheduleGrace:
		id := e.id
		if c.graceTimer != nil {
			c.graceTimer.Stop()
		}
		c.graceTimer = time.AfterFunc(c.cfg.GraceDelay, func() {
			c.post(event{kind: evGraceElapsed, id: id})
		})

	case effFreeze:
		c.store.Freeze()

	case effNotify:
		c.log.WithError(e.err).WithField("notice", e.notice).Warn("turn degraded")
		c.obs.Notice(e.notice, e.err)

	case effFinished:
		c.mu.Lock()
		c.reason = e.text
		c.mu.Unlock()
		c.log.WithFields(logrus.Fields{"reason": e.text, "turns": c.store.Len()}).Info("interview ended")
		c.obs.Ended(e.text, c.store.Turns())
	}
}

func (c *Controller) issueRequest(id uint64) {
	st := c.clock.State()
	req := TurnRequest{
		SessionID:        c.id,
		Config:           c.store.Config(),
		History:          c.store.Recent(HistoryLimit),
		RemainingSeconds: st.RemainingSeconds,
		NearEnd:          st.NearEnd(),
	}

	rctx, cancel := context.WithTimeout(c.ctx, c.cfg.RequestTimeout)
	c.cancelReq = cancel
	go func() {
		defer cancel()
		resp, err := c.ai.NextTurn(rctx, req)
		if err != nil {
			c.post(event{kind: evRequestFailed, id: id, err: &AIRequestError{Op: "next_turn", Err: err}})
			return
		}
		c.post(event{kind: evResponse, id: id, resp: resp})
	}()
}

func (c *Controller) teardown() {
	if c.graceTimer != nil {
		c.graceTimer.Stop()
	}
	if c.cancelReq != nil {
		c.cancelReq()
	}
	if c.stopListen != nil {
		c.stopListen()
		c.stopListen = nil
	}
	c.clock.OnTick(nil)
	c.clock.Stop()
	c.voice.Close()
	c.cancel()
	close(c.done)
}

func isStopped(err error) bool { return errors.Is(err, voice.ErrSpeechStopped) }
