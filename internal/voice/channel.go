package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateIdle State = iota
	StateSpeaking
	StateListening
	StateTransitioning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StateListening:
		return "listening"
	case StateTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

const DefaultFinalSilence = 2 * time.Second

type Config struct {
	// FinalSilence is the gap without recognized speech that closes an utterance.
	FinalSilence time.Duration
}

// Channel is the sole owner of the playback handle and the recognition
// stream. Starting one session always ends the other.
type Channel struct {
	synth      Synthesizer
	player     Player
	recognizer Recognizer
	silence    time.Duration
	log        *logrus.Entry

	mu       sync.Mutex
	state    State
	gen      uint64
	playback Playback
	listen   *listenSession
	onState  func(State)
	closed   bool

	// pause requested; applied to playback that starts later
	paused bool

	speaking atomic.Bool
}

func NewChannel(synth Synthesizer, player Player, recognizer Recognizer, cfg Config, log *logrus.Entry) *Channel {
	if cfg.FinalSilence <= 0 {
		cfg.FinalSilence = DefaultFinalSilence
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Channel{
		synth:      synth,
		player:     player,
		recognizer: recognizer,
		silence:    cfg.FinalSilence,
		log:        log.WithField("component", "voice_channel"),
	}
}

// OnStateChange registers an observer. It runs with the channel locked and
// must not call back into the channel.
func (c *Channel) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsSpeaking reports confirmed playback only, not synthesis in progress.
func (c *Channel) IsSpeaking() bool { return c.speaking.Load() }

func (c *Channel) VolumeLevel() float64 {
	c.mu.Lock()
	pb := c.playback
	c.mu.Unlock()
	if pb == nil || !c.speaking.Load() {
		return 0
	}
	v := pb.Level()
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Speak synthesizes and plays text, returning when playback ends.
// It returns ErrSpeechStopped when the utterance was stopped or superseded.
func (c *Channel) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &SynthesisError{Op: "speak", Err: ErrEmptyText}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSpeechStopped
	}
	c.stopListeningLocked()
	c.stopPlaybackLocked()
	c.gen++
	gen := c.gen
	c.paused = false
	c.setStateLocked(StateTransitioning)
	c.mu.Unlock()

	audio, err := c.synth.Synthesize(ctx, text)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrSpeechStopped
	}
	if err != nil {
		c.settleLocked()
		c.mu.Unlock()
		if ctx.Err() != nil {
			return ErrSpeechStopped
		}
		return &SynthesisError{Op: "synthesize", Err: err}
	}
	pb, err := c.player.Play(ctx, audio)
	if err != nil {
		c.settleLocked()
		c.mu.Unlock()
		return &SynthesisError{Op: "play", Err: err}
	}
	c.playback = pb
	if c.paused {
		pb.Pause()
	}
	c.mu.Unlock()

	started := pb.Started()
	for {
		select {
		case <-started:
			started = nil
			c.mu.Lock()
			if c.playback == pb {
				c.speaking.Store(true)
				c.setStateLocked(StateSpeaking)
			}
			c.mu.Unlock()

		case <-pb.Done():
			c.mu.Lock()
			owned := c.playback == pb
			if owned {
				c.playback = nil
				c.speaking.Store(false)
				c.settleLocked()
			}
			c.mu.Unlock()

			if !owned {
				return ErrSpeechStopped
			}
			if perr := pb.Err(); perr != nil {
				if errors.Is(perr, ErrSpeechStopped) {
					return ErrSpeechStopped
				}
				return &SynthesisError{Op: "playback", Err: perr}
			}
			return nil

		case <-ctx.Done():
			c.mu.Lock()
			if c.playback == pb {
				c.stopPlaybackLocked()
				c.settleLocked()
			}
			c.mu.Unlock()
			return ErrSpeechStopped
		}
	}
}

// StopSpeaking halts playback and abandons synthesis in progress. Idempotent.
func (c *Channel) StopSpeaking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listen != nil {
		return
	}
	c.gen++
	c.stopPlaybackLocked()
	c.settleLocked()
}

// PauseSpeaking pauses current playback. A pause issued during synthesis
// applies once playback starts.
func (c *Channel) PauseSpeaking() {
	c.mu.Lock()
	c.paused = true
	pb := c.playback
	c.mu.Unlock()
	if pb != nil {
		pb.Pause()
	}
}

func (c *Channel) ResumeSpeaking() {
	c.mu.Lock()
	c.paused = false
	pb := c.playback
	c.mu.Unlock()
	if pb != nil {
		pb.Resume()
	}
}

// Listen starts continuous recognition and stops any playback first.
// The returned stop func is idempotent; no callback fires after it returns
// except one already in progress.
func (c *Channel) Listen(ctx context.Context, onPartial, onFinal func(string), onError func(error)) (func(), error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return func() {}, ErrListenCanceled
	}
	c.stopPlaybackLocked()
	c.stopListeningLocked()
	c.gen++
	gen := c.gen
	c.setStateLocked(StateTransitioning)
	c.mu.Unlock()

	stream, err := c.recognizer.Start(ctx)
	if err != nil {
		c.mu.Lock()
		if gen == c.gen {
			c.settleLocked()
		}
		c.mu.Unlock()
		return func() {}, &RecognitionError{Reason: "start", Err: err}
	}

	ls := &listenSession{stream: stream}
	ls.debounce = newFinalDebouncer(c.silence, func(text string) {
		if ls.active.Load() && onFinal != nil {
			onFinal(text)
		}
	})
	ls.active.Store(true)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		ls.close()
		return func() {}, ErrListenCanceled
	}
	c.listen = ls
	c.setStateLocked(StateListening)
	c.mu.Unlock()

	go c.pump(ls, onPartial, onError)

	stop := func() {
		c.mu.Lock()
		if c.listen == ls {
			c.listen = nil
			c.settleLocked()
		}
		c.mu.Unlock()
		ls.close()
	}
	return stop, nil
}

// FeedAudio forwards microphone audio to the active recognition stream.
// Audio arriving while not listening is dropped.
func (c *Channel) FeedAudio(ctx context.Context, chunk []byte) error {
	c.mu.Lock()
	ls := c.listen
	c.mu.Unlock()
	if ls == nil || !ls.active.Load() || len(chunk) == 0 {
		return nil
	}
	return ls.stream.SendAudio(ctx, chunk)
}

// Close releases both sessions; later Speak and Listen calls fail fast.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
	c.stopPlaybackLocked()
	c.stopListeningLocked()
	c.setStateLocked(StateIdle)
}

func (c *Channel) pump(ls *listenSession, onPartial func(string), onError func(error)) {
	fail := func(rerr error) {
		if !ls.active.Load() {
			return
		}
		c.mu.Lock()
		if c.listen == ls {
			c.listen = nil
			c.settleLocked()
		}
		c.mu.Unlock()
		ls.close()
		c.log.WithError(rerr).Warn("recognition stopped")
		if onError != nil {
			onError(rerr)
		}
	}

	for ev := range ls.stream.Events() {
		if !ls.active.Load() {
			continue
		}
		switch ev.Type {
		case RecognitionInterim:
			if onPartial != nil {
				onPartial(ev.Text)
			}
		case RecognitionRecognized:
			ls.debounce.Add(ev.Text)
		case RecognitionFailed:
			reason := "stream error"
			if ev.Text != "" {
				reason = ev.Text
			}
			fail(&RecognitionError{Reason: reason, Err: ev.Err})
			return
		}
	}
	fail(&RecognitionError{Reason: "stream ended"})
}

func (c *Channel) stopPlaybackLocked() {
	if c.playback == nil {
		return
	}
	pb := c.playback
	c.playback = nil
	c.speaking.Store(false)
	pb.Stop()
}

func (c *Channel) stopListeningLocked() {
	if c.listen == nil {
		return
	}
	ls := c.listen
	c.listen = nil
	ls.close()
}

// settleLocked derives the resting state from the handles still held.
func (c *Channel) settleLocked() {
	switch {
	case c.playback != nil && c.speaking.Load():
		c.setStateLocked(StateSpeaking)
	case c.playback != nil:
		c.setStateLocked(StateTransitioning)
	case c.listen != nil:
		c.setStateLocked(StateListening)
	default:
		c.setStateLocked(StateIdle)
	}
}

func (c *Channel) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.onState != nil {
		c.onState(s)
	}
}

type listenSession struct {
	stream   RecognitionStream
	debounce *finalDebouncer
	active   atomic.Bool
	once     sync.Once
}

func (ls *listenSession) close() {
	ls.once.Do(func() {
		ls.active.Store(false)
		ls.debounce.Stop()
		_ = ls.stream.Close()
	})
}
