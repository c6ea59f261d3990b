package handlers

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/voice"
	"github.com/gorilla/websocket"
)

var errClientGone = errors.New("client disconnected")

// DefaultMaxPlayback ends a playback the client never acknowledged.
const DefaultMaxPlayback = 2 * time.Minute

type ttsAudioMsg struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Format string `json:"format"`
	Bytes  int    `json:"bytes,omitempty"`
	Text   string `json:"text,omitempty"`
}

type playbackCmd struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// wsPlayer plays synthesized speech on the client. Audio goes out as a
// tts_audio header followed by one binary frame; the client reports
// playback_started, playback_level and playback_ended with the same id.
type wsPlayer struct {
	conn        *wsConn
	maxPlayback time.Duration

	mu     sync.Mutex
	seq    uint64
	active map[string]*wsPlayback
	closed bool
}

func newWSPlayer(conn *wsConn, maxPlayback time.Duration) *wsPlayer {
	if maxPlayback <= 0 {
		maxPlayback = DefaultMaxPlayback
	}
	return &wsPlayer{conn: conn, maxPlayback: maxPlayback, active: make(map[string]*wsPlayback)}
}

func (p *wsPlayer) Play(_ context.Context, audio voice.Audio) (voice.Playback, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errClientGone
	}
	p.seq++
	pb := &wsPlayback{
		player:  p,
		id:      "tts-" + strconv.FormatUint(p.seq, 10),
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	p.active[pb.id] = pb
	p.mu.Unlock()

	head := ttsAudioMsg{Type: "tts_audio", ID: pb.id, Format: audio.Format}
	if audio.Format == "text" {
		head.Text = string(audio.Data)
	} else {
		head.Bytes = len(audio.Data)
	}
	ok := p.conn.sendJSON(head)
	if ok && audio.Format != "text" {
		ok = p.conn.send(websocket.BinaryMessage, audio.Data)
	}
	if !ok {
		pb.end(errClientGone)
		return nil, errClientGone
	}

	pb.mu.Lock()
	pb.budget = p.maxPlayback
	pb.armLocked()
	pb.mu.Unlock()
	return pb, nil
}

func (p *wsPlayer) lookup(id string) *wsPlayback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active[id]
}

func (p *wsPlayer) forget(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, id)
}

// ack applies a client playback report. Unknown ids are ignored.
func (p *wsPlayer) ack(msg wsClientMsg) {
	pb := p.lookup(msg.ID)
	if pb == nil {
		return
	}
	switch msg.Type {
	case "playback_started":
		pb.start()
	case "playback_level":
		pb.setLevel(msg.Level)
	case "playback_ended":
		if msg.Error != "" {
			pb.end(errors.New(msg.Error))
			return
		}
		pb.end(nil)
	}
}

// closeAll stops every playback; used when the client goes away.
func (p *wsPlayer) closeAll() {
	p.mu.Lock()
	p.closed = true
	all := make([]*wsPlayback, 0, len(p.active))
	for _, pb := range p.active {
		all = append(all, pb)
	}
	p.mu.Unlock()

	for _, pb := range all {
		pb.end(voice.ErrSpeechStopped)
	}
}

type wsPlayback struct {
	player *wsPlayer
	id     string

	mu        sync.Mutex
	timer     *time.Timer
	budget    time.Duration // unacknowledged playback time left
	armedAt   time.Time
	armGen    uint64
	paused    bool
	started   chan struct{}
	done      chan struct{}
	isStarted bool
	isDone    bool
	err       error
	level     float64
}

func (pb *wsPlayback) Started() <-chan struct{} { return pb.started }
func (pb *wsPlayback) Done() <-chan struct{}    { return pb.done }

func (pb *wsPlayback) Err() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.err
}

func (pb *wsPlayback) Level() float64 {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.level
}

// Pause holds the playback cap until Resume.
func (pb *wsPlayback) Pause() {
	pb.mu.Lock()
	if pb.isDone || pb.paused {
		pb.mu.Unlock()
		return
	}
	pb.paused = true
	pb.armGen++
	if pb.timer != nil {
		pb.timer.Stop()
		pb.timer = nil
		pb.budget -= time.Since(pb.armedAt)
	}
	pb.mu.Unlock()
	pb.player.conn.sendJSON(playbackCmd{Type: "pause_audio", ID: pb.id})
}

func (pb *wsPlayback) Resume() {
	pb.mu.Lock()
	if pb.isDone || !pb.paused {
		pb.mu.Unlock()
		return
	}
	pb.paused = false
	pb.armLocked()
	pb.mu.Unlock()
	pb.player.conn.sendJSON(playbackCmd{Type: "resume_audio", ID: pb.id})
}

// armLocked starts the cap with whatever budget is left.
func (pb *wsPlayback) armLocked() {
	if pb.isDone {
		return
	}
	if pb.budget < 0 {
		pb.budget = 0
	}
	pb.armGen++
	gen := pb.armGen
	pb.armedAt = time.Now()
	pb.timer = time.AfterFunc(pb.budget, func() { pb.expire(gen) })
}

// expire ends a playback whose cap ran out, unless it was paused or
// re-armed since.
func (pb *wsPlayback) expire(gen uint64) {
	pb.mu.Lock()
	stale := gen != pb.armGen || pb.paused
	pb.mu.Unlock()
	if !stale {
		pb.end(nil)
	}
}

func (pb *wsPlayback) Stop() {
	if pb.end(voice.ErrSpeechStopped) {
		pb.player.conn.sendJSON(playbackCmd{Type: "stop_audio", ID: pb.id})
	}
}

func (pb *wsPlayback) start() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.isStarted || pb.isDone {
		return
	}
	pb.isStarted = true
	close(pb.started)
}

func (pb *wsPlayback) setLevel(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.level = v
}

// end finishes the playback once and reports whether this call did it.
func (pb *wsPlayback) end(err error) bool {
	pb.mu.Lock()
	if pb.isDone {
		pb.mu.Unlock()
		return false
	}
	pb.isDone = true
	pb.err = err
	pb.level = 0
	close(pb.done)
	t := pb.timer
	pb.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	pb.player.forget(pb.id)
	return true
}
