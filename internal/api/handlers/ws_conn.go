package handlers

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = 30 * time.Second
	wsOutboundCap = 512
)

type wsFrame struct {
	kind int
	data []byte
}

// frameWriter is the write half of a WebSocket connection.
type frameWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// wsConn serializes writes through one goroutine so callers on the
// controller loop never block on the network.
type wsConn struct {
	c   frameWriter
	out chan wsFrame

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newWSConn(c frameWriter) *wsConn {
	return &wsConn{c: c, out: make(chan wsFrame, wsOutboundCap), done: make(chan struct{})}
}

// send queues a frame. A client too slow to drain the queue is disconnected.
func (w *wsConn) send(kind int, data []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.out <- wsFrame{kind: kind, data: data}:
		return true
	default:
		w.closeLocked()
		return false
	}
}

func (w *wsConn) sendJSON(v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return w.send(websocket.TextMessage, b)
}

func (w *wsConn) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

func (w *wsConn) closeLocked() {
	if w.closed {
		return
	}
	w.closed = true
	close(w.out)
}

// Done is closed once the writer has exited.
func (w *wsConn) Done() <-chan struct{} { return w.done }

// writeLoop drains queued frames and pings the client until close.
func (w *wsConn) writeLoop() {
	defer close(w.done)
	defer w.c.Close()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case f, ok := <-w.out:
			_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = w.c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := w.c.WriteMessage(f.kind, f.data); err != nil {
				w.close()
				return
			}
		case <-ping.C:
			_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := w.c.WriteMessage(websocket.PingMessage, nil); err != nil {
				w.close()
				return
			}
		}
	}
}
