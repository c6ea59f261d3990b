package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/observability"
	"github.com/dmalikzadeh/ai-interview/internal/services"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/dmalikzadeh/ai-interview/internal/voice"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// StatusSubscriber delivers session status payloads published by workers.
type StatusSubscriber interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan []byte, func() error)
}

// RecognizerFactory returns a recognizer for a session language.
type RecognizerFactory func(language string) voice.Recognizer

type WSConfig struct {
	FinalSilence   time.Duration
	MaxPlayback    time.Duration
	AllowedOrigins []string
}

type WSHandler struct {
	sessions    services.SessionService
	live        services.LiveService
	synth       voice.Synthesizer
	recognizers RecognizerFactory
	status      StatusSubscriber
	cfg         WSConfig
	metrics     *observability.Metrics
	log         *logrus.Logger
	upgrader    websocket.Upgrader
}

func NewWSHandler(sessions services.SessionService, live services.LiveService, synth voice.Synthesizer, recognizers RecognizerFactory, status StatusSubscriber, cfg WSConfig, l *logrus.Logger) *WSHandler {
	if l == nil {
		l = logrus.New()
	}
	return &WSHandler{
		sessions:    sessions,
		live:        live,
		synth:       synth,
		recognizers: recognizers,
		status:      status,
		cfg:         cfg,
		metrics:     observability.DefaultMetrics,
		log:         l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 << 10,
			WriteBufferSize: 64 << 10,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// originChecker allows any origin when the list is empty.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

type wsClientMsg struct {
	Type        string  `json:"type"`
	ID          string  `json:"id,omitempty"`
	Level       float64 `json:"level,omitempty"`
	Error       string  `json:"error,omitempty"`
	AudioBase64 string  `json:"audio_base64,omitempty"`
}

type wsErrorMsg struct {
	Type    string     `json:"type"`
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// LiveInterview runs a prepared session over a WebSocket. Binary frames
// from the client are microphone audio; text frames are JSON controls.
func (h *WSHandler) LiveInterview(c *gin.Context) {
	const op = "WSHandler.LiveInterview"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.sessions.GetOwned(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if sess.Status != models.SessionPrepared {
		writeError(c, utils.E(utils.CodeConflict, op, "session is "+sess.Status, nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}

	log := h.log.WithFields(logrus.Fields{"session_id": sess.SessionID, "user_id": userID})
	wc := newWSConn(conn)
	go wc.writeLoop()

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	player := newWSPlayer(wc, h.cfg.MaxPlayback)
	defer player.closeAll()
	defer wc.close()

	if h.status != nil {
		updates, unsubscribe := h.status.Subscribe(ctx, sess.SessionID)
		defer func() { _ = unsubscribe() }()
		go func() {
			for b := range updates {
				wc.send(websocket.TextMessage, b)
			}
		}()
	}

	ch := voice.NewChannel(h.synth, player, h.recognizers(sess.Language), voice.Config{FinalSilence: h.cfg.FinalSilence}, log)
	ls, err := h.live.Launch(ctx, sess, ch, &wsObserver{conn: wc})
	if err != nil {
		ch.Close()
		wc.sendJSON(errorMsg(err))
		return
	}
	log.Info("live interview connected")

	h.readLoop(ctx, conn, wc, player, ls)
	log.Info("live interview disconnected")
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, wc *wsConn, player *wsPlayer, ls *services.LiveSession) {
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctrl := ls.Controller
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		if kind == websocket.BinaryMessage {
			h.feed(ctx, ctrl, data)
			continue
		}

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			wc.sendJSON(wsErrorMsg{Type: "error", Code: utils.CodeInvalidArgument, Message: "invalid json"})
			continue
		}

		switch msg.Type {
		case "audio_chunk":
			raw := msg.AudioBase64
			if i := strings.Index(raw, ","); i >= 0 {
				raw = raw[i+1:] // strip data:...;base64,
			}
			audio, err := base64.StdEncoding.DecodeString(raw)
			if err != nil || len(audio) == 0 {
				wc.sendJSON(wsErrorMsg{Type: "error", Code: utils.CodeInvalidArgument, Message: "invalid audio_base64"})
				continue
			}
			h.feed(ctx, ctrl, audio)
		case "playback_started", "playback_ended", "playback_level":
			player.ack(msg)
		case "pause":
			ctrl.Pause()
		case "resume":
			ctrl.Resume()
		case "mute":
			ctrl.SetMuted(true)
		case "unmute":
			ctrl.SetMuted(false)
		case "toggle_mute":
			ctrl.ToggleMute()
		case "end_session":
			ctrl.End()
		case "status":
			wc.sendJSON(gin.H{"type": "status", "status": ctrl.Status()})
		default:
			wc.sendJSON(wsErrorMsg{Type: "error", Code: utils.CodeInvalidArgument, Message: "unknown message type"})
		}
	}
}

func (h *WSHandler) feed(ctx context.Context, ctrl *interview.Controller, audio []byte) {
	h.metrics.RecordAudioReceived(len(audio))
	_ = ctrl.FeedAudio(ctx, audio)
}

func errorMsg(err error) wsErrorMsg {
	msg := wsErrorMsg{Type: "error", Code: utils.CodeInternal, Message: http.StatusText(http.StatusInternalServerError)}
	var ae *utils.AppError
	if errors.As(err, &ae) {
		msg.Code = ae.Code
		msg.Message = ae.Message
	}
	return msg
}

var noticeText = map[string]string{
	interview.NoticeSpeechFailed:    "the interviewer's voice could not be played",
	interview.NoticeAIRequestFailed: "the interviewer could not respond, please repeat your answer",
}

// wsObserver mirrors controller output to the client.
type wsObserver struct {
	conn *wsConn
}

func (o *wsObserver) PhaseChanged(p interview.Phase) {
	o.conn.sendJSON(gin.H{"type": "phase", "phase": p.String()})
}

func (o *wsObserver) TurnAppended(t interview.Turn) {
	o.conn.sendJSON(gin.H{"type": "turn", "turn": t})
}

func (o *wsObserver) Partial(text string) {
	o.conn.sendJSON(gin.H{"type": "partial_transcript", "text": text})
}

func (o *wsObserver) Clock(s interview.ClockState) {
	o.conn.sendJSON(gin.H{"type": "clock", "clock": s, "near_end": s.NearEnd()})
}

func (o *wsObserver) Notice(kind string, _ error) {
	if kind == interview.NoticeTranscribingStopped {
		o.conn.sendJSON(gin.H{"type": kind})
		return
	}
	o.conn.sendJSON(gin.H{"type": "error", "code": kind, "message": noticeText[kind]})
}

func (o *wsObserver) Ended(reason string, turns []interview.Turn) {
	o.conn.sendJSON(gin.H{"type": "ended", "reason": reason, "turns": len(turns)})
}
