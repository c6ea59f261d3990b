package interview

import (
	"context"
	"strings"
	"time"
)

type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

const (
	// HistoryLimit bounds the turns sent with each AI-turn request.
	HistoryLimit = 10

	// ForcedEndOverrun is the overrun, in seconds, past which the session
	// is closed without asking the AI service.
	ForcedEndOverrun = -60

	ForcedEndMessage = "Your interview time has run out. Thank you for participating."

	NoneValue = "None"
)

// Note is the interviewer's evaluation of the preceding candidate answer.
type Note struct {
	Strength  string `json:"strength" bson:"strength"`
	Criticism string `json:"criticism" bson:"criticism"`
	Score     int    `json:"score" bson:"score"`
}

func NeutralNote() Note {
	return Note{Strength: NoneValue, Criticism: NoneValue, Score: 0}
}

// Normalize fills empty fields with "None" and clamps the score to 0..5.
func (n Note) Normalize() Note {
	n.Strength = strings.TrimSpace(n.Strength)
	n.Criticism = strings.TrimSpace(n.Criticism)
	if n.Strength == "" {
		n.Strength = NoneValue
	}
	if n.Criticism == "" {
		n.Criticism = NoneValue
	}
	switch {
	case n.Score < 0:
		n.Score = 0
	case n.Score > 5:
		n.Score = 5
	}
	return n
}

type Turn struct {
	Role    Role      `json:"role"`
	Text    string    `json:"text"`
	Note    *Note     `json:"note,omitempty"`
	Closing bool      `json:"closing,omitempty"`
	At      time.Time `json:"at"`
}

type SessionConfig struct {
	CandidateName      string `json:"candidate_name" bson:"candidate_name"`
	Role               string `json:"role" bson:"role"`
	Company            string `json:"company" bson:"company"`
	CVSummary          string `json:"cv_summary,omitempty" bson:"cv_summary,omitempty"`
	DescriptionSummary string `json:"description_summary,omitempty" bson:"description_summary,omitempty"`
	DurationSeconds    int    `json:"duration_seconds" bson:"duration_seconds"`
}

func (c SessionConfig) Minutes() int { return c.DurationSeconds / 60 }

type ClockState struct {
	TotalSeconds     int  `json:"total_seconds"`
	RemainingSeconds int  `json:"remaining_seconds"`
	Paused           bool `json:"paused"`
}

// NearEnd reports whether the remaining time is within the last tenth of
// the planned duration.
func (s ClockState) NearEnd() bool {
	return s.TotalSeconds > 0 && s.RemainingSeconds*10 <= s.TotalSeconds
}

func (s ClockState) Overrun() bool { return s.RemainingSeconds < ForcedEndOverrun }

type TurnRequest struct {
	SessionID        string
	Config           SessionConfig
	History          []Turn
	RemainingSeconds int
	NearEnd          bool
}

// ForcedEnd reports whether the request must be answered locally.
func (r TurnRequest) ForcedEnd() bool { return r.RemainingSeconds < ForcedEndOverrun }

type TurnResponse struct {
	Message string `json:"message"`
	Note    Note   `json:"note"`
	Ended   bool   `json:"ended"`
}

func ForcedEndResponse() TurnResponse {
	return TurnResponse{Message: ForcedEndMessage, Note: NeutralNote(), Ended: true}
}

// Interviewer produces the next interviewer turn.
type Interviewer interface {
	NextTurn(ctx context.Context, req TurnRequest) (TurnResponse, error)
}

// Voice is the audio surface the controller drives. *voice.Channel
// satisfies it.
type Voice interface {
	Speak(ctx context.Context, text string) error
	StopSpeaking()
	PauseSpeaking()
	ResumeSpeaking()
	Listen(ctx context.Context, onPartial, onFinal func(string), onError func(error)) (func(), error)
	FeedAudio(ctx context.Context, chunk []byte) error
	VolumeLevel() float64
	IsSpeaking() bool
	Close()
}

// Notice kinds reported to observers.
const (
	NoticeTranscribingStopped = "transcribing_stopped"
	NoticeSpeechFailed        = "speech_failed"
	NoticeAIRequestFailed     = "ai_request_failed"
)

// Observer receives controller output. Calls are made from the controller
// loop and must not block for long.
type Observer interface {
	PhaseChanged(p Phase)
	TurnAppended(t Turn)
	Partial(text string)
	Clock(s ClockState)
	Notice(kind string, err error)
	Ended(reason string, turns []Turn)
}

type NopObserver struct{}

func (NopObserver) PhaseChanged(Phase)   {}
func (NopObserver) TurnAppended(Turn)    {}
func (NopObserver) Partial(string)       {}
func (NopObserver) Clock(ClockState)     {}
func (NopObserver) Notice(string, error) {}
func (NopObserver) Ended(string, []Turn) {}

// Observers fans out to every member in order.
type Observers []Observer

func (o Observers) PhaseChanged(p Phase) {
	for _, x := range o {
		x.PhaseChanged(p)
	}
}

func (o Observers) TurnAppended(t Turn) {
	for _, x := range o {
		x.TurnAppended(t)
	}
}

func (o Observers) Partial(text string) {
	for _, x := range o {
		x.Partial(text)
	}
}

func (o Observers) Clock(s ClockState) {
	for _, x := range o {
		x.Clock(s)
	}
}

func (o Observers) Notice(kind string, err error) {
	for _, x := range o {
		x.Notice(kind, err)
	}
}

func (o Observers) Ended(reason string, turns []Turn) {
	for _, x := range o {
		x.Ended(reason, turns)
	}
}
