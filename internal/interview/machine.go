package interview

import "strings"

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAISpeaking
	PhaseListening
	PhaseAwaitingAI
	PhasePaused
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAISpeaking:
		return "ai_speaking"
	case PhaseListening:
		return "listening"
	case PhaseAwaitingAI:
		return "awaiting_ai"
	case PhasePaused:
		return "paused"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// End reasons.
const (
	EndUser     = "user_ended"
	EndClosing  = "interview_concluded"
	EndCanceled = "canceled"
)

type eventKind int

const (
	evStart eventKind = iota
	evSpeechDone
	evFinal
	evListenStarted
	evListenFailed
	evResponse
	evRequestFailed
	evPause
	evResume
	evMute
	evGraceElapsed
	evTick
	evEnd
)

// event is one input to the machine. id ties async completions to the
// operation that produced them; a completion whose id is no longer
// current is dropped.
type event struct {
	kind    eventKind
	id      uint64
	text    string
	err     error
	resp    TurnResponse
	clock   ClockState
	muted   bool
	toggle  bool
	reason  string
	// release closes the recognition stream an evListenStarted reports.
	release func()
}

type effectKind int

const (
	effStartClock effectKind = iota
	effPauseClock
	effResumeClock
	effStopClock
	effSpeak
	effStopSpeaking
	effPauseSpeaking
	effResumeSpeaking
	effListen
	effAdoptListen
	effReleaseListen
	effStopListening
	effRequest
	effCancelRequest
	effAppend
	effScheduleGrace
	effFreeze
	effNotify
	effFinished
)

type effect struct {
	kind    effectKind
	id      uint64
	text    string
	turn    Turn
	total   int
	notice  string
	err     error
	release func()
}

// machine is the turn-taking state. It is a value; transition returns a
// modified copy.
type machine struct {
	phase   Phase
	started bool
	muted   bool
	paused  bool
	seq     uint64

	speech       uint64
	speechPaused bool
	closing      bool
	listen       uint64
	request      uint64
	grace        uint64

	// response that arrived while paused, spoken on resume
	pending        string
	pendingClosing bool

	// overrun crossed while audio was busy; close when it frees up
	forceEnd bool

	lastSubmitted string
	// candidate text already appended whose request failed
	unanswered string

	clock ClockState
}

func (m *machine) next() uint64 {
	m.seq++
	return m.seq
}

// transition applies ev to m. It is pure: all side effects are returned.
func transition(m machine, ev event) (machine, []effect) {
	var effs []effect
	if m.phase == PhaseEnded {
		return m, nil
	}

	switch ev.kind {
	case evStart:
		if m.started {
			return m, nil
		}
		m.started = true
		m.clock = ClockState{TotalSeconds: ev.clock.TotalSeconds, RemainingSeconds: ev.clock.TotalSeconds}
		effs = append(effs, effect{kind: effStartClock, total: ev.clock.TotalSeconds})
		if first := strings.TrimSpace(ev.text); first != "" {
			effs = append(effs, effect{kind: effAppend, turn: Turn{Role: RoleInterviewer, Text: first}})
			effs = m.speak(effs, first, false)
		} else {
			effs = m.startListening(effs)
		}

	case evSpeechDone:
		if ev.id == 0 || ev.id != m.speech {
			return m, nil
		}
		m.speech = 0
		m.speechPaused = false
		closing := m.closing
		m.closing = false
		failed := ev.err != nil && !isStopped(ev.err)
		if failed {
			effs = append(effs, effect{kind: effNotify, notice: NoticeSpeechFailed, err: ev.err})
		}
		switch {
		case closing:
			effs = m.finish(effs, EndClosing)
		case m.paused:
		case m.forceEnd:
			effs = m.closeForced(effs)
		case ev.err != nil:
			// no automatic retry; resume or unmute starts listening again
			m.phase = PhaseIdle
		default:
			effs = m.startListening(effs)
		}

	case evFinal:
		if ev.id == 0 || ev.id != m.listen || m.phase != PhaseListening || m.request != 0 {
			return m, nil
		}
		text := strings.TrimSpace(ev.text)
		if text == "" {
			return m, nil
		}
		retry := text == m.unanswered
		if !retry && text == m.lastSubmitted {
			return m, nil
		}
		effs = m.stopListening(effs)
		m.lastSubmitted = text
		if !retry {
			effs = append(effs, effect{kind: effAppend, turn: Turn{Role: RoleCandidate, Text: text}})
		}
		if m.clock.Overrun() {
			m.unanswered = ""
			effs = m.closeForced(effs)
			break
		}
		m.unanswered = text
		m.request = m.next()
		m.phase = PhaseAwaitingAI
		effs = append(effs, effect{kind: effRequest, id: m.request, text: text})

	case evListenStarted:
		// a stream that opened after its listen was stopped is closed again
		if ev.id == 0 || ev.id != m.listen {
			return m, []effect{{kind: effReleaseListen, release: ev.release}}
		}
		return m, []effect{{kind: effAdoptListen, id: ev.id, release: ev.release}}

	case evListenFailed:
		if ev.id == 0 || ev.id != m.listen {
			return m, nil
		}
		m.listen = 0
		effs = append(effs, effect{kind: effNotify, notice: NoticeTranscribingStopped, err: ev.err})
		if m.phase == PhaseListening {
			m.phase = PhaseIdle
		}

	case evResponse:
		if ev.id == 0 || ev.id != m.request {
			return m, nil
		}
		m.request = 0
		msg := strings.TrimSpace(ev.resp.Message)
		if msg == "" {
			return transition(m, event{kind: evRequestFailed, err: ErrMalformedResponse})
		}
		m.unanswered = ""
		note := ev.resp.Note.Normalize()
		effs = append(effs, effect{kind: effAppend, turn: Turn{
			Role:    RoleInterviewer,
			Text:    msg,
			Note:    &note,
			Closing: ev.resp.Ended,
		}})
		if m.paused {
			m.pending = msg
			m.pendingClosing = ev.resp.Ended
			break
		}
		effs = m.speak(effs, msg, ev.resp.Ended)

	case evRequestFailed:
		// id 0 is a malformed response already detached above
		if ev.id != 0 {
			if ev.id != m.request {
				return m, nil
			}
			m.request = 0
		}
		effs = append(effs, effect{kind: effNotify, notice: NoticeAIRequestFailed, err: ev.err})
		switch {
		case m.paused:
		case m.forceEnd:
			effs = m.closeForced(effs)
		default:
			effs = m.startListening(effs)
		}

	case evPause:
		if m.paused {
			return m, nil
		}
		m.paused = true
		m.grace = 0
		effs = m.stopListening(effs)
		if m.speech != 0 && !m.speechPaused {
			m.speechPaused = true
			effs = append(effs, effect{kind: effPauseSpeaking})
		}
		effs = append(effs, effect{kind: effPauseClock})
		m.phase = PhasePaused

	case evResume:
		if !m.paused {
			return m, nil
		}
		m.paused = false
		effs = append(effs, effect{kind: effResumeClock})
		switch {
		case m.speech != 0:
			if m.speechPaused {
				m.speechPaused = false
				effs = append(effs, effect{kind: effResumeSpeaking})
			}
			m.phase = PhaseAISpeaking
		case m.pending != "":
			text, closing := m.pending, m.pendingClosing
			m.pending, m.pendingClosing = "", false
			effs = m.speak(effs, text, closing)
		case m.forceEnd:
			effs = m.closeForced(effs)
		case m.request != 0:
			m.phase = PhaseAwaitingAI
		default:
			m.phase = PhaseIdle
			effs = m.scheduleGrace(effs)
		}

	case evMute:
		muted := ev.muted
		if ev.toggle {
			muted = !m.muted
		}
		if muted == m.muted {
			return m, nil
		}
		m.muted = muted
		if m.muted {
			m.grace = 0
			effs = m.stopListening(effs)
			if m.phase == PhaseListening {
				m.phase = PhaseIdle
			}
			break
		}
		if m.phase == PhaseIdle && m.speech == 0 && m.request == 0 {
			effs = m.scheduleGrace(effs)
		}

	case evGraceElapsed:
		if ev.id == 0 || ev.id != m.grace {
			return m, nil
		}
		m.grace = 0
		if m.paused || m.speech != 0 || m.request != 0 || m.listen != 0 {
			return m, nil
		}
		effs = m.startListening(effs)

	case evTick:
		m.clock = ev.clock
		if !m.clock.Overrun() || m.forceEnd || m.closing || m.pendingClosing {
			return m, nil
		}
		if m.paused || m.speech != 0 {
			m.forceEnd = true
			return m, nil
		}
		effs = m.closeForced(effs)

	case evEnd:
		reason := ev.reason
		if reason == "" {
			reason = EndUser
		}
		effs = m.finish(effs, reason)
	}

	return m, effs
}

func (m *machine) speak(effs []effect, text string, closing bool) []effect {
	effs = m.stopListening(effs)
	m.grace = 0
	m.speech = m.next()
	m.speechPaused = false
	m.closing = closing
	m.phase = PhaseAISpeaking
	return append(effs, effect{kind: effSpeak, id: m.speech, text: text})
}

// startListening enters Listening unless muted or paused, else rests in Idle.
func (m *machine) startListening(effs []effect) []effect {
	if m.paused {
		m.phase = PhasePaused
		return effs
	}
	if m.muted {
		m.phase = PhaseIdle
		return effs
	}
	if m.listen != 0 {
		m.phase = PhaseListening
		return effs
	}
	m.listen = m.next()
	m.phase = PhaseListening
	return append(effs, effect{kind: effListen, id: m.listen})
}

func (m *machine) stopListening(effs []effect) []effect {
	if m.listen == 0 {
		return effs
	}
	m.listen = 0
	return append(effs, effect{kind: effStopListening})
}

func (m *machine) scheduleGrace(effs []effect) []effect {
	if m.muted {
		return effs
	}
	m.grace = m.next()
	return append(effs, effect{kind: effScheduleGrace, id: m.grace})
}

// closeForced answers locally with the closing turn and speaks it.
func (m *machine) closeForced(effs []effect) []effect {
	m.forceEnd = false
	if m.request != 0 {
		effs = append(effs, effect{kind: effCancelRequest, id: m.request})
		m.request = 0
	}
	m.unanswered = ""
	resp := ForcedEndResponse()
	note := resp.Note
	effs = append(effs, effect{kind: effAppend, turn: Turn{
		Role:    RoleInterviewer,
		Text:    resp.Message,
		Note:    &note,
		Closing: true,
	}})
	return m.speak(effs, resp.Message, true)
}

func (m *machine) finish(effs []effect, reason string) []effect {
	effs = m.stopListening(effs)
	if m.speech != 0 {
		effs = append(effs, effect{kind: effStopSpeaking})
		m.speech = 0
	}
	if m.request != 0 {
		effs = append(effs, effect{kind: effCancelRequest, id: m.request})
		m.request = 0
	}
	m.grace = 0
	m.pending = ""
	m.speechPaused = false
	m.closing = false
	m.pendingClosing = false
	m.forceEnd = false
	m.phase = PhaseEnded
	return append(effs,
		effect{kind: effStopClock},
		effect{kind: effFreeze},
		effect{kind: effFinished, text: reason},
	)
}
