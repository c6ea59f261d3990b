package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/observability"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/sirupsen/logrus"
)

// LiveSession is one running interview on this instance.
type LiveSession struct {
	SessionID  string
	UserID     string
	Store      *interview.Store
	Controller *interview.Controller
	StartedAt  time.Time

	cancel    context.CancelFunc
	discarded atomic.Bool
}

// LiveStatus is what the admin listing reports per live session.
type LiveStatus struct {
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
	interview.Status
}

type LiveService interface {
	// Launch starts the controller for a prepared session. The session runs
	// until it ends or ctx is cancelled.
	Launch(ctx context.Context, sess *models.Session, v interview.Voice, obs interview.Observer) (*LiveSession, error)
	Get(sessionID string) (*LiveSession, bool)
	List() []LiveStatus
	// Discard drops a prepared or live session without summarizing it.
	Discard(ctx context.Context, userID, sessionID string) error
	// ResetUser discards every prepared or live session of the user.
	ResetUser(ctx context.Context, userID string) error
	Shutdown(ctx context.Context) error
}

type liveService struct {
	sessions    SessionService
	interviewer interview.Interviewer
	recorder    *Recorder
	cfg         interview.ControllerConfig
	newTicker   func(time.Duration) interview.Ticker
	metrics     *observability.Metrics
	logger      *logrus.Logger
	log         *logrus.Entry

	mu   sync.Mutex
	live map[string]*LiveSession
}

func NewLiveService(sessions SessionService, ai interview.Interviewer, recorder *Recorder, cfg interview.ControllerConfig, l *logrus.Logger) LiveService {
	if l == nil {
		l = logrus.New()
	}
	return &liveService{
		sessions:    sessions,
		interviewer: ai,
		recorder:    recorder,
		cfg:         cfg,
		metrics:     observability.DefaultMetrics,
		logger:      l,
		log:         l.WithField("component", "live_sessions"),
		live:        make(map[string]*LiveSession),
	}
}

func (s *liveService) Launch(ctx context.Context, sess *models.Session, v interview.Voice, obs interview.Observer) (*LiveSession, error) {
	const op = "LiveService.Launch"

	if sess == nil || v == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session and voice are required", nil)
	}
	if sess.Status != models.SessionPrepared {
		return nil, utils.E(utils.CodeConflict, op, "session is "+sess.Status, nil)
	}

	s.mu.Lock()
	if _, ok := s.live[sess.SessionID]; ok {
		s.mu.Unlock()
		return nil, utils.E(utils.CodeConflict, op, "session is already live", nil)
	}
	ls := &LiveSession{SessionID: sess.SessionID, UserID: sess.UserID, StartedAt: time.Now().UTC()}
	s.live[sess.SessionID] = ls
	s.mu.Unlock()

	if err := s.sessions.MarkLive(ctx, sess.SessionID); err != nil {
		s.remove(ls)
		return nil, err
	}

	entry := logrus.NewEntry(s.logger).WithField("user_id", sess.UserID)
	store := interview.NewStore(sess.Interview, interview.NewClock(s.newTicker), entry)

	observers := interview.Observers{}
	if obs != nil {
		observers = append(observers, obs)
	}
	if s.recorder != nil {
		observers = append(observers, s.recorder.For(sess.UserID, sess.SessionID, ls.discarded.Load))
	}
	ctrl := interview.NewController(sess.SessionID, store, v, s.interviewer, observers, s.cfg, entry)
	lctx, cancel := context.WithCancel(ctx)

	if err := ctrl.Start(lctx, sess.FirstMessage); err != nil {
		cancel()
		s.remove(ls)
		return nil, utils.E(utils.CodeInternal, op, "failed to start session", err)
	}

	// published under the lock so Get, List and Shutdown see a whole session
	s.mu.Lock()
	ls.Store, ls.Controller, ls.cancel = store, ctrl, cancel
	s.mu.Unlock()
	s.metrics.RecordSessionStart()

	go func() {
		<-ctrl.Done()
		cancel()
		s.remove(ls)
	}()

	s.log.WithFields(logrus.Fields{"session_id": sess.SessionID, "user_id": sess.UserID}).Info("session live")
	return ls, nil
}

func (s *liveService) remove(ls *LiveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.live[ls.SessionID]; ok && cur == ls {
		delete(s.live, ls.SessionID)
	}
}

func (s *liveService) Get(sessionID string) (*LiveSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.live[sessionID]
	return ls, ok && ls.Controller != nil
}

func (s *liveService) List() []LiveStatus {
	s.mu.Lock()
	all := make([]*LiveSession, 0, len(s.live))
	for _, ls := range s.live {
		if ls.Controller != nil {
			all = append(all, ls)
		}
	}
	s.mu.Unlock()

	out := make([]LiveStatus, 0, len(all))
	for _, ls := range all {
		out = append(out, LiveStatus{UserID: ls.UserID, StartedAt: ls.StartedAt, Status: ls.Controller.Status()})
	}
	return out
}

func (s *liveService) Discard(ctx context.Context, userID, sessionID string) error {
	const op = "LiveService.Discard"

	sess, err := s.sessions.GetOwned(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	switch sess.Status {
	case models.SessionDiscarded:
		return nil
	case models.SessionEnded:
		return utils.E(utils.CodeConflict, op, "session already ended", nil)
	}

	if ls, ok := s.Get(sessionID); ok {
		ls.discarded.Store(true)
		ls.Controller.End()
		select {
		case <-ls.Controller.Done():
		case <-ctx.Done():
			return utils.E(utils.CodeTimeout, op, "session did not stop in time", ctx.Err())
		}
		ls.Store.Reset()
	}

	if err := s.sessions.SetStatus(ctx, sessionID, models.SessionDiscarded); err != nil {
		return err
	}
	s.log.WithField("session_id", sessionID).Info("session discarded")
	return nil
}

func (s *liveService) ResetUser(ctx context.Context, userID string) error {
	const op = "LiveService.ResetUser"

	sessions, err := s.sessions.ListByUser(ctx, userID, 20)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.Status != models.SessionPrepared && sess.Status != models.SessionLive {
			continue
		}
		if err := s.Discard(ctx, userID, sess.SessionID); err != nil && !utils.IsCode(err, utils.CodeConflict) {
			return utils.E(utils.CodeInternal, op, "failed to reset previous interview", err)
		}
	}
	return nil
}

// Shutdown cancels every live session and waits for them to wind down.
func (s *liveService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	all := make([]*LiveSession, 0, len(s.live))
	for _, ls := range s.live {
		if ls.Controller != nil {
			all = append(all, ls)
		}
	}
	s.mu.Unlock()

	for _, ls := range all {
		ls.cancel()
	}
	for _, ls := range all {
		select {
		case <-ls.Controller.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
