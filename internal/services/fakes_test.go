package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/events"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/notify"
	"github.com/dmalikzadeh/ai-interview/internal/providers/llm"
	mongorepo "github.com/dmalikzadeh/ai-interview/internal/repositories/mongo"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/pgvector/pgvector-go"
)

type fakeLLM struct {
	mu   sync.Mutex
	reqs []llm.CompletionRequest
	out  string
	err  error
}

func (f *fakeLLM) StreamCompletion(_ context.Context, req llm.CompletionRequest) (<-chan string, <-chan error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	out, err := f.out, f.err
	f.mu.Unlock()

	chunks := make(chan string, 1)
	errs := make(chan error, 1)
	if out != "" && err == nil {
		chunks <- out
	}
	close(chunks)
	errs <- err
	close(errs)
	return chunks, errs
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) Requests() []llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.CompletionRequest(nil), f.reqs...)
}

type fakeTurnLogs struct {
	mu   sync.Mutex
	logs []models.AITurnLog
}

func (f *fakeTurnLogs) Record(_ context.Context, l *models.AITurnLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *l)
	return nil
}

func (f *fakeTurnLogs) ListBySession(_ context.Context, sessionID string, _ int64) ([]models.AITurnLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AITurnLog
	for _, l := range f.logs {
		if l.SessionID == sessionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeTurnLogs) Outcomes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.logs))
	for i, l := range f.logs {
		out[i] = l.Outcome
	}
	return out
}

// memSessionRepo mirrors the Mongo repository's filters in memory.
type memSessionRepo struct {
	mu   sync.Mutex
	byID map[string]models.Session
}

func newMemSessionRepo(sessions ...models.Session) *memSessionRepo {
	r := &memSessionRepo{byID: make(map[string]models.Session)}
	for _, s := range sessions {
		r.byID[s.SessionID] = s
	}
	return r
}

func (r *memSessionRepo) Create(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.SessionID]; ok {
		return errors.New("duplicate session_id")
	}
	r.byID[s.SessionID] = *s
	return nil
}

func (r *memSessionRepo) GetBySessionID(_ context.Context, sessionID string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &s, nil
}

func (r *memSessionRepo) ListByUser(_ context.Context, userID string, limit int64) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Session
	for _, s := range r.byID {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memSessionRepo) MarkLive(_ context.Context, sessionID string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok || s.Status != models.SessionPrepared {
		return utils.ErrNotFound
	}
	s.Status = models.SessionLive
	s.StartedAt = &startedAt
	r.byID[sessionID] = s
	return nil
}

func (r *memSessionRepo) End(_ context.Context, sessionID string, end mongorepo.SessionEnd) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byID[sessionID]
	s.Status = models.SessionEnded
	s.EndedAt = &end.EndedAt
	s.DurationSeconds = end.DurationSeconds
	s.EndReason = end.Reason
	s.TurnCount = end.TurnCount
	s.SummaryStatus = end.SummaryStatus
	r.byID[sessionID] = s
	return nil
}

func (r *memSessionRepo) SetStatus(_ context.Context, sessionID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byID[sessionID]
	s.Status = status
	r.byID[sessionID] = s
	return nil
}

func (r *memSessionRepo) SwapSummaryStatus(_ context.Context, sessionID string, from []string, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if s.SummaryStatus == f {
			s.SummaryStatus = to
			r.byID[sessionID] = s
			return true, nil
		}
	}
	return false, nil
}

func (r *memSessionRepo) get(sessionID string) models.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[sessionID]
}

type memConvoRepo struct {
	mu         sync.Mutex
	rows       []models.ConversationLog
	embeddings map[string]pgvector.Vector
}

func newMemConvoRepo() *memConvoRepo {
	return &memConvoRepo{embeddings: make(map[string]pgvector.Vector)}
}

func (r *memConvoRepo) Insert(_ context.Context, row *models.ConversationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *row)
	return nil
}

func (r *memConvoRepo) ListBySession(_ context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ConversationLog
	for _, row := range r.rows {
		if row.UserID == userID && row.SessionID == sessionID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memConvoRepo) SetEmbedding(_ context.Context, id string, v pgvector.Vector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings[id] = v
	return nil
}

func (r *memConvoRepo) Similar(_ context.Context, userID string, _ pgvector.Vector, limit int) ([]models.ConversationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ConversationLog
	for _, row := range r.rows {
		if row.UserID == userID && row.Role == "candidate" && len(out) < limit {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memConvoRepo) Rows() []models.ConversationLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ConversationLog(nil), r.rows...)
}

type memResultRepo struct {
	mu   sync.Mutex
	byID map[string]models.InterviewResult
	err  error
}

func newMemResultRepo() *memResultRepo {
	return &memResultRepo{byID: make(map[string]models.InterviewResult)}
}

func (r *memResultRepo) Upsert(_ context.Context, res *models.InterviewResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.byID[res.SessionID] = *res
	return nil
}

func (r *memResultRepo) GetBySessionID(_ context.Context, sessionID string) (*models.InterviewResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.byID[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &res, nil
}

type memProfileRepo struct {
	mu       sync.Mutex
	byUser   map[string]models.Profile
	embedded map[string]bool
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{byUser: make(map[string]models.Profile), embedded: make(map[string]bool)}
}

func (r *memProfileRepo) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byUser[userID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &p, nil
}

func (r *memProfileRepo) Upsert(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[p.UserID] = *p
	return nil
}

func (r *memProfileRepo) SetCVSummary(_ context.Context, userID, summary string, v *pgvector.Vector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.byUser[userID]
	p.UserID = userID
	p.CVSummary = summary
	r.byUser[userID] = p
	r.embedded[userID] = v != nil
	return nil
}

type memCVRepo struct {
	mu   sync.Mutex
	rows []models.CVFile
}

func (r *memCVRepo) Insert(_ context.Context, f *models.CVFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *f)
	return nil
}

func (r *memCVRepo) LatestByUser(_ context.Context, userID string) (*models.CVFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].UserID == userID {
			f := r.rows[i]
			return &f, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r *memCVRepo) FindSummarized(_ context.Context, userID, sha string) (*models.CVFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.rows {
		if f.UserID == userID && f.SHA256 == sha && f.Summary != "" {
			return &f, nil
		}
	}
	return nil, utils.ErrNotFound
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (s *fakeObjectStore) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[objectName] = b
	return objectName, nil
}

func (s *fakeObjectStore) SignedGetURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	return "https://storage.example/" + objectName + "?sig=1", nil
}

type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (e *fakeEmbedder) Close() error { return nil }

type fakeQueue struct {
	mu   sync.Mutex
	jobs []string
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, sessionID, _ string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, sessionID)
	return nil
}

func (q *fakeQueue) Jobs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.jobs...)
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *fakeNotifier) Publish(_ context.Context, _ string, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *fakeNotifier) Messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

type fakeEvents struct {
	mu       sync.Mutex
	turns    []events.TurnEvent
	sessions []events.SessionEvent
}

func (e *fakeEvents) PublishTurn(_ context.Context, ev events.TurnEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.turns = append(e.turns, ev)
	return nil
}

func (e *fakeEvents) PublishSession(_ context.Context, ev events.SessionEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions = append(e.sessions, ev)
	return nil
}

func (e *fakeEvents) Turns() []events.TurnEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]events.TurnEvent(nil), e.turns...)
}

func (e *fakeEvents) Sessions() []events.SessionEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]events.SessionEvent(nil), e.sessions...)
}
