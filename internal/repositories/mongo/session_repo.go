package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.Session, error)
	MarkLive(ctx context.Context, sessionID string, startedAt time.Time) error
	End(ctx context.Context, sessionID string, end SessionEnd) error
	SetStatus(ctx context.Context, sessionID, status string) error
	// SwapSummaryStatus moves the summary status from one of `from` to `to`.
	// It reports false when the session was not in any of the `from` states.
	SwapSummaryStatus(ctx context.Context, sessionID string, from []string, to string) (bool, error)
}

type SessionEnd struct {
	EndedAt         time.Time
	DurationSeconds int64
	Reason          string
	TurnCount       int
	SummaryStatus   string
}

type sessionRepo struct {
	col *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) SessionRepository {
	return &sessionRepo{col: db.Collection("sessions")}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *sessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	var s models.Session
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.Session, error) {
	if limit <= 0 {
		limit = 20
	}

	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Session
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkLive only moves prepared sessions; anything else reports ErrNotFound.
func (r *sessionRepo) MarkLive(ctx context.Context, sessionID string, startedAt time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "status": models.SessionPrepared},
		bson.M{"$set": bson.M{
			"status":     models.SessionLive,
			"started_at": startedAt.UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) End(ctx context.Context, sessionID string, end SessionEnd) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"status":           models.SessionEnded,
			"ended_at":         end.EndedAt.UTC(),
			"duration_seconds": end.DurationSeconds,
			"end_reason":       end.Reason,
			"turn_count":       end.TurnCount,
			"summary_status":   end.SummaryStatus,
		}},
	)
	return err
}

func (r *sessionRepo) SetStatus(ctx context.Context, sessionID, status string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"status": status}},
	)
	return err
}

func (r *sessionRepo) SwapSummaryStatus(ctx context.Context, sessionID string, from []string, to string) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "summary_status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"summary_status": to}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
