package mongo

import (
	"context"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TurnLogRepository interface {
	Insert(ctx context.Context, l *models.AITurnLog) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.AITurnLog, error)
}

type turnLogRepo struct {
	col *mongo.Collection
}

func NewTurnLogRepo(db *mongo.Database) TurnLogRepository {
	return &turnLogRepo{col: db.Collection("ai_turn_logs")}
}

func (r *turnLogRepo) Insert(ctx context.Context, l *models.AITurnLog) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, l)
	return err
}

func (r *turnLogRepo) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.AITurnLog, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AITurnLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
