package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AIKindTurn               = "turn"
	AIKindFirstMessage       = "first_message"
	AIKindCVSummary          = "cv_summary"
	AIKindDescriptionSummary = "description_summary"
	AIKindSummary            = "summary"

	AIOutcomeOK        = "ok"
	AIOutcomeFailed    = "failed"
	AIOutcomeMalformed = "malformed"
	AIOutcomeForced    = "forced"
	AIOutcomeFallback  = "fallback"
)

// AITurnLog is a short-lived audit record of one AI call.
type AITurnLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`
	Kind      string             `bson:"kind" json:"kind"`
	Outcome   string             `bson:"outcome" json:"outcome"`

	HistoryLen       int  `bson:"history_len,omitempty" json:"history_len,omitempty"`
	RemainingSeconds int  `bson:"remaining_seconds,omitempty" json:"remaining_seconds,omitempty"`
	NearEnd          bool `bson:"near_end,omitempty" json:"near_end,omitempty"`

	RawResponse string `bson:"raw_response,omitempty" json:"raw_response,omitempty"`
	Error       string `bson:"error,omitempty" json:"error,omitempty"`

	ProcessingTimeMS int64     `bson:"processing_time_ms,omitempty" json:"processing_time_ms,omitempty"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
