package models

import (
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SessionPrepared  = "prepared"
	SessionLive      = "live"
	SessionEnded     = "ended"
	SessionDiscarded = "discarded"

	SummaryNone       = ""
	SummaryPending    = "pending"
	SummaryProcessing = "processing"
	SummaryDone       = "done"
	SummaryFailed     = "failed"
)

type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	UserID    string             `bson:"user_id" json:"user_id"`       // uuid from Supabase Auth

	Status       string                  `bson:"status" json:"status"` // prepared|live|ended|discarded
	Language     string                  `bson:"language" json:"language"`
	Interview    interview.SessionConfig `bson:"interview" json:"interview"`
	FirstMessage string                  `bson:"first_message" json:"first_message"`

	EndReason     string `bson:"end_reason,omitempty" json:"end_reason,omitempty"`
	TurnCount     int    `bson:"turn_count" json:"turn_count"`
	SummaryStatus string `bson:"summary_status,omitempty" json:"summary_status,omitempty"` // pending|processing|done|failed

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	StartedAt *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`

	DurationSeconds int64 `bson:"duration_seconds" json:"duration_seconds"`
}
