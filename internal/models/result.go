package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// InterviewResult is the scored summary of an ended session.
type InterviewResult struct {
	SessionID    string         `gorm:"column:session_id;type:uuid;primaryKey" json:"session_id"`
	UserID       string         `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Intro        string         `gorm:"column:intro;type:text" json:"intro"`
	OverallScore float64        `gorm:"column:overall_score;type:numeric(3,1)" json:"score"`
	Strengths    pq.StringArray `gorm:"column:strengths;type:text[]" json:"strengths"`
	Improvements pq.StringArray `gorm:"column:improvements;type:text[]" json:"improvements"`
	FinalNote    string         `gorm:"column:final_note;type:text" json:"finalNote"`
	Notes        datatypes.JSON `gorm:"column:notes;type:jsonb" json:"notes,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (InterviewResult) TableName() string { return "interview_results" }
