package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Profile is the candidate's reusable intake data.
type Profile struct {
	UserID     string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	FullName   string `gorm:"column:full_name;type:text" json:"full_name"`
	TargetRole string `gorm:"column:target_role;type:text" json:"target_role"`
	CVSummary  string `gorm:"column:cv_summary;type:text" json:"cv_summary"`

	Skills pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`

	// JSONB (raw JSON, ex: preferred interview length, language)
	Preferences datatypes.JSON `gorm:"column:preferences;type:jsonb" json:"preferences"`

	CVEmbedding *pgvector.Vector `gorm:"column:cv_embedding;type:vector(768)" json:"-"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
