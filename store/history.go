package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	OutcomeRanked      = "ranked"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// RankingRecord is an audit entry for one ranking request. It is never used to answer a
// later request.
type RankingRecord struct {
	ID           uuid.UUID `json:"id" gorm:"primarykey;type:uuid"`
	Mode         string    `json:"mode" gorm:"index:idx_mode_created"`
	Outcome      string    `json:"outcome"`
	Request      string    `json:"request" gorm:"type:text"`
	Response     string    `json:"response,omitempty" gorm:"type:text"`
	Error        string    `json:"error,omitempty"`
	Combinations int       `json:"combinations"`
	Warnings     int       `json:"warnings"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" gorm:"index:idx_mode_created"`
}

type History interface {
	Record(ctx context.Context, record RankingRecord) error
	List(ctx context.Context, limit int) ([]RankingRecord, error)
}
