package ports

import (
	"context"
	"time"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/core"
	"gobrittle/domain/series"
)

// ProfileRepository persists brittleness profiles under a run ID
type ProfileRepository interface {
	SaveProfile(ctx context.Context, runID core.RunID, profile *brittleness.Profile) error
	GetProfile(ctx context.Context, runID core.RunID) (*ProfileRecord, error)
	ListProfilesBySubject(ctx context.Context, subjectID core.SubjectID, limit int) ([]ProfileSummary, error)
}

// ProfileRecord is a stored profile with its storage metadata
type ProfileRecord struct {
	RunID     core.RunID          `json:"run_id"`
	CreatedAt time.Time           `json:"created_at"`
	Profile   brittleness.Profile `json:"profile"`
}

// ProfileSummary is the listing view of a stored profile
type ProfileSummary struct {
	RunID        core.RunID        `json:"run_id"`
	SubjectID    core.SubjectID    `json:"subject_id"`
	Domain       series.Domain     `json:"domain"`
	OverallScore float64           `json:"overall_score"`
	Level        brittleness.Level `json:"level"`
	Code         string            `json:"code"`
	Label        string            `json:"label"`
	Pattern      string            `json:"pattern"`
	Confidence   float64           `json:"confidence"`
	Segments     int               `json:"segments"`
	Fingerprint  core.Hash         `json:"fingerprint"`
	CreatedAt    time.Time         `json:"created_at"`
}
