package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log"
	"time"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/core"
	"gobrittle/domain/series"
	"gobrittle/internal/errors"
	"gobrittle/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DefaultListLimit caps subject listings when the caller passes no limit
const DefaultListLimit = 50

// ProfileRepositoryImpl implements ProfileRepository for PostgreSQL
type ProfileRepositoryImpl struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new PostgreSQL profile repository
func NewProfileRepository(db *sqlx.DB) ports.ProfileRepository {
	return &ProfileRepositoryImpl{db: db}
}

// profileRow mirrors brittleness_profiles
type profileRow struct {
	RunID        uuid.UUID `db:"run_id"`
	SubjectID    string    `db:"subject_id"`
	Domain       string    `db:"domain"`
	OverallScore float64   `db:"overall_score"`
	Level        int       `db:"level"`
	Code         string    `db:"code"`
	Label        string    `db:"label"`
	Pattern      string    `db:"pattern"`
	Confidence   float64   `db:"confidence"`
	SegmentCount int       `db:"segment_count"`
	Fingerprint  string    `db:"fingerprint"`
	Profile      []byte    `db:"profile"`
	CreatedAt    time.Time `db:"created_at"`
}

// segmentRow mirrors profile_segments
type segmentRow struct {
	RunID        uuid.UUID `db:"run_id"`
	SegmentIndex int       `db:"segment_index"`
	StartIndex   int       `db:"start_index"`
	EndIndex     int       `db:"end_index"`
	StartTime    time.Time `db:"start_time"`
	EndTime      time.Time `db:"end_time"`
	Score        float64   `db:"score"`
	Importance   float64   `db:"importance"`
	Trend        string    `db:"trend"`
}

// SaveProfile stores the profile and its segment index in one transaction
func (r *ProfileRepositoryImpl) SaveProfile(ctx context.Context, runID core.RunID, profile *brittleness.Profile) error {
	if profile == nil {
		return errors.InvalidInput("profile cannot be nil")
	}
	row, segments, err := toRows(runID, profile)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO brittleness_profiles (run_id, subject_id, domain, overall_score, level, code, label, pattern, confidence, segment_count, fingerprint, profile)
		VALUES (:run_id, :subject_id, :domain, :overall_score, :level, :code, :label, :pattern, :confidence, :segment_count, :fingerprint, :profile)
	`, row)
	if err != nil {
		return errors.DatabaseError("failed to insert profile", err)
	}

	for _, seg := range segments {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO profile_segments (run_id, segment_index, start_index, end_index, start_time, end_time, score, importance, trend)
			VALUES (:run_id, :segment_index, :start_index, :end_index, :start_time, :end_time, :score, :importance, :trend)
		`, seg)
		if err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to insert segment %d", seg.SegmentIndex), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit profile", err)
	}

	log.Printf("[ProfileRepository] stored run %s for subject %s (%d segments)", runID, row.SubjectID, len(segments))
	return nil
}

// GetProfile retrieves a stored profile by run ID
func (r *ProfileRepositoryImpl) GetProfile(ctx context.Context, runID core.RunID) (*ports.ProfileRecord, error) {
	id, err := uuid.Parse(runID.String())
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("invalid run ID %q", runID))
	}

	var row profileRow
	err = r.db.GetContext(ctx, &row, `
		SELECT run_id, subject_id, domain, overall_score, level, code, label, pattern, confidence, segment_count, fingerprint, profile, created_at
		FROM brittleness_profiles
		WHERE run_id = $1
	`, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, core.ErrProfileNotFound)
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load profile", err)
	}

	return fromRow(row)
}

// ListProfilesBySubject returns the newest profiles of a subject first
func (r *ProfileRepositoryImpl) ListProfilesBySubject(ctx context.Context, subjectID core.SubjectID, limit int) ([]ports.ProfileSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var rows []profileRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT run_id, subject_id, domain, overall_score, level, code, label, pattern, confidence, segment_count, fingerprint, created_at
		FROM brittleness_profiles
		WHERE subject_id = $1
		ORDER BY created_at DESC, run_id DESC
		LIMIT $2
	`, subjectID.String(), limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list profiles", err)
	}

	summaries := make([]ports.ProfileSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, toSummary(row))
	}
	return summaries, nil
}

func toRows(runID core.RunID, p *brittleness.Profile) (profileRow, []segmentRow, error) {
	id, err := uuid.Parse(runID.String())
	if err != nil {
		return profileRow{}, nil, errors.InvalidInput(fmt.Sprintf("invalid run ID %q", runID))
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return profileRow{}, nil, errors.Wrap(err, "failed to encode profile")
	}

	row := profileRow{
		RunID:        id,
		SubjectID:    p.SeriesID.String(),
		Domain:       string(p.Domain),
		OverallScore: p.OverallScore,
		Level:        int(p.Classification.Level),
		Code:         p.Classification.Code,
		Label:        p.Classification.Label,
		Pattern:      p.Classification.Pattern,
		Confidence:   p.Confidence,
		SegmentCount: len(p.Segments),
		Fingerprint:  p.Fingerprint.String(),
		Profile:      payload,
	}

	segments := make([]segmentRow, len(p.Segments))
	for i, s := range p.Segments {
		segments[i] = segmentRow{
			RunID:        id,
			SegmentIndex: s.Index,
			StartIndex:   s.StartIndex,
			EndIndex:     s.EndIndex,
			StartTime:    s.StartTime,
			EndTime:      s.EndTime,
			Score:        s.Score,
			Importance:   s.Importance,
			Trend:        string(s.Trend),
		}
	}
	return row, segments, nil
}

func fromRow(row profileRow) (*ports.ProfileRecord, error) {
	record := &ports.ProfileRecord{
		RunID:     core.RunID(row.RunID.String()),
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal(row.Profile, &record.Profile); err != nil {
		return nil, errors.Wrap(err, "failed to decode stored profile")
	}
	return record, nil
}

func toSummary(row profileRow) ports.ProfileSummary {
	return ports.ProfileSummary{
		RunID:        core.RunID(row.RunID.String()),
		SubjectID:    core.SubjectID(row.SubjectID),
		Domain:       series.Domain(row.Domain),
		OverallScore: row.OverallScore,
		Level:        brittleness.Level(row.Level),
		Code:         row.Code,
		Label:        row.Label,
		Pattern:      row.Pattern,
		Confidence:   row.Confidence,
		Segments:     row.SegmentCount,
		Fingerprint:  core.Hash(row.Fingerprint),
		CreatedAt:    row.CreatedAt,
	}
}
