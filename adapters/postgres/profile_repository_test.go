package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/core"
	"gobrittle/domain/series"
	"gobrittle/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProfile(subject string) *brittleness.Profile {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &brittleness.Profile{
		SeriesID:     core.SubjectID(subject),
		Domain:       series.DomainGlucose,
		Unit:         "mmol/L",
		OverallScore: 42.5,
		Classification: brittleness.Classification{
			Level: brittleness.LevelIII, Code: "III", Label: "moderate", Pattern: "unstable",
		},
		Segments: []brittleness.Segment{
			{Index: 0, StartIndex: 0, EndIndex: 95, StartTime: start, EndTime: start.Add(475 * time.Minute), Score: 30, Importance: 0.4, Trend: brittleness.TrendStable},
			{Index: 1, StartIndex: 96, EndIndex: 191, StartTime: start.Add(480 * time.Minute), EndTime: start.Add(955 * time.Minute), Score: 55, Importance: 0.6, Trend: brittleness.TrendWorsening},
		},
		Confidence:  0.8,
		Fingerprint: core.NewHash([]byte(subject)),
	}
}

func TestToRows_IndexesSegments(t *testing.T) {
	runID := core.NewRunID()
	p := sampleProfile("patient-7")

	row, segments, err := toRows(runID, p)
	require.NoError(t, err)

	assert.Equal(t, runID.String(), row.RunID.String())
	assert.Equal(t, "patient-7", row.SubjectID)
	assert.Equal(t, 3, row.Level)
	assert.Equal(t, "unstable", row.Pattern)
	assert.Equal(t, 2, row.SegmentCount)
	require.Len(t, segments, 2)
	assert.Equal(t, 96, segments[1].StartIndex)
	assert.Equal(t, "worsening", segments[1].Trend)

	record, err := fromRow(row)
	require.NoError(t, err)
	assert.Equal(t, p.Fingerprint, record.Profile.Fingerprint)
	assert.Len(t, record.Profile.Segments, 2)

	summary := toSummary(row)
	assert.Equal(t, brittleness.LevelIII, summary.Level)
	assert.Equal(t, series.DomainGlucose, summary.Domain)
	assert.Equal(t, 2, summary.Segments)
}

func TestToRows_RejectsMalformedRunID(t *testing.T) {
	_, _, err := toRows(core.RunID("not-a-uuid"), sampleProfile("x"))
	assert.Error(t, err)
}

func openTestDB(t *testing.T) *sqlx.DB {
	_ = godotenv.Load("../../.env")
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping live test: TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	require.NoError(t, migration.NewRunner().Run(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestProfileRepository_Live(t *testing.T) {
	db := openTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	subject := "live-" + core.NewID().String()
	runID := core.NewRunID()
	require.NoError(t, repo.SaveProfile(ctx, runID, sampleProfile(subject)))

	record, err := repo.GetProfile(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, core.SubjectID(subject), record.Profile.SeriesID)
	assert.InDelta(t, 42.5, record.Profile.OverallScore, 1e-9)

	list, err := repo.ListProfilesBySubject(ctx, core.SubjectID(subject), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, runID, list[0].RunID)

	_, err = repo.GetProfile(ctx, core.NewRunID())
	assert.ErrorIs(t, err, core.ErrProfileNotFound)

	var segments int
	require.NoError(t, db.GetContext(ctx, &segments, `SELECT COUNT(*) FROM profile_segments WHERE run_id = $1`, runID.String()))
	assert.Equal(t, 2, segments)
}
