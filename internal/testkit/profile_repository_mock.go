package testkit

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/core"
	"gobrittle/ports"
)

// MockProfileRepository is a testify mock of ports.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) SaveProfile(ctx context.Context, runID core.RunID, profile *brittleness.Profile) error {
	args := m.Called(ctx, runID, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) GetProfile(ctx context.Context, runID core.RunID) (*ports.ProfileRecord, error) {
	args := m.Called(ctx, runID)
	record, _ := args.Get(0).(*ports.ProfileRecord)
	return record, args.Error(1)
}

func (m *MockProfileRepository) ListProfilesBySubject(ctx context.Context, subjectID core.SubjectID, limit int) ([]ports.ProfileSummary, error) {
	args := m.Called(ctx, subjectID, limit)
	summaries, _ := args.Get(0).([]ports.ProfileSummary)
	return summaries, args.Error(1)
}

var _ ports.ProfileRepository = (*MockProfileRepository)(nil)
