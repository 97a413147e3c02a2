package ports

import (
	"context"

	"gobrittle/domain/series"
)

// RecordingSource loads raw samples from an external recording
type RecordingSource interface {
	ReadRecording(ctx context.Context, path string) ([]series.RawSample, error)
}
