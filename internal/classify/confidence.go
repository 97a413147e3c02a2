package classify

import (
	"math"

	"gobrittle/domain/brittleness"
)

// ConfidenceInput collects what the confidence figure depends on
type ConfidenceInput struct {
	Coverage        float64
	TotalWindows    int
	ExcludedWindows int
	Boundaries      []brittleness.Boundary
	Detectors       int
	FailedDetectors int
}

// Confidence is completeness x (0.5 + 0.5 x agreement), reduced when
// detectors failed
func Confidence(in ConfidenceInput) (float64, brittleness.ConfidenceDetail) {
	var detail brittleness.ConfidenceDetail

	if in.TotalWindows > 0 {
		detail.ExcludedPenalty = float64(in.ExcludedWindows) / float64(in.TotalWindows)
	}
	detail.Completeness = clamp(in.Coverage * (1 - detail.ExcludedPenalty))

	detail.Agreement = 1
	if len(in.Boundaries) > 0 {
		sum := 0.0
		for _, b := range in.Boundaries {
			sum += float64(b.Agreement) / float64(len(brittleness.Methods()))
		}
		detail.Agreement = clamp(sum / float64(len(in.Boundaries)))
	}

	if in.Detectors > 0 {
		detail.DetectorFailure = float64(in.FailedDetectors) / float64(in.Detectors)
	}

	confidence := detail.Completeness * (0.5 + 0.5*detail.Agreement) * (1 - 0.5*detail.DetectorFailure)
	return clamp(confidence), detail
}

func clamp(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	return math.Min(1, x)
}
