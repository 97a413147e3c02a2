// Package segment turns detector candidates into boundaries and bounds
// the resulting segmentation to a clinically readable number of segments.
package segment

import (
	"math"
	"sort"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/core"
	"gobrittle/domain/series"
	"gobrittle/internal"
	"gobrittle/internal/config"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Boundary acceptance gates
const (
	MinBoundaryStrength = 0.15
	MinAgreement        = 2
)

// Merger clusters nearby candidates into boundaries
type Merger struct {
	profile config.DomainProfile
	logger  *internal.Logger
}

// NewMerger creates a merger for a domain profile
func NewMerger(profile config.DomainProfile, logger *internal.Logger) *Merger {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Merger{profile: profile, logger: logger.With("Merger")}
}

// Merge groups candidates whose timestamps lie within the merge threshold
// of the group's running centroid and reduces each group to one boundary.
// Boundaries that end up closer than the merge threshold or a minimum
// window are fused. A boundary is kept when at least MinAgreement methods
// back it, its strength reaches MinBoundaryStrength and it is clear of
// both ends. The result is strictly increasing in index.
func (m *Merger) Merge(s *series.Series, candidates []brittleness.Candidate) []brittleness.Boundary {
	if len(candidates) == 0 || s.Len() == 0 {
		return nil
	}
	sorted := append([]brittleness.Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Index != sorted[j].Index {
			return sorted[i].Index < sorted[j].Index
		}
		return sorted[i].Method < sorted[j].Method
	})

	var groups []candidateGroup
	for _, c := range sorted {
		if c.Index < 0 || c.Index >= s.Len() {
			continue
		}
		if n := len(groups); n > 0 {
			centroid := weightedIndex(groups[n-1].candidates)
			if s.Time(c.Index).Sub(s.Time(centroid)) <= m.profile.MergeThreshold {
				groups[n-1].candidates = append(groups[n-1].candidates, c)
				continue
			}
		}
		groups = append(groups, candidateGroup{candidates: []brittleness.Candidate{c}})
	}
	for i := range groups {
		groups[i].boundary = m.reduce(s, groups[i].candidates)
	}

	for i := 1; i < len(groups); {
		if !m.tooClose(s, groups[i-1].boundary, groups[i].boundary) {
			i++
			continue
		}
		fused := append(append([]brittleness.Candidate(nil), groups[i-1].candidates...), groups[i].candidates...)
		m.logger.Trace("fusing boundaries at %d and %d", groups[i-1].boundary.Index, groups[i].boundary.Index)
		groups[i-1] = candidateGroup{candidates: fused, boundary: m.reduce(s, fused)}
		groups = append(groups[:i], groups[i+1:]...)
		if i > 1 {
			i--
		}
	}

	var boundaries []brittleness.Boundary
	for _, g := range groups {
		if m.accept(s, g.boundary) {
			boundaries = append(boundaries, g.boundary)
		}
	}
	return boundaries
}

type candidateGroup struct {
	candidates []brittleness.Candidate
	boundary   brittleness.Boundary
}

// tooClose reports whether b would leave a segment shorter than the merge
// threshold or a minimum window after a
func (m *Merger) tooClose(s *series.Series, a, b brittleness.Boundary) bool {
	if b.Index-a.Index < m.profile.MinWindowPoints {
		return true
	}
	return s.Time(b.Index).Sub(s.Time(a.Index)) <= m.profile.MergeThreshold
}

// reduce keeps the best candidate per method and places the boundary at
// the confidence-weighted mean index
func (m *Merger) reduce(s *series.Series, group []brittleness.Candidate) brittleness.Boundary {
	best := make(map[brittleness.Method]brittleness.Candidate)
	for _, c := range group {
		prev, seen := best[c.Method]
		if !seen {
			best[c.Method] = c
			continue
		}
		m.logger.Debug("%v: %s at %d and %d, keeping the stronger", core.ErrConflictingCandidates, c.Method, prev.Index, c.Index)
		if c.Confidence > prev.Confidence {
			best[c.Method] = c
		}
	}

	var methods []brittleness.Method
	var kept []brittleness.Candidate
	strength := 0.0
	for _, method := range brittleness.Methods() {
		c, ok := best[method]
		if !ok {
			continue
		}
		methods = append(methods, method)
		kept = append(kept, c)
		strength += c.Confidence
	}
	index := weightedIndex(kept)

	return brittleness.Boundary{
		Index:      index,
		Timestamp:  s.Time(index),
		Methods:    methods,
		Agreement:  len(methods),
		Confidence: strength / float64(len(brittleness.Methods())),
	}
}

// accept applies the edge, strength and agreement gates
func (m *Merger) accept(s *series.Series, b brittleness.Boundary) bool {
	edge := m.profile.MinWindowPoints
	switch {
	case b.Index < edge || b.Index > s.Len()-1-edge:
		m.logger.Trace("boundary at %d discarded: within %d points of an end", b.Index, edge)
	case b.Confidence < MinBoundaryStrength:
		m.logger.Trace("boundary at %d discarded: strength %.3f", b.Index, b.Confidence)
	case b.Agreement < MinAgreement:
		m.logger.Trace("boundary at %d discarded: only %d method(s) agree", b.Index, b.Agreement)
	default:
		return true
	}
	return false
}

// weightedIndex is the confidence-weighted mean index of the candidates,
// or their plain mean when no candidate carries confidence
func weightedIndex(candidates []brittleness.Candidate) int {
	indices := make([]float64, len(candidates))
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		indices[i] = float64(c.Index)
		weights[i] = c.Confidence
	}
	if floats.Sum(weights) <= 0 {
		return int(math.Round(stat.Mean(indices, nil)))
	}
	return int(math.Round(stat.Mean(indices, weights)))
}
