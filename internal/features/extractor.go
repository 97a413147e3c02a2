// Package features computes chaos and variability descriptors over the
// sliding windows of a preprocessed series.
package features

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/core"
	"gobrittle/domain/series"
	"gobrittle/internal"
	"gobrittle/internal/config"
)

// Result is the ordered output of one extraction
type Result struct {
	Windows    []brittleness.WindowFeatures
	Degenerate []core.DegenerateWindowWarning
}

// Usable returns the windows that carry enough points for detection
func (r *Result) Usable() []brittleness.WindowFeatures {
	usable := make([]brittleness.WindowFeatures, 0, len(r.Windows))
	for _, w := range r.Windows {
		if !w.Insufficient {
			usable = append(usable, w)
		}
	}
	return usable
}

// Excluded returns the ranges of the degenerate windows
func (r *Result) Excluded() []series.WindowRange {
	out := make([]series.WindowRange, 0, len(r.Degenerate))
	for _, d := range r.Degenerate {
		out = append(out, series.WindowRange{Start: d.Start, End: d.End})
	}
	return out
}

// Extractor runs the feature kernels over the window plan of one run
type Extractor struct {
	cfg     config.AnalysisConfig
	profile config.DomainProfile
	workers int
	cache   *Cache
	logger  *internal.Logger
}

// NewExtractor creates an extractor with a fresh per-run cache
func NewExtractor(cfg config.AnalysisConfig, logger *internal.Logger) *Extractor {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Extractor{
		cfg:     cfg,
		profile: cfg.Profile(),
		workers: cfg.EffectiveWorkers(),
		cache:   NewCache(),
		logger:  logger.With("Features"),
	}
}

// Extract computes the features of every planned window in parallel.
// Results land in pre-allocated slots, so the output order is the window
// order regardless of scheduling.
func (e *Extractor) Extract(ctx context.Context, s *series.Series) (*Result, error) {
	plan := Plan(s.Len(), s.Interval(), e.cfg, e.profile)
	windows := make([]brittleness.WindowFeatures, len(plan))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, r := range plan {
		windows[i].Range = r
		if r.Len() < e.profile.MinWindowPoints {
			windows[i].Insufficient = true
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			windows[i].Features = e.Features(s, r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Windows: windows}
	for _, w := range windows {
		if w.Insufficient {
			result.Degenerate = append(result.Degenerate, core.DegenerateWindowWarning{
				Start:    w.Range.Start,
				End:      w.Range.End,
				Points:   w.Range.Len(),
				Required: e.profile.MinWindowPoints,
			})
		}
	}

	e.logger.Debug("extracted %d windows (%d degenerate) with %d workers", len(windows), len(result.Degenerate), e.workers)
	return result, nil
}

// Features returns the feature vector of an arbitrary range, computing it
// at most once per run
func (e *Extractor) Features(s *series.Series, r series.WindowRange) brittleness.FeatureVector {
	return e.cache.Get(r, func() brittleness.FeatureVector {
		return Compute(windowOf(s, r), e.profile)
	})
}

func windowOf(s *series.Series, r series.WindowRange) Window {
	w := Window{
		Values:     s.Slice(r),
		Timestamps: s.Timestamps(r),
		Channels:   make(map[string][]float64),
	}
	for i, name := range s.Channels() {
		if i == 0 {
			continue
		}
		if values, ok := s.ChannelSlice(name, r); ok {
			w.Channels[name] = values
		}
	}
	return w
}

type cacheEntry struct {
	once sync.Once
	fv   brittleness.FeatureVector
}

// Cache memoises feature vectors by window range for the lifetime of a run
type Cache struct {
	mu      sync.Mutex
	entries map[series.WindowRange]*cacheEntry
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[series.WindowRange]*cacheEntry)}
}

// Get returns the cached vector for r, running compute exactly once
func (c *Cache) Get(r series.WindowRange, compute func() brittleness.FeatureVector) brittleness.FeatureVector {
	c.mu.Lock()
	entry, ok := c.entries[r]
	if !ok {
		entry = &cacheEntry{}
		c.entries[r] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() { entry.fv = compute() })
	return entry.fv
}

// Len returns the number of cached ranges
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
