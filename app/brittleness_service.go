package app

import (
	"context"
	"encoding/json"
	"fmt"

	"gobrittle/adapters/stats/changepoint"
	"gobrittle/domain/brittleness"
	"gobrittle/domain/core"
	"gobrittle/domain/series"
	"gobrittle/internal"
	"gobrittle/internal/classify"
	"gobrittle/internal/config"
	apperrors "gobrittle/internal/errors"
	"gobrittle/internal/features"
	"gobrittle/internal/preprocess"
	"gobrittle/internal/recommend"
	"gobrittle/internal/segment"
	"gobrittle/ports"
)

// AnalysisRequest defines the inputs of one brittleness analysis
type AnalysisRequest struct {
	SubjectID core.SubjectID        `json:"subject_id"`
	Samples   []series.RawSample    `json:"samples"`
	Config    config.AnalysisConfig `json:"config"`
}

// StoredAnalysis is a profile together with the run ID it was saved under
type StoredAnalysis struct {
	RunID   core.RunID           `json:"run_id"`
	Profile *brittleness.Profile `json:"profile"`
}

// BrittlenessService runs the segmentation and classification pipeline
type BrittlenessService struct {
	repo   ports.ProfileRepository
	logger *internal.Logger
}

// NewBrittlenessService creates the service; repo may be nil when
// profiles are not persisted
func NewBrittlenessService(repo ports.ProfileRepository, logger *internal.Logger) *BrittlenessService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &BrittlenessService{repo: repo, logger: logger}
}

// Analyze runs the full pipeline. Configuration errors are returned
// before any computation; insufficient data is the only other fatal
// condition. The profile is a pure function of the request.
func (svc *BrittlenessService) Analyze(ctx context.Context, req AnalysisRequest) (*brittleness.Profile, error) {
	log := svc.logger.With("Pipeline")
	cfg := req.Config

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	subjectID, err := core.ParseSubjectID(string(req.SubjectID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidSeries, err)
	}
	profile := cfg.Profile()

	s, err := preprocess.NewPreprocessor(profile, svc.logger).Process(ctx, subjectID, req.Samples)
	if err != nil {
		return nil, err
	}
	log.Info("analyzing %s series for %s: %d points over %s", s.Domain(), subjectID, s.Len(), s.Span())

	extractor := features.NewExtractor(cfg, svc.logger)
	extracted, err := extractor.Extract(ctx, s)
	if err != nil {
		return nil, err
	}

	engine := changepoint.NewEngine(cfg, svc.logger)
	svc.logger.With("Pipeline").Debug("running detectors %v on %d windows", engine.Methods(), len(extracted.Usable()))
	outcomes, err := engine.DetectAll(ctx, s, extracted.Usable())
	if err != nil {
		return nil, err
	}

	boundaries := segment.NewMerger(profile, svc.logger).Merge(s, changepoint.Candidates(outcomes))

	scorer := classify.NewScorer(cfg, extracted.Windows, extractor)
	segments, boundaries := segment.NewOptimizer(cfg, scorer, svc.logger).Optimize(s, boundaries)
	classify.Trends(segments)

	overall := classify.OverallScore(segments)
	classification := classify.NewClassifier(profile).Classify(overall, classify.SeriesMetrics(segments))

	confidence, detail := classify.Confidence(classify.ConfidenceInput{
		Coverage:        s.Report().Coverage,
		TotalWindows:    len(extracted.Windows),
		ExcludedWindows: len(extracted.Degenerate),
		Boundaries:      boundaries,
		Detectors:       len(outcomes),
		FailedDetectors: changepoint.Failed(outcomes),
	})

	warnings := make([]string, 0, len(extracted.Degenerate))
	for i := range extracted.Degenerate {
		warnings = append(warnings, extracted.Degenerate[i].Error())
	}
	for _, o := range outcomes {
		if o.Err != nil {
			warnings = append(warnings, fmt.Sprintf("%s detector failed: %v", o.Method, o.Err))
		}
	}

	if boundaries == nil {
		boundaries = []brittleness.Boundary{}
	}
	result := &brittleness.Profile{
		SeriesID:         subjectID,
		Domain:           s.Domain(),
		Unit:             s.Unit(),
		OverallScore:     overall,
		Classification:   classification,
		Segments:         segments,
		Boundaries:       boundaries,
		Confidence:       confidence,
		ConfidenceDetail: detail,
		ExcludedWindows:  extracted.Excluded(),
		Warnings:         warnings,
		Recommendations:  recommend.Generate(s.Domain(), classification.Level, classify.OverallTrend(segments), segments),
		Preprocessing:    s.Report(),
	}

	fingerprint, err := Fingerprint(result)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to fingerprint profile")
	}
	result.Fingerprint = fingerprint

	log.Info("classified %s as %s (%s) with score %.1f, %d segments, confidence %.2f",
		subjectID, classification.Code, classification.Label, overall, len(segments), confidence)
	return result, nil
}

// AnalyzeAndStore runs the pipeline and saves the profile under a new run ID
func (svc *BrittlenessService) AnalyzeAndStore(ctx context.Context, req AnalysisRequest) (*StoredAnalysis, error) {
	if svc.repo == nil {
		return nil, apperrors.InternalError("no profile repository configured")
	}
	profile, err := svc.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	runID := core.NewRunID()
	if err := svc.repo.SaveProfile(ctx, runID, profile); err != nil {
		return nil, apperrors.Wrap(err, "failed to save profile")
	}
	svc.logger.With("Pipeline").Debug("stored profile %s for %s", runID, profile.SeriesID)
	return &StoredAnalysis{RunID: runID, Profile: profile}, nil
}

// Fingerprint hashes the deterministic JSON body of a profile, excluding
// the fingerprint field itself
func Fingerprint(p *brittleness.Profile) (core.Hash, error) {
	body := *p
	body.Fingerprint = ""
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	return core.NewHash(data), nil
}
