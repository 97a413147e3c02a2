package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gobrittle/app"
	"gobrittle/domain/core"
	"gobrittle/domain/series"
	"gobrittle/internal"
	"gobrittle/internal/config"
	"gobrittle/internal/errors"
	"gobrittle/ports"

	"github.com/gin-gonic/gin"
)

// AnalyzeRequest is the body of POST /api/v1/analyze
type AnalyzeRequest struct {
	SubjectID string             `json:"subject_id" binding:"required"`
	Domain    string             `json:"domain" binding:"required"`
	Samples   []series.RawSample `json:"samples" binding:"required"`
	Options   *AnalyzeOptions    `json:"options,omitempty"`
	Store     bool               `json:"store"`
}

// AnalyzeOptions override the server defaults of a run. Durations use
// Go duration syntax ("3h", "150s").
type AnalyzeOptions struct {
	MinSegments       *int                 `json:"min_segments,omitempty"`
	MaxSegments       *int                 `json:"max_segments,omitempty"`
	SignificanceLevel *float64             `json:"significance_level,omitempty"`
	WindowSize        *int                 `json:"window_size,omitempty"`
	StepSize          *int                 `json:"step_size,omitempty"`
	WindowDuration    *string              `json:"window_duration,omitempty"`
	StepDuration      *string              `json:"step_duration,omitempty"`
	MergeThreshold    *string              `json:"merge_threshold,omitempty"`
	ScoreWeights      *config.ScoreWeights `json:"score_weights,omitempty"`
	Workers           *int                 `json:"workers,omitempty"`
	ThresholdProfile  *string              `json:"threshold_profile,omitempty"`
}

// BrittlenessHandler serves analysis and stored-profile requests
type BrittlenessHandler struct {
	service  *app.BrittlenessService
	repo     ports.ProfileRepository
	defaults config.AnalysisConfig
	logger   *internal.Logger
}

// NewBrittlenessHandler creates a handler whose runs start from defaults,
// switched to the requested domain; repo may be nil when persistence is
// disabled
func NewBrittlenessHandler(service *app.BrittlenessService, repo ports.ProfileRepository, defaults config.AnalysisConfig, logger *internal.Logger) *BrittlenessHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &BrittlenessHandler{service: service, repo: repo, defaults: defaults, logger: logger.With("API")}
}

// Analyze runs the pipeline on the posted samples
func (h *BrittlenessHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	subject, err := core.ParseSubjectID(req.SubjectID)
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	domain, err := series.ParseDomain(req.Domain)
	if err != nil {
		respondError(c, err)
		return
	}

	cfg, err := req.Options.apply(h.defaults.ForDomain(domain))
	if err != nil {
		respondError(c, err)
		return
	}
	analysis := app.AnalysisRequest{
		SubjectID: subject,
		Samples:   req.Samples,
		Config:    cfg,
	}

	if req.Store {
		if h.repo == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile storage is not configured"})
			return
		}
		stored, err := h.service.AnalyzeAndStore(c.Request.Context(), analysis)
		if err != nil {
			respondError(c, err)
			return
		}
		h.logger.Info("stored run %s for %s", stored.RunID, subject)
		c.JSON(http.StatusCreated, stored)
		return
	}

	profile, err := h.service.Analyze(c.Request.Context(), analysis)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetProfile returns one stored profile
func (h *BrittlenessHandler) GetProfile(c *gin.Context) {
	if !h.storageEnabled(c) {
		return
	}
	runID, err := core.ParseRunID(c.Param("runId"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}

	record, err := h.repo.GetProfile(c.Request.Context(), runID)
	if core.IsNotFoundError(err) {
		respondError(c, errors.NotFound("profile "+runID.String()))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListSubjectProfiles returns the stored profile summaries of a subject
func (h *BrittlenessHandler) ListSubjectProfiles(c *gin.Context) {
	if !h.storageEnabled(c) {
		return
	}
	subject, err := core.ParseSubjectID(c.Param("subjectId"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(c, errors.InvalidInput("limit must be a non-negative integer"))
			return
		}
	}

	summaries, err := h.repo.ListProfilesBySubject(c.Request.Context(), subject, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject_id": subject, "profiles": summaries})
}

// ListDomains describes the supported sampling domains and their defaults
func (h *BrittlenessHandler) ListDomains(c *gin.Context) {
	domains := make([]config.DomainProfile, 0, len(series.Domains()))
	for _, d := range series.Domains() {
		if p, ok := config.ProfileFor(d); ok {
			domains = append(domains, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"domains": domains})
}

func (h *BrittlenessHandler) storageEnabled(c *gin.Context) bool {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile storage is not configured"})
		return false
	}
	return true
}

func (o *AnalyzeOptions) apply(cfg config.AnalysisConfig) (config.AnalysisConfig, error) {
	if o == nil {
		return cfg, nil
	}
	if o.MinSegments != nil {
		cfg.MinSegments = *o.MinSegments
	}
	if o.MaxSegments != nil {
		cfg.MaxSegments = *o.MaxSegments
	}
	if o.SignificanceLevel != nil {
		cfg.SignificanceLevel = *o.SignificanceLevel
	}
	if o.WindowSize != nil {
		cfg.WindowSize = *o.WindowSize
	}
	if o.StepSize != nil {
		cfg.StepSize = *o.StepSize
	}
	if o.ScoreWeights != nil {
		cfg.ScoreWeights = *o.ScoreWeights
	}
	if o.Workers != nil {
		cfg.Workers = *o.Workers
	}
	if o.ThresholdProfile != nil {
		cfg.ThresholdProfile = *o.ThresholdProfile
	}

	durations := []struct {
		name  string
		value *string
		dst   *time.Duration
	}{
		{"window_duration", o.WindowDuration, &cfg.WindowDuration},
		{"step_duration", o.StepDuration, &cfg.StepDuration},
		{"merge_threshold", o.MergeThreshold, &cfg.MergeThreshold},
	}
	for _, d := range durations {
		if d.value == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.value)
		if err != nil {
			return cfg, errors.InvalidInput(fmt.Sprintf("%s: %v", d.name, err))
		}
		*d.dst = parsed
	}
	return cfg, nil
}

func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	if code == "UNKNOWN" {
		code = errors.Classify(err)
	}
	c.JSON(errors.HTTPStatus(err), gin.H{"error": err.Error(), "code": code})
}
