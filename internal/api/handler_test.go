package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gobrittle/app"
	"gobrittle/domain/brittleness"
	"gobrittle/domain/core"
	"gobrittle/domain/series"
	"gobrittle/internal"
	"gobrittle/internal/config"
	"gobrittle/internal/testkit"
	"gobrittle/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo ports.ProfileRepository) *gin.Engine {
	return newConfiguredRouter(repo, config.DefaultAnalysisConfig(series.DomainGlucose))
}

func newConfiguredRouter(repo ports.ProfileRepository, defaults config.AnalysisConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := internal.NewLogger(internal.LogLevelError)
	svc := app.NewBrittlenessService(repo, logger)
	return NewRouter(NewBrittlenessHandler(svc, repo, defaults, logger), logger)
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := do(t, newTestRouter(nil), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListDomains(t *testing.T) {
	w := do(t, newTestRouter(nil), http.MethodGet, "/api/v1/domains", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Domains []map[string]interface{} `json:"domains"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Domains, 3)
	assert.Equal(t, "glucose", body.Domains[0]["domain"])
}

func TestAnalyze_FlatGlucose(t *testing.T) {
	w := do(t, newTestRouter(nil), http.MethodPost, "/api/v1/analyze", AnalyzeRequest{
		SubjectID: "patient-1",
		Domain:    "cgm",
		Samples:   testkit.FlatGlucose(2),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var profile brittleness.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, brittleness.LevelI, profile.Classification.Level)
	assert.Len(t, profile.Segments, 1)
	assert.False(t, profile.Fingerprint.IsEmpty())
}

func TestAnalyze_ErrorStatuses(t *testing.T) {
	router := newTestRouter(nil)
	bad := "high_match"

	cases := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"unknown domain", AnalyzeRequest{SubjectID: "s", Domain: "eeg", Samples: testkit.FlatGlucose(2)}, http.StatusBadRequest, "CONFIG_INVALID"},
		{"deprecated thresholds", AnalyzeRequest{SubjectID: "s", Domain: "glucose", Samples: testkit.FlatGlucose(2), Options: &AnalyzeOptions{ThresholdProfile: &bad}}, http.StatusBadRequest, "CONFIG_INVALID"},
		{"short recording", AnalyzeRequest{SubjectID: "s", Domain: "glucose", Samples: testkit.FlatGlucose(1)[:48]}, http.StatusUnprocessableEntity, "INSUFFICIENT_DATA"},
		{"missing fields", map[string]string{"domain": "glucose"}, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/v1/analyze", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body["code"])
		})
	}
}

func TestAnalyze_UsesServerDefaults(t *testing.T) {
	defaults := config.DefaultAnalysisConfig(series.DomainECG)
	defaults.ThresholdProfile = config.ThresholdProfileHighMatch
	router := newConfiguredRouter(nil, defaults)

	w := do(t, router, http.MethodPost, "/api/v1/analyze", AnalyzeRequest{
		SubjectID: "s", Domain: "glucose", Samples: testkit.FlatGlucose(2),
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "CONFIG_INVALID", body["code"])

	canonical := config.ThresholdProfileCanonical
	w = do(t, router, http.MethodPost, "/api/v1/analyze", AnalyzeRequest{
		SubjectID: "s", Domain: "glucose", Samples: testkit.FlatGlucose(2),
		Options: &AnalyzeOptions{ThresholdProfile: &canonical},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var profile brittleness.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, series.DomainGlucose, profile.Domain)
}

func TestAnalyze_DurationAndWeightOptions(t *testing.T) {
	router := newTestRouter(nil)
	str := func(s string) *string { return &s }

	w := do(t, router, http.MethodPost, "/api/v1/analyze", AnalyzeRequest{
		SubjectID: "s", Domain: "glucose", Samples: testkit.ShiftedGlucose(2, 1),
		Options: &AnalyzeOptions{
			WindowDuration: str("3h"),
			StepDuration:   str("1h"),
			MergeThreshold: str("2h"),
			ScoreWeights:   &config.ScoreWeights{Variability: 25, Rhythm: 25, OutOfRange: 25, PeakFluctuation: 25},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cases := []struct {
		name    string
		options AnalyzeOptions
		code    string
	}{
		{"unparsable window", AnalyzeOptions{WindowDuration: str("three hours")}, "INVALID_INPUT"},
		{"unparsable merge threshold", AnalyzeOptions{MergeThreshold: str("2")}, "INVALID_INPUT"},
		{"negative step", AnalyzeOptions{StepDuration: str("-1h")}, "CONFIG_INVALID"},
		{"weights off 100", AnalyzeOptions{ScoreWeights: &config.ScoreWeights{Variability: 50}}, "CONFIG_INVALID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			options := tc.options
			w := do(t, router, http.MethodPost, "/api/v1/analyze", AnalyzeRequest{
				SubjectID: "s", Domain: "glucose", Samples: testkit.FlatGlucose(2), Options: &options,
			})
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body["code"])
		})
	}
}

func TestAnalyze_StoreWithoutRepository(t *testing.T) {
	w := do(t, newTestRouter(nil), http.MethodPost, "/api/v1/analyze", AnalyzeRequest{
		SubjectID: "s", Domain: "glucose", Samples: testkit.FlatGlucose(2), Store: true,
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAnalyze_Store(t *testing.T) {
	repo := new(testkit.MockProfileRepository)
	repo.On("SaveProfile", mock.Anything, mock.AnythingOfType("core.RunID"), mock.AnythingOfType("*brittleness.Profile")).Return(nil)

	w := do(t, newTestRouter(repo), http.MethodPost, "/api/v1/analyze", AnalyzeRequest{
		SubjectID: "patient-2", Domain: "glucose", Samples: testkit.FlatGlucose(2), Store: true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var stored app.StoredAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	_, err := core.ParseRunID(stored.RunID.String())
	assert.NoError(t, err)
	assert.Equal(t, core.SubjectID("patient-2"), stored.Profile.SeriesID)
	repo.AssertExpectations(t)
}

func TestGetProfile(t *testing.T) {
	runID := core.NewRunID()
	missing := core.NewRunID()

	repo := new(testkit.MockProfileRepository)
	repo.On("GetProfile", mock.Anything, runID).Return(&ports.ProfileRecord{
		RunID:     runID,
		CreatedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Profile:   brittleness.Profile{SeriesID: "p", OverallScore: 12},
	}, nil)
	repo.On("GetProfile", mock.Anything, missing).Return(nil, fmt.Errorf("run %s: %w", missing, core.ErrProfileNotFound))
	router := newTestRouter(repo)

	w := do(t, router, http.MethodGet, "/api/v1/profiles/"+runID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var record ports.ProfileRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, runID, record.RunID)

	w = do(t, router, http.MethodGet, "/api/v1/profiles/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Equal(t, "profile "+missing.String()+" not found", body["error"])

	w = do(t, router, http.MethodGet, "/api/v1/profiles/not-a-run", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	repo.AssertExpectations(t)
}

func TestListSubjectProfiles(t *testing.T) {
	repo := new(testkit.MockProfileRepository)
	repo.On("ListProfilesBySubject", mock.Anything, core.SubjectID("p-9"), 5).Return([]ports.ProfileSummary{
		{RunID: core.NewRunID(), SubjectID: "p-9", Level: brittleness.LevelII, Code: "II"},
	}, nil)
	router := newTestRouter(repo)

	w := do(t, router, http.MethodGet, "/api/v1/subjects/p-9/profiles?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Profiles []ports.ProfileSummary `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Profiles, 1)
	assert.Equal(t, "II", body.Profiles[0].Code)

	w = do(t, router, http.MethodGet, "/api/v1/subjects/p-9/profiles?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	repo.AssertExpectations(t)
}
