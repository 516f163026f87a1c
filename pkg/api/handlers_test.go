package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/httpexec"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/repo"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/report"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/services"
)

type fakeRequests struct{ tmpl *models.RequestTemplate }

func (f fakeRequests) Get(ctx context.Context, id int64) (*models.RequestTemplate, error) {
	if f.tmpl == nil || f.tmpl.ID != id {
		return nil, repo.ErrNotFound
	}
	return f.tmpl, nil
}

type fakeDatasets struct{}

func (fakeDatasets) Get(ctx context.Context, id int64) (*models.Dataset, error) { return nil, repo.ErrNotFound }

type fakeEnvironments struct{}

func (fakeEnvironments) Get(ctx context.Context, id int64) (*models.Environment, error) {
	return nil, repo.ErrNotFound
}
func (fakeEnvironments) Default(ctx context.Context) (*models.Environment, error) {
	return nil, repo.ErrNotFound
}

type fakeExtractRules struct{}

func (fakeExtractRules) ListByRequest(ctx context.Context, requestID int64, datasetID *int64) ([]*models.ExtractRule, error) {
	return nil, nil
}

type fakeAssertRules struct{}

func (fakeAssertRules) ListByRequest(ctx context.Context, requestID int64, datasetID *int64) ([]*models.AssertRule, error) {
	return nil, nil
}

type fakeRequestRuns struct{ nextID int64 }

func (f *fakeRequestRuns) Create(ctx context.Context, run *models.RequestRun) (int64, error) {
	f.nextID++
	return f.nextID, nil
}

type fakeRunVariables struct{}

func (fakeRunVariables) CreateBatch(ctx context.Context, requestRunID, requestID int64, scenarioRunID, scenarioCaseID, datasetID *int64, records []models.ExtractRecord) error {
	return nil
}

type fakeScenarios struct{ s *models.Scenario }

func (f fakeScenarios) Get(ctx context.Context, id int64) (*models.Scenario, error) {
	if f.s == nil || f.s.ID != id {
		return nil, repo.ErrNotFound
	}
	return f.s, nil
}

type fakeScenarioRuns struct {
	runs   map[int64]*models.ScenarioRun
	nextID int64
}

func (f *fakeScenarioRuns) Create(ctx context.Context, scenarioID int64, envID *int64, triggerType string, runtimeVariables map[string]any) (int64, error) {
	f.nextID++
	f.runs[f.nextID] = &models.ScenarioRun{Base: models.Base{ID: f.nextID}, ScenarioID: scenarioID, RunStatus: models.RunStatusQueued}
	return f.nextID, nil
}
func (f *fakeScenarioRuns) Get(ctx context.Context, id int64) (*models.ScenarioRun, error) {
	if run, ok := f.runs[id]; ok {
		return run, nil
	}
	return nil, repo.ErrNotFound
}
func (f *fakeScenarioRuns) RequestCancel(ctx context.Context, id int64) error {
	f.runs[id].CancelRequested = true
	return nil
}

type fakeBroker struct{ enqueued []int64 }

func (f *fakeBroker) Enqueue(ctx context.Context, scenarioRunID int64) error {
	f.enqueued = append(f.enqueued, scenarioRunID)
	return nil
}

func newTestServer(t *testing.T) (*Server, *fakeScenarioRuns) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	tmpl := &models.RequestTemplate{Base: models.Base{ID: 1}, Method: models.MethodGET, URL: srv.URL, BodyType: models.BodyTypeNone, TimeoutMS: 2000, FollowRedirects: true, VerifySSL: true}
	caseRuns := services.NewCaseRunService(fakeRequests{tmpl}, fakeDatasets{}, fakeEnvironments{}, fakeExtractRules{}, fakeAssertRules{}, &fakeRequestRuns{}, fakeRunVariables{}, httpexec.New(models.MaxResponseBodyChars, 10))

	scenarioRunsFake := &fakeScenarioRuns{runs: map[int64]*models.ScenarioRun{}}
	scenarioRuns := services.NewScenarioRunService(fakeScenarios{&models.Scenario{Base: models.Base{ID: 1}}}, scenarioRunsFake, &fakeBroker{})

	reports := report.NewBuilder(scenarioRunsFake, fakeScenarioSteps{}, fakeRequests{tmpl}, fakeRequestRunLog{})

	noErr := func(ctx context.Context) error { return nil }
	return NewServer(caseRuns, scenarioRuns, reports, noErr, noErr, nil), scenarioRunsFake
}

type fakeScenarioSteps struct{}

func (fakeScenarioSteps) ListByScenario(ctx context.Context, scenarioID int64) ([]*models.ScenarioStep, error) {
	return nil, nil
}

type fakeRequestRunLog struct{}

func (fakeRequestRunLog) ListByScenarioRun(ctx context.Context, scenarioRunID int64) ([]*models.RequestRun, error) {
	return nil, nil
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleCaseRun_Success(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/case/run", models.CaseRunRequest{RequestID: 1})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, codeCreated, resp.Code)
}

func TestHandleCaseRun_UnknownRequestReturnsNotFoundEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/case/run", models.CaseRunRequest{RequestID: 999})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, codeNotFound, resp.Code)
}

func TestHandleScenarioRun_AcceptedAndCancel(t *testing.T) {
	srv, runs := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/scenario/run", models.ScenarioRunRequest{ScenarioID: 1})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var accepted envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, codeAccepted, accepted.Code)

	data, ok := accepted.Data.(map[string]any)
	require.True(t, ok)
	runID := int64(data["scenario_run_id"].(float64))

	cancelRec := doJSON(t, srv, http.MethodPost, "/api/scenario/run/cancel", models.ScenarioRunCancelRequest{ScenarioRunID: runID})
	assert.Equal(t, http.StatusCreated, cancelRec.Code)
	assert.True(t, runs.runs[runID].CancelRequested)
}

func TestHandleScenarioRunCancel_AlreadyTerminalReturnsInvalidState(t *testing.T) {
	srv, runs := newTestServer(t)
	runs.runs[5] = &models.ScenarioRun{Base: models.Base{ID: 5}, RunStatus: models.RunStatusSuccess}

	rec := doJSON(t, srv, http.MethodPost, "/api/scenario/run/cancel", models.ScenarioRunCancelRequest{ScenarioRunID: 5})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, codeInvalidState, resp.Code)
}

func TestHandleHealth_OK(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
