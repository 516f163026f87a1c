package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

func newTemplate(id int64, method, url string) *models.RequestTemplate {
	return &models.RequestTemplate{
		Base:            models.Base{ID: id},
		Method:          method,
		URL:             url,
		BodyType:        models.BodyTypeNone,
		TimeoutMS:       2000,
		FollowRedirects: true,
		VerifySSL:       true,
	}
}

// S1 — simple rendering + success.
func TestScenario_S1_SimpleRenderingAndSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/echo", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("u"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	store := NewStore()
	tmpl := newTemplate(1, models.MethodGET, upstream.URL+"/echo?u={{uid}}")
	store.PutRequest(tmpl)

	scenario := &models.Scenario{Name: "s1"}
	steps := []*models.ScenarioStep{{RequestID: tmpl.ID, StepNo: 1, IsEnabled: true}}
	scenarioID := store.PutScenario(scenario, steps)

	run := store.NewRun(scenarioID)
	run.RuntimeVariables = map[string]any{"uid": "u1"}

	require.NoError(t, store.NewOrchestrator().Run(context.Background(), run.ID))

	runs := store.RequestRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, 200, *runs[0].ResponseStatusCode)
	assert.True(t, runs[0].IsSuccess)
	snapshot := runs[0].RequestSnapshot
	assert.Equal(t, upstream.URL+"/echo?u=u1", snapshot["url"])
	assert.Equal(t, models.RunStatusSuccess, store.runs[run.ID].RunStatus)
}

// S2 — default dataset merge: a template's base_query_params merge with
// its default dataset's query_params, the dataset's values winning.
func TestScenario_S2_DefaultDatasetMerge(t *testing.T) {
	var gotQuery map[string][]string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	store := NewStore()
	tmpl := newTemplate(1, models.MethodGET, upstream.URL+"/search")
	tmpl.BaseQueryParams = map[string]string{"from": "base", "uid": "{{uid}}"}
	tmpl.DatasetRunMode = models.DatasetRunModeRequestDefault
	store.PutRequest(tmpl)

	ds := &models.Dataset{
		RequestID:   tmpl.ID,
		IsEnabled:   true,
		IsDefault:   true,
		QueryParams: map[string]string{"from": "dataset", "tag": "{{tag}}"},
		Variables:   map[string]any{"uid": "u100", "tag": "ok"},
	}
	store.PutDataset(ds)
	tmpl.DefaultDatasetID = &ds.ID

	scenario := &models.Scenario{Name: "s2"}
	steps := []*models.ScenarioStep{{RequestID: tmpl.ID, StepNo: 1, IsEnabled: true}}
	scenarioID := store.PutScenario(scenario, steps)

	run := store.NewRun(scenarioID)
	require.NoError(t, store.NewOrchestrator().Run(context.Background(), run.ID))

	require.NotNil(t, gotQuery)
	assert.Equal(t, "dataset", gotQuery.Get("from"))
	assert.Equal(t, "u100", gotQuery.Get("uid"))
	assert.Equal(t, "ok", gotQuery.Get("tag"))
}

// S3 — extraction chain across steps: step 1 extracts a token and a
// session cookie, step 2 relies on both being promoted into runtime
// variables and forwarded as header/query.
func TestScenario_S3_ExtractionChainAcrossSteps(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "s1"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tk"}`))
	})
	mux.HandleFunc("/order", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		sid := r.URL.Query().Get("sid")
		auth := r.Header.Get("Authorization")
		if token == "tk" && sid == "s1" && auth == "Bearer tk" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	store := NewStore()
	authTmpl := newTemplate(1, models.MethodGET, upstream.URL+"/auth")
	store.PutRequest(authTmpl)
	store.PutExtractRule(&models.ExtractRule{
		RequestID: authTmpl.ID, VarName: "token", SourceType: models.SourceTypeResponseJSON,
		SourceExpr: "$.token", Required: true, Scope: models.ScopeScenario,
	})
	store.PutExtractRule(&models.ExtractRule{
		RequestID: authTmpl.ID, VarName: "session_id", SourceType: models.SourceTypeResponseCookie,
		SourceExpr: "session_id", Required: true, Scope: models.ScopeScenario,
	})

	orderTmpl := newTemplate(2, models.MethodGET, upstream.URL+"/order?token={{token}}&sid={{session_id}}")
	orderTmpl.BaseHeaders = map[string]string{"Authorization": "Bearer {{token}}"}
	store.PutRequest(orderTmpl)

	scenario := &models.Scenario{Name: "s3"}
	steps := []*models.ScenarioStep{
		{RequestID: authTmpl.ID, StepNo: 1, IsEnabled: true},
		{RequestID: orderTmpl.ID, StepNo: 2, IsEnabled: true},
	}
	scenarioID := store.PutScenario(scenario, steps)

	run := store.NewRun(scenarioID)
	require.NoError(t, store.NewOrchestrator().Run(context.Background(), run.ID))

	finished := store.runs[run.ID]
	assert.Equal(t, models.RunStatusSuccess, finished.RunStatus)
	assert.True(t, finished.IsSuccess)
	assert.Equal(t, "tk", finished.RuntimeVariables["token"])
	assert.Equal(t, "s1", finished.RuntimeVariables["session_id"])

	var scenarioScoped int
	for _, rec := range store.runVariables {
		if rec.Scope == models.ScopeScenario {
			scenarioScoped++
		}
	}
	assert.Equal(t, 2, scenarioScoped)
}

// S4 — stop-on-fail: three steps, the second returns 500 and is marked
// stop_on_fail, so the third step never executes.
func TestScenario_S4_StopOnFail(t *testing.T) {
	calls := map[string]int{}
	mux := http.NewServeMux()
	mux.HandleFunc("/one", func(w http.ResponseWriter, r *http.Request) { calls["one"]++; w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/two", func(w http.ResponseWriter, r *http.Request) { calls["two"]++; w.WriteHeader(http.StatusInternalServerError) })
	mux.HandleFunc("/three", func(w http.ResponseWriter, r *http.Request) { calls["three"]++; w.WriteHeader(http.StatusOK) })
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	store := NewStore()
	t1 := newTemplate(1, models.MethodGET, upstream.URL+"/one")
	t2 := newTemplate(2, models.MethodGET, upstream.URL+"/two")
	t3 := newTemplate(3, models.MethodGET, upstream.URL+"/three")
	store.PutRequest(t1)
	store.PutRequest(t2)
	store.PutRequest(t3)

	scenario := &models.Scenario{Name: "s4", StopOnFail: true}
	steps := []*models.ScenarioStep{
		{RequestID: t1.ID, StepNo: 1, IsEnabled: true, StopOnFail: true},
		{RequestID: t2.ID, StepNo: 2, IsEnabled: true, StopOnFail: true},
		{RequestID: t3.ID, StepNo: 3, IsEnabled: true, StopOnFail: true},
	}
	scenarioID := store.PutScenario(scenario, steps)

	run := store.NewRun(scenarioID)
	require.NoError(t, store.NewOrchestrator().Run(context.Background(), run.ID))

	finished := store.runs[run.ID]
	assert.Equal(t, 2, finished.TotalRequestRuns)
	assert.Equal(t, 1, finished.FailedRequestRuns)
	require.NotNil(t, finished.ErrorMessage)
	assert.Contains(t, *finished.ErrorMessage, "step 2")
	assert.Equal(t, 0, calls["three"])
}

// S5 — required extraction missing: the rule's field is absent from the
// response, so the request run is marked failed with an identifiable
// error message and, with stop_on_fail, the scenario stops there.
func TestScenario_S5_RequiredExtractionMissing(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"unrelated":"value"}`))
	}))
	defer upstream.Close()

	store := NewStore()
	tmpl := newTemplate(1, models.MethodGET, upstream.URL+"/auth")
	store.PutRequest(tmpl)
	store.PutExtractRule(&models.ExtractRule{
		RequestID: tmpl.ID, VarName: "token", SourceType: models.SourceTypeResponseJSON,
		SourceExpr: "$.token", Required: true, Scope: models.ScopeScenario,
	})

	scenario := &models.Scenario{Name: "s5", StopOnFail: true}
	steps := []*models.ScenarioStep{{RequestID: tmpl.ID, StepNo: 1, IsEnabled: true, StopOnFail: true}}
	scenarioID := store.PutScenario(scenario, steps)

	run := store.NewRun(scenarioID)
	require.NoError(t, store.NewOrchestrator().Run(context.Background(), run.ID))

	runs := store.RequestRuns()
	require.Len(t, runs, 1)
	assert.False(t, runs[0].IsSuccess)
	require.NotNil(t, runs[0].ErrorMessage)
	assert.Contains(t, *runs[0].ErrorMessage, "变量提取失败")
	assert.Contains(t, *runs[0].ErrorMessage, "token")

	finished := store.runs[run.ID]
	assert.Equal(t, models.RunStatusFailed, finished.RunStatus)
}

// dataset mismatch: a step pinning a dataset that belongs to a different
// request template fails the step without ever calling upstream.
func TestScenario_PinnedDatasetFromAnotherRequestFailsStep(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called when the pinned dataset is invalid")
	}))
	defer upstream.Close()

	store := NewStore()
	tmpl := newTemplate(1, models.MethodGET, upstream.URL+"/search")
	store.PutRequest(tmpl)
	otherTmpl := newTemplate(2, models.MethodGET, upstream.URL+"/other")
	store.PutRequest(otherTmpl)

	foreignDataset := &models.Dataset{RequestID: otherTmpl.ID, IsEnabled: true}
	dsID := store.PutDataset(foreignDataset)

	scenario := &models.Scenario{Name: "dataset-mismatch", StopOnFail: true}
	steps := []*models.ScenarioStep{{RequestID: tmpl.ID, StepNo: 1, IsEnabled: true, StopOnFail: true, DatasetID: &dsID}}
	scenarioID := store.PutScenario(scenario, steps)

	run := store.NewRun(scenarioID)
	require.NoError(t, store.NewOrchestrator().Run(context.Background(), run.ID))

	assert.Empty(t, store.RequestRuns())
	assert.Equal(t, models.RunStatusFailed, store.runs[run.ID].RunStatus)
}

// S6 — cancel before execution: a queued run with cancel_requested set
// transitions straight to canceled, producing zero request runs, and a
// second delivery of the same message is a no-op against the now-terminal
// run.
func TestScenario_S6_CancelBeforeExecution(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called for a canceled run")
	}))
	defer upstream.Close()

	store := NewStore()
	tmpl := newTemplate(1, models.MethodGET, upstream.URL+"/never")
	store.PutRequest(tmpl)

	scenario := &models.Scenario{Name: "s6"}
	steps := []*models.ScenarioStep{{RequestID: tmpl.ID, StepNo: 1, IsEnabled: true}}
	scenarioID := store.PutScenario(scenario, steps)

	run := store.NewRun(scenarioID)
	run.CancelRequested = true

	orch := store.NewOrchestrator()
	require.NoError(t, orch.Run(context.Background(), run.ID))

	finished := store.runs[run.ID]
	assert.Equal(t, models.RunStatusCanceled, finished.RunStatus)
	require.NotNil(t, finished.ErrorMessage)
	assert.NotEmpty(t, *finished.ErrorMessage)
	assert.Empty(t, store.RequestRuns())

	// Redelivery: the queue handed the same message again. Running a
	// terminal scenario run a second time must not re-execute any step.
	require.NoError(t, orch.Run(context.Background(), run.ID))
	assert.Empty(t, store.RequestRuns())
	assert.Equal(t, models.RunStatusCanceled, store.runs[run.ID].RunStatus)
}
