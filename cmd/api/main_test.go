package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipepredictor/internal/api"
	"recipepredictor/internal/config"
	"recipepredictor/internal/platform/predictor"
	"recipepredictor/internal/workflow"
)

// newStack wires the real predictor client, registry and router against a
// fake prediction service.
func newStack(t *testing.T, service http.HandlerFunc) (*gin.Engine, *workflow.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(service)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.PredictURL = srv.URL + "/predict"
	cfg.RequestTimeout = 2 * time.Second

	client := predictor.NewClient(cfg.PredictURL, predictor.WithTimeout(cfg.RequestTimeout))
	registry := workflow.NewRegistry(context.Background(), client, nil)
	t.Cleanup(registry.CloseAll)

	return setupRouter(api.NewHandler(registry, nil), cfg), registry
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) (*httptest.ResponseRecorder, api.WorkflowResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var resp api.WorkflowResponse
	if rr.Code < 300 || rr.Code == http.StatusConflict || rr.Code == http.StatusUnprocessableEntity {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr, resp
}

func TestEndToEnd_DatasetThenModel(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
	)
	r, _ := newStack(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/predict", req.URL.Path)
		var body struct {
			Ingredients string `json:"ingredients"`
		}
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		mu.Lock()
		received = append(received, body.Ingredients)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if body.Ingredients == "garlic" {
			io.WriteString(w, `{"source":"dataset","matches":[{"Category":"Soup","Cuisine":"Thai","MatchedIngredients":["garlic"],"AllIngredients":["garlic","chicken","lime"]}]}`)
			return
		}
		io.WriteString(w, `{"source":"model","Category":"Dessert","Cuisine":"Unknown"}`)
	})

	rr, mounted := postJSON(t, r, "/workflows", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := mounted.ID

	rr, resp := postJSON(t, r, "/workflows/"+id+"/predict?wait=true", map[string]string{"ingredients": " garlic "})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, workflow.ModeDatasetMatches, resp.View.Mode)
	assert.Equal(t, "Found 1 recipe(s) from dataset:", resp.View.Heading)

	rr, resp = postJSON(t, r, "/workflows/"+id+"/predict?wait=true", map[string]string{"ingredients": "sugar, cocoa"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, workflow.ModeModelPrediction, resp.View.Mode)
	assert.Equal(t, "Dessert", resp.View.Category)
	assert.Equal(t, "Couldn't determine", resp.View.Cuisine)
	assert.Empty(t, resp.View.Matches)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"garlic", "sugar, cocoa"}, received)
}

func TestEndToEnd_EmptyDataset(t *testing.T) {
	r, _ := newStack(t, func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `{"source":"dataset","matches":[]}`)
	})

	_, mounted := postJSON(t, r, "/workflows", nil)
	rr, resp := postJSON(t, r, "/workflows/"+mounted.ID+"/predict?wait=true", map[string]string{"ingredients": "unobtainium"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, workflow.ModeNoMatches, resp.View.Mode)
	assert.Equal(t, "No matching recipes found in dataset.", resp.View.Heading)
}

func TestEndToEnd_ServiceErrorIsGeneric(t *testing.T) {
	r, _ := newStack(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"No ingredients provided"}`)
	})

	_, mounted := postJSON(t, r, "/workflows", nil)
	rr, resp := postJSON(t, r, "/workflows/"+mounted.ID+"/predict?wait=true", map[string]string{"ingredients": "rice"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, workflow.ModeError, resp.View.Mode)
	assert.Equal(t, "Something went wrong. Please try again later.", resp.View.Error)
	assert.NotContains(t, rr.Body.String(), "No ingredients provided")
}

func TestEndToEnd_ClearDropsLateResponse(t *testing.T) {
	release := make(chan struct{})
	r, registry := newStack(t, func(w http.ResponseWriter, req *http.Request) {
		<-release
		io.WriteString(w, `{"source":"model","Category":"Main","Cuisine":"Italian"}`)
	})
	defer close(release)

	_, mounted := postJSON(t, r, "/workflows", nil)
	rr, resp := postJSON(t, r, "/workflows/"+mounted.ID+"/predict", map[string]string{"ingredients": "basil"})
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, workflow.ModeLoading, resp.View.Mode)

	rr, resp = postJSON(t, r, "/workflows/"+mounted.ID+"/clear", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, workflow.ModeIdle, resp.View.Mode)

	w, err := registry.Get(mounted.ID)
	require.NoError(t, err)
	assert.Never(t, func() bool {
		return w.State().Phase() != workflow.PhaseIdle
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newStack(t, func(w http.ResponseWriter, req *http.Request) {})

	req := httptest.NewRequest(http.MethodOptions, "/workflows", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}
