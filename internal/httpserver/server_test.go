package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/Boris-Bot69/fitness-ios/internal/config"
	"github.com/Boris-Bot69/fitness-ios/internal/storage/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:     8080,
		AuthMode: config.AuthModeNone,
		Pipeline: config.PipelineConfig{
			SamplePeriodSeconds:  10,
			MaxSampleRateSeconds: 300,
			MaxBodyBytes:         1 << 20,
			DistanceUnitMeters:   1000,
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := New(testConfig(), memory.New(), Deps{})
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "workouts_http_rate_limited_total") {
		t.Error("expected service metrics to be exposed")
	}
}

func TestWorkoutLifecycleThroughHandlerChain(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	payload, err := os.ReadFile("../workouts/testdata/workout.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	send := func(method, target string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("X-Owner-ID", "athlete-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	created := send(http.MethodPost, "/v1/workouts", payload)
	if created.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var detail struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(created.Body).Decode(&detail); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if detail.ID == "" {
		t.Fatal("expected workout id")
	}

	if w := send(http.MethodPost, "/v1/workouts", payload); w.Code != http.StatusOK {
		t.Fatalf("duplicate create: expected 200, got %d", w.Code)
	}

	if w := send(http.MethodGet, "/v1/workouts/"+detail.ID, nil); w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}

	report := send(http.MethodGet, "/v1/workouts/"+detail.ID+"/report.pdf", nil)
	if report.Code != http.StatusOK {
		t.Fatalf("report: expected 200, got %d", report.Code)
	}
	if !bytes.HasPrefix(report.Body.Bytes(), []byte("%PDF")) {
		t.Error("expected a PDF document")
	}

	// Другой владелец не видит чужую тренировку
	req := httptest.NewRequest(http.MethodGet, "/v1/workouts/"+detail.ID, nil)
	req.Header.Set("X-Owner-ID", "athlete-2")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign owner: expected 404, got %d", w.Code)
	}
}

func TestAuthRequiredRejectsAnonymous(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = config.AuthModeDev
	cfg.AuthRequired = true
	cfg.JWTSecret = "test-secret"
	cfg.JWTIssuer = "fitness-ios"
	cfg.JWTTTLMinutes = 5
	srv := New(cfg, memory.New(), Deps{})
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/workouts", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	tokenReq := httptest.NewRequest(http.MethodPost, "/v1/auth/dev", strings.NewReader(`{"owner_id":"athlete-1"}`))
	tw := httptest.NewRecorder()
	handler.ServeHTTP(tw, tokenReq)
	if tw.Code != http.StatusOK {
		t.Fatalf("dev auth: expected 200, got %d: %s", tw.Code, tw.Body.String())
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(tw.Body).Decode(&tok); err != nil {
		t.Fatalf("decode token: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/workouts", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authorized list: expected 200, got %d", w.Code)
	}
}
