package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/neobridge/internal/infrastructure/config"
	"github.com/nerrad567/neobridge/internal/infrastructure/logging"
	"github.com/nerrad567/neobridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/neobridge/internal/poller"
)

type fakeBus struct{ state mqtt.State }

func (f fakeBus) State() mqtt.State { return f.state }

type fakeCheck struct{ err error }

func (f fakeCheck) HealthCheck(context.Context) error { return f.err }

type fakeCycles struct {
	report poller.CycleReport
	ok     bool
}

func (f fakeCycles) LastReport() (poller.CycleReport, bool) { return f.report, f.ok }

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error", Format: "text"}, "test")
}

func testServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = testLogger()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.NewRegistry()
	}
	deps.Version = "test"
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func do(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresLogger(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
}

func TestHealth(t *testing.T) {
	report := poller.CycleReport{ID: "cycle-1", Devices: 3, Published: true}

	tests := []struct {
		name       string
		deps       Deps
		wantStatus int
		wantBody   string
		wantBus    string
		wantCycle  bool
	}{
		{
			name:       "connected with cycle",
			deps:       Deps{Bus: fakeBus{mqtt.StateConnected}, Cycles: fakeCycles{report, true}},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
			wantBus:    "connected",
			wantCycle:  true,
		},
		{
			name:       "reconnecting",
			deps:       Deps{Bus: fakeBus{mqtt.StateReconnecting}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "degraded",
			wantBus:    "reconnecting",
		},
		{
			name:       "no bus",
			deps:       Deps{Cycles: fakeCycles{}},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
			wantBus:    "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, testServer(t, tt.deps), http.MethodGet, "/api/v1/health")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var h Health
			if err := json.NewDecoder(rec.Body).Decode(&h); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if h.Status != tt.wantBody {
				t.Errorf("status field = %q, want %q", h.Status, tt.wantBody)
			}
			if h.Bus != tt.wantBus {
				t.Errorf("bus = %q, want %q", h.Bus, tt.wantBus)
			}
			if (h.LastCycle != nil) != tt.wantCycle {
				t.Errorf("last_cycle present = %v, want %v", h.LastCycle != nil, tt.wantCycle)
			}
			if tt.wantCycle && h.LastCycle.Devices != 3 {
				t.Errorf("last_cycle.devices = %d, want 3", h.LastCycle.Devices)
			}
			if h.Version != "test" {
				t.Errorf("version = %q, want test", h.Version)
			}
		})
	}
}

func TestHealth_Components(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus int
		wantBody   string
		wantComp   map[string]string
	}{
		{
			name:       "all healthy",
			checks:     map[string]HealthChecker{"storage": fakeCheck{}, "influxdb": fakeCheck{}},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
			wantComp:   map[string]string{"storage": "ok", "influxdb": "ok"},
		},
		{
			name: "storage down",
			checks: map[string]HealthChecker{
				"storage":  fakeCheck{errors.New("database is locked")},
				"influxdb": fakeCheck{},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "degraded",
			wantComp:   map[string]string{"storage": "database is locked", "influxdb": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, Deps{Bus: fakeBus{mqtt.StateConnected}, Checks: tt.checks})
			rec := do(t, srv, http.MethodGet, "/api/v1/health")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var h Health
			if err := json.NewDecoder(rec.Body).Decode(&h); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if h.Status != tt.wantBody {
				t.Errorf("status field = %q, want %q", h.Status, tt.wantBody)
			}
			if len(h.Components) != len(tt.wantComp) {
				t.Fatalf("components = %v, want %v", h.Components, tt.wantComp)
			}
			for name, want := range tt.wantComp {
				if got := h.Components[name]; got != want {
					t.Errorf("components[%s] = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	payload := []byte(`{"Kitchen":[{"id":1,"temperature":19.5,"heating":true,"frost":false}]}`)
	srv := testServer(t, Deps{Cycles: fakeCycles{
		report: poller.CycleReport{StartedAt: time.Now(), Payload: payload},
		ok:     true,
	}})

	rec := do(t, srv, http.MethodGet, "/api/v1/snapshot")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != string(payload) {
		t.Errorf("body = %s, want %s", got, payload)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestSnapshot_NotYetAvailable(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
	}{
		{"no engine", Deps{}},
		{"no cycle", Deps{Cycles: fakeCycles{}}},
		{"failed fetch", Deps{Cycles: fakeCycles{report: poller.CycleReport{ID: "x"}, ok: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, testServer(t, tt.deps), http.MethodGet, "/api/v1/snapshot")
			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", rec.Code)
			}
			var p Problem
			if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if p.Error != "not_found" {
				t.Errorf("error = %q, want not_found", p.Error)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	poller.NewMetrics(reg)
	srv := testServer(t, Deps{Gatherer: reg})

	rec := do(t, srv, http.MethodGet, "/metrics")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "neobridge_poll_devices") {
		t.Errorf("metrics body missing neobridge_poll_devices:\n%s", rec.Body.String())
	}
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	srv := testServer(t, Deps{})

	if rec := do(t, srv, http.MethodGet, "/api/v1/devices"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/v1/health"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST health status = %d, want 405", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	srv := testServer(t, Deps{})

	rec := do(t, srv, http.MethodGet, "/api/v1/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec = httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("X-Request-ID = %q, want abc123", got)
	}
}

type panicCycles struct{}

func (panicCycles) LastReport() (poller.CycleReport, bool) { panic("boom") }

func TestRecoveryMiddleware(t *testing.T) {
	srv := testServer(t, Deps{Cycles: panicCycles{}})

	rec := do(t, srv, http.MethodGet, "/api/v1/snapshot")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var p Problem
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Error != "internal_server_error" {
		t.Errorf("error = %q, want internal_server_error", p.Error)
	}
}

func TestStartClose(t *testing.T) {
	srv := testServer(t, Deps{
		Config: config.APIConfig{Enabled: true, Host: "127.0.0.1", Port: 0},
		Bus:    fakeBus{mqtt.StateConnected},
	})

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/api/v1/health", srv.Addr()))
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestClose_NotStarted(t *testing.T) {
	srv := testServer(t, Deps{})
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if srv.Addr() != "" {
		t.Errorf("Addr() = %q before Start, want empty", srv.Addr())
	}
}
