package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartsafe/safewatch/internal/acquisition"
	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/db"
	"github.com/smartsafe/safewatch/internal/gate"
	"github.com/smartsafe/safewatch/internal/ledger"
	"github.com/smartsafe/safewatch/internal/metrics"
	"github.com/smartsafe/safewatch/internal/model"
	"github.com/smartsafe/safewatch/internal/notify"
	"github.com/smartsafe/safewatch/internal/relay"
)

type fixedState struct{ st acquisition.State }

func (f fixedState) State() acquisition.State { return f.st }

type fakeStore struct {
	rows  []model.SensorRow
	err   error
	limit int
}

func (f *fakeStore) LatestSensorRow(context.Context, string) (*model.SensorRow, error) {
	return nil, nil
}

func (f *fakeStore) LatestValueRow(context.Context, string, db.Filter) (*model.ValueRow, error) {
	return nil, nil
}

func (f *fakeStore) RecentSensorRows(_ context.Context, _ string, limit int) ([]model.SensorRow, error) {
	f.limit = limit
	return f.rows, f.err
}

func (f *fakeStore) Close() error { return nil }

type captureDispatcher struct {
	mu  sync.Mutex
	got []notify.Attempt
}

func (c *captureDispatcher) Dispatch(a notify.Attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, a)
}

type fixture struct {
	srv      *Server
	gate     *gate.Gate
	ledger   *ledger.Ledger
	store    *fakeStore
	dispatch *captureDispatcher
}

func newFixture(t *testing.T, actuatorURL string) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	led := ledger.New()
	led.Record(model.WarningEntry{DisplayTimestamp: "3/4/2026, 3:04:05 PM", Message: "Critical Alert: Hit detected!"})
	led.Record(model.WarningEntry{DisplayTimestamp: "3/4/2026, 3:04:10 PM", Message: "Critical Alert: Safe is being moved!"})

	d := &captureDispatcher{}
	g := gate.New("pw", d, m)
	r := relay.New(config.ActuatorConfig{URL: actuatorURL, Secret: "s", Timeout: time.Second}, relay.WithMetrics(m))
	store := &fakeStore{rows: []model.SensorRow{{ID: 1, Temperature: sql.NullFloat64{Float64: 21.5, Valid: true}}}}

	st := acquisition.State{Verdict: model.SafetyVerdict{Safe: true}, Cycle: 4}
	srv := New(":0", Deps{
		Loop:         fixedState{st},
		Ledger:       led,
		Store:        store,
		PrimaryTable: "sensor_data",
		Gate:         g,
		Relay:        r,
		Dispatcher:   d,
		Gatherer:     reg,
	})
	return &fixture{srv: srv, gate: g, ledger: led, store: store, dispatch: d}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, "")
	if rec := f.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	_ = f.gate.Submit("nope")
	rec := f.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "safewatch_gate_attempts_total") {
		t.Fatalf("metrics endpoint missing gate counter: %d %s", rec.Code, rec.Body.String())
	}
}

func TestState(t *testing.T) {
	f := newFixture(t, "")
	body := decode(t, f.do(t, http.MethodGet, "/api/state", ""))
	if body["ready"] != true || body["lockState"] != "locked" || body["authenticated"] != false {
		t.Fatalf("unexpected state %v", body)
	}
	if v, ok := body["verdict"].(map[string]any); !ok || v["safe"] != true {
		t.Fatalf("unexpected verdict %v", body["verdict"])
	}
}

func TestWarnings(t *testing.T) {
	f := newFixture(t, "")
	body := decode(t, f.do(t, http.MethodGet, "/api/warnings?limit=1", ""))
	list := body["warnings"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 warning, got %v", list)
	}
	if first := list[0].(map[string]any); !strings.Contains(first["message"].(string), "moved") {
		t.Fatalf("expected newest first, got %v", first)
	}
	if rec := f.do(t, http.MethodGet, "/api/warnings?limit=x", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestReadings(t *testing.T) {
	f := newFixture(t, "")
	body := decode(t, f.do(t, http.MethodGet, "/api/readings", ""))
	if f.store.limit != 10 || body["count"].(float64) != 1 {
		t.Fatalf("expected default limit 10, got %d (%v)", f.store.limit, body)
	}
	f.store.err = &db.QueryError{Source: "sensor_data", Err: errors.New("locked")}
	if rec := f.do(t, http.MethodGet, "/api/readings?limit=3", ""); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on store error, got %d", rec.Code)
	}
}

func TestLockRequiresAuth(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1")
	if rec := f.do(t, http.MethodPost, "/api/lock", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before auth, got %d", rec.Code)
	}

	if rec := f.do(t, http.MethodPost, "/api/auth", `{"password":"bad"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/auth", `{"password":"pw"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for right password, got %d", rec.Code)
	}
	if len(f.dispatch.got) != 2 {
		t.Fatalf("each attempt should be dispatched, got %d", len(f.dispatch.got))
	}

	f.do(t, http.MethodPost, "/api/logout", "")
	if rec := f.do(t, http.MethodPost, "/api/unlock", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 after logout, got %d", rec.Code)
	}
}

func TestLockRoundTrip(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	actuator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer actuator.Close()

	f := newFixture(t, actuator.URL)
	if err := f.gate.Submit("pw"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/api/unlock", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["state"] != "unlocked" {
		t.Fatalf("unexpected confirmation %v", body)
	}

	status.Store(http.StatusInternalServerError)
	if rec := f.do(t, http.MethodPost, "/api/lock", ""); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on actuator failure, got %d", rec.Code)
	}
	if body := decode(t, f.do(t, http.MethodGet, "/api/state", "")); body["lockState"] != "unlocked" {
		t.Fatalf("failed lock must leave state unlocked, got %v", body["lockState"])
	}
}

func TestLockMissingActuatorConfig(t *testing.T) {
	f := newFixture(t, "")
	_ = f.gate.Submit("pw")
	if rec := f.do(t, http.MethodPost, "/api/lock", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for missing actuator config, got %d", rec.Code)
	}
}

func TestNotifyAlwaysOK(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodPost, "/api/notify-password-attempt", `{"success":false,"passwordAttempt":"1234"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(f.dispatch.got) != 1 || f.dispatch.got[0].PasswordAttempt != "1234" {
		t.Fatalf("attempt not dispatched: %+v", f.dispatch.got)
	}
	if rec := f.do(t, http.MethodPost, "/api/notify-password-attempt", `{not json`); rec.Code != http.StatusOK {
		t.Fatalf("malformed request must still answer 200, got %d", rec.Code)
	}
}
