package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tickerchat-go/internal/config"
	"tickerchat-go/internal/runtime"
	"tickerchat-go/internal/scheduler"
	"tickerchat-go/internal/storage"
	"tickerchat-go/internal/symbols"
)

type nopSender struct{}

func (nopSender) Name() string { return "bot_a" }

func (nopSender) SendMessage(ctx context.Context, text string) {}

type nopMarket struct{}

func (nopMarket) TrendingSymbols(ctx context.Context) ([]string, error) { return nil, nil }
func (nopMarket) BoostedAddresses(ctx context.Context) ([]string, error) { return nil, nil }

type nopRenderer struct{}

func (nopRenderer) Render(subject string) (string, bool) { return "q", true }

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	backend := storage.NewFileBackend(t.TempDir())
	ctx := context.Background()
	if err := backend.Initialize(ctx); err != nil {
		t.Fatalf("initialize backend: %v", err)
	}

	store := symbols.New(backend, 10, 2)
	engine, err := scheduler.New(scheduler.Config{
		MinInterval:    5 * time.Minute,
		MaxInterval:    60 * time.Minute,
		RefillInterval: 30 * time.Minute,
	}, store, nopMarket{}, nopRenderer{}, []scheduler.Sender{nopSender{}})
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}

	tasks := runtime.NewTaskManager(ctx)
	t.Cleanup(func() {
		tasks.StopAll()
		tasks.Wait()
	})
	return New(cfg, backend, tasks, engine, store, nil)
}

func doRequest(t *testing.T, s *Server, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	cfg := config.Default()
	s := newTestServer(t, cfg)

	rec := doRequest(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStatusOpenWithoutKey(t *testing.T) {
	cfg := config.Default()
	s := newTestServer(t, cfg)

	rec := doRequest(t, s, http.MethodGet, "/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, key := range []string{"version", "identities", "scheduler", "symbols", "tasks"} {
		if _, ok := body[key]; !ok {
			t.Errorf("status body missing %q", key)
		}
	}
}

func TestStatusRequiresPlainKey(t *testing.T) {
	cfg := config.Default()
	cfg.ManagementKey = "secret"
	s := newTestServer(t, cfg)

	if rec := doRequest(t, s, http.MethodGet, "/status", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/status", map[string]string{"Authorization": "Bearer wrong"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/status", map[string]string{"Authorization": "Bearer secret"}); rec.Code != http.StatusOK {
		t.Fatalf("bearer status = %d, want 200", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/status", map[string]string{"x-api-key": "secret"}); rec.Code != http.StatusOK {
		t.Fatalf("x-api-key status = %d, want 200", rec.Code)
	}
}

func TestStatusWithBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("generate hash: %v", err)
	}
	cfg := config.Default()
	cfg.ManagementKeyHash = string(hash)
	s := newTestServer(t, cfg)

	if rec := doRequest(t, s, http.MethodGet, "/status", map[string]string{"Authorization": "Bearer wrong"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/status", map[string]string{"Authorization": "Bearer secret"}); rec.Code != http.StatusOK {
		t.Fatalf("correct key status = %d, want 200", rec.Code)
	}
}

func TestMetricsGuardedByKey(t *testing.T) {
	cfg := config.Default()
	cfg.ManagementKey = "secret"
	s := newTestServer(t, cfg)

	if rec := doRequest(t, s, http.MethodGet, "/metrics", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated metrics = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/metrics", map[string]string{"x-api-key": "secret"}); rec.Code != http.StatusOK {
		t.Fatalf("authenticated metrics = %d, want 200", rec.Code)
	}
	// Health stays open for load balancers regardless of the key.
	if rec := doRequest(t, s, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", rec.Code)
	}
}
