package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"invoice-financer/internal/infrastructure/metrics"
	"invoice-financer/internal/testutil/uowmock"
	"invoice-financer/internal/usecase/ledger"
	ucLoan "invoice-financer/internal/usecase/loan"
)

func TestHealth_ReturnsOKWithRFC3339NanoUTC(t *testing.T) {
	e := echo.New()
	h := NewHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	start := time.Now().UTC()

	if err := h.Health(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	// Status code
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	// Content-Type
	ct := rec.Header().Get(echo.HeaderContentType)
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		t.Fatalf("expected Content-Type application/json, got %q", ct)
	}

	// Body JSON
	var body struct {
		Status string `json:"status"`
		Time   string `json:"time"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v; raw=%s", err, rec.Body.String())
	}

	if body.Status != "ok" {
		t.Fatalf(`expected status "ok", got %q`, body.Status)
	}

	// Time is RFC3339Nano and UTC (with 'Z')
	parsed, err := time.Parse(time.RFC3339Nano, body.Time)
	if err != nil {
		t.Fatalf("time not RFC3339Nano: %v (value=%q)", err, body.Time)
	}
	if parsed.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", parsed.Location())
	}
	// within a few seconds of now
	now := time.Now().UTC()
	if parsed.Before(start.Add(-2*time.Second)) || parsed.After(now.Add(2*time.Second)) {
		t.Fatalf("time not within expected window: parsed=%v start=%v now=%v", parsed, start, now)
	}
}

func TestRegister_HealthAndMetrics(t *testing.T) {
	metrics.Flow().ObserveStep("deposit", "CONNECTING")
	e := newServer(newMemStore())

	wantStatus(t, serve(t, e, http.MethodGet, "/health", nil), http.StatusOK)

	rec := serve(t, e, http.MethodGet, "/metrics", nil)
	wantStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "financer_flow_step_total") {
		t.Fatalf("flow metrics not exposed")
	}
}

func TestRegister_MutatingMiddlewareOnlyOnWrites(t *testing.T) {
	s := newMemStore()
	r := s.repos()
	var hits []string
	mw := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hits = append(hits, c.Request().Method+" "+c.Path())
			return next(c)
		}
	}
	e := echo.New()
	e.Validator = NewValidator()
	Register(e, NewHandler(),
		NewVaultHandler(ledger.NewUsecase(r, uowmock.Passthrough(r), nil)),
		NewLoanHandler(ucLoan.NewUsecase(r)), mw)

	serve(t, e, http.MethodGet, "/vaults", nil)
	serve(t, e, http.MethodGet, "/loan-requests?status=LISTED", nil)
	if len(hits) != 0 {
		t.Fatalf("reads went through the write middleware: %v", hits)
	}

	serve(t, e, http.MethodPost, "/loan-requests", map[string]any{})
	serve(t, e, http.MethodPatch, "/vaults/"+vaultAddr+"/release", map[string]any{})
	want := []string{"POST /loan-requests", "PATCH /vaults/:address/release"}
	if strings.Join(hits, ",") != strings.Join(want, ",") {
		t.Fatalf("hits = %v, want %v", hits, want)
	}
}
