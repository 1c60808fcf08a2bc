package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/localdrop-backend/internal/orders"
	"github.com/angelmondragon/localdrop-backend/pkg/auth"
	"github.com/angelmondragon/localdrop-backend/pkg/config"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
	"github.com/angelmondragon/localdrop-backend/pkg/pagination"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubOrders struct {
	listCalls int
	lastActor orders.Actor
}

func (s *stubOrders) Get(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*orders.OrderView, error) {
	return &orders.OrderView{}, nil
}

func (s *stubOrders) List(ctx context.Context, actor orders.Actor, filter orders.ListFilter, params pagination.Params) (*orders.OrderList, error) {
	s.listCalls++
	s.lastActor = actor
	return &orders.OrderList{}, nil
}

func (s *stubOrders) VendorAct(ctx context.Context, actor orders.Actor, orderID uuid.UUID, action orders.VendorAction) (*orders.OrderView, error) {
	return &orders.OrderView{}, nil
}

func (s *stubOrders) CourierAct(ctx context.Context, actor orders.Actor, orderID uuid.UUID, action orders.CourierAction, code string) (*orders.OrderView, error) {
	return &orders.OrderView{}, nil
}

func (s *stubOrders) CourierJobs(ctx context.Context, actor orders.Actor, limit int) ([]orders.CourierJob, error) {
	return nil, nil
}

type stubWebhooks struct {
	calls int
}

func (s *stubWebhooks) HandleEvent(context.Context, *stripe.Event) error {
	s.calls++
	return nil
}

type stubSecret struct{}

func (stubSecret) SigningSecret() string { return "whsec_test" }

type stubGuard struct{}

func (stubGuard) Claim(context.Context, string) (bool, error) { return true, nil }
func (stubGuard) Release(context.Context, string) error      { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "localdrop", ExpirationMinutes: 60},
	}
}

func testRouter(p Params) http.Handler {
	if p.Config == nil {
		p.Config = testConfig()
	}
	p.Logger = logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(p)
}

func bearer(t *testing.T, cfg *config.Config, role enums.Role, storefrontID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		UserID:       uuid.New(),
		Role:         role,
		StorefrontID: storefrontID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthLive(t *testing.T) {
	rec := serve(testRouter(Params{}), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("X-LocalDrop-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	router := testRouter(Params{DB: stubPinger{err: errors.New("connection refused")}})
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}

	router = testRouter(Params{DB: stubPinger{}})
	rec = serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestMetricsMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ld_metric 1")
	})
	rec := serve(testRouter(Params{Metrics: metrics}), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ld_metric") {
		t.Fatalf("expected metrics output, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	router := testRouter(Params{Orders: &stubOrders{}})
	for _, target := range []string{"/api/ping", "/api/v1/orders"} {
		rec := serve(router, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", target, rec.Code)
		}
	}
}

func TestOrdersListUsesTokenRole(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrders{}
	router := testRouter(Params{Config: cfg, Orders: svc})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleCourier, nil))
	rec := serve(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.listCalls != 1 || svc.lastActor.Role != enums.RoleCourier {
		t.Fatalf("expected courier-scoped list, got %+v", svc.lastActor)
	}
}

func TestCheckoutIsBuyerOnly(t *testing.T) {
	cfg := testConfig()
	router := testRouter(Params{Config: cfg})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/estimate", strings.NewReader(`{"items":[]}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleCourier, nil))
	rec := serve(router, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestVendorRoutesNeedStorefront(t *testing.T) {
	cfg := testConfig()
	router := testRouter(Params{Config: cfg, Orders: &stubOrders{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/orders/"+uuid.NewString()+"/accept", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleVendor, nil))
	rec := serve(router, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestStripeWebhookIsPublic(t *testing.T) {
	webhooks := &stubWebhooks{}
	router := testRouter(Params{Webhooks: webhooks, StripeClient: stubSecret{}, WebhookGuard: stubGuard{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`))
	rec := serve(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack got %d", rec.Code)
	}
	if webhooks.calls != 0 {
		t.Fatalf("unsigned delivery must not be processed")
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := serve(testRouter(Params{}), req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
}
