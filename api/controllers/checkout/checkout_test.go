package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/localdrop-backend/internal/checkout"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/types"
)

type stubCheckout struct {
	clientID uuid.UUID
	request  checkoutsvc.EstimateRequest
	quote    *checkoutsvc.Quote
	result   *checkoutsvc.AuthorizeResult
	err      error
}

func (s *stubCheckout) Estimate(_ context.Context, clientID uuid.UUID, req checkoutsvc.EstimateRequest) (*checkoutsvc.Quote, error) {
	s.clientID = clientID
	s.request = req
	return s.quote, s.err
}

func (s *stubCheckout) Authorize(_ context.Context, clientID uuid.UUID, req checkoutsvc.EstimateRequest) (*checkoutsvc.AuthorizeResult, error) {
	s.clientID = clientID
	s.request = req
	return s.result, s.err
}

type stubConfirmer struct {
	authorizationID string
	order           *models.Order
	err             error
}

func (s *stubConfirmer) Confirm(_ context.Context, _ uuid.UUID, authorizationID string) (*models.Order, error) {
	s.authorizationID = authorizationID
	return s.order, s.err
}

func buyerRequest(body string, buyerID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return req.WithContext(middleware.WithPrincipal(req.Context(), buyerID.String(), string(enums.RoleBuyer), ""))
}

func TestEstimatePassesCartAndBuyer(t *testing.T) {
	buyerID := uuid.New()
	storefrontID := uuid.New()
	svc := &stubCheckout{quote: &checkoutsvc.Quote{
		Destination: checkoutsvc.Destination{Location: types.GeographyPoint{Lat: 48.85, Lng: 2.35}},
		Groups: []checkoutsvc.GroupEstimate{{
			Group:  checkoutsvc.StorefrontGroup{StorefrontID: storefrontID},
			Totals: checkoutsvc.Totals{ProductTotalCents: 1000, TotalPriceCents: 1450},
		}},
	}}

	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":2}],"delivery":{"lat":48.85,"lng":2.35,"address":"  1 rue de Rivoli  "}}`
	rec := httptest.NewRecorder()
	Estimate(svc, nil).ServeHTTP(rec, buyerRequest(body, buyerID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.clientID != buyerID {
		t.Fatalf("expected buyer id to be forwarded")
	}
	if svc.request.Delivery.Address != "1 rue de Rivoli" {
		t.Fatalf("address not sanitized: %q", svc.request.Delivery.Address)
	}

	var payload struct {
		Data estimateResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Data.Groups) != 1 || payload.Data.Groups[0].Totals.TotalPriceCents != 1450 {
		t.Fatalf("unexpected groups %+v", payload.Data.Groups)
	}
}

func TestEstimateRejectsEmptyCart(t *testing.T) {
	svc := &stubCheckout{}
	rec := httptest.NewRecorder()
	Estimate(svc, nil).ServeHTTP(rec, buyerRequest(`{"items":[]}`, uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthorizeReturnsCreated(t *testing.T) {
	svc := &stubCheckout{result: &checkoutsvc.AuthorizeResult{
		CheckoutSessionID: uuid.New(),
		Authorizations: []checkoutsvc.GroupAuthorization{{
			AuthorizationID: "pi_1",
			ClientSecret:    "pi_1_secret",
			TransferGroup:   "tg_1",
		}},
	}}
	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`
	rec := httptest.NewRecorder()
	Authorize(svc, nil).ServeHTTP(rec, buyerRequest(body, uuid.New()))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"client_secret":"pi_1_secret"`) {
		t.Fatalf("client secret missing: %s", rec.Body.String())
	}
}

func TestAuthorizeSurfacesUpstreamErrors(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeDependency, "provider down")}
	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`
	rec := httptest.NewRecorder()
	Authorize(svc, nil).ServeHTTP(rec, buyerRequest(body, uuid.New()))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestConfirmReturnsBuyerView(t *testing.T) {
	buyerID := uuid.New()
	svc := &stubConfirmer{order: &models.Order{ID: uuid.New(), ClientID: buyerID, VerificationCode: "482913"}}
	rec := httptest.NewRecorder()
	Confirm(svc, nil).ServeHTTP(rec, buyerRequest(`{"payment_authorization_id":" pi_123 "}`, buyerID))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.authorizationID != "pi_123" {
		t.Fatalf("authorization id = %q", svc.authorizationID)
	}
	if !strings.Contains(rec.Body.String(), `"verification_code":"482913"`) {
		t.Fatalf("buyer should see the verification code: %s", rec.Body.String())
	}
}

func TestConfirmMapsFraudToForbidden(t *testing.T) {
	svc := &stubConfirmer{err: pkgerrors.New(pkgerrors.CodeForbidden, "authorization belongs to another client")}
	rec := httptest.NewRecorder()
	Confirm(svc, nil).ServeHTTP(rec, buyerRequest(`{"payment_authorization_id":"pi_123"}`, uuid.New()))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestConfirmRequiresPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"payment_authorization_id":"pi_123"}`))
	rec := httptest.NewRecorder()
	Confirm(&stubConfirmer{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
