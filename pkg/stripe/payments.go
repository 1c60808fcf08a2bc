package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
)

// Provider-side statuses the pipeline reacts to.
const (
	StatusRequiresCapture = string(stripe.PaymentIntentStatusRequiresCapture)
	StatusSucceeded       = string(stripe.PaymentIntentStatusSucceeded)
	StatusCanceled        = string(stripe.PaymentIntentStatusCanceled)
)

// AuthorizationRequest opens a manual-capture hold.
type AuthorizationRequest struct {
	AmountCents    int64
	Currency       string
	TransferGroup  string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// Authorization is the provider view of a payment hold.
type Authorization struct {
	ID            string
	ClientSecret  string
	Status        string
	AmountCents   int64
	Currency      string
	TransferGroup string
	Metadata      map[string]string
}

// TransferRequest moves captured funds to a connected payout account.
type TransferRequest struct {
	AmountCents    int64
	Currency       string
	Destination    string
	TransferGroup  string
	IdempotencyKey string
}

// CreateAuthorization opens a PaymentIntent with capture_method=manual.
func (c *Client) CreateAuthorization(ctx context.Context, req AuthorizationRequest) (*Authorization, error) {
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization amount must be positive")
	}
	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		TransferGroup: stripe.String(req.TransferGroup),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := c.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, mapError(err, "create payment authorization")
	}
	return AuthorizationFromIntent(pi), nil
}

// GetAuthorization retrieves the authoritative state of a hold.
func (c *Client) GetAuthorization(ctx context.Context, id string) (*Authorization, error) {
	pi, err := c.api.V1PaymentIntents.Retrieve(ctx, id, &stripe.PaymentIntentRetrieveParams{})
	if err != nil {
		return nil, mapError(err, "retrieve payment authorization")
	}
	return AuthorizationFromIntent(pi), nil
}

// CancelAuthorization voids a hold. A hold that is already canceled is not an error.
func (c *Client) CancelAuthorization(ctx context.Context, id string) error {
	_, err := c.api.V1PaymentIntents.Cancel(ctx, id, &stripe.PaymentIntentCancelParams{})
	if err == nil {
		return nil
	}
	if isAlreadyCanceled(err) {
		return nil
	}
	if isUnexpectedState(err) {
		current, getErr := c.GetAuthorization(ctx, id)
		if getErr == nil && current.Status == StatusCanceled {
			return nil
		}
	}
	return mapError(err, "cancel payment authorization")
}

// CaptureAuthorization captures the full authorized amount.
func (c *Client) CaptureAuthorization(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.SetIdempotencyKey("capture_" + id)
	if _, err := c.api.V1PaymentIntents.Capture(ctx, id, params); err != nil {
		return mapError(err, "capture payment authorization")
	}
	return nil
}

// CreateTransfer pays out part of a captured charge and returns the transfer id.
func (c *Client) CreateTransfer(ctx context.Context, req TransferRequest) (string, error) {
	if req.AmountCents <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}
	if strings.TrimSpace(req.Destination) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transfer destination is required")
	}
	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}

	params := &stripe.TransferCreateParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(currency),
		Destination:   stripe.String(req.Destination),
		TransferGroup: stripe.String(req.TransferGroup),
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	tr, err := c.api.V1Transfers.Create(ctx, params)
	if err != nil {
		return "", mapError(err, "create transfer")
	}
	return tr.ID, nil
}

// AuthorizationFromIntent converts a PaymentIntent, including one decoded from a webhook.
func AuthorizationFromIntent(pi *stripe.PaymentIntent) *Authorization {
	if pi == nil {
		return nil
	}
	metadata := make(map[string]string, len(pi.Metadata))
	for k, v := range pi.Metadata {
		metadata[k] = v
	}
	return &Authorization{
		ID:            pi.ID,
		ClientSecret:  pi.ClientSecret,
		Status:        string(pi.Status),
		AmountCents:   pi.Amount,
		Currency:      string(pi.Currency),
		TransferGroup: pi.TransferGroup,
		Metadata:      metadata,
	}
}

func isAlreadyCanceled(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.PaymentIntent != nil && stripeErr.PaymentIntent.Status == stripe.PaymentIntentStatusCanceled
}

func isUnexpectedState(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState
}

// mapError classifies provider failures into API error codes.
func mapError(err error, action string) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
	}
	switch {
	case stripeErr.Code == stripe.ErrorCodeResourceMissing:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, action+": payment authorization not found")
	case stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState:
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, action+": unexpected payment state")
	case stripeErr.Type == stripe.ErrorTypeCard:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, action+": card declined").
			WithDetails(map[string]any{"decline_code": string(stripeErr.DeclineCode)})
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
	}
}
