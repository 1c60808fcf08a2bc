package stripe

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/angelmondragon/localdrop-backend/pkg/config"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

// Secret key prefixes accepted per environment. Restricted keys are fine as
// long as they carry the PaymentIntent write scope.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

// Client wraps Stripe's API client with the settlement currency and webhook secret.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
	currency      string
}

type settings struct {
	env           string
	apiKey        string
	signingSecret string
	currency      string
}

// NewClient validates the configured key against the environment and builds
// the API client. Every configuration problem is reported at once.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	s, err := resolveSettings(cfg)
	if err != nil {
		return nil, fmt.Errorf("stripe config: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"stripe_env": s.env, "currency": s.currency}), "stripe client initialized")
	}
	return &Client{
		api:           stripe.NewClient(s.apiKey),
		environment:   s.env,
		signingSecret: s.signingSecret,
		currency:      s.currency,
	}, nil
}

func resolveSettings(cfg config.StripeConfig) (settings, error) {
	s := settings{
		env:           strings.ToLower(strings.TrimSpace(cfg.Environment())),
		apiKey:        strings.TrimSpace(cfg.APIKey),
		signingSecret: strings.TrimSpace(cfg.Secret),
		currency:      strings.ToLower(strings.TrimSpace(cfg.Currency)),
	}
	if s.env == "" {
		s.env = testEnv
	}
	if s.currency == "" {
		s.currency = string(stripe.CurrencyEUR)
	}

	var errs error
	prefixes, knownEnv := keyPrefixes[s.env]
	if !knownEnv {
		errs = multierr.Append(errs, fmt.Errorf("environment must be %q or %q, got %q", testEnv, liveEnv, s.env))
	}
	switch {
	case s.apiKey == "":
		errs = multierr.Append(errs, errors.New("api key is required"))
	case knownEnv && !slices.ContainsFunc(prefixes, func(p string) bool { return strings.HasPrefix(s.apiKey, p) }):
		errs = multierr.Append(errs, fmt.Errorf("%s environment requires a %s key", s.env, strings.Join(prefixes, " or ")))
	}
	if s.signingSecret == "" {
		errs = multierr.Append(errs, errors.New("webhook signing secret is required"))
	}
	if len(s.currency) != 3 {
		errs = multierr.Append(errs, fmt.Errorf("currency %q is not an ISO 4217 code", s.currency))
	}
	return s, errs
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook endpoint secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// Currency is the lowercase ISO code every authorization is opened in.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}
