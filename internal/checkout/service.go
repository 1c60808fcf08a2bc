package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/localdrop-backend/internal/catalog"
	"github.com/angelmondragon/localdrop-backend/pkg/config"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
	"github.com/angelmondragon/localdrop-backend/pkg/metrics"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox"
	pkgstripe "github.com/angelmondragon/localdrop-backend/pkg/stripe"
)

const defaultAuthorizationConcurrency = 4

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PaymentGateway is the provider surface the saga needs.
type PaymentGateway interface {
	CreateAuthorization(ctx context.Context, req pkgstripe.AuthorizationRequest) (*pkgstripe.Authorization, error)
	CancelAuthorization(ctx context.Context, id string) error
}

type ServiceParams struct {
	Logger         *logger.Logger
	DB             txRunner
	Catalog        catalog.Repository
	Profiles       profileReader
	Places         placeResolver
	Payments       PaymentGateway
	Authorizations AuthorizationRepository
	Outbox         outbox.Emitter
	Metrics        *metrics.PipelineMetrics
	Marketplace    config.MarketplaceConfig
	Currency       string
	Now            func() time.Time
}

// Service estimates carts and opens payment holds for them.
type Service struct {
	logg           *logger.Logger
	tx             txRunner
	partitioner    *Partitioner
	profiles       profileReader
	places         placeResolver
	payments       PaymentGateway
	authorizations AuthorizationRepository
	outbox         outbox.Emitter
	metrics        *metrics.PipelineMetrics
	marketplace    config.MarketplaceConfig
	currency       string
	concurrency    int
	now            func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Authorizations == nil {
		return nil, fmt.Errorf("authorization repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		return nil, fmt.Errorf("currency required")
	}
	concurrency := params.Marketplace.AuthorizationConcurrency
	if concurrency <= 0 {
		concurrency = defaultAuthorizationConcurrency
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		logg:           params.Logger,
		tx:             params.DB,
		partitioner:    NewPartitioner(params.Catalog),
		profiles:       params.Profiles,
		places:         params.Places,
		payments:       params.Payments,
		authorizations: params.Authorizations,
		outbox:         params.Outbox,
		metrics:        params.Metrics,
		marketplace:    params.Marketplace,
		currency:       currency,
		concurrency:    concurrency,
		now:            now,
	}, nil
}
