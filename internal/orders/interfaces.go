package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox"
	"github.com/angelmondragon/localdrop-backend/pkg/pagination"
	pkgstripe "github.com/angelmondragon/localdrop-backend/pkg/stripe"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByAuthorizationID(ctx context.Context, authorizationID string) (*models.Order, error)
	FindByAuthorizationIDForUpdate(ctx context.Context, authorizationID string) (*models.Order, error)
	SaveState(ctx context.Context, order *models.Order) error
	SaveTransfers(ctx context.Context, orderID uuid.UUID, vendorTransferID, courierTransferID *string) error
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error)
	ListClaimable(ctx context.Context, limit int) ([]models.Order, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type profileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// PaymentGateway is the provider surface order workflows drive.
type PaymentGateway interface {
	GetAuthorization(ctx context.Context, id string) (*pkgstripe.Authorization, error)
	CancelAuthorization(ctx context.Context, id string) error
	CaptureAuthorization(ctx context.Context, id string) error
}
