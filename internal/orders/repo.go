package orders

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/pagination"
)

const claimableScanLimit = 200

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create returns the raw driver error so callers can detect unique violations.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *repository) FindByAuthorizationID(ctx context.Context, authorizationID string) (*models.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("payment_authorization_id = ?", authorizationID))
}

func (r *repository) FindByAuthorizationIDForUpdate(ctx context.Context, authorizationID string) (*models.Order, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_authorization_id = ?", authorizationID))
}

func (r *repository) first(query *gorm.DB) (*models.Order, error) {
	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

// SaveState writes the mutable workflow columns. Everything else is frozen at creation.
func (r *repository) SaveState(ctx context.Context, order *models.Order) error {
	captureHistory, err := json.Marshal(order.CaptureHistory)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode capture history")
	}
	deliveryHistory, err := json.Marshal(order.DeliveryHistory)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode delivery history")
	}
	err = r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"capture_state":       order.CaptureState,
			"delivery_state":      order.DeliveryState,
			"capture_history":     string(captureHistory),
			"delivery_history":    string(deliveryHistory),
			"cancellation_reason": order.CancellationReason,
			"courier_id":          order.CourierID,
			"courier_payout_id":   order.CourierPayoutID,
			"updated_at":          time.Now().UTC(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order state")
	}
	return nil
}

func (r *repository) SaveTransfers(ctx context.Context, orderID uuid.UUID, vendorTransferID, courierTransferID *string) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if vendorTransferID != nil {
		updates["vendor_transfer_id"] = *vendorTransferID
	}
	if courierTransferID != nil {
		updates["courier_transfer_id"] = *courierTransferID
	}
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Updates(updates).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order transfers")
	}
	return nil
}

// List pages newest first with a keyset cursor on (created_at, id).
func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.StorefrontID != nil {
		query = query.Where("storefront_id = ?", *filter.StorefrontID)
	}
	if filter.CourierID != nil {
		query = query.Where("courier_id = ?", *filter.CourierID)
	}
	if filter.DeliveryState != nil {
		query = query.Where("delivery_state = ?", *filter.DeliveryState)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

// ListClaimable returns orders a courier may pick up, oldest first.
func (r *repository) ListClaimable(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > claimableScanLimit {
		limit = claimableScanLimit
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("courier_id IS NULL").
		Where("delivery_state IN ?", []enums.DeliveryState{enums.DeliveryAccepted, enums.DeliveryPreparing}).
		Where("capture_state = ?", enums.CaptureAuthorized).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list claimable orders")
	}
	return rows, nil
}

func (r *repository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("delivery_state = ?", enums.DeliveryPending).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}
	return rows, nil
}
