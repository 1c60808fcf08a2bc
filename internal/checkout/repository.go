package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
)

// AuthorizationRepository persists the local shadow of provider payment holds.
type AuthorizationRepository interface {
	WithTx(tx *gorm.DB) AuthorizationRepository
	Create(ctx context.Context, row *models.PaymentAuthorization) error
	FindByID(ctx context.Context, id string) (*models.PaymentAuthorization, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.PaymentAuthorization, error)
	UpdateStatus(ctx context.Context, id string, status enums.AuthorizationStatus, lastError *string) error
	MarkConfirmed(ctx context.Context, id string) error
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAuthorization, error)
}

type authorizationRepository struct {
	db *gorm.DB
}

func NewAuthorizationRepository(db *gorm.DB) AuthorizationRepository {
	if db == nil {
		return nil
	}
	return &authorizationRepository{db: db}
}

func (r *authorizationRepository) WithTx(tx *gorm.DB) AuthorizationRepository {
	if tx == nil {
		return r
	}
	return &authorizationRepository{db: tx}
}

func (r *authorizationRepository) Create(ctx context.Context, row *models.PaymentAuthorization) error {
	if row.Status == "" {
		row.Status = enums.AuthorizationOpen
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment authorization")
	}
	return nil
}

func (r *authorizationRepository) FindByID(ctx context.Context, id string) (*models.PaymentAuthorization, error) {
	var row models.PaymentAuthorization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment authorization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment authorization")
	}
	return &row, nil
}

func (r *authorizationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.PaymentAuthorization, error) {
	var rows []models.PaymentAuthorization
	err := r.db.WithContext(ctx).
		Where("checkout_session_id = ?", sessionID).
		Order("storefront_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment authorizations")
	}
	return rows, nil
}

// UpdateStatus never moves a confirmed row; a confirmed hold backs an order.
func (r *authorizationRepository) UpdateStatus(ctx context.Context, id string, status enums.AuthorizationStatus, lastError *string) error {
	if !status.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid authorization status %q", status)
	}
	err := r.db.WithContext(ctx).
		Model(&models.PaymentAuthorization{}).
		Where("id = ? AND status <> ?", id, enums.AuthorizationConfirmed).
		Updates(map[string]any{
			"status":     status,
			"last_error": lastError,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment authorization")
	}
	return nil
}

func (r *authorizationRepository) MarkConfirmed(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).
		Model(&models.PaymentAuthorization{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.AuthorizationConfirmed,
			"last_error": nil,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment authorization")
	}
	return nil
}

// ListStale returns open or orphaned holds created before cutoff that never became an order.
func (r *authorizationRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAuthorization, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.PaymentAuthorization
	err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.AuthorizationStatus{enums.AuthorizationOpen, enums.AuthorizationOrphaned}).
		Where("created_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM orders WHERE orders.payment_authorization_id = payment_authorizations.id)").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale payment authorizations")
	}
	return rows, nil
}
