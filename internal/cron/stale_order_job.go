package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
)

const (
	defaultStaleTTL   = 20 * time.Minute
	defaultSweepBatch = 100
)

type pendingOrderReader interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type pendingOrderExpirer interface {
	ExpirePending(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type StaleOrderJobParams struct {
	Logger  *logger.Logger
	Orders  pendingOrderReader
	Expirer pendingOrderExpirer
	TTL     time.Duration
	Batch   int
}

// NewStaleOrderJob cancels orders nobody accepted within TTL and voids their holds.
func NewStaleOrderJob(params StaleOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultStaleTTL
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &staleOrderJob{
		logg:    params.Logger,
		orders:  params.Orders,
		expirer: params.Expirer,
		ttl:     ttl,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type staleOrderJob struct {
	logg    *logger.Logger
	orders  pendingOrderReader
	expirer pendingOrderExpirer
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

func (j *staleOrderJob) Name() string { return "stale-order-reaper" }

// Run keeps going past per-order failures and reports them together.
func (j *staleOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	rows, err := j.orders.ListPendingBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list stale orders: %w", err)
	}

	var (
		expired int
		errs    error
	)
	for _, row := range rows {
		orderCtx := j.logg.WithOrderID(ctx, row.ID.String())
		ok, err := j.expirer.ExpirePending(orderCtx, row.ID)
		if err != nil {
			j.logg.Warn(j.logg.WithField(orderCtx, "error", err.Error()), "stale order not canceled")
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", row.ID, err))
			continue
		}
		if ok {
			expired++
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"scanned":  len(rows),
		"canceled": expired,
		"failed":   len(multierr.Errors(errs)),
	}), "stale order sweep complete")
	return errs
}
