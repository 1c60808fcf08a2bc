package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/localdrop-backend/pkg/logger"
)

type authorizationReleaser interface {
	ReleaseStaleAuthorizations(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type AuthorizationSweepJobParams struct {
	Logger   *logger.Logger
	Releaser authorizationReleaser
	TTL      time.Duration
	Batch    int
}

// NewAuthorizationSweepJob voids holds that were never confirmed into an order.
func NewAuthorizationSweepJob(params AuthorizationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Releaser == nil {
		return nil, fmt.Errorf("authorization releaser required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultStaleTTL
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &authorizationSweepJob{
		logg:     params.Logger,
		releaser: params.Releaser,
		ttl:      ttl,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type authorizationSweepJob struct {
	logg     *logger.Logger
	releaser authorizationReleaser
	ttl      time.Duration
	batch    int
	now      func() time.Time
}

func (j *authorizationSweepJob) Name() string { return "authorization-sweep" }

func (j *authorizationSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	released, err := j.releaser.ReleaseStaleAuthorizations(ctx, cutoff, j.batch)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"released": released,
	}), "authorization sweep complete")
	if err != nil {
		return fmt.Errorf("release stale authorizations: %w", err)
	}
	return nil
}
