package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/localdrop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/localdrop-backend/pkg/db/models"
	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	"github.com/angelmondragon/localdrop-backend/pkg/outbox"
)

func TestOutboxRetentionPrunesOnlyOldPublishedRows(t *testing.T) {
	client := dbtest.Client(t)
	repo := outbox.NewRepository(client.DB())
	now := time.Date(2026, 10, 13, 10, 0, 0, 0, time.UTC)

	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-2 * 24 * time.Hour)
	rows := []models.OutboxEvent{
		{AggregateID: "old-published", PublishedAt: &old},
		{AggregateID: "recent-published", PublishedAt: &recent},
		{AggregateID: "unpublished"},
	}
	for _, row := range rows {
		row.EventType = enums.EventOrderCreated
		row.AggregateType = enums.AggregateOrder
		row.Payload = json.RawMessage(`{}`)
		row.CreatedAt = old
		if err := client.DB().Create(&row).Error; err != nil {
			t.Fatalf("seed outbox row: %v", err)
		}
	}

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: testLogger(),
		DB:     client,
		Outbox: repo,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	job.(*outboxRetentionJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var remaining []models.OutboxEvent
	if err := client.DB().Order("aggregate_id ASC").Find(&remaining).Error; err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 rows left, got %d", len(remaining))
	}
	if remaining[0].AggregateID != "recent-published" || remaining[1].AggregateID != "unpublished" {
		t.Fatalf("unexpected survivors %s, %s", remaining[0].AggregateID, remaining[1].AggregateID)
	}
}

type failingPruner struct{}

func (failingPruner) DeletePublishedBefore(context.Context, *gorm.DB, time.Time) (int64, error) {
	return 0, errors.New("disk full")
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestOutboxRetentionSurfacesErrors(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: testLogger(),
		DB:     passthroughTx{},
		Outbox: failingPruner{},
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected prune error")
	}
}
