package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/internal/infrastructure/journal"
	"github.com/mandrin-rain/broker-bridge/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the journal is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// JournalProcessor replays journaled writes into Postgres once it is
// reachable again.
type JournalProcessor struct {
	store   *journal.Store
	monitor ConnectionHealth
	orders  repository.OrderRepository
	subs    repository.SubscriptionRepository
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
}

func NewJournalProcessor(
	store *journal.Store,
	monitor ConnectionHealth,
	orders repository.OrderRepository,
	subs repository.SubscriptionRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *JournalProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	jp := &JournalProcessor{
		store:   store,
		monitor: monitor,
		orders:  orders,
		subs:    subs,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = jp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := jp.Drain(ctx); err != nil {
			jp.logger.Error("journal drain failed", zap.Error(err))
		}
	})

	return jp
}

// Start launches the cron scheduler.
func (jp *JournalProcessor) Start() {
	if jp == nil || jp.cron == nil {
		return
	}
	jp.cron.Start()
	jp.logger.Info("journal processor started")
}

// Stop gracefully stops the scheduler.
func (jp *JournalProcessor) Stop(ctx context.Context) {
	if jp == nil || jp.cron == nil {
		return
	}
	stopCtx := jp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	jp.logger.Info("journal processor stopped")
}

// Drain replays journaled items synchronously.
func (jp *JournalProcessor) Drain(ctx context.Context) error {
	if jp == nil || jp.store == nil {
		return nil
	}
	if jp.monitor != nil && !jp.monitor.IsOnline() {
		jp.logger.Debug("skipping journal drain (offline)")
		return nil
	}

	items, err := jp.store.GetBatch(jp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := jp.processItem(ctx, item); err != nil {
			jp.logger.Error("failed to replay journal item",
				zap.String("item_id", item.ID),
				zap.String("entity", item.Entity),
				zap.Error(err))

			item.Retries++
			if item.Retries >= jp.cfg.MaxRetries {
				jp.logger.Warn("dropping journal item (max retries reached)", zap.String("item_id", item.ID))
				_ = jp.store.Remove(item)
				continue
			}

			if err := jp.store.Remove(item); err != nil {
				jp.logger.Warn("failed to remove journal item", zap.Error(err))
			}
			if err := jp.store.Requeue(item); err != nil {
				jp.logger.Error("failed to requeue journal item", zap.Error(err))
			}
			continue
		}

		if err := jp.store.Remove(item); err != nil {
			jp.logger.Warn("failed to purge replayed journal item", zap.Error(err))
		}
	}
	return nil
}

// Size returns the number of journaled items.
func (jp *JournalProcessor) Size() int {
	if jp == nil || jp.store == nil {
		return 0
	}
	size, err := jp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

// Enqueue persists an item for later replay.
func (jp *JournalProcessor) Enqueue(item journal.Item) error {
	if jp == nil || jp.store == nil {
		return fmt.Errorf("journal processor not configured")
	}
	return jp.store.Enqueue(item)
}

func (jp *JournalProcessor) processItem(ctx context.Context, item journal.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch item.Entity {
	case journal.EntityOrder:
		var order domain.TradeOrder
		if err := json.Unmarshal(item.Data, &order); err != nil {
			return err
		}
		_, err := jp.orders.Save(ctx, &order)
		return err

	case journal.EntitySubscription:
		var sub domain.Subscription
		if err := json.Unmarshal(item.Data, &sub); err != nil {
			return err
		}
		return jp.subs.Save(ctx, &sub)

	default:
		jp.logger.Warn("unknown journal entity, dropping", zap.String("entity", item.Entity))
		return nil
	}
}
