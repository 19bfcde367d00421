// Package watch streams registry events to the audit broker. It backfills
// from the contract's deployment block, then follows the live subscription.
package watch

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/publisher"
)

// EventSource is the registry surface watch mode consumes.
type EventSource interface {
	// Events fetches decoded registry events from the given block onward.
	Events(ctx context.Context, fromBlock uint64) ([]model.AuditRecord, error)

	// WatchEvents subscribes to live registry events.
	WatchEvents(ctx context.Context) (<-chan model.AuditRecord, ethereum.Subscription, error)
}

type Watcher struct {
	source     EventSource
	publisher  publisher.Publisher
	startBlock uint64
	logger     *zap.Logger
	cancelFunc context.CancelFunc
}

func NewWatcher(
	source EventSource,
	publisher publisher.Publisher,
	startBlock uint64,
	logger *zap.Logger,
) *Watcher {
	return &Watcher{
		source:     source,
		publisher:  publisher,
		startBlock: startBlock,
		logger:     logger,
	}
}

// Start subscribes to live events before backfilling history, so no event
// emitted during the backfill window is missed. Kafka keys records by lot
// id, so the occasional overlap duplicate stays ordered with its lot.
func (w *Watcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	records, sub, err := w.source.WatchEvents(ctx)
	if err != nil {
		return err
	}

	w.logger.Info("Watching registry events",
		zap.Uint64("start_block", w.startBlock))

	backfill, err := w.source.Events(ctx, w.startBlock)
	if err != nil {
		sub.Unsubscribe()
		return fmt.Errorf("failed to backfill registry events: %w", err)
	}

	if len(backfill) > 0 {
		batch := make([]*model.AuditRecord, len(backfill))
		for i := range backfill {
			batch[i] = &backfill[i]
		}
		if err := w.publisher.PublishRecords(ctx, batch); err != nil {
			sub.Unsubscribe()
			return fmt.Errorf("failed to publish backfill batch: %w", err)
		}
		w.logger.Info("Backfill published", zap.Int("count", len(batch)))
	}

	go w.run(ctx, records, sub)

	return nil
}

func (w *Watcher) Stop() {
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
}

func (w *Watcher) run(
	ctx context.Context,
	records <-chan model.AuditRecord,
	sub ethereum.Subscription,
) {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping registry event watch")
			return

		case err := <-sub.Err():
			if err != nil {
				w.logger.Error("Registry event subscription failed", zap.Error(err))
			}
			return

		case record, ok := <-records:
			if !ok {
				w.logger.Warn("Registry event channel closed")
				return
			}

			w.logger.Debug("Registry event received",
				zap.String("kind", record.Kind),
				zap.String("lot_id", record.LotID),
				zap.Uint64("block", record.BlockNumber))

			if err := w.publisher.PublishRecord(ctx, &record); err != nil {
				w.logger.Error("Failed to publish audit record",
					zap.String("lot_id", record.LotID),
					zap.String("tx", record.TxHash),
					zap.Error(err))
			}
		}
	}
}
