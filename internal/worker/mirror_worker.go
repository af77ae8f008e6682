package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// Consumer feeds events to a handler until its context is done.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// MirrorWorker keeps the spreadsheet mirror in step with the transaction store
type MirrorWorker struct {
	store  core.TransactionReader
	mirror sheets.Mirror
	logger *log.Logger
}

func NewMirrorWorker(store core.TransactionReader, mirror sheets.Mirror, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		store:  store,
		mirror: mirror,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentWorker),
	}
}

// Run consumes events until ctx is cancelled. With resync set, every stored
// transaction is mirrored first to recover events missed while down.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer, resync bool) error {
	if resync {
		if err := w.Resync(ctx); err != nil {
			w.logger.WarnContext(ctx, "Startup resync failed, continuing with events", log.FieldError, err)
		}
	}
	err := consumer.Consume(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent applies one event. Errors wrapping amqp.ErrDiscard are final;
// anything else is worth a redelivery.
func (w *MirrorWorker) HandleEvent(ctx context.Context, evt *amqp.TransactionEvent) error {
	w.logger.DebugContext(ctx, "Processing transaction event",
		log.FieldEventID, evt.EventID.String(),
		log.FieldEventType, string(evt.Type),
		log.FieldTransactionID, evt.TransactionID)

	switch evt.Type {
	case amqp.EventTransactionCreated:
		return w.mirrorCreated(ctx, evt.TransactionID)
	case amqp.EventTransactionDeleted:
		if err := w.mirror.RemoveTransaction(ctx, evt.TransactionID); err != nil {
			return fmt.Errorf("remove transaction %d from sheets: %w", evt.TransactionID, err)
		}
		w.logger.InfoContext(ctx, "Transaction removed from mirror", log.FieldTransactionID, evt.TransactionID)
		return nil
	}
	return fmt.Errorf("%w: unknown event type %q", amqp.ErrDiscard, evt.Type)
}

func (w *MirrorWorker) mirrorCreated(ctx context.Context, id int64) error {
	tx, err := w.store.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before it was mirrored
		w.logger.InfoContext(ctx, "Transaction no longer stored, skipping", log.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		if !core.IsRetryable(err) {
			err = errors.Join(amqp.ErrDiscard, err)
		}
		return fmt.Errorf("get transaction %d: %w", id, err)
	}

	ref, err := w.mirror.AppendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("append transaction %d to sheets: %w", id, err)
	}
	w.logger.InfoContext(ctx, "Transaction mirrored",
		log.FieldTransactionID, id,
		log.FieldSheetsRef, ref,
		log.FieldCategory, tx.Category,
		log.FieldAmount, core.FormatAmount(tx.Signed()))
	return nil
}

// Resync appends every stored transaction; rows already mirrored are kept.
func (w *MirrorWorker) Resync(ctx context.Context) error {
	txs, err := w.store.ListTransactions(ctx, core.Filter{})
	if err != nil {
		return fmt.Errorf("list transactions for resync: %w", err)
	}
	if len(txs) == 0 {
		w.logger.InfoContext(ctx, "No transactions to resync")
		return nil
	}

	synced, failed := 0, 0
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.mirror.AppendTransaction(ctx, tx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror transaction during resync",
				log.FieldTransactionID, tx.ID,
				log.FieldError, err)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Startup resync completed",
		"total", len(txs),
		"synced", synced,
		"errors", failed)
	if failed > 0 {
		return fmt.Errorf("resync: %d of %d transactions failed", failed, len(txs))
	}
	return nil
}
