package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage/memory"

	"github.com/shopspring/decimal"
)

type fakeMirror struct {
	rows      map[int64]core.Transaction
	appends   int
	appendErr error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: map[int64]core.Transaction{}}
}

func (m *fakeMirror) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if m.appendErr != nil {
		return "", m.appendErr
	}
	m.appends++
	m.rows[t.ID] = t
	return fmt.Sprintf("Transactions!A%d:G%d", t.ID+1, t.ID+1), nil
}

func (m *fakeMirror) RemoveTransaction(_ context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

type fakeConsumer struct {
	events []*amqp.TransactionEvent
	errs   []error
}

// Consume replays the queued events and stops like a cancelled consumer.
func (c *fakeConsumer) Consume(ctx context.Context, handler amqp.Handler) error {
	for _, evt := range c.events {
		c.errs = append(c.errs, handler(ctx, evt))
	}
	return context.Canceled
}

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	store, err := memory.NewWith(
		core.Transaction{Date: core.NewDate(2025, time.May, 1), Kind: core.Income, Category: "Salary", Amount: decimal.NewFromInt(4000), Currency: "NPR"},
		core.Transaction{Date: core.NewDate(2025, time.May, 5), Kind: core.Expense, Category: "Food", Amount: decimal.NewFromInt(200), Currency: "NPR"},
	)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestHandleCreatedAndDeleted(t *testing.T) {
	mirror := newFakeMirror()
	w := NewMirrorWorker(seeded(t), mirror, nil)
	ctx := context.Background()

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventTransactionCreated, 2)); err != nil {
		t.Fatalf("created: %v", err)
	}
	if got, ok := mirror.rows[2]; !ok || got.Category != "Food" {
		t.Fatalf("expected transaction 2 mirrored, got %+v", mirror.rows)
	}

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventTransactionDeleted, 2)); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if _, ok := mirror.rows[2]; ok {
		t.Fatal("transaction 2 should be removed from the mirror")
	}
}

func TestHandleCreatedForMissingRow(t *testing.T) {
	mirror := newFakeMirror()
	w := NewMirrorWorker(seeded(t), mirror, nil)

	if err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.EventTransactionCreated, 99)); err != nil {
		t.Fatalf("missing rows should be skipped, got %v", err)
	}
	if mirror.appends != 0 {
		t.Fatal("nothing should be appended for a missing row")
	}
}

func TestHandleEventErrors(t *testing.T) {
	mirror := newFakeMirror()
	mirror.appendErr = errors.New("quota exceeded")
	w := NewMirrorWorker(seeded(t), mirror, nil)
	ctx := context.Background()

	err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventTransactionCreated, 1))
	if err == nil || errors.Is(err, amqp.ErrDiscard) {
		t.Fatalf("sheets failures should be retried, got %v", err)
	}

	err = w.HandleEvent(ctx, &amqp.TransactionEvent{Type: "transaction.updated", TransactionID: 1})
	if !errors.Is(err, amqp.ErrDiscard) {
		t.Fatalf("unknown types should be discarded, got %v", err)
	}
}

func TestRunResyncsThenConsumes(t *testing.T) {
	mirror := newFakeMirror()
	w := NewMirrorWorker(seeded(t), mirror, nil)
	consumer := &fakeConsumer{events: []*amqp.TransactionEvent{
		amqp.NewTransactionEvent(amqp.EventTransactionDeleted, 1),
	}}

	if err := w.Run(context.Background(), consumer, true); err != nil {
		t.Fatalf("run: %v", err)
	}
	if mirror.appends != 2 {
		t.Fatalf("resync should append both stored rows, got %d", mirror.appends)
	}
	if _, ok := mirror.rows[1]; ok || len(mirror.rows) != 1 {
		t.Fatalf("delete event should leave only row 2, got %+v", mirror.rows)
	}
	if len(consumer.errs) != 1 || consumer.errs[0] != nil {
		t.Fatalf("unexpected handler results %v", consumer.errs)
	}
}

func TestResyncReportsFailures(t *testing.T) {
	mirror := newFakeMirror()
	mirror.appendErr = errors.New("sheets down")
	w := NewMirrorWorker(seeded(t), mirror, nil)

	if err := w.Resync(context.Background()); err == nil {
		t.Fatal("expected resync error")
	}
}
