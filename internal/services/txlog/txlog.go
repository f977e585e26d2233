package txlog

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vadiminshakov/purse/internal/domain"
	"go.uber.org/zap"
)

// Store is the persistence port of the log. Write failures are logged and
// swallowed, same policy as the wallet store.
type Store interface {
	Save(txs []domain.Transaction) error
	Clear() error
}

// Log is the append-only history of completed ledger mutations. Entries
// are never edited or removed individually.
type Log struct {
	store Store
	l     *zap.Logger

	mu  sync.Mutex
	txs []domain.Transaction
}

// NewLog creates a log seeded with hydrated transactions, oldest first.
func NewLog(txs []domain.Transaction, store Store, l *zap.Logger) *Log {
	return &Log{store: store, l: l, txs: txs}
}

// Append assigns a fresh id and the current timestamp to the payload,
// appends it and persists the sequence. The finished transaction is
// returned for the caller.
func (t *Log) Append(p domain.TransactionPayload) domain.Transaction {
	tx := domain.Transaction{
		ID:         uuid.NewString(),
		FromToken:  p.FromToken,
		ToToken:    p.ToToken,
		FromAmount: p.FromAmount,
		ToAmount:   p.ToAmount,
		Date:       time.Now().UTC(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.txs = append(t.txs, tx)
	// persisted while still holding the lock so file writes land in
	// append order and a shorter sequence never overwrites a longer one
	if err := t.store.Save(t.txs); err != nil {
		t.l.Warn("failed to persist transactions", zap.Error(err))
	}

	return tx
}

// List returns the whole history in insertion order, oldest first.
func (t *Log) List() []domain.Transaction {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.Transaction, len(t.txs))
	copy(out, t.txs)
	return out
}

// Len returns the number of recorded transactions.
func (t *Log) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.txs)
}

// Clear empties the history and removes the persisted copy.
func (t *Log) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.txs = nil
	if err := t.store.Clear(); err != nil {
		t.l.Warn("failed to clear persisted transactions", zap.Error(err))
	}
}
