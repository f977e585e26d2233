package wallet

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/purse/internal/domain"
	"go.uber.org/zap"
)

// Store is the persistence port of the ledger. Write failures are logged
// and swallowed: in-memory state stays authoritative for the session.
type Store interface {
	Save(entries []domain.WalletEntry) error
	Clear() error
}

// Journal receives a record for every committed mutation. May be nil.
type Journal interface {
	Record(rec domain.MutationRecord) error
}

// Prices resolves a symbol to its current price.
type Prices interface {
	Price(symbol string) (decimal.Decimal, bool)
}

// Ledger is the authoritative balance-per-symbol map. Symbols are unique
// and stored lower-case; entries keep insertion order.
type Ledger struct {
	store   Store
	journal Journal
	l       *zap.Logger

	mu      sync.Mutex
	entries []domain.WalletEntry
	index   map[string]int
}

// NewLedger creates a ledger seeded with the given entries (usually the
// hydrated snapshot). Duplicate symbols in the seed collapse to the last one.
func NewLedger(entries []domain.WalletEntry, store Store, journal Journal, l *zap.Logger) *Ledger {
	ledger := &Ledger{
		store:   store,
		journal: journal,
		l:       l,
		index:   make(map[string]int),
	}

	for _, e := range entries {
		symbol := strings.ToLower(e.Symbol)
		if i, ok := ledger.index[symbol]; ok {
			ledger.entries[i].Balance = e.Balance
			continue
		}
		ledger.index[symbol] = len(ledger.entries)
		ledger.entries = append(ledger.entries, domain.WalletEntry{Symbol: symbol, Balance: e.Balance})
	}

	return ledger
}

// SetBalance upserts the balance for a symbol. Callers own the
// non-negativity precondition; the ledger does not reject values.
func (w *Ledger) SetBalance(symbol string, balance decimal.Decimal) {
	symbol = strings.ToLower(symbol)

	w.mu.Lock()
	if i, ok := w.index[symbol]; ok {
		w.entries[i].Balance = balance
	} else {
		w.index[symbol] = len(w.entries)
		w.entries = append(w.entries, domain.WalletEntry{Symbol: symbol, Balance: balance})
	}
	w.persistLocked()
	w.mu.Unlock()

	w.record(domain.MutationRecord{
		Kind:    domain.MutationSet,
		Symbol:  symbol,
		Balance: balance.String(),
	})
}

// Remove deletes the entry for a symbol. No-op when absent.
func (w *Ledger) Remove(symbol string) bool {
	symbol = strings.ToLower(symbol)

	w.mu.Lock()
	i, ok := w.index[symbol]
	if !ok {
		w.mu.Unlock()
		return false
	}

	w.entries = append(w.entries[:i], w.entries[i+1:]...)
	delete(w.index, symbol)
	for j := i; j < len(w.entries); j++ {
		w.index[w.entries[j].Symbol] = j
	}
	w.persistLocked()
	w.mu.Unlock()

	w.record(domain.MutationRecord{Kind: domain.MutationRemove, Symbol: symbol})

	return true
}

// Clear empties the ledger and removes its persisted copy.
func (w *Ledger) Clear() {
	w.mu.Lock()
	w.entries = nil
	w.index = make(map[string]int)
	if err := w.store.Clear(); err != nil {
		w.l.Warn("failed to clear persisted wallet", zap.Error(err))
	}
	w.mu.Unlock()

	w.record(domain.MutationRecord{Kind: domain.MutationClear})
}

// Replace swaps the whole entry set, used by import. Symbols are
// normalized; duplicates collapse to the last occurrence.
func (w *Ledger) Replace(entries []domain.WalletEntry) {
	w.mu.Lock()
	w.entries = nil
	w.index = make(map[string]int)
	for _, e := range entries {
		symbol := strings.ToLower(e.Symbol)
		if i, ok := w.index[symbol]; ok {
			w.entries[i].Balance = e.Balance
			continue
		}
		w.index[symbol] = len(w.entries)
		w.entries = append(w.entries, domain.WalletEntry{Symbol: symbol, Balance: e.Balance})
	}
	w.persistLocked()
	w.mu.Unlock()

	w.record(domain.MutationRecord{Kind: domain.MutationClear})
	for _, e := range w.Entries() {
		w.record(domain.MutationRecord{
			Kind:    domain.MutationSet,
			Symbol:  e.Symbol,
			Balance: e.Balance.String(),
		})
	}
}

// Balance returns the current balance for a symbol.
func (w *Ledger) Balance(symbol string) (decimal.Decimal, bool) {
	symbol = strings.ToLower(symbol)

	w.mu.Lock()
	defer w.mu.Unlock()

	i, ok := w.index[symbol]
	if !ok {
		return decimal.Decimal{}, false
	}
	return w.entries[i].Balance, true
}

// Entries returns a copy of the ledger in insertion order.
func (w *Ledger) Entries() []domain.WalletEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]domain.WalletEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// View joins each entry with the current price, missing price counts as
// zero. Rows are sorted by value descending.
func (w *Ledger) View(prices Prices) []domain.AssetView {
	entries := w.Entries()

	views := make([]domain.AssetView, 0, len(entries))
	for _, e := range entries {
		view := domain.AssetView{
			Symbol:  e.Symbol,
			Name:    strings.ToUpper(e.Symbol),
			Balance: e.Balance,
			Price:   decimal.Zero,
			Value:   decimal.Zero,
		}
		if price, ok := prices.Price(e.Symbol); ok {
			view.Price = price
			view.Value = e.Balance.Mul(price)
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Value.GreaterThan(views[j].Value)
	})

	return views
}

// TotalValue sums the values of all entries at current prices.
func (w *Ledger) TotalValue(prices Prices) decimal.Decimal {
	total := decimal.Zero
	for _, v := range w.View(prices) {
		total = total.Add(v.Value)
	}
	return total
}

// persistLocked mirrors the in-memory entries to the store. Must be called
// with the mutex held. A failed write does not roll anything back.
func (w *Ledger) persistLocked() {
	entries := make([]domain.WalletEntry, len(w.entries))
	copy(entries, w.entries)

	if err := w.store.Save(entries); err != nil {
		w.l.Warn("failed to persist wallet", zap.Error(err))
	}
}

func (w *Ledger) record(rec domain.MutationRecord) {
	if w.journal == nil {
		return
	}

	rec.Timestamp = time.Now().UTC()
	if err := w.journal.Record(rec); err != nil {
		w.l.Warn("failed to journal wallet mutation", zap.Error(err))
	}
}
