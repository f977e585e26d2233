package txstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/purse/internal/domain"
	"go.uber.org/zap"
)

const txFileName = "transactions.json"

// Store mirrors the transaction log to a JSON array file. No versioned
// schema here, the shape never changed.
type Store struct {
	path string
	l    *zap.Logger
}

// New creates a transaction store under dir.
func New(dir string, l *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create transaction store dir")
	}

	return &Store{path: filepath.Join(dir, txFileName), l: l}, nil
}

// Load reads the history from disk. Missing file means an empty history;
// corrupt JSON falls back to empty as well.
func (s *Store) Load() ([]domain.Transaction, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read transactions file")
	}

	var txs []domain.Transaction
	if err := json.Unmarshal(payload, &txs); err != nil {
		s.l.Warn("transactions file is corrupt, starting with an empty history", zap.Error(err))
		return nil, nil
	}

	return txs, nil
}

// Save writes the whole sequence.
func (s *Store) Save(txs []domain.Transaction) error {
	payload, err := json.MarshalIndent(txs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode transactions")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write transactions temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist transactions")
	}

	return nil
}

// Clear removes the persisted history.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove transactions file")
	}
	return nil
}
