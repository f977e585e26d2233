package walletstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/purse/internal/domain"
	"go.uber.org/zap"
)

const walletFileName = "wallet.json"

// ErrImportRejected means the import payload failed shape validation.
var ErrImportRejected = errors.New("wallet import rejected: payload is not an array of {symbol, balance}")

// legacyVersion tags the pre-envelope on-disk shape, a bare entry array.
const legacyVersion = 0

// migrations[v] upgrades a snapshot from version v to v+1. Applied
// repeatedly on load until the snapshot reaches the current version.
var migrations = map[int]func(domain.WalletSnapshot) domain.WalletSnapshot{
	legacyVersion: func(s domain.WalletSnapshot) domain.WalletSnapshot {
		s.Version = 1
		return s
	},
}

// Store mirrors the wallet ledger to a versioned JSON file.
type Store struct {
	path string
	l    *zap.Logger
	now  func() time.Time
}

// New creates a wallet store under dir, creating the directory if needed.
func New(dir string, l *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create wallet store dir")
	}

	return &Store{
		path: filepath.Join(dir, walletFileName),
		l:    l,
		now:  time.Now,
	}, nil
}

// DefaultEntries is the wallet installed on first run.
func DefaultEntries() []domain.WalletEntry {
	return []domain.WalletEntry{
		{Symbol: "btc", Balance: decimal.NewFromFloat(0.05)},
		{Symbol: "eth", Balance: decimal.NewFromFloat(1.5)},
		{Symbol: "usdt", Balance: decimal.NewFromInt(500)},
	}
}

// Load hydrates the snapshot from disk. A missing file installs and
// persists the default wallet; a legacy-shaped file is migrated and
// rewritten in the current shape; corrupt JSON falls back to an empty
// wallet without failing startup.
func (s *Store) Load() (domain.WalletSnapshot, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			snap := domain.WalletSnapshot{
				Version:     domain.CurrentSnapshotVersion,
				LastUpdated: s.now().UTC(),
				Tokens:      DefaultEntries(),
			}
			if werr := s.write(snap); werr != nil {
				s.l.Warn("failed to persist default wallet", zap.Error(werr))
			}
			return snap, nil
		}

		return domain.WalletSnapshot{}, errors.Wrap(err, "read wallet file")
	}

	snap, err := decodeSnapshot(payload)
	if err != nil {
		s.l.Warn("wallet file is corrupt, starting with an empty wallet", zap.Error(err))
		return domain.WalletSnapshot{Version: domain.CurrentSnapshotVersion}, nil
	}

	migrated := false
	for snap.Version < domain.CurrentSnapshotVersion {
		step, ok := migrations[snap.Version]
		if !ok {
			return domain.WalletSnapshot{}, fmt.Errorf("no migration path from wallet schema version %d", snap.Version)
		}
		snap = step(snap)
		migrated = true
	}

	if migrated {
		snap.LastUpdated = s.now().UTC()
		if werr := s.write(snap); werr != nil {
			s.l.Warn("failed to rewrite migrated wallet", zap.Error(werr))
		}
		s.l.Info("wallet schema migrated", zap.Int("version", snap.Version))
	}

	return snap, nil
}

// decodeSnapshot detects the on-disk shape: a bare array is the legacy
// schema, an object is the versioned envelope.
func decodeSnapshot(payload []byte) (domain.WalletSnapshot, error) {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	if len(trimmed) == 0 {
		return domain.WalletSnapshot{}, errors.New("wallet file is empty")
	}

	if trimmed[0] == '[' {
		var entries []domain.WalletEntry
		if err := json.Unmarshal(payload, &entries); err != nil {
			return domain.WalletSnapshot{}, errors.Wrap(err, "decode legacy wallet")
		}
		return domain.WalletSnapshot{Version: legacyVersion, Tokens: entries}, nil
	}

	var snap domain.WalletSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domain.WalletSnapshot{}, errors.Wrap(err, "decode wallet snapshot")
	}

	return snap, nil
}

// Save writes the entries wrapped in the current envelope. Writing the
// same snapshot twice is harmless.
func (s *Store) Save(entries []domain.WalletEntry) error {
	return s.write(domain.WalletSnapshot{
		Version:     domain.CurrentSnapshotVersion,
		LastUpdated: s.now().UTC(),
		Tokens:      entries,
	})
}

// Clear removes the wallet file. Missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove wallet file")
	}
	return nil
}

func (s *Store) write(snap domain.WalletSnapshot) error {
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode wallet snapshot")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write wallet temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist wallet snapshot")
	}

	return nil
}

// Export serializes entries as a bare array, without the version
// envelope. This is the backup format consumed back by ParseImport.
func Export(entries []domain.WalletEntry) ([]byte, error) {
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "export wallet")
	}
	return payload, nil
}

// ParseImport validates a backup payload. Accepted only when it is a JSON
// array whose every element carries a string symbol and a numeric balance;
// anything else returns ErrImportRejected and the caller must leave the
// ledger untouched.
func ParseImport(raw []byte) ([]domain.WalletEntry, error) {
	var items []struct {
		Symbol  *string      `json:"symbol"`
		Balance *json.Number `json:"balance"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrap(ErrImportRejected, err.Error())
	}

	entries := make([]domain.WalletEntry, 0, len(items))
	for _, item := range items {
		if item.Symbol == nil || item.Balance == nil {
			return nil, ErrImportRejected
		}

		balance, err := decimal.NewFromString(item.Balance.String())
		if err != nil {
			return nil, errors.Wrap(ErrImportRejected, err.Error())
		}

		entries = append(entries, domain.WalletEntry{Symbol: *item.Symbol, Balance: balance})
	}

	return entries, nil
}
