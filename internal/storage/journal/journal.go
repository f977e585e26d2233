package journal

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/purse/internal/domain"
)

const (
	defaultDir        = "./data/journal"
	segmentLimit      = 1000
	maxSegments       = 100
	mutationKeyPrefix = "mutation_"
)

// WALStore is an append-only journal of committed ledger mutations.
// It exists for audit and streaming, the wallet file stays the source of
// truth for hydration.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// New initializes a WAL-backed mutation journal under the provided directory.
func New(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init mutation journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Record appends the mutation to the journal.
func (s *WALStore) Record(rec domain.MutationRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("mutation journal is not initialized")
	}
	if rec.Kind == "" {
		return fmt.Errorf("mutation kind is required")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal mutation record")
	}

	key := fmt.Sprintf("%s%s", mutationKeyPrefix, rec.Kind)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// EntriesAfter returns all mutations recorded after the provided WAL index.
func (s *WALStore) EntriesAfter(index uint64) ([]domain.MutationEntry, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("mutation journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	entries := make([]domain.MutationEntry, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		_, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}

		var rec domain.MutationRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, errors.Wrap(err, "decode mutation record")
		}

		entries = append(entries, domain.MutationEntry{Index: idx, Record: rec})
	}

	return entries, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
