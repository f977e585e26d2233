package txstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/purse/internal/domain"
	"go.uber.org/zap"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	return store, filepath.Join(dir, txFileName)
}

func TestLoadMissingFileIsEmptyHistory(t *testing.T) {
	store, _ := newStore(t)

	txs, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, _ := newStore(t)

	want := []domain.Transaction{
		{
			ID:         "a",
			FromToken:  "usdt",
			ToToken:    "eth",
			FromAmount: "100",
			ToAmount:   "0.033333",
			Date:       time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:         "b",
			FromToken:  "add",
			ToToken:    "btc",
			FromAmount: "0",
			ToAmount:   "0.001",
			Date:       time.Date(2024, 3, 2, 11, 30, 0, 0, time.UTC),
		},
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, want[0].ID, got[0].ID)
	assert.Equal(t, want[0].FromAmount, got[0].FromAmount)
	assert.True(t, got[0].Date.Equal(want[0].Date), "dates round-trip")
	assert.True(t, got[1].IsDeposit())
}

func TestLoadCorruptFileFallsBackToEmptyHistory(t *testing.T) {
	store, path := newStore(t)

	require.NoError(t, os.WriteFile(path, []byte(`[{"id": oops`), 0o644))

	txs, err := store.Load()
	require.NoError(t, err, "corrupt storage is not fatal")
	assert.Empty(t, txs)
}

func TestClear(t *testing.T) {
	store, path := newStore(t)

	require.NoError(t, store.Save([]domain.Transaction{{ID: "a"}}))
	require.NoError(t, store.Clear())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Clear())
}
