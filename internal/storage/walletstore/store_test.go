package walletstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
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

	return store, filepath.Join(dir, walletFileName)
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	return payload
}

func TestLoadInstallsDefaultWallet(t *testing.T) {
	store, path := newStore(t)

	snap, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, domain.CurrentSnapshotVersion, snap.Version)
	require.Len(t, snap.Tokens, 3)
	assert.Equal(t, "btc", snap.Tokens[0].Symbol)
	assert.True(t, snap.Tokens[0].Balance.Equal(decimal.NewFromFloat(0.05)))
	assert.True(t, snap.Tokens[2].Balance.Equal(decimal.NewFromInt(500)))

	// the default wallet is persisted immediately
	var onDisk domain.WalletSnapshot
	require.NoError(t, json.Unmarshal(readFile(t, path), &onDisk))
	assert.Equal(t, domain.CurrentSnapshotVersion, onDisk.Version)
	assert.Len(t, onDisk.Tokens, 3)
}

func TestLoadMigratesLegacyShape(t *testing.T) {
	store, path := newStore(t)

	legacy := `[{"symbol":"btc","balance":0.1},{"symbol":"usdt","balance":42}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	snap, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, domain.CurrentSnapshotVersion, snap.Version)
	require.Len(t, snap.Tokens, 2)
	assert.Equal(t, "btc", snap.Tokens[0].Symbol)
	assert.True(t, snap.Tokens[0].Balance.Equal(decimal.NewFromFloat(0.1)))

	// legacy file is rewritten in the current envelope with the same entries
	var onDisk domain.WalletSnapshot
	require.NoError(t, json.Unmarshal(readFile(t, path), &onDisk))
	assert.Equal(t, domain.CurrentSnapshotVersion, onDisk.Version)
	assert.False(t, onDisk.LastUpdated.IsZero())
	require.Len(t, onDisk.Tokens, 2)
	assert.True(t, onDisk.Tokens[1].Balance.Equal(decimal.NewFromInt(42)))
}

func TestLoadCurrentShape(t *testing.T) {
	store, path := newStore(t)

	current := `{"version":1,"lastUpdated":"2024-03-01T10:00:00Z","tokens":[{"symbol":"eth","balance":1.5}]}`
	require.NoError(t, os.WriteFile(path, []byte(current), 0o644))

	snap, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Version)
	require.Len(t, snap.Tokens, 1)
	assert.Equal(t, "eth", snap.Tokens[0].Symbol)
}

func TestLoadCorruptFileFallsBackToEmptyWallet(t *testing.T) {
	store, path := newStore(t)

	require.NoError(t, os.WriteFile(path, []byte(`{"version": oops`), 0o644))

	snap, err := store.Load()
	require.NoError(t, err, "corrupt storage is not fatal")
	assert.Empty(t, snap.Tokens)
	assert.Equal(t, domain.CurrentSnapshotVersion, snap.Version)
}

func TestSaveWritesCurrentSchema(t *testing.T) {
	store, path := newStore(t)

	entries := []domain.WalletEntry{{Symbol: "btc", Balance: decimal.NewFromFloat(0.05)}}
	require.NoError(t, store.Save(entries))

	var onDisk map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(readFile(t, path), &onDisk))
	assert.Contains(t, onDisk, "version")
	assert.Contains(t, onDisk, "lastUpdated")
	assert.Contains(t, onDisk, "tokens")

	// saving twice is harmless
	require.NoError(t, store.Save(entries))

	snap, err := store.Load()
	require.NoError(t, err)
	require.Len(t, snap.Tokens, 1)
	assert.True(t, snap.Tokens[0].Balance.Equal(decimal.NewFromFloat(0.05)))
}

func TestClear(t *testing.T) {
	store, path := newStore(t)

	require.NoError(t, store.Save([]domain.WalletEntry{{Symbol: "btc", Balance: decimal.NewFromInt(1)}}))
	require.NoError(t, store.Clear())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// clearing an already-missing file is fine
	require.NoError(t, store.Clear())
}

func TestExportImportRoundTrip(t *testing.T) {
	entries := []domain.WalletEntry{
		{Symbol: "btc", Balance: decimal.NewFromFloat(0.05)},
		{Symbol: "eth", Balance: decimal.NewFromFloat(1.5)},
		{Symbol: "usdt", Balance: decimal.NewFromInt(500)},
	}

	payload, err := Export(entries)
	require.NoError(t, err)

	got, err := ParseImport(payload)
	require.NoError(t, err)

	require.Len(t, got, len(entries))
	for i := range entries {
		assert.Equal(t, entries[i].Symbol, got[i].Symbol)
		assert.True(t, got[i].Balance.Equal(entries[i].Balance))
	}
}

func TestExportHasNoEnvelope(t *testing.T) {
	payload, err := Export([]domain.WalletEntry{{Symbol: "btc", Balance: decimal.NewFromInt(1)}})
	require.NoError(t, err)

	var bare []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &bare), "export is a bare array")
}

func TestParseImportRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing balance", raw: `[{"symbol":"btc"}]`},
		{name: "missing symbol", raw: `[{"balance":1}]`},
		{name: "balance is a string", raw: `[{"symbol":"btc","balance":"1"}]`},
		{name: "symbol is a number", raw: `[{"symbol":42,"balance":1}]`},
		{name: "not an array", raw: `{"symbol":"btc","balance":1}`},
		{name: "not json", raw: `hello`},
		{name: "array of scalars", raw: `[1,2,3]`},
		{name: "null balance", raw: `[{"symbol":"btc","balance":null}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseImport([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrImportRejected)
		})
	}
}

func TestParseImportAcceptsExtraFields(t *testing.T) {
	got, err := ParseImport([]byte(`[{"symbol":"btc","balance":0.5,"note":"cold"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Balance.Equal(decimal.NewFromFloat(0.5)))
}

func TestParseImportEmptyArray(t *testing.T) {
	got, err := ParseImport([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, got)
}
