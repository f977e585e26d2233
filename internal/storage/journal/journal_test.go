package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/purse/internal/domain"
)

func TestRecordAndReplay(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	records := []domain.MutationRecord{
		{Kind: domain.MutationSet, Symbol: "btc", Balance: "0.05"},
		{Kind: domain.MutationSet, Symbol: "eth", Balance: "1.5"},
		{Kind: domain.MutationRemove, Symbol: "eth"},
		{Kind: domain.MutationClear},
	}
	for _, rec := range records {
		require.NoError(t, store.Record(rec))
	}

	entries, err := store.EntriesAfter(0)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	for i, e := range entries {
		assert.Equal(t, records[i].Kind, e.Record.Kind)
		assert.Equal(t, records[i].Symbol, e.Record.Symbol)
		assert.Equal(t, records[i].Balance, e.Record.Balance)
	}

	// indices are strictly increasing
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].Index, entries[i-1].Index)
	}
}

func TestEntriesAfterSkipsConsumed(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(domain.MutationRecord{Kind: domain.MutationSet, Symbol: "btc", Balance: "1"}))
	require.NoError(t, store.Record(domain.MutationRecord{Kind: domain.MutationSet, Symbol: "eth", Balance: "2"}))

	first, err := store.EntriesAfter(0)
	require.NoError(t, err)
	require.Len(t, first, 2)

	rest, err := store.EntriesAfter(first[0].Index)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "eth", rest[0].Record.Symbol)

	none, err := store.EntriesAfter(first[1].Index)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordRequiresKind(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.Record(domain.MutationRecord{Symbol: "btc"}))
}
