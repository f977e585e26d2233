package domain

import "time"

// MutationKind classifies a committed ledger mutation.
type MutationKind string

const (
	MutationSet    MutationKind = "set"
	MutationRemove MutationKind = "remove"
	MutationClear  MutationKind = "clear"
)

// MutationRecord is one journal entry describing a committed ledger mutation.
type MutationRecord struct {
	Timestamp time.Time    `json:"ts"`
	Kind      MutationKind `json:"kind"`
	Symbol    string       `json:"symbol,omitempty"`
	Balance   string       `json:"balance,omitempty"`
}

// MutationEntry bundles a journal record with its WAL index.
type MutationEntry struct {
	Index  uint64
	Record MutationRecord
}
