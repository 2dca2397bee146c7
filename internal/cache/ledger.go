package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerEntry records one completed extraction. It never holds the extracted
// content itself, only where the artifacts were written.
type LedgerEntry struct {
	Source           string    `json:"source"`
	Slug             string    `json:"slug"`
	MarkdownFilename string    `json:"markdown_filename"`
	JSONFilename     string    `json:"json_filename"`
	CapturedAt       time.Time `json:"captured_at"`
}

// Ledger remembers which audio payloads were already extracted successfully
type Ledger struct {
	store Cache
	ttl   time.Duration
}

// NewLedger wraps a cache; ttl 0 uses the store's default
func NewLedger(store Cache, ttl time.Duration) *Ledger {
	return &Ledger{store: store, ttl: ttl}
}

// Lookup returns the entry for key, if one was recorded
func (l *Ledger) Lookup(key string) (LedgerEntry, bool) {
	data, found := l.store.Get(key)
	if !found {
		return LedgerEntry{}, false
	}
	var entry LedgerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return LedgerEntry{}, false
	}
	return entry, true
}

// Record marks key as extracted
func (l *Ledger) Record(key string, entry LedgerEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}
	return l.store.Set(key, data, l.ttl)
}

// Forget drops key so the next run extracts it again
func (l *Ledger) Forget(key string) error {
	return l.store.Delete(key)
}
