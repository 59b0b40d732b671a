package store

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"captioncraft/caption"
)

// HistoryKey is the storage key holding the serialized history list
const HistoryKey = "captioncraft_history"

// HistoryStore loads and saves the caption history through a KV
type HistoryStore struct {
	kv  KV
	key string
}

// NewHistoryStore wraps kv using HistoryKey
func NewHistoryStore(kv KV) *HistoryStore {
	return &HistoryStore{kv: kv, key: HistoryKey}
}

// Load returns the persisted history. Missing, unreadable or malformed data
// yields an empty list; Load never fails.
func (s *HistoryStore) Load() caption.History {
	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		slog.Debug("history unreadable, starting empty", "error", err)
		return caption.History{}
	}
	if !ok || raw == "" {
		return caption.History{}
	}

	var h caption.History
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		slog.Debug("history malformed, starting empty", "error", err)
		return caption.History{}
	}
	if h == nil {
		return caption.History{}
	}
	return h.Truncate()
}

// Save overwrites the persisted history with the first MaxHistory entries of h
func (s *HistoryStore) Save(h caption.History) error {
	h = h.Truncate()
	if h == nil {
		h = caption.History{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := s.kv.Set(s.key, string(data)); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Clear removes every history entry
func (s *HistoryStore) Clear() error {
	return s.Save(caption.History{})
}

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the KV for backend under dataDir. The returned Closer must be
// closed when the store is no longer used.
func Open(backend, dataDir string) (KV, io.Closer, error) {
	switch backend {
	case "", BackendFile:
		return NewFileKV(filepath.Join(dataDir, "storage.json")), nopCloser{}, nil
	case BackendSQLite:
		kv, err := OpenSQLite(filepath.Join(dataDir, "captioncraft.db"))
		if err != nil {
			return nil, nil, err
		}
		return kv, kv, nil
	case BackendMemory:
		return NewMemoryKV(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q (use file, sqlite or memory)", backend)
	}
}
