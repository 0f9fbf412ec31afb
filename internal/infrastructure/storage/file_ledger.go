package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

// FileLedger keeps the ledger as an array under one key of a JSON state document.
// Other top-level keys of the document are preserved on save.
type FileLedger struct {
	path string
	key  string
}

var _ ports.LedgerStore = (*FileLedger)(nil)

// NewFileLedger binds a state document path and the key holding the ledger.
func NewFileLedger(path, key string) *FileLedger {
	return &FileLedger{path: path, key: key}
}

// Load returns an empty ledger when the document or key is absent.
func (f *FileLedger) Load(ctx context.Context) (domain.Ledger, error) {
	doc, err := f.readDocument()
	if err != nil {
		return domain.Ledger{}, err
	}

	raw, ok := doc[f.key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return domain.Ledger{}, nil
	}

	var entries []domain.LedgerEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return domain.Ledger{}, fmt.Errorf("decode %s in %s: %w: %w", f.key, f.path, domain.ErrCorruptState, err)
	}
	return domain.Ledger{Entries: entries}, nil
}

// Save overwrites the ledger key atomically via a temp file and rename.
func (f *FileLedger) Save(ctx context.Context, ledger domain.Ledger) error {
	doc, err := f.readDocument()
	if err != nil {
		return err
	}

	entries := ledger.Entries
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	doc[f.key] = raw

	return writeJSONAtomic(f.path, doc)
}

func (f *FileLedger) readDocument() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", f.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("read state %s: empty document: %w", f.path, domain.ErrCorruptState)
	}

	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode state %s: %w: %w", f.path, domain.ErrCorruptState, err)
	}
	if doc == nil {
		// A literal null document is an empty state.
		doc = map[string]json.RawMessage{}
	}
	return doc, nil
}

// writeJSONAtomic writes v as indented JSON next to path and renames it into place.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace state %s: %w", path, err)
	}
	return nil
}
