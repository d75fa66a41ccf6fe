/*
Package local provides the device-local storage backend for guest mode.

PURPOSE:
  Implements ledger.Backend over a single JSON document: one top-level key
  per pluralized entity collection ("transactions", "goals", ...). All data
  belongs to the implicit guest pseudo-user and persists only on the device.

CONTRACT NOTES:
  - Synchronous: operations never suspend on the network. The document is
    rewritten (temp file + rename) after every mutation.
  - NO constraints: unlike the relational backend, nothing enforces foreign
    keys or ownership here. Callers must not rely on constraint violations.
  - Insert assigns a fresh uuid to rows without an id and returns them.

  An empty path keeps the store purely in memory. Tests and throwaway
  sessions use that mode.

SEE ALSO:
  - ledger/store.go: The contract this satisfies
  - store/sqlremote: The relational counterpart
*/
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/ledger-engine/ledger"
)

type Store struct {
	mu   sync.Mutex
	path string
	doc  map[string][]ledger.Row
}

// New opens (or creates) the JSON document at path. An empty path yields a
// memory-only store.
func New(path string) (*Store, error) {
	s := &Store{path: path, doc: make(map[string][]ledger.Row)}
	for _, k := range ledger.Kinds() {
		s.doc[k.Collection()] = []ledger.Row{}
	}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, &ledger.BackendError{Op: "open", Err: err}
	}
	if err := s.decode(data); err != nil {
		return nil, &ledger.BackendError{Op: "open", Err: err}
	}
	return s, nil
}

func (s *Store) decode(data []byte) error {
	raw := make(map[string][]map[string]any)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("corrupt document: %w", err)
	}
	for collection, rows := range raw {
		converted := make([]ledger.Row, 0, len(rows))
		for _, r := range rows {
			converted = append(converted, ledger.Row(r))
		}
		s.doc[collection] = converted
	}
	return nil
}

func (s *Store) Select(_ context.Context, kind ledger.Kind, f ledger.Filter) ([]ledger.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids map[string]bool
	if len(f.IDs) > 0 {
		ids = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = true
		}
	}

	var out []ledger.Row
	for _, row := range s.doc[kind.Collection()] {
		if f.Owner != "" && row.String("user_id") != f.Owner {
			continue
		}
		if ids != nil && !ids[row.String("id")] {
			continue
		}
		if !matchesEq(row, f.Eq) {
			continue
		}
		out = append(out, row.Clone())
	}
	return out, nil
}

func (s *Store) Insert(_ context.Context, kind ledger.Kind, rows []ledger.Row) ([]ledger.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	collection := kind.Collection()
	inserted := make([]ledger.Row, 0, len(rows))
	for _, row := range rows {
		r := row.Clone()
		if r.String("id") == "" {
			r["id"] = uuid.NewString()
		}
		s.doc[collection] = append(s.doc[collection], r)
		inserted = append(inserted, r.Clone())
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return inserted, nil
}

func (s *Store) Update(_ context.Context, kind ledger.Kind, _ string, ids []string, patch ledger.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	collection := kind.Collection()
	for i, row := range s.doc[collection] {
		if !idSet[row.String("id")] {
			continue
		}
		merged := row.Clone()
		for k, v := range patch {
			if k == "id" {
				continue
			}
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		s.doc[collection][i] = merged
	}
	return s.persist()
}

func (s *Store) Delete(_ context.Context, kind ledger.Kind, _ string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	collection := kind.Collection()
	kept := s.doc[collection][:0]
	for _, row := range s.doc[collection] {
		if !idSet[row.String("id")] {
			kept = append(kept, row)
		}
	}
	s.doc[collection] = kept
	return s.persist()
}

// persist rewrites the whole document. Write to a temp file in the same
// directory, then rename, so a crash never leaves a half-written document.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return &ledger.BackendError{Op: "persist", Err: err}
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*")
	if err != nil {
		return &ledger.BackendError{Op: "persist", Err: err}
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return &ledger.BackendError{Op: "persist", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return &ledger.BackendError{Op: "persist", Err: err}
	}
	if err := os.Rename(name, s.path); err != nil {
		os.Remove(name)
		return &ledger.BackendError{Op: "persist", Err: err}
	}
	return nil
}

func matchesEq(row ledger.Row, eq map[string]any) bool {
	for k, want := range eq {
		if fmt.Sprint(row[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
