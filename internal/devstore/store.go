// Package devstore is an in-process implementation of the generic record
// store: named collections of schemaless JSON records with server-assigned
// ids, exact-match query filtering, and an optional JSON snapshot file. It
// backs cmd/recordstored in development and the HTTP-level tests.
package devstore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// Record is a schemaless stored document. The "id" field is owned by the
// store and assigned on create.
type Record = map[string]any

type Store struct {
	mu          sync.Mutex
	collections map[string][]Record
	// snapshotPath, when set, is rewritten after every mutation so restarts
	// keep the data, the way json-server keeps db.json.
	snapshotPath string
}

func New(snapshotPath string) (*Store, error) {
	s := &Store{
		collections:  map[string][]Record{},
		snapshotPath: snapshotPath,
	}
	if snapshotPath == "" {
		return s, nil
	}

	raw, err := os.ReadFile(snapshotPath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", snapshotPath, err)
	}
	if err := json.Unmarshal(raw, &s.collections); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", snapshotPath, err)
	}
	return s, nil
}

// Seed inserts records verbatim, assigning ids to records that lack one.
func (s *Store) Seed(collection string, records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		r = cloneRecord(r)
		if _, ok := r["id"]; !ok {
			r["id"] = newID()
		}
		s.collections[collection] = append(s.collections[collection], r)
	}
	s.persist()
}

func (s *Store) list(collection string, filter map[string]string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, r := range s.collections[collection] {
		if matches(r, filter) {
			out = append(out, cloneRecord(r))
		}
	}
	return out
}

func (s *Store) get(collection, id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.collections[collection] {
		if fmt.Sprint(r["id"]) == id {
			return cloneRecord(r), true
		}
	}
	return nil, false
}

func (s *Store) create(collection string, r Record) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	r["id"] = newID()
	s.collections[collection] = append(s.collections[collection], r)
	s.persist()
	return cloneRecord(r)
}

// replace swaps the record wholesale, keeping the stored id.
func (s *Store) replace(collection, id string, r Record) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.collections[collection] {
		if fmt.Sprint(existing["id"]) == id {
			r["id"] = existing["id"]
			s.collections[collection][i] = r
			s.persist()
			return cloneRecord(r), true
		}
	}
	return nil, false
}

// patch merges fields into the record; the id field cannot be changed.
func (s *Store) patch(collection, id string, fields Record) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.collections[collection] {
		if fmt.Sprint(existing["id"]) == id {
			for k, v := range fields {
				if k == "id" {
					continue
				}
				existing[k] = v
			}
			s.collections[collection][i] = existing
			s.persist()
			return cloneRecord(existing), true
		}
	}
	return nil, false
}

func (s *Store) delete(collection, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.collections[collection]
	for i, existing := range records {
		if fmt.Sprint(existing["id"]) == id {
			s.collections[collection] = append(records[:i], records[i+1:]...)
			s.persist()
			return true
		}
	}
	return false
}

func matches(r Record, filter map[string]string) bool {
	for k, want := range filter {
		got, ok := r[k]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

// persist is called with the lock held.
func (s *Store) persist() {
	if s.snapshotPath == "" {
		return
	}
	raw, err := json.MarshalIndent(s.collections, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("devstore: failed to encode snapshot")
		return
	}
	if err := os.WriteFile(s.snapshotPath, raw, 0o644); err != nil {
		log.Error().Err(err).Str("path", s.snapshotPath).Msg("devstore: failed to write snapshot")
	}
}

func newID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// cloneRecord deep-copies a record so nothing outside the store ever holds a
// reference into the stored maps; patch mutates them in place under the lock.
func cloneRecord(r Record) Record {
	return cloneMap(r)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return t
	}
}
