package geost

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Write stores a single feature: its data row, its id row and one index row
// per indexed attribute, all carrying the JSON-encoded feature as value.
func (s *Store) Write(f *Feature) error {
	keys, val, err := s.rows(f)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Set(key, val); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a feature and every index row derived from it. Deleting an
// unknown id is a no-op.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(EncodeIDKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var f Feature
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &f)
		}); err != nil {
			return err
		}
		keys, _, err := s.rows(&f)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// rows derives every row key a feature occupies, plus the shared value.
func (s *Store) rows(f *Feature) ([][]byte, []byte, error) {
	if f.ID == "" {
		return nil, nil, fmt.Errorf("feature without id")
	}
	if s.schema.Points && !f.Bounds.IsPoint() {
		return nil, nil, fmt.Errorf("feature %q: point schema %q given an extent", f.ID, s.schema.Name)
	}
	if s.schema.HasTime && f.Time.IsZero() {
		return nil, nil, fmt.Errorf("feature %q: schema %q requires a timestamp", f.ID, s.schema.Name)
	}

	val, err := json.Marshal(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode feature %q: %w", f.ID, err)
	}

	keys := make([][]byte, 0, 2+len(f.Attrs))
	keys = append(keys, s.dataKey(f))
	keys = append(keys, EncodeIDKey(f.ID))
	for _, attr := range s.schema.Attributes {
		if !attr.Indexed {
			continue
		}
		if v, ok := f.Attrs[attr.Name]; ok {
			// 0x00 is the attribute key field separator
			if strings.ContainsRune(v, 0) {
				return nil, nil, fmt.Errorf("feature %q: attribute %q value contains a NUL byte", f.ID, attr.Name)
			}
			keys = append(keys, EncodeAttrKey(attr.Name, v, f.ID))
		}
	}
	return keys, val, nil
}

func (s *Store) dataKey(f *Feature) []byte {
	p := s.planner
	switch {
	case s.schema.Points && s.schema.HasTime:
		key := make([]byte, Z3HeaderSize+len(f.ID))
		z := p.z3.Encode(f.Bounds.MinX, f.Bounds.MinY, secondsWithin(f.Time))
		EncodeZ3Key(key, PeriodOf(f.Time), z, f.ID)
		return key
	case s.schema.Points:
		key := make([]byte, Z2HeaderSize+len(f.ID))
		EncodeCurveKey(key, PrefixZ2, p.z2.Encode(f.Bounds.MinX, f.Bounds.MinY), f.ID)
		return key
	default:
		key := make([]byte, Z2HeaderSize+len(f.ID))
		EncodeCurveKey(key, PrefixXZ2, p.xz2.Encode(f.Bounds), f.ID)
		return key
	}
}

// BatchWriter accumulates feature writes and flushes them in batches.
type BatchWriter struct {
	store *Store
	batch *badger.WriteBatch
}

// NewBatchWriter creates a new batch writer.
// Call Flush() when done, or Cancel() to abort.
func (s *Store) NewBatchWriter() *BatchWriter {
	return &BatchWriter{
		store: s,
		batch: s.db.NewWriteBatch(),
	}
}

// Write adds a feature's rows to the batch.
func (w *BatchWriter) Write(f *Feature) error {
	keys, val, err := w.store.rows(f)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := w.batch.Set(key, val); err != nil {
			return err
		}
	}
	return nil
}

// Flush commits all pending writes to the database.
func (w *BatchWriter) Flush() error {
	return w.batch.Flush()
}

// Cancel aborts the batch without committing.
func (w *BatchWriter) Cancel() {
	w.batch.Cancel()
}
