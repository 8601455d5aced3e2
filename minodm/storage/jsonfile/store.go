// Package jsonfile implements storage.Store over a single JSON file with
// cross-process file locking. Suited to small datasets and tests; every
// operation loads, mutates and rewrites the whole file under the lock.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/minodm/minodm/minodm/storage"
)

const lockRetryInterval = 10 * time.Millisecond

type fileData struct {
	Version   string           `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
	Documents []map[string]any `json:"documents"`
}

// Store is a JSON-file-backed document store.
type Store struct {
	path string
	lock *flock.Flock
	now  func() time.Time
}

// Open opens (or creates on first write) the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}, nil
}

func (s *Store) Close() error {
	return nil
}

// withLock runs fn with the file lock held, persisting the data back when
// fn reports it dirty.
func (s *Store) withLock(ctx context.Context, fn func(d *fileData) (dirty bool, err error)) error {
	locked, err := s.lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("file lock on %s not acquired", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	d, err := s.load()
	if err != nil {
		return err
	}
	dirty, err := fn(d)
	if err != nil {
		return err
	}
	if dirty {
		return s.save(d)
	}
	return nil
}

func (s *Store) load() (*fileData, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &fileData{Version: "1", Documents: []map[string]any{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	var d fileData
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	return &d, nil
}

// save writes atomically via a temp file in the same directory.
func (s *Store) save(d *fileData) error {
	d.UpdatedAt = s.now()
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".minodm-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, docs []map[string]any) ([]string, error) {
	ids := make([]string, 0, len(docs))
	err := s.withLock(ctx, func(d *fileData) (bool, error) {
		for _, doc := range docs {
			stored := cloneDoc(doc)
			id, _ := stored[storage.IDKey].(string)
			if id == "" {
				id = uuid.NewString()
				stored[storage.IDKey] = id
			}
			d.Documents = append(d.Documents, stored)
			ids = append(ids, id)
		}
		return len(docs) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) Find(ctx context.Context, q storage.Query) ([]map[string]any, error) {
	var out []map[string]any
	err := s.withLock(ctx, func(d *fileData) (bool, error) {
		matched, err := selectDocs(d.Documents, q)
		if err != nil {
			return false, err
		}
		for _, doc := range matched {
			out = append(out, cloneDoc(doc))
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FindOne(ctx context.Context, q storage.Query) (map[string]any, error) {
	q.Limit = 1
	docs, err := s.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, storage.ErrNoDocument
	}
	return docs[0], nil
}

func (s *Store) Count(ctx context.Context, q storage.Query) (int64, error) {
	var n int64
	err := s.withLock(ctx, func(d *fileData) (bool, error) {
		for _, doc := range d.Documents {
			ok, err := matches(doc, q.Filter)
			if err != nil {
				return false, err
			}
			if ok {
				n++
			}
		}
		return false, nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Update(ctx context.Context, q storage.Query, u storage.Update) (int64, error) {
	return s.update(ctx, q, u, false)
}

func (s *Store) UpdateOne(ctx context.Context, q storage.Query, u storage.Update) (int64, error) {
	return s.update(ctx, q, u, true)
}

func (s *Store) update(ctx context.Context, q storage.Query, u storage.Update, single bool) (int64, error) {
	if u.Empty() {
		return 0, nil
	}
	var matched int64
	err := s.withLock(ctx, func(d *fileData) (bool, error) {
		for _, doc := range d.Documents {
			ok, err := matches(doc, q.Filter)
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}
			applyUpdate(doc, u)
			matched++
			if single {
				break
			}
		}
		return matched > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return matched, nil
}

func (s *Store) Remove(ctx context.Context, q storage.Query) (int64, error) {
	return s.remove(ctx, q, false)
}

func (s *Store) RemoveOne(ctx context.Context, q storage.Query) (int64, error) {
	return s.remove(ctx, q, true)
}

func (s *Store) remove(ctx context.Context, q storage.Query, single bool) (int64, error) {
	var removed int64
	err := s.withLock(ctx, func(d *fileData) (bool, error) {
		kept := d.Documents[:0]
		for _, doc := range d.Documents {
			ok, err := matches(doc, q.Filter)
			if err != nil {
				return false, err
			}
			if ok && (!single || removed == 0) {
				removed++
				continue
			}
			kept = append(kept, doc)
		}
		d.Documents = kept
		return removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func applyUpdate(doc map[string]any, u storage.Update) {
	for k, v := range u.Set {
		doc[k] = v
	}
	for _, k := range u.Unset {
		delete(doc, k)
	}
	for k, n := range u.Inc {
		cur, _ := numeric(doc[k])
		doc[k] = cur + n
	}
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
