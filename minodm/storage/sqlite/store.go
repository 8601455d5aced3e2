// Package sqlite implements storage.Store on a SQLite database, one row
// per document with the body held as JSON text and filtered through the
// JSON1 functions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/minodm/minodm/minodm/storage"
	"github.com/minodm/minodm/minodm/storage/sqlbuilder"
)

const ddl = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store is a SQLite-backed document store.
type Store struct {
	db  *sql.DB
	now func() int64
}

// Open opens path with the pure-Go driver.
func Open(ctx context.Context, path string) (*Store, error) {
	return OpenWithDriver(ctx, path, "sqlite")
}

// OpenWithDriver opens path with a specific registered driver name
// ("sqlite" for modernc, "sqlite3" for mattn).
func OpenWithDriver(ctx context.Context, path, driver string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, err
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	return &Store{db: db, now: storage.NowMS}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for advanced use.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Create(ctx context.Context, docs []map[string]any) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	nowMS := s.now()
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id, body, err := splitID(doc)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal document: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)",
			id, string(data), nowMS, nowMS,
		); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) Find(ctx context.Context, q storage.Query) ([]map[string]any, error) {
	b := sqlbuilder.New(sqlbuilder.PlaceholderQuestion)
	where, err := whereSQL(b, q.Filter)
	if err != nil {
		return nil, err
	}

	stmt := "SELECT id, data FROM documents" + where
	if q.Sort != nil {
		expr, err := fieldExpr(q.Sort.Field)
		if err != nil {
			return nil, err
		}
		stmt += " ORDER BY " + expr
		if q.Sort.Desc {
			stmt += " DESC"
		}
	} else {
		stmt += " ORDER BY rowid"
	}
	if q.Limit > 0 || q.Skip > 0 {
		limit := q.Limit
		if limit == 0 {
			limit = -1
		}
		stmt += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, q.Skip)
	}

	rows, err := s.db.QueryContext(ctx, stmt, b.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		doc := map[string]any{}
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("parse stored document %s: %w", id, err)
		}
		doc[storage.IDKey] = id
		out = append(out, doc)
	}
	return out, rows.Err()
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
	b := sqlbuilder.New(sqlbuilder.PlaceholderQuestion)
	where, err := whereSQL(b, q.Filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents"+where, b.Args()...).Scan(&n); err != nil {
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
	b := sqlbuilder.New(sqlbuilder.PlaceholderQuestion)
	setExpr, err := updateExpr(b, u)
	if err != nil {
		return 0, err
	}
	stmt := "UPDATE documents SET data = " + setExpr + ", updated_at = " + b.Arg(s.now())

	where, err := whereSQL(b, q.Filter)
	if err != nil {
		return 0, err
	}
	if single {
		stmt += " WHERE id IN (SELECT id FROM documents" + where + " ORDER BY rowid LIMIT 1)"
	} else {
		stmt += where
	}

	res, err := s.db.ExecContext(ctx, stmt, b.Args()...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Remove(ctx context.Context, q storage.Query) (int64, error) {
	return s.remove(ctx, q, false)
}

func (s *Store) RemoveOne(ctx context.Context, q storage.Query) (int64, error) {
	return s.remove(ctx, q, true)
}

func (s *Store) remove(ctx context.Context, q storage.Query, single bool) (int64, error) {
	b := sqlbuilder.New(sqlbuilder.PlaceholderQuestion)
	where, err := whereSQL(b, q.Filter)
	if err != nil {
		return 0, err
	}
	stmt := "DELETE FROM documents"
	if single {
		stmt += " WHERE id IN (SELECT id FROM documents" + where + " ORDER BY rowid LIMIT 1)"
	} else {
		stmt += where
	}
	res, err := s.db.ExecContext(ctx, stmt, b.Args()...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// splitID pulls the document id out of doc, assigning a fresh one when
// absent; the returned body excludes the id key.
func splitID(doc map[string]any) (string, map[string]any, error) {
	body := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == storage.IDKey {
			continue
		}
		body[k] = v
	}
	switch id := doc[storage.IDKey].(type) {
	case nil:
		return uuid.NewString(), body, nil
	case string:
		if id == "" {
			return uuid.NewString(), body, nil
		}
		return id, body, nil
	default:
		return "", nil, fmt.Errorf("document id must be a string, got %T", doc[storage.IDKey])
	}
}
