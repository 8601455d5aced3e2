// Package postgres implements storage.Store on PostgreSQL, one row per
// document with the body held as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/minodm/minodm/minodm/storage"
	"github.com/minodm/minodm/minodm/storage/sqlbuilder"
)

const ddl = `
CREATE TABLE IF NOT EXISTS documents (
	seq        BIGSERIAL,
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
);
`

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(ident string) string {
	return `"` + ident + `"`
}

// Store is a PostgreSQL-backed document store scoped to one schema.
type Store struct {
	db  *sql.DB
	now func() int64
}

// Open connects to dsn with the search_path pinned to schema (created when
// missing) and ensures the documents table exists.
func Open(ctx context.Context, dsn, schema string) (*Store, error) {
	if schema == "" {
		schema = "minodm"
	}
	if !schemaNameRe.MatchString(schema) {
		return nil, fmt.Errorf("invalid postgres schema name %q", schema)
	}

	// First connection without search_path, to create the schema.
	cfg0, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	db0 := stdlib.OpenDB(*cfg0)
	if err := db0.PingContext(ctx); err != nil {
		_ = db0.Close()
		return nil, err
	}
	if _, err := db0.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(schema)); err != nil {
		_ = db0.Close()
		return nil, err
	}
	_ = db0.Close()

	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(schema))

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: storage.NowMS}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
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
			"INSERT INTO documents (id, data, created_at, updated_at) VALUES ($1, $2::jsonb, $3, $4)",
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
	b := sqlbuilder.New(sqlbuilder.PlaceholderDollar)
	where, err := whereSQL(b, q.Filter)
	if err != nil {
		return nil, err
	}

	stmt := "SELECT id, data::text FROM documents" + where
	if q.Sort != nil {
		expr, err := textExpr(q.Sort.Field)
		if err != nil {
			return nil, err
		}
		stmt += " ORDER BY " + expr
		if q.Sort.Desc {
			stmt += " DESC"
		}
	} else {
		stmt += " ORDER BY seq"
	}
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Skip > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", q.Skip)
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
	b := sqlbuilder.New(sqlbuilder.PlaceholderDollar)
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
	b := sqlbuilder.New(sqlbuilder.PlaceholderDollar)
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
		stmt += " WHERE id IN (SELECT id FROM documents" + where + " ORDER BY seq LIMIT 1)"
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
	b := sqlbuilder.New(sqlbuilder.PlaceholderDollar)
	where, err := whereSQL(b, q.Filter)
	if err != nil {
		return 0, err
	}
	stmt := "DELETE FROM documents"
	if single {
		stmt += " WHERE id IN (SELECT id FROM documents" + where + " ORDER BY seq LIMIT 1)"
	} else {
		stmt += where
	}
	res, err := s.db.ExecContext(ctx, stmt, b.Args()...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

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
