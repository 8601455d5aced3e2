package minodm_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/minodm/minodm/pkg/minodm"
)

func TestOpenCollectionJSONFile(t *testing.T) {
	ctx := context.Background()
	schema := minodm.MustSchema([]minodm.FieldDef{
		minodm.F("title", minodm.String().Required()),
		minodm.F("done", minodm.Bool().Default(false)),
	}, minodm.SchemaOptions{})

	coll, store, err := minodm.OpenCollection(ctx, "tasks", schema, minodm.OpenOptions{
		Backend: "jsonfile",
		Path:    filepath.Join(t.TempDir(), "tasks.json"),
	})
	if err != nil {
		t.Fatalf("OpenCollection: %v", err)
	}
	defer store.Close()

	ids, err := coll.Insert(ctx, map[string]any{"title": "write docs"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	m, err := coll.FindByID(ctx, ids[0])
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if v, _ := m.Get("done"); v != false {
		t.Errorf("default not applied: %v", m.Document())
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := minodm.Open(context.Background(), minodm.OpenOptions{Backend: "redis"})
	if !minodm.IsKind(err, minodm.ErrIO) {
		t.Fatalf("expected IO error, got %v", err)
	}
}
