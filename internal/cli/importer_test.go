package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minodm/minodm/minodm"
	"github.com/minodm/minodm/minodm/storage/jsonfile"
)

func importCollection(t *testing.T) *minodm.Collection {
	t.Helper()
	store, err := jsonfile.Open(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	schema := minodm.MustSchema([]minodm.FieldDef{
		minodm.F("name", minodm.String().Required()),
		minodm.F("role", minodm.String().Default("user")),
	}, minodm.SchemaOptions{})
	coll, err := minodm.NewCollection("imports", schema, store)
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	return coll
}

func TestImportJSONLines(t *testing.T) {
	coll := importCollection(t)
	input := strings.Join([]string{
		`{"name": "ann"}`,
		`{"name": "bob", "role": "admin"}`,
		`not json`,
		`{"name": 7}`,
		`{"name": "cleo"}`,
	}, "\n")

	var errBuf bytes.Buffer
	res, err := ImportJSONLines(context.Background(), coll, strings.NewReader(input), &errBuf, 2, 2)
	if err != nil {
		t.Fatalf("ImportJSONLines: %v", err)
	}
	if res.Read != 5 || res.Inserted != 3 || res.Failed != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.IDs) != 3 {
		t.Fatalf("got %d ids", len(res.IDs))
	}
	if errBuf.Len() == 0 {
		t.Errorf("failed lines must be reported")
	}

	n, err := coll.Query().Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("stored %d docs, want 3", n)
	}

	m, err := coll.Query().Where("name").Equals("ann").One(context.Background())
	if err != nil {
		t.Fatalf("One: %v", err)
	}
	if v, _ := m.Get("role"); v != "user" {
		t.Errorf("defaults must apply during import: %v", m.Document())
	}
}

func TestImportEmptyInput(t *testing.T) {
	coll := importCollection(t)
	res, err := ImportJSONLines(context.Background(), coll, strings.NewReader(""), &bytes.Buffer{}, 0, 0)
	if err != nil {
		t.Fatalf("ImportJSONLines: %v", err)
	}
	if res.Read != 0 || res.Inserted != 0 {
		t.Errorf("result = %+v", res)
	}
}
