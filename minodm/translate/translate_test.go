package translate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/minodm/minodm/minodm/query"
	"github.com/minodm/minodm/minodm/storage"
)

func TestBuildSplitsFilterAndUpdate(t *testing.T) {
	ops := []query.Operation{
		{Context: "role", Operator: query.Equal, Value: "admin"},
		{Context: "age", Operator: query.Gte, Value: 18.0},
		{Context: "active", Operator: query.Set, Value: true},
		{Context: "visits", Operator: query.Inc, Value: 1.0},
		{Context: "temp", Operator: query.Unset},
	}
	f, u, err := Build(ops)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	wantConds := []storage.Cond{
		{Field: "role", Op: storage.OpEqual, Value: "admin"},
		{Field: "age", Op: storage.OpGte, Value: 18.0},
	}
	if diff := cmp.Diff(wantConds, f.Conds); diff != "" {
		t.Errorf("conditions mismatch (-want +got):\n%s", diff)
	}
	if u.Set["active"] != true {
		t.Errorf("Set not folded: %+v", u.Set)
	}
	if u.Inc["visits"] != 1.0 {
		t.Errorf("Inc not folded: %+v", u.Inc)
	}
	if len(u.Unset) != 1 || u.Unset[0] != "temp" {
		t.Errorf("Unset not folded: %+v", u.Unset)
	}
}

func TestBuildKeepsOrderAndDuplicates(t *testing.T) {
	ops := []query.Operation{
		{Context: "age", Operator: query.Gt, Value: 10.0},
		{Context: "name", Operator: query.Equal, Value: "a"},
		{Context: "age", Operator: query.Gt, Value: 20.0},
	}
	f, _, err := Build(ops)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(f.Conds) != 3 {
		t.Fatalf("duplicates must be kept, got %d conds", len(f.Conds))
	}
	if f.Conds[0].Value != 10.0 || f.Conds[2].Value != 20.0 {
		t.Errorf("order not preserved: %+v", f.Conds)
	}
}

func TestBuildSetLastWriteWins(t *testing.T) {
	ops := []query.Operation{
		{Context: "role", Operator: query.Set, Value: "user"},
		{Context: "role", Operator: query.Set, Value: "admin"},
	}
	_, u, err := Build(ops)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if u.Set["role"] != "admin" {
		t.Errorf("Set must be last-write-wins, got %v", u.Set["role"])
	}
}

func TestBuildIncAccumulates(t *testing.T) {
	ops := []query.Operation{
		{Context: "n", Operator: query.Inc, Value: 2.0},
		{Context: "n", Operator: query.Inc, Value: 3},
	}
	_, u, err := Build(ops)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if u.Inc["n"] != 5.0 {
		t.Errorf("Inc must accumulate, got %v", u.Inc["n"])
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	if _, _, err := Build([]query.Operation{{Operator: query.Equal, Value: 1}}); err == nil {
		t.Errorf("missing context must fail")
	}
	if _, _, err := Build([]query.Operation{{Context: "n", Operator: query.Inc, Value: "x"}}); err == nil {
		t.Errorf("non-numeric INC must fail")
	}
}

func TestBuildFilterRejectsUpdateOps(t *testing.T) {
	_, err := BuildFilter([]query.Operation{{Context: "a", Operator: query.Set, Value: 1}})
	if err == nil {
		t.Fatalf("expected error for update operator in filter")
	}
}
