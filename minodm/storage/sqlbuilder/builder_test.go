package sqlbuilder

import "testing"

func TestQuestionPlaceholders(t *testing.T) {
	b := New(PlaceholderQuestion)
	if p := b.Arg(1); p != "?" {
		t.Errorf("placeholder = %q", p)
	}
	if p := b.Arg(2); p != "?" {
		t.Errorf("placeholder = %q", p)
	}
	if b.Len() != 2 {
		t.Errorf("len = %d", b.Len())
	}
}

func TestDollarPlaceholders(t *testing.T) {
	b := New(PlaceholderDollar)
	if p := b.Arg("a"); p != "$1" {
		t.Errorf("placeholder = %q", p)
	}
	if p := b.Arg("b"); p != "$2" {
		t.Errorf("placeholder = %q", p)
	}
	args := b.Args()
	if len(args) != 2 || args[0] != "a" || args[1] != "b" {
		t.Errorf("args = %v", args)
	}
}
