// Package sqlbuilder tracks SQL placeholder allocation for backends with
// different placeholder styles.
package sqlbuilder

import "strconv"

type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// Builder accumulates arguments and hands out matching placeholders.
type Builder struct {
	Style PlaceholderStyle
	args  []any
}

func New(style PlaceholderStyle) *Builder {
	return &Builder{Style: style, args: make([]any, 0)}
}

// Arg records v and returns its placeholder ("?" or "$n").
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	if b.Style == PlaceholderDollar {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

func (b *Builder) Args() []any { return b.args }
func (b *Builder) Len() int    { return len(b.args) }
