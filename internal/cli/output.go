package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

// PrintDocs writes each document on its own JSON line.
func PrintDocs(w io.Writer, docs []map[string]any) {
	for _, doc := range docs {
		b, _ := json.Marshal(doc)
		fmt.Fprintln(w, string(b))
	}
}
