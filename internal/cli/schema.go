package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minodm/minodm/minodm"
)

// LoadSchema reads a schema definition file (.json, .yaml or .yml) and
// builds the schema from it.
func LoadSchema(path string) (*minodm.Schema, error) {
	if path == "" {
		return nil, fmt.Errorf("--schema is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, minodm.Wrap(minodm.ErrIO, "read schema file", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return minodm.SchemaFromYAML(data)
	default:
		return minodm.SchemaFromJSON(data)
	}
}
