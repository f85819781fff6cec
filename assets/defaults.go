package assets

import (
	_ "embed"
)

// DefaultPatternsYAML contains the embedded default intent pattern table.
//
//go:embed defaults/patterns.yaml
var DefaultPatternsYAML []byte
