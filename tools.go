//go:build tools
// +build tools

// Package tools tracks the code generators used by the project so their
// versions are pinned in go.mod.
package tools

import (
	// swag regenerates docs/ from the handler annotations
	_ "github.com/swaggo/swag/cmd/swag"
)
