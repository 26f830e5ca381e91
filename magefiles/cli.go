//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/sh"
)

// runCLI runs the built binary with args, streaming its output.
func runCLI(args ...string) error {
	return sh.RunV(filepath.Join(binDir, binName), args...)
}
