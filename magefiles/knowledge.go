//go:build mage

package main

import "github.com/magefile/mage/mg"

// Index builds the CLI and runs "corpus index" to refresh the study index.
func Index() error {
	mg.Deps(Build)
	return runCLI("corpus", "index")
}

// Validate builds the CLI and checks the configured corpus.
func Validate() error {
	mg.Deps(Build)
	return runCLI("corpus", "validate")
}
