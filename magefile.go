//go:build mage

package main

import "github.com/princjef/mageutil/shellcmd"

// Test runs the unit tests.
func Test() error {
	return shellcmd.Command(`go test -race -cover -timeout 30s ./...`).Run()
}

// TestClean runs the unit tests with no test cache.
func TestClean() error {
	return shellcmd.RunAll(
		`go clean -testcache`,
		`go test -race -cover -timeout 30s ./...`,
	)
}

// Evaluate runs the Monte Carlo evaluation CLI against the bundled example
// scenario.
func Evaluate() error {
	return shellcmd.Command(`go run ./cmd/evaluate -scenario cmd/evaluate/testdata/scenario.yaml`).Run()
}
