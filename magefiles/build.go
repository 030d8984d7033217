//go:build mage

// Package main provides build targets for the lookup project using Mage.
//
// Usage:
//
//	mage build          Compile the lookup binary to bin/
//	mage test:all       Run all tests
//	mage test:cover     Run tests with a coverage profile
//	mage test:golden    Regenerate golden files
//	mage lint           Run golangci-lint
//	mage check          Build, then run the conformance checks
//	mage clean          Remove build artifacts
//	mage install        Install lookup to GOPATH/bin
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "lookup"
	binaryDir  = "bin"
	cmdDir     = "./cmd/lookup"
)

// version returns the build version from $VERSION or git describe.
func version() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || strings.TrimSpace(out) == "" {
		return "v0.1.0-dev"
	}
	return strings.TrimSpace(out)
}

// Build compiles the lookup binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := "-X main.Version=" + version()
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Check builds the binary and runs the lookup conformance checks.
func Check() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "check")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	if err := os.Remove(coverProfile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
