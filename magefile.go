//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Aliases maps the hyphenated target names.
var Aliases = map[string]interface{}{
	"update-dependencies": UpdateDependencies,
}

// Install downloads the declared module dependencies.
func Install() error {
	return sh.RunV("go", "mod", "download")
}

// Check runs static analysis and applies safe fixes.
func Check() error {
	return sh.RunV("golangci-lint", "run", "--fix", "./...")
}

// Format runs Check, then formats the tree.
func Format() error {
	mg.Deps(Check)
	return sh.RunV("gofumpt", "-l", "-w", ".")
}

// Clean removes cached build and test artifacts and the local prices cache.
func Clean() error {
	if err := sh.RunV("go", "clean", "-cache", "-testcache"); err != nil {
		return err
	}
	dir := os.Getenv("PRICES_DIR")
	if dir == "" {
		dir = "prices"
	}
	return sh.Rm(dir)
}

// Test runs the test suite verbosely.
func Test() error {
	return sh.RunV("go", "test", "-v", "./...")
}

// UpdateDependencies upgrades dependencies and tidies go.mod and go.sum.
func UpdateDependencies() error {
	if err := sh.RunV("go", "get", "-u", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "mod", "tidy")
}
