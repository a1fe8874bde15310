//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "bulkimagen"

// Default target to run when none is specified
var Default = Build

// Build compiles the bulkimagen binary
func Build() error {
	fmt.Println("Building", binary)
	return sh.RunV("go", "build", "-o", binary, "./cmd/bulkimagen")
}

// Test runs all unit tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Lint runs go vet over every package
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Install builds and installs bulkimagen into $GOPATH/bin
func Install() error {
	mg.Deps(Test)
	return sh.RunV("go", "install", "./cmd/bulkimagen")
}

// Clean removes build artifacts
func Clean() error {
	return os.RemoveAll(binary)
}
