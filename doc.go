// Package main provides the pkpass CLI tool for building and signing
// wallet passes.
//
// For the library API, see the passkit subpackage:
//
//	import "github.com/aluedeke/go-pkpass/pkg/passkit"
//
// # Installation
//
// Install the CLI:
//
//	go install github.com/aluedeke/go-pkpass@latest
package main
