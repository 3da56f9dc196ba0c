//go:build tools
// +build tools

// Package tools declares tool dependencies for this module.
//
// These imports are not used at runtime. They exist solely to ensure that
// Go-based tools (invoked via `go generate`, e.g. mockgen for the mocks of
// contract/contract.go) are tracked as explicit module dependencies.
//
// This makes tooling reproducible, keeps go.mod / go.sum in sync,
// and prevents "missing go.sum entry" errors when running `go generate`
// on a fresh checkout or in CI.
//
// The build tag keeps this file out of every regular build, so the package
// name only has to be a valid identifier for the module root.
package guild_chat

import (
	_ "go.uber.org/mock/mockgen"
)
