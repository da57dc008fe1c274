//go:build debug

// Package assert checks internal invariants in debug builds.
package assert

import "fmt"

// Invariant panics when ok is false. It guards conditions the code itself
// establishes, never caller input.
//
// Examples:
//
//	assert.Invariant(cfg.VerifyConnection != nil, "policies must own verification")
//	assert.Invariant(len(TrustAll{}.AcceptedIssuers()) == 0, "trust-all advertises no issuers")
func Invariant(ok bool, msg string) {
	if !ok {
		panic(fmt.Sprintf("INVARIANT VIOLATION: %s", msg))
	}
}
