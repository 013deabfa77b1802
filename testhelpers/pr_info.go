package testhelpers

import (
	"stackit.dev/stackcore/internal/engine"
)

// NewTestPRRef creates an open GitHub PR reference targeting base
func NewTestPRRef(number int, base string) *engine.PRRef {
	return &engine.PRRef{Number: number, State: "OPEN", Provider: "github", Base: base}
}

// NewTestPRRefWithState creates a PR reference in a specific state
func NewTestPRRefWithState(number int, base, state string) *engine.PRRef {
	ref := NewTestPRRef(number, base)
	ref.State = state
	return ref
}
