// Package actions provides the operations behind stackit's commands.
//
// Each action takes a runtime.Context and orchestrates the engine, the
// transaction manager and the forge. Mutating actions run inside one ops
// transaction: branches are snapshotted before they change, and the
// transaction is either committed into a receipt, kept open across a rebase
// conflict until continue or abort, or rolled back.
//
// The merge cascade is split into planning (merge_plan.go), execution
// (merge_execute.go) and the action driving both (merge.go).
package actions
