// Package errors provides sentinel errors and custom error types for stackit.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrNotOnBranch indicates that HEAD is not on a branch
	ErrNotOnBranch = errors.New("not on a branch")

	// ErrBranchNotFound indicates that a branch (or its metadata) does not exist
	ErrBranchNotFound = errors.New("branch not found")

	// ErrNotTracked indicates that a branch has no stack metadata
	ErrNotTracked = errors.New("branch is not tracked")

	// ErrMissingParent indicates that a branch's recorded parent no longer exists.
	// Callers treat the branch as a direct trunk child.
	ErrMissingParent = errors.New("recorded parent is missing")

	// ErrStore indicates a metadata store I/O failure
	ErrStore = errors.New("metadata store error")

	// ErrCorruptGraph indicates that the parent chain of a branch loops
	ErrCorruptGraph = errors.New("corrupt stack graph")

	// ErrCycle indicates that a requested reparent would introduce a cycle
	ErrCycle = errors.New("move would create a cycle")

	// ErrRebaseConflict indicates that a rebase operation encountered a conflict
	ErrRebaseConflict = errors.New("rebase conflict")

	// ErrRebaseNotInProgress indicates that no rebase is currently in progress
	ErrRebaseNotInProgress = errors.New("no rebase in progress")

	// ErrRebaseInProgress indicates that a rebase must be finished before continuing
	ErrRebaseInProgress = errors.New("a rebase is in progress")

	// ErrTrunkOperation indicates an invalid operation on the trunk branch
	ErrTrunkOperation = errors.New("invalid operation on trunk branch")

	// ErrTransactionOpen indicates that another mutating operation is still open
	ErrTransactionOpen = errors.New("another operation is in progress")

	// ErrNoTransaction indicates that no open operation exists to resume
	ErrNoTransaction = errors.New("no operation in progress")

	// ErrReceiptNotFound indicates that no matching operation receipt exists
	ErrReceiptNotFound = errors.New("operation receipt not found")

	// ErrRedoUnavailable indicates redo was requested without a preceding undo
	ErrRedoUnavailable = errors.New("nothing to redo; redo is only available right after undo")

	// ErrForge indicates a failure talking to the code-review forge
	ErrForge = errors.New("forge error")

	// ErrTimeout indicates that a bounded wait expired
	ErrTimeout = errors.New("timed out")
)

// BranchNotFoundError represents an error when a branch is not found
type BranchNotFoundError struct {
	BranchName string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %s does not exist", e.BranchName)
}

// Is returns true if the target error is ErrBranchNotFound
func (e *BranchNotFoundError) Is(target error) bool {
	return target == ErrBranchNotFound
}

// NewBranchNotFoundError creates a new BranchNotFoundError
func NewBranchNotFoundError(branchName string) *BranchNotFoundError {
	return &BranchNotFoundError{BranchName: branchName}
}

// StoreError wraps an I/O failure of the metadata store
type StoreError struct {
	Op     string
	Branch string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("metadata %s for %s failed: %v", e.Op, e.Branch, e.Err)
}

// Is returns true if the target error is ErrStore
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(op, branch string, err error) *StoreError {
	return &StoreError{Op: op, Branch: branch, Err: err}
}

// CorruptGraphError reports a parent chain that revisits a branch
type CorruptGraphError struct {
	Branch string
	Chain  []string
}

func (e *CorruptGraphError) Error() string {
	return fmt.Sprintf("corrupt stack graph: parent chain of %s loops (%s)", e.Branch, strings.Join(e.Chain, " -> "))
}

// Is returns true if the target error is ErrCorruptGraph
func (e *CorruptGraphError) Is(target error) bool {
	return target == ErrCorruptGraph
}

// NewCorruptGraphError creates a new CorruptGraphError
func NewCorruptGraphError(branch string, chain []string) *CorruptGraphError {
	return &CorruptGraphError{Branch: branch, Chain: chain}
}

// CycleError reports a move that would make a branch its own ancestor
type CycleError struct {
	Branch    string
	NewParent string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cannot move %s onto %s: %s is a descendant of %s", e.Branch, e.NewParent, e.NewParent, e.Branch)
}

// Is returns true if the target error is ErrCycle
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// RebaseConflictError represents an error when a rebase encounters a conflict
type RebaseConflictError struct {
	BranchName string
	Message    string
}

func (e *RebaseConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rebase conflict on branch %s: %s", e.BranchName, e.Message)
	}
	return fmt.Sprintf("rebase conflict on branch %s", e.BranchName)
}

// Is returns true if the target error is ErrRebaseConflict
func (e *RebaseConflictError) Is(target error) bool {
	return target == ErrRebaseConflict
}

// NewRebaseConflictError creates a new RebaseConflictError
func NewRebaseConflictError(branchName string, message string) *RebaseConflictError {
	return &RebaseConflictError{
		BranchName: branchName,
		Message:    message,
	}
}

// TransactionOpenError is returned when an operation begins while another is open
type TransactionOpenError struct {
	OpID string
	Kind string
}

func (e *TransactionOpenError) Error() string {
	if e.OpID == "" {
		return "another stackit operation is in progress"
	}
	return fmt.Sprintf("operation %s (%s) is still in progress; run 'stackit continue' to finish it or 'stackit abort' to roll it back", e.OpID, e.Kind)
}

// Is returns true if the target error is ErrTransactionOpen
func (e *TransactionOpenError) Is(target error) bool {
	return target == ErrTransactionOpen
}

// ForgeError wraps a failed forge call. Timeout marks a bounded wait that expired.
type ForgeError struct {
	Op      string
	PR      int
	Timeout bool
	Err     error
}

func (e *ForgeError) Error() string {
	subject := e.Op
	if e.PR > 0 {
		subject = fmt.Sprintf("%s (PR #%d)", e.Op, e.PR)
	}
	if e.Timeout {
		return fmt.Sprintf("%s timed out: %v", subject, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", subject, e.Err)
}

// Is matches ErrForge, and ErrTimeout for timeouts
func (e *ForgeError) Is(target error) bool {
	if target == ErrForge {
		return true
	}
	return e.Timeout && target == ErrTimeout
}

func (e *ForgeError) Unwrap() error {
	return e.Err
}

// NewForgeError creates a new ForgeError
func NewForgeError(op string, pr int, err error) *ForgeError {
	return &ForgeError{Op: op, PR: pr, Err: err}
}

// NewForgeTimeoutError creates a ForgeError for an expired wait
func NewForgeTimeoutError(op string, pr int, err error) *ForgeError {
	return &ForgeError{Op: op, PR: pr, Timeout: true, Err: err}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
