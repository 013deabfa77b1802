// Package ops records mutating stackit operations so they can be undone and redone.
//
// Every mutation runs inside a transaction: branch heads and metadata blobs are
// pinned under backup refs before anything moves, and a receipt describing the
// prior and new state of every touched branch is written when the operation
// commits. Receipts live as JSON files next to the metadata, not as refs.
package ops

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"stackit.dev/stackcore/internal/git"
)

// Kind names the operation that produced a receipt
type Kind string

// Operation kinds
const (
	KindRestack  Kind = "restack"
	KindCascade  Kind = "cascade"
	KindSubmit   Kind = "submit"
	KindMerge    Kind = "merge"
	KindReparent Kind = "reparent"
	KindSplit    Kind = "split"
	KindTrack    Kind = "track"
	KindUntrack  Kind = "untrack"
	KindUndo     Kind = "undo"
	KindRedo     Kind = "redo"
)

// Entry is the before/after state of one branch touched by an operation.
// Empty revisions mean the branch (or its metadata) did not exist.
type Entry struct {
	Branch              string `json:"branch"`
	PriorRevision       string `json:"prior_revision"`
	NewRevision         string `json:"new_revision"`
	PriorMetadata       string `json:"prior_metadata,omitempty"`
	NewMetadata         string `json:"new_metadata,omitempty"`
	ForcePushed         bool   `json:"force_pushed"`
	Remote              string `json:"remote,omitempty"`
	RemotePriorRevision string `json:"remote_prior_revision,omitempty"`
}

// Receipt records a committed operation
type Receipt struct {
	OpID             string    `json:"op_id"`
	Kind             Kind      `json:"kind"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at,omitzero"`
	Trunk            string    `json:"trunk"`
	HeadBranchBefore string    `json:"head_branch_before,omitempty"`
	Summary          string    `json:"summary,omitempty"`
	Entries          []Entry   `json:"entries"`
	Undone           bool      `json:"undone"`
}

// Entry returns the entry for branch, or nil
func (r *Receipt) Entry(branch string) *Entry {
	for i := range r.Entries {
		if r.Entries[i].Branch == branch {
			return &r.Entries[i]
		}
	}
	return nil
}

// Branches returns the touched branch names in entry order
func (r *Receipt) Branches() []string {
	names := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		names = append(names, e.Branch)
	}
	return names
}

// newOpID returns an id of the form 20250102T150405Z-a1b2c3
func newOpID(now time.Time) string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return now.UTC().Format("20060102T150405Z") + "-" + hex.EncodeToString(buf)
}

// BackupHeadRef is the ref pinning a branch's head from before opID ran
func BackupHeadRef(opID, branch string) string {
	return git.BackupRefPrefix + opID + "/heads/" + branch
}

// BackupMetaRef is the ref pinning a branch's metadata blob from before opID ran
func BackupMetaRef(opID, branch string) string {
	return git.BackupRefPrefix + opID + "/meta/" + branch
}

func redoHeadRef(opID, branch string) string {
	return git.RedoRefPrefix + opID + "/heads/" + branch
}

func redoMetaRef(opID, branch string) string {
	return git.RedoRefPrefix + opID + "/meta/" + branch
}
