package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	stackiterrors "stackit.dev/stackcore/internal/errors"
)

const continuationFile = ".stackit_continue"

// ContinuationState represents the state of a command that was interrupted by a rebase conflict
type ContinuationState struct {
	OpID string `json:"opId"`
	Kind string `json:"kind"`

	// RebasedBranch is the branch whose rebase stopped on a conflict
	RebasedBranch string `json:"rebasedBranch"`
	// RebasedBranchParent and RebasedBranchBase are stamped into its metadata once the rebase finishes
	RebasedBranchParent string `json:"rebasedBranchParent"`
	RebasedBranchBase   string `json:"rebasedBranchBase"`

	// BranchesToRestack are processed in order after the rebase finishes
	BranchesToRestack []string `json:"branchesToRestack,omitempty"`

	// Submit hands the stack to submit once restacking completes (cascade)
	Submit bool `json:"submit,omitempty"`

	// CurrentBranchOverride is checked out once the command completes
	CurrentBranchOverride string `json:"currentBranchOverride,omitempty"`
}

func continuationPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", continuationFile)
}

// GetContinuationState reads the continuation state from disk
func GetContinuationState(repoRoot string) (*ContinuationState, error) {
	data, err := os.ReadFile(continuationPath(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, stackiterrors.ErrNoTransaction
		}
		return nil, fmt.Errorf("failed to read continuation state: %w", err)
	}

	var state ContinuationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse continuation state: %w", err)
	}
	return &state, nil
}

// PersistContinuationState writes the continuation state to disk
func PersistContinuationState(repoRoot string, state *ContinuationState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal continuation state: %w", err)
	}
	return os.WriteFile(continuationPath(repoRoot), data, 0600)
}

// ClearContinuationState removes the continuation state file
func ClearContinuationState(repoRoot string) error {
	err := os.Remove(continuationPath(repoRoot))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear continuation state: %w", err)
	}
	return nil
}
