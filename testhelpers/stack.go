package testhelpers

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// WriteMetadata writes stack metadata for branch the way stackit stores it.
// A prNumber of zero leaves the PR reference out.
func (r *GitRepo) WriteMetadata(branch, parent, parentRevision string, prNumber int) error {
	meta := map[string]any{
		"parentBranchName":     parent,
		"parentBranchRevision": parentRevision,
	}
	if prNumber > 0 {
		meta["prInfo"] = map[string]any{
			"number":   prNumber,
			"state":    "OPEN",
			"provider": "github",
			"base":     parent,
		}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	cmd := exec.Command("git", "hash-object", "-w", "--stdin")
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null")
	cmd.Stdin = strings.NewReader(string(data))
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to write metadata blob: %w", err)
	}
	return r.runGitCommand("update-ref", "refs/stackit/metadata/"+branch, strings.TrimSpace(string(out)))
}

// CreateStackedBranch creates branch on top of parent with one commit and
// tracks it with parent's current head as the stamped revision
func (r *GitRepo) CreateStackedBranch(branch, parent string) error {
	if err := r.CheckoutBranch(parent); err != nil {
		return err
	}
	if err := r.CreateAndCheckoutBranch(branch); err != nil {
		return err
	}
	if err := r.CreateChangeAndCommit(branch, branch); err != nil {
		return err
	}
	parentRev, err := r.GetRevision(parent)
	if err != nil {
		return err
	}
	return r.WriteMetadata(branch, parent, parentRev, 0)
}

// StackSetup returns a setup that commits once on main and then creates
// stacked branches from name/parent pairs, in order
func StackSetup(pairs ...string) SceneSetup {
	return func(scene *Scene) error {
		if err := BasicSceneSetup(scene); err != nil {
			return err
		}
		for i := 0; i+1 < len(pairs); i += 2 {
			if err := scene.Repo.CreateStackedBranch(pairs[i], pairs[i+1]); err != nil {
				return err
			}
		}
		return nil
	}
}

// AdvanceBranch checks out branch and adds a commit touching file prefix
func (r *GitRepo) AdvanceBranch(branch, message, prefix string) error {
	if err := r.CheckoutBranch(branch); err != nil {
		return err
	}
	return r.CreateChangeAndCommit(message, prefix)
}

// PushStack creates a bare remote named origin and pushes every given branch to it
func (r *GitRepo) PushStack(branches ...string) (string, error) {
	bareDir, err := r.CreateBareRemote("origin")
	if err != nil {
		return "", err
	}
	for _, branch := range branches {
		if err := r.PushBranch("origin", branch); err != nil {
			return "", err
		}
	}
	return bareDir, nil
}

// SquashMergeOnRemote lands branch on the remote trunk as one commit with
// branch's tree, the way a forge squash merge does for an up-to-date PR
func (r *GitRepo) SquashMergeOnRemote(remote, branch, trunk string) error {
	if err := r.runGitCommand("fetch", "--quiet", remote, trunk); err != nil {
		return err
	}
	tree, err := r.RunGitCommandAndGetOutput("rev-parse", branch+"^{tree}")
	if err != nil {
		return err
	}
	parent, err := r.RunGitCommandAndGetOutput("rev-parse", remote+"/"+trunk)
	if err != nil {
		return err
	}
	commit, err := r.RunGitCommandAndGetOutput("commit-tree", tree, "-p", parent, "-m", "Squash merge "+branch)
	if err != nil {
		return err
	}
	return r.runGitCommand("push", "--quiet", remote, commit+":refs/heads/"+trunk)
}
