package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// AheadBehind counts the commits separating a branch from its parent.
// Known is false when the backend could not answer; render it as "-".
type AheadBehind struct {
	Ahead  int
	Behind int
	Known  bool
}

// UnknownAheadBehind is the sentinel for a failed query
var UnknownAheadBehind = AheadBehind{}

func (a AheadBehind) String() string {
	if !a.Known {
		return "-"
	}
	return fmt.Sprintf("+%d/-%d", a.Ahead, a.Behind)
}

// AheadBehind returns how many commits branch has that base lacks and vice versa.
// Failures degrade to UnknownAheadBehind.
func (r *Repository) AheadBehind(ctx context.Context, branch, base string) AheadBehind {
	output, err := r.runner.Run(ctx, "rev-list", "--left-right", "--count", base+"..."+branch)
	if err != nil {
		return UnknownAheadBehind
	}
	return parseLeftRightCount(output)
}

func parseLeftRightCount(output string) AheadBehind {
	fields := strings.Fields(output)
	if len(fields) != 2 {
		return UnknownAheadBehind
	}
	behind, err := strconv.Atoi(fields[0])
	if err != nil {
		return UnknownAheadBehind
	}
	ahead, err := strconv.Atoi(fields[1])
	if err != nil {
		return UnknownAheadBehind
	}
	return AheadBehind{Ahead: ahead, Behind: behind, Known: true}
}

// MergeBase returns the best common ancestor of two revisions
func (r *Repository) MergeBase(ctx context.Context, a, b string) (string, error) {
	sha, err := r.runner.Run(ctx, "merge-base", a, b)
	if err != nil {
		return "", fmt.Errorf("failed to find merge base of %s and %s: %w", a, b, err)
	}
	return sha, nil
}

// IsAncestor reports whether ancestor is reachable from descendant
func (r *Repository) IsAncestor(ctx context.Context, ancestor, descendant string) bool {
	_, err := r.runner.Run(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	return err == nil
}

// CommitsBetween lists the commits reachable from head but not from base, oldest first
func (r *Repository) CommitsBetween(ctx context.Context, base, head string) ([]string, error) {
	commits, err := r.runner.RunLines(ctx, "rev-list", "--reverse", base+".."+head)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits %s..%s: %w", base, head, err)
	}
	return commits, nil
}

// CommitSubject returns the first line of a commit message
func (r *Repository) CommitSubject(ctx context.Context, rev string) (string, error) {
	return r.runner.Run(ctx, "log", "-1", "--format=%s", rev)
}

// RevParse resolves a revision to a commit id
func (r *Repository) RevParse(ctx context.Context, rev string) (string, error) {
	sha, err := r.runner.Run(ctx, "rev-parse", "--verify", rev+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	return sha, nil
}
