package testhelpers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/github"
)

// FakePR is a pull request held by FakeForge
type FakePR struct {
	Number    int
	Head      string
	Base      string
	Title     string
	State     github.PRState
	CI        github.CIStatus
	Draft     bool
	Conflicts bool
	// PendingPolls reports CI as pending for this many status calls before CI applies
	PendingPolls int
}

// FakeForge is an in-memory github.Client for tests
type FakeForge struct {
	mu     sync.Mutex
	prs    map[int]*FakePR
	next   int
	calls  []string
	failOn map[string]error

	// OnMerge runs when a PR is merged, before it is marked merged; an error rejects the merge
	OnMerge func(pr *FakePR, method github.MergeMethod) error
}

var _ github.Client = (*FakeForge)(nil)

// NewFakeForge creates an empty fake forge
func NewFakeForge() *FakeForge {
	return &FakeForge{prs: map[int]*FakePR{}, next: 1, failOn: map[string]error{}}
}

// AddPR registers an open pull request with passing CI
func (f *FakeForge) AddPR(number int, head, base string) *FakePR {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr := &FakePR{Number: number, Head: head, Base: base, Title: head, State: github.PRStateOpen, CI: github.CISuccess}
	f.prs[number] = pr
	if number >= f.next {
		f.next = number + 1
	}
	return pr
}

// PR returns a copy of pull request number
func (f *FakeForge) PR(number int) FakePR {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pr, ok := f.prs[number]; ok {
		return *pr
	}
	return FakePR{}
}

// SetCI changes the CI result of a pull request
func (f *FakeForge) SetCI(number int, ci github.CIStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prs[number].CI = ci
}

// FailOn makes every call named op ("merge", "status", "base", "create", "find")
// on PR number fail with err; number 0 matches any PR
func (f *FakeForge) FailOn(op string, number int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[fmt.Sprintf("%s#%d", op, number)] = err
}

// Calls returns the calls made so far, e.g. "merge #1 squash"
func (f *FakeForge) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func (f *FakeForge) record(op string, number int, detail string) error {
	call := fmt.Sprintf("%s #%d", op, number)
	if detail != "" {
		call += " " + detail
	}
	f.calls = append(f.calls, call)
	if err, ok := f.failOn[fmt.Sprintf("%s#%d", op, number)]; ok {
		return stackiterrors.NewForgeError(op, number, err)
	}
	if err, ok := f.failOn[op+"#0"]; ok {
		return stackiterrors.NewForgeError(op, number, err)
	}
	return nil
}

func (f *FakeForge) lookup(op string, number int) (*FakePR, error) {
	pr, ok := f.prs[number]
	if !ok {
		return nil, stackiterrors.NewForgeError(op, number, errors.New("not found"))
	}
	return pr, nil
}

// GetPRStatus implements github.Client
func (f *FakeForge) GetPRStatus(_ context.Context, number int) (*github.PRStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("status", number, ""); err != nil {
		return nil, err
	}
	pr, err := f.lookup("status", number)
	if err != nil {
		return nil, err
	}
	ci := pr.CI
	if pr.PendingPolls > 0 {
		pr.PendingPolls--
		ci = github.CIPending
	}
	return &github.PRStatus{
		Number:    number,
		State:     pr.State,
		CI:        ci,
		Mergeable: !pr.Conflicts,
		Draft:     pr.Draft,
		Base:      pr.Base,
	}, nil
}

// MergePR implements github.Client
func (f *FakeForge) MergePR(_ context.Context, number int, method github.MergeMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("merge", number, string(method)); err != nil {
		return err
	}
	pr, err := f.lookup("merge", number)
	if err != nil {
		return err
	}
	if pr.State != github.PRStateOpen {
		return stackiterrors.NewForgeError("merge", number, fmt.Errorf("pull request is %s", pr.State))
	}
	if f.OnMerge != nil {
		if err := f.OnMerge(pr, method); err != nil {
			return stackiterrors.NewForgeError("merge", number, err)
		}
	}
	pr.State = github.PRStateMerged
	return nil
}

// UpdatePRBase implements github.Client
func (f *FakeForge) UpdatePRBase(_ context.Context, number int, base string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("base", number, base); err != nil {
		return err
	}
	pr, err := f.lookup("base", number)
	if err != nil {
		return err
	}
	pr.Base = base
	return nil
}

// CreateOrUpdatePR implements github.Client
func (f *FakeForge) CreateOrUpdatePR(_ context.Context, head, base, title string) (*github.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pr := f.newestFor(head); pr != nil && pr.State == github.PRStateOpen {
		if err := f.record("base", pr.Number, base); err != nil {
			return nil, err
		}
		pr.Base = base
		return toPullRequest(pr), nil
	}

	number := f.next
	if err := f.record("create", number, head+"->"+base); err != nil {
		return nil, err
	}
	f.next++
	pr := &FakePR{Number: number, Head: head, Base: base, Title: title, State: github.PRStateOpen, CI: github.CISuccess}
	f.prs[number] = pr
	return toPullRequest(pr), nil
}

// FindPRForBranch implements github.Client
func (f *FakeForge) FindPRForBranch(_ context.Context, branch string) (*github.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("find", 0, branch); err != nil {
		return nil, err
	}
	if pr := f.newestFor(branch); pr != nil {
		return toPullRequest(pr), nil
	}
	return nil, nil
}

func (f *FakeForge) newestFor(head string) *FakePR {
	numbers := make([]int, 0, len(f.prs))
	for n, pr := range f.prs {
		if pr.Head == head {
			numbers = append(numbers, n)
		}
	}
	if len(numbers) == 0 {
		return nil
	}
	sort.Ints(numbers)
	return f.prs[numbers[len(numbers)-1]]
}

func toPullRequest(pr *FakePR) *github.PullRequest {
	return &github.PullRequest{
		Number: pr.Number,
		State:  pr.State,
		Title:  pr.Title,
		Head:   pr.Head,
		Base:   pr.Base,
		URL:    fmt.Sprintf("https://github.com/owner/repo/pull/%d", pr.Number),
	}
}
