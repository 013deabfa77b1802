package tui

import (
	"sync"
	"time"
)

// UpdateKind is what happened to a step
type UpdateKind int

// Update kinds
const (
	UpdateStarted UpdateKind = iota
	UpdateCompleted
	UpdateFailed
	UpdateWaiting
)

// ProgressUpdate is one event sent from the merge executor to the progress view
type ProgressUpdate struct {
	Kind        UpdateKind
	StepIndex   int
	Description string
	Error       error
	Elapsed     time.Duration
	Timeout     time.Duration
	// Detail is the readiness text of the pull request being waited on
	Detail string
}

// ChannelMergeProgressReporter forwards merge progress to a channel read by RunMergeTUI
type ChannelMergeProgressReporter struct {
	updates chan ProgressUpdate
	once    sync.Once
}

// NewChannelMergeProgressReporter creates a reporter with a buffered channel
func NewChannelMergeProgressReporter() *ChannelMergeProgressReporter {
	return &ChannelMergeProgressReporter{
		updates: make(chan ProgressUpdate, 100),
	}
}

// Updates returns the channel updates are sent on
func (r *ChannelMergeProgressReporter) Updates() <-chan ProgressUpdate {
	return r.updates
}

// Close closes the channel; later calls do nothing
func (r *ChannelMergeProgressReporter) Close() {
	r.once.Do(func() {
		close(r.updates)
	})
}

// StepStarted implements the merge progress reporter
func (r *ChannelMergeProgressReporter) StepStarted(stepIndex int, description string) {
	r.updates <- ProgressUpdate{Kind: UpdateStarted, StepIndex: stepIndex, Description: description}
}

// StepCompleted implements the merge progress reporter
func (r *ChannelMergeProgressReporter) StepCompleted(stepIndex int) {
	r.updates <- ProgressUpdate{Kind: UpdateCompleted, StepIndex: stepIndex}
}

// StepFailed implements the merge progress reporter
func (r *ChannelMergeProgressReporter) StepFailed(stepIndex int, err error) {
	r.updates <- ProgressUpdate{Kind: UpdateFailed, StepIndex: stepIndex, Error: err}
}

// StepWaiting implements the merge progress reporter. Waiting ticks are
// dropped while the channel is full.
func (r *ChannelMergeProgressReporter) StepWaiting(stepIndex int, elapsed, timeout time.Duration, detail string) {
	select {
	case r.updates <- ProgressUpdate{Kind: UpdateWaiting, StepIndex: stepIndex, Elapsed: elapsed, Timeout: timeout, Detail: detail}:
	default:
	}
}
