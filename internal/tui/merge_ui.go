package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MergeGroup is a set of steps shown as one line, usually one pull request
type MergeGroup struct {
	Label       string
	StepIndices []int
}

// StepStatus is the display state of a step
type StepStatus int

// Step statuses
const (
	StepPending StepStatus = iota
	StepRunning
	StepWaiting
	StepDone
	StepFailed
)

// MergeStepItem is one executor step as the view knows it
type MergeStepItem struct {
	Description string
	Status      StepStatus
	Error       error
	WaitElapsed time.Duration
	WaitTimeout time.Duration
	WaitDetail  string
}

// StepUpdateMsg changes the status of a step
type StepUpdateMsg struct {
	StepIndex   int
	Status      StepStatus
	Description string
	Error       error
}

// StepWaitUpdateMsg refreshes the timer of a waiting step
type StepWaitUpdateMsg struct {
	StepIndex int
	Elapsed   time.Duration
	Timeout   time.Duration
	Detail    string
}

type mergeStyles struct {
	spinner lipgloss.Style
	done    lipgloss.Style
	failed  lipgloss.Style
	wait    lipgloss.Style
	dim     lipgloss.Style
	time    lipgloss.Style
}

func newMergeStyles() mergeStyles {
	return mergeStyles{
		spinner: lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		done:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		wait:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		time:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// MergeTUIModel is the bubbletea model of the merge progress view
type MergeTUIModel struct {
	groups   []MergeGroup
	steps    []MergeStepItem
	spinner  spinner.Model
	styles   mergeStyles
	done     bool
	quitting bool
	updates  <-chan ProgressUpdate
}

// NewMergeTUIModel creates the view for the given steps. Without groups every
// step gets its own line.
func NewMergeTUIModel(groups []MergeGroup, stepDescriptions []string) MergeTUIModel {
	styles := newMergeStyles()
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.spinner

	steps := make([]MergeStepItem, len(stepDescriptions))
	for i, desc := range stepDescriptions {
		steps[i] = MergeStepItem{Description: desc}
	}
	if len(groups) == 0 {
		for i, desc := range stepDescriptions {
			groups = append(groups, MergeGroup{Label: desc, StepIndices: []int{i}})
		}
	}

	return MergeTUIModel{
		groups:  groups,
		steps:   steps,
		spinner: s,
		styles:  styles,
	}
}

// Init starts the spinner and the update poll
func (m MergeTUIModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.checkForUpdates())
}

// checkForUpdates turns the next channel update into a message; a closed channel quits
func (m MergeTUIModel) checkForUpdates() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		select {
		case update, ok := <-m.updates:
			if !ok {
				return tea.Quit()
			}
			return updateMsg(update)
		default:
			return nil
		}
	})
}

func updateMsg(update ProgressUpdate) tea.Msg {
	switch update.Kind {
	case UpdateStarted:
		return StepUpdateMsg{StepIndex: update.StepIndex, Status: StepRunning, Description: update.Description}
	case UpdateCompleted:
		return StepUpdateMsg{StepIndex: update.StepIndex, Status: StepDone}
	case UpdateFailed:
		return StepUpdateMsg{StepIndex: update.StepIndex, Status: StepFailed, Error: update.Error}
	default:
		return StepWaitUpdateMsg{
			StepIndex: update.StepIndex,
			Elapsed:   update.Elapsed,
			Timeout:   update.Timeout,
			Detail:    update.Detail,
		}
	}
}

// Update handles key presses, spinner ticks and step updates
func (m MergeTUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == KeyCtrlC || msg.String() == KeyQuit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, tea.Batch(cmd, m.checkForUpdates())

	case StepUpdateMsg:
		if msg.StepIndex >= 0 && msg.StepIndex < len(m.steps) {
			step := &m.steps[msg.StepIndex]
			step.Status = msg.Status
			if msg.Description != "" {
				step.Description = msg.Description
			}
			if msg.Error != nil {
				step.Error = msg.Error
			}
			m.done = msg.Status == StepFailed || m.allDone()
		}
		return m, m.checkForUpdates()

	case StepWaitUpdateMsg:
		if msg.StepIndex >= 0 && msg.StepIndex < len(m.steps) {
			step := &m.steps[msg.StepIndex]
			step.Status = StepWaiting
			step.WaitElapsed = msg.Elapsed
			step.WaitTimeout = msg.Timeout
			step.WaitDetail = msg.Detail
		}
		return m, m.checkForUpdates()
	}
	return m, nil
}

func (m MergeTUIModel) allDone() bool {
	for _, step := range m.steps {
		if step.Status != StepDone {
			return false
		}
	}
	return true
}

// groupStatus folds the statuses of a group's steps, returning the active or failed step
func (m MergeTUIModel) groupStatus(group MergeGroup) (StepStatus, *MergeStepItem) {
	allDone, allPending := true, true
	var active *MergeStepItem
	for _, idx := range group.StepIndices {
		step := &m.steps[idx]
		switch step.Status {
		case StepFailed:
			return StepFailed, step
		case StepRunning, StepWaiting:
			if active == nil {
				active = step
			}
		}
		if step.Status != StepDone {
			allDone = false
		}
		if step.Status != StepPending {
			allPending = false
		}
	}
	switch {
	case allDone:
		return StepDone, nil
	case allPending:
		return StepPending, nil
	default:
		return StepRunning, active
	}
}

// View renders one line per group and a summary once finished
func (m MergeTUIModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nMerge progress:\n\n")

	for i, group := range m.groups {
		status, step := m.groupStatus(group)
		var icon, text string
		switch status {
		case StepPending:
			icon = m.styles.dim.Render("○")
			text = m.styles.dim.Render("pending")
		case StepRunning:
			icon = m.spinner.View()
			text = m.activeText(step)
		case StepDone:
			icon = m.styles.done.Render("✓")
			text = m.styles.done.Render("done")
		case StepFailed:
			icon = m.styles.failed.Render("✗")
			text = m.styles.failed.Render("failed")
			if step.Error != nil {
				text += " " + m.styles.failed.Render("→ "+step.Error.Error())
			}
		}
		fmt.Fprintf(&b, "  %s %d. %s %s\n", icon, i+1, group.Label, text)
	}

	if m.done {
		completed, failed := 0, 0
		for _, group := range m.groups {
			switch status, _ := m.groupStatus(group); status {
			case StepDone:
				completed++
			case StepFailed:
				failed++
			}
		}
		b.WriteString("\n")
		if failed > 0 {
			b.WriteString(m.styles.failed.Render(fmt.Sprintf("Completed: %d, Failed: %d", completed, failed)))
		} else {
			b.WriteString(m.styles.done.Render(fmt.Sprintf("✓ All %d steps completed", completed)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m MergeTUIModel) activeText(step *MergeStepItem) string {
	if step == nil {
		return m.styles.spinner.Render("running...")
	}
	if step.Status == StepWaiting {
		detail := step.WaitDetail
		if detail == "" {
			detail = "Waiting"
		}
		timer := fmt.Sprintf("(%v / %v)", step.WaitElapsed.Round(time.Second), step.WaitTimeout.Round(time.Second))
		return m.styles.wait.Render(detail+"...") + " " + m.styles.time.Render(timer)
	}
	return m.styles.spinner.Render(step.Description + "...")
}

// RunMergeTUI runs the progress view until updates is closed, then signals done
func RunMergeTUI(groups []MergeGroup, stepDescriptions []string, updates <-chan ProgressUpdate, done chan<- bool) error {
	m := NewMergeTUIModel(groups, stepDescriptions)
	m.updates = updates

	program := tea.NewProgram(m, tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	_, err := program.Run()

	if done != nil {
		select {
		case done <- true:
		default:
		}
	}
	return err
}
