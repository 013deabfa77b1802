// Package tui holds the interactive terminal pieces of stackit: the merge
// progress view (bubbletea), the channel reporter that feeds it, terminal
// detection and survey-based prompts.
package tui
