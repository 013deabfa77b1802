package tui

import (
	"os"

	"github.com/mattn/go-isatty"
)

// Keys that stop a running program
const (
	KeyCtrlC = "ctrl+c"
	KeyQuit  = "q"
)

// NonInteractiveEnv disables prompts and the progress view when set
const NonInteractiveEnv = "STACKIT_NON_INTERACTIVE"

// IsTTY reports whether stdin and stdout are both terminals and /dev/tty can be opened
func IsTTY() bool {
	if os.Getenv(NonInteractiveEnv) != "" {
		return false
	}
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return false
	}
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
