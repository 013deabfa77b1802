package tui

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

// ErrInteractiveDisabled is returned by prompts when there is no terminal to ask on
var ErrInteractiveDisabled = errors.New("interactive prompts are disabled; pass --yes to proceed")

// PromptConfirm asks a yes/no question
func PromptConfirm(message string, defaultValue bool) (bool, error) {
	if !IsTTY() {
		return false, ErrInteractiveDisabled
	}
	confirmed := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, fmt.Errorf("canceled: %w", err)
	}
	return confirmed, nil
}

// PromptInput asks for a line of text; validate may reject the answer
func PromptInput(message, defaultValue string, validate func(string) error) (string, error) {
	if !IsTTY() {
		return "", ErrInteractiveDisabled
	}
	var answer string
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	var opts []survey.AskOpt
	if validate != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return validate(s)
		}))
	}
	if err := survey.AskOne(prompt, &answer, opts...); err != nil {
		return "", fmt.Errorf("canceled: %w", err)
	}
	return answer, nil
}
