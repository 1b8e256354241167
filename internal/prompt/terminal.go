// Package prompt holds the interactive questions asked during a run.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrAborted is returned when the user declines or cancels a prompt.
var ErrAborted = errors.New("aborted by user")

// Terminal runs prompts as small bubbletea programs.
type Terminal struct {
	In  io.Reader
	Out io.Writer
	// Validate checks manual address input before it is accepted.
	Validate func(string) error
}

func (t *Terminal) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if t.In != nil {
		opts = append(opts, tea.WithInput(t.In))
	}
	if t.Out != nil {
		opts = append(opts, tea.WithOutput(t.Out))
	}

	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("prompt: %w", err)
	}
	return final, nil
}

// ConfirmUSB asks the user to attach the device by cable.
func (t *Terminal) ConfirmUSB(ctx context.Context) error {
	final, err := t.run(ctx, NewConfirmModel("Connect the device over USB and enable USB debugging. Ready?"))
	if err != nil {
		return err
	}
	if m, ok := final.(ConfirmModel); ok && m.Confirmed() {
		return nil
	}
	return ErrAborted
}

// ManualAddress asks for the device address, pre-filled with suggestion.
func (t *Terminal) ManualAddress(ctx context.Context, suggestion string) (string, error) {
	final, err := t.run(ctx, NewAddressModel(suggestion, t.Validate))
	if err != nil {
		return "", err
	}
	m, ok := final.(AddressModel)
	if !ok || m.Aborted() {
		return "", ErrAborted
	}
	return m.Value(), nil
}
