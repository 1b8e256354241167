package prompt

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ConfirmModel asks a yes/no question. Enter counts as yes.
type ConfirmModel struct {
	question  string
	confirmed bool
	aborted   bool
}

func NewConfirmModel(question string) ConfirmModel {
	return ConfirmModel{question: question}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Confirmed reports the answer once the program has finished.
func (m ConfirmModel) Confirmed() bool {
	return m.confirmed && !m.aborted
}

// AddressModel collects an address in a single text field.
type AddressModel struct {
	input    textinput.Model
	validate func(string) error
	errMsg   string
	value    string
	done     bool
	aborted  bool
}

func NewAddressModel(suggestion string, validate func(string) error) AddressModel {
	ti := textinput.New()
	ti.Placeholder = "192.168.1.42 or 192.168.1.42:5555"
	ti.CharLimit = 64
	ti.Width = 40
	ti.SetValue(suggestion)
	ti.Focus()

	return AddressModel{
		input:    ti,
		validate: validate,
	}
}

func (m AddressModel) Init() tea.Cmd {
	return textinput.Blink
}

// Value returns the submitted text, empty if the prompt was aborted.
func (m AddressModel) Value() string {
	if m.aborted {
		return ""
	}
	return m.value
}

// Aborted reports whether the user cancelled instead of submitting.
func (m AddressModel) Aborted() bool {
	return m.aborted
}
