package prompt

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))
)

func (m ConfirmModel) View() string {
	if m.confirmed || m.aborted {
		return ""
	}
	return fmt.Sprintf("%s\n%s\n", titleStyle.Render(m.question), hintStyle.Render("[Y/n]"))
}

func (m AddressModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	body := titleStyle.Render("Device address") + "\n" + m.input.View() + "\n"
	if m.errMsg != "" {
		body += errorStyle.Render(m.errMsg) + "\n"
	}
	return body + hintStyle.Render("enter to connect, esc to give up") + "\n"
}
