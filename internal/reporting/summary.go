package reporting

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"droidlink/internal/models"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

// AttemptTable renders every connection attempt of a run.
func AttemptTable(attempts []models.Attempt) string {
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		outcome := okStyle.Render("ok")
		if !a.Success {
			outcome = failStyle.Render("failed")
		}
		rows = append(rows, []string{
			a.Timestamp.Format("15:04:05"),
			string(a.Method),
			a.Candidate,
			outcome,
			truncate(a.Err, 60),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("Time", "Method", "Candidate", "Outcome", "Detail").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true)
			}
			return cellStyle
		}).
		Rows(rows...)
	return t.String()
}

// WriteSummary prints the attempt table followed by a one-line verdict.
func WriteSummary(w io.Writer, attempts []models.Attempt, endpoint string) error {
	if len(attempts) > 0 {
		if _, err := fmt.Fprintln(w, AttemptTable(attempts)); err != nil {
			return err
		}
	}
	if endpoint == "" {
		_, err := fmt.Fprintf(w, "%d attempts, no endpoint\n", len(attempts))
		return err
	}
	_, err := fmt.Fprintf(w, "%d attempts, using %s\n", len(attempts), endpoint)
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
