package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// Render formats the summary for the terminal: counts, one line per
// component and a re-run command for each failure.
func (s Summary) Render(binary string) string {
	var b strings.Builder

	action := s.Action
	if action == "" {
		action = "install"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s summary", strings.ToUpper(action[:1])+action[1:])))
	b.WriteString("\n")
	fmt.Fprintf(&b, "total %d, succeeded %d, failed %d, took %s\n",
		s.Total, len(s.Succeeded), len(s.Failed), s.Elapsed.Round(time.Second))

	for _, a := range s.Attempts {
		mark := okStyle.Render("✔")
		if a.Outcome == Failed {
			mark = failStyle.Render("✘")
		}
		fmt.Fprintf(&b, "%s %-10s %s\n", mark, a.Name,
			hintStyle.Render(fmt.Sprintf("%d attempt(s), %s", a.Attempts, a.Elapsed.Round(time.Millisecond))))
	}

	if len(s.Failed) > 0 {
		b.WriteString("\n")
		b.WriteString(failStyle.Render("Failed components can be retried one at a time:"))
		b.WriteString("\n")
		for i, cmd := range s.RerunCommands(binary) {
			fmt.Fprintf(&b, "  %s\n", cmd)
			if err := s.Failed[i].Err; err != nil {
				fmt.Fprintf(&b, "    %s\n", hintStyle.Render(err.Error()))
			}
		}
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
