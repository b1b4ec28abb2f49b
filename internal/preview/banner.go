package preview

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"git.home.luguber.info/inful/margin/internal/version"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	urlStyle   = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("6"))
)

// URL is the address printed for the site root.
func URL(port int, baseDir string) string {
	return fmt.Sprintf("http://localhost:%d%s", port, baseDir)
}

func printBanner(w io.Writer, addrs Addrs, baseDir string) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("The Margin "+version.Resolved()))
	_, _ = fmt.Fprintln(w, "Started a server at "+urlStyle.Render(URL(addrs.HTTP, baseDir)))
	if addrs.Metrics != 0 {
		_, _ = fmt.Fprintf(w, "Metrics at http://localhost:%d/metrics\n", addrs.Metrics)
	}
	_, _ = fmt.Fprintln(w, "Press Ctrl+C to stop")
}
