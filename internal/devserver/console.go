package devserver

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	redirectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// console prints the operator facing request log.
type console struct {
	out io.Writer
}

func (c console) response(status int, target string) {
	if c.out == nil {
		return
	}
	tag := "[" + strconv.Itoa(status) + "]"
	if status >= 200 && status < 300 {
		tag = okStyle.Render(tag)
	} else {
		tag = errStyle.Render(tag)
	}
	_, _ = fmt.Fprintln(c.out, tag+dimStyle.Render(" "+target))
}

func (c console) redirect(from, to string) {
	if c.out == nil {
		return
	}
	_, _ = fmt.Fprintln(c.out, redirectStyle.Render("[302]")+dimStyle.Render(" "+from+" -> "+to))
}

func (c console) outsideBase(target string) {
	if c.out == nil {
		return
	}
	_, _ = fmt.Fprintln(c.out, errStyle.Render("[404] "+target+" (warning: link outside of site, base dir is likely misconfigured)"))
}
