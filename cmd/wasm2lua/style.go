package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	errorStyle  = plain()
	statusStyle = plain()
)

func init() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return
	}
	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF6B6B")).
		Bold(true)
	statusStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))
}

func plain() lipgloss.Style {
	return lipgloss.NewStyle()
}

// status reports progress on stderr so stdout stays clean for Lua output.
func status(format string, args ...any) {
	fmt.Fprintln(os.Stderr, statusStyle.Render(fmt.Sprintf(format, args...)))
}
