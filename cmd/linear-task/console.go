package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	cGreen  = lipgloss.Color("42")
	cRed    = lipgloss.Color("196")
	cGray   = lipgloss.Color("240")
	cIndigo = lipgloss.Color("62")

	successStyle = lipgloss.NewStyle().Foreground(cGreen).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(cRed).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(cGray)
	headerStyle  = lipgloss.NewStyle().Foreground(cIndigo).Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// consoleNotifier prints issue-creation toasts to the terminal.
type consoleNotifier struct {
	out    io.Writer
	errOut io.Writer
}

func (n consoleNotifier) Success(message string) {
	fmt.Fprintln(n.out, successStyle.Render("✓ "+message))
}

func (n consoleNotifier) Failure(message string) {
	fmt.Fprintln(n.errOut, errorStyle.Render("✗ "+message))
}

// renderTable lays out rows under headers with a rounded border.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// maskKey hides all but the ends of an API key.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
