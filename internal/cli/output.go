package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var (
	HeadingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	MutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	OKStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	WarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	bodyCell   = lipgloss.NewStyle().Padding(0, 1)
)

// Table renders rows under headers with a rounded border.
func Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(MutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return bodyCell
		}).
		String()
}

// Hours formats an hour figure without trailing zeros.
func Hours(h float64) string {
	return humanize.FtoaWithDigits(h, 2) + "h"
}

// Percent formats a percentage rounded to a whole number.
func Percent(p float64) string {
	return fmt.Sprintf("%.0f%%", p)
}
