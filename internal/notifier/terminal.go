package notifier

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/phaseplan/internal/constants"
)

var (
	titleStyles = map[constants.NotificationVariant]lipgloss.Style{
		constants.NotifyDefault:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		constants.NotifySuccess:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		constants.NotifyDestructive: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
	descriptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).PaddingLeft(2)
)

// Terminal prints notifications to a writer, styled by variant.
type Terminal struct {
	w io.Writer
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) Notify(_ context.Context, n Notification) error {
	style, ok := titleStyles[n.Variant]
	if !ok {
		style = titleStyles[constants.NotifyDefault]
	}

	if _, err := fmt.Fprintln(t.w, style.Render(n.Title)); err != nil {
		return err
	}
	if n.Description != "" {
		if _, err := fmt.Fprintln(t.w, descriptionStyle.Render(n.Description)); err != nil {
			return err
		}
	}
	return nil
}
