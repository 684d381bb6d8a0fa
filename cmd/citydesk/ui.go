package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"citydesk/internal/form"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

var (
	successColor = lipgloss.Color("#04B575")
	warningColor = lipgloss.Color("#F5A623")
	mutedColor   = lipgloss.Color("244")

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// newTable returns a rounded table with a bold header row.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// styledNotifier renders notifications as single-line toasts.
type styledNotifier struct {
	out     io.Writer
	title   map[form.Severity]lipgloss.Style
	message lipgloss.Style
}

func newStyledNotifier(out io.Writer) *styledNotifier {
	return &styledNotifier{
		out: out,
		title: map[form.Severity]lipgloss.Style{
			form.SeveritySuccess: lipgloss.NewStyle().Bold(true).Foreground(successColor),
			form.SeverityWarning: lipgloss.NewStyle().Bold(true).Foreground(warningColor),
		},
		message: lipgloss.NewStyle().Foreground(mutedColor),
	}
}

func (n *styledNotifier) Notify(severity form.Severity, title, detail string) {
	style, ok := n.title[severity]
	if !ok {
		style = lipgloss.NewStyle().Bold(true)
	}
	fmt.Fprintf(n.out, "%s %s\n", style.Render("["+title+"]"), n.message.Render(detail))
}

// promptConfirmer asks a y/N question on the shared input. Anything but an
// explicit yes, including end of input, declines.
type promptConfirmer struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p promptConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(p.out, "%s [s/N] ", message)
	if !p.in.Scan() {
		return false, p.in.Err()
	}
	switch strings.ToLower(strings.TrimSpace(p.in.Text())) {
	case "s", "sim", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
