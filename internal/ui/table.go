package ui

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Color constants for consistent styling
const (
	ColorBrightCyan  = "14"
	ColorRed         = "9"
	ColorYellow      = "11"
	ColorGreen       = "10"
	ColorGray        = "7"
	ColorBrightGray  = "8"
	ColorBrightWhite = "15"
)

// Column describes one table column. A zero Width means the column sizes
// itself to its content, bounded by MinWidth and MaxWidth.
type Column struct {
	Title     string
	Key       string
	Width     int
	MinWidth  int
	MaxWidth  int
	Truncate  bool
	StyleFunc func(value string) lipgloss.Style
	Condition bool
}

// Row maps column keys to cell values.
type Row map[string]string

// Table renders rows of key/value data as an aligned, styled text table.
type Table struct {
	columns        []Column
	rows           []Row
	headerStyle    lipgloss.Style
	separatorStyle lipgloss.Style
	maxWidth       int
}

// NewTable creates a table with default styling, sized to the terminal.
func NewTable() *Table {
	return &Table{
		headerStyle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorBrightCyan)).Padding(0, 1),
		separatorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBrightGray)),
		maxWidth:       terminalWidth(),
	}
}

// SetColumns sets the table columns
func (t *Table) SetColumns(columns []Column) *Table {
	t.columns = columns
	return t
}

// SetRows sets the table data
func (t *Table) SetRows(rows []Row) *Table {
	t.rows = rows
	return t
}

// visibleColumns filters out columns whose Condition is false.
func (t *Table) visibleColumns() []Column {
	var visible []Column
	for _, col := range t.columns {
		if col.Condition {
			visible = append(visible, col)
		}
	}
	return visible
}

// columnWidths sizes each visible column: fixed Width wins, otherwise the
// widest cell bounded by MinWidth and MaxWidth, with the remaining terminal
// space split across the flexible columns.
func (t *Table) columnWidths(visible []Column) []int {
	widths := make([]int, len(visible))
	for i, col := range visible {
		if col.Width > 0 {
			widths[i] = col.Width
			continue
		}
		widths[i] = max(runewidth.StringWidth(col.Title), col.MinWidth)
		for _, row := range t.rows {
			widths[i] = max(widths[i], runewidth.StringWidth(row[col.Key]))
		}
	}

	totalFixed := 0
	flexible := 0
	for i, col := range visible {
		if col.MaxWidth > 0 {
			widths[i] = min(widths[i], col.MaxWidth)
		}
		if col.Width > 0 {
			totalFixed += widths[i]
		} else {
			flexible++
		}
	}

	if flexible > 0 && t.maxWidth > 0 {
		padding := len(visible) * 2 // 2 spaces padding per column
		available := t.maxWidth - totalFixed - padding
		if available > 0 {
			perColumn := available / flexible
			for i, col := range visible {
				if col.Width == 0 {
					widths[i] = min(widths[i], perColumn)
				}
			}
		}
	}

	return widths
}

// Render renders the table as a string
func (t *Table) Render() string {
	visible := t.visibleColumns()
	if len(visible) == 0 {
		return ""
	}
	widths := t.columnWidths(visible)

	var sb strings.Builder

	headerCells := make([]string, len(visible))
	for i, col := range visible {
		header := lipgloss.NewStyle().
			Width(widths[i]).
			MaxWidth(widths[i]).
			Inline(true).
			Render(truncateText(col.Title, widths[i]))
		headerCells[i] = t.headerStyle.Render(header)
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, headerCells...))
	sb.WriteString("\n")

	totalWidth := 0
	for _, width := range widths {
		totalWidth += width + 2 // +2 for padding
	}
	sb.WriteString(t.separatorStyle.Render(strings.Repeat("─", totalWidth)))
	sb.WriteString("\n")

	for _, row := range t.rows {
		cells := make([]string, len(visible))
		for i, col := range visible {
			value := row[col.Key]
			if value == "" {
				value = "-"
			}

			cellStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBrightWhite))
			if col.StyleFunc != nil {
				cellStyle = col.StyleFunc(value)
			}

			content := value
			if col.Truncate || runewidth.StringWidth(value) > widths[i] {
				content = truncateText(value, widths[i])
			}

			cell := cellStyle.
				Width(widths[i]).
				MaxWidth(widths[i]).
				Inline(true).
				Render(content)
			cells[i] = lipgloss.NewStyle().Padding(0, 1).Render(cell)
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, cells...))
		sb.WriteString("\n")
	}

	return sb.String()
}

// Print renders and prints the table
func (t *Table) Print() {
	fmt.Print(t.Render())
}

// truncateText truncates text with an ellipsis, respecting display width.
func truncateText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= maxWidth {
		return text
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}
	return runewidth.Truncate(text, maxWidth-1, "…")
}

// terminalWidth returns the current terminal width, or a fallback when
// stdout is not a terminal.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return TableMaxWidth
	}
	return width
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// GetEnvironmentStyle colors an environment name by how careful the reader
// should be with it: production red, staging yellow, development green.
func GetEnvironmentStyle(environment string) lipgloss.Style {
	env := strings.ToLower(environment)
	switch {
	case slices.Contains([]string{"prod", "production"}, env):
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)).Bold(true)
	case slices.Contains([]string{"acc", "acceptance", "staging", "stg"}, env):
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)).Bold(true)
	case slices.Contains([]string{"dev", "development", "test", "testing", "qa", "review"}, env):
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray))
	}
}

// GetStatusStyle colors a component outcome or step status.
func GetStatusStyle(status string) lipgloss.Style {
	statusLower := strings.ToLower(status)
	switch {
	case slices.Contains([]string{"applied", "unchanged", "succeeded", "created", "updated", "ready"}, statusLower):
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)).Bold(true)
	case slices.Contains([]string{"pending", "skipped", "succeeded-with-warnings", "waiting"}, statusLower):
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)).Bold(true)
	case slices.Contains([]string{"failed", "blocked", "timed-out"}, statusLower):
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBrightGray)).Bold(true)
	}
}
