package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/matzehuels/tiledgallery/pkg/layout"
	"github.com/matzehuels/tiledgallery/pkg/metrics"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand  = lipgloss.NewStyle().Foreground(colorBlue)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Printer
// =============================================================================

// printer writes styled status lines. Commands print to cmd.OutOrStdout()
// so tests can capture output.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) printer { return printer{w: w} }

func (p printer) line(s string) { fmt.Fprintln(p.w, s) }

func (p printer) success(format string, args ...any) {
	p.line(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func (p printer) error(format string, args ...any) {
	p.line(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func (p printer) warning(format string, args ...any) {
	p.line(styleIconWarning.Render(iconWarning) + " " + styleWarning.Render(fmt.Sprintf(format, args...)))
}

func (p printer) info(format string, args ...any) {
	p.line(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

func (p printer) detail(format string, args ...any) {
	p.line("  " + styleDim.Render(fmt.Sprintf(format, args...)))
}

func (p printer) file(path string) {
	p.line("  " + styleDim.Render(iconArrow) + " " + styleValue.Render(path))
}

func (p printer) keyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	p.line(keyStyle.Render(key) + " " + styleValue.Render(value))
}

func (p printer) nextStep(description, cmd string) {
	p.line(styleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func (p printer) newline() { p.line("") }

// stats prints layout statistics on a single line.
func (p printer) stats(l layout.Layout, cached bool) {
	parts := []string{
		fmt.Sprintf("%d images", l.Metadata.ImageCount),
		fmt.Sprintf("%d rows", len(l.Rows)),
		fmt.Sprintf("%.0fpx tall", l.TotalHeight),
	}
	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}

	var b strings.Builder
	b.WriteString("  ")
	for i, part := range parts {
		if i > 0 {
			b.WriteString(styleDim.Render(" · "))
		}
		b.WriteString(styleDim.Render(part))
	}
	b.WriteString(styleDim.Render(" · ") + statusStyle.Render(status))
	p.line(b.String())
}

// =============================================================================
// Tables
// =============================================================================

// headerRow is the row index lipgloss tables pass for the header.
const headerRow = -1

// rowTable renders one line per layout row.
func rowTable(l layout.Layout) string {
	rows := make([][]string, 0, len(l.Rows))
	for _, r := range l.Rows {
		ids := make([]string, len(r.Tiles))
		for i, t := range r.Tiles {
			ids[i] = t.ID
		}
		complete := "yes"
		if !r.Complete {
			complete = "partial"
		}
		rows = append(rows, []string{
			fmt.Sprint(r.Index),
			fmt.Sprintf("%.0f", rowY(r)),
			fmt.Sprintf("%.1f", r.Height),
			fmt.Sprint(len(r.Tiles)),
			complete,
			strings.Join(ids, " "),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Row", "Y", "Height", "Tiles", "Full", "Images").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return styleHeader
			case col == 5:
				return styleDim
			default:
				return styleNumber
			}
		}).
		Render()
}

// metricsTable renders a load metrics snapshot.
func metricsTable(s metrics.Snapshot) string {
	ms := func(d time.Duration) string { return d.Round(time.Millisecond).String() }
	rows := [][]string{
		{"loaded", humanize.Comma(int64(s.TotalLoads))},
		{"failed", humanize.Comma(int64(s.TotalErrors))},
		{"success rate", fmt.Sprintf("%.1f%%", s.SuccessRate()*100)},
		{"samples", fmt.Sprint(s.Samples)},
		{"min", ms(s.Min)},
		{"avg", ms(s.Avg)},
		{"p95", ms(s.P95)},
		{"max", ms(s.Max)},
		{"tracked", fmt.Sprint(s.Tracked)},
		{"visible", fmt.Sprint(s.Visible)},
		{"queued", fmt.Sprint(s.Queued)},
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Metric", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleHeader
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return styleValue
		}).
		Render()
}

// bytesString formats a byte count for humans.
func bytesString(n uint64) string {
	return humanize.IBytes(n)
}
