package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"

	"tubesb/internal/diag"
	"tubesb/internal/media"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	traceTime   = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

func render(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// MediaTable renders combined results.
func MediaTable(items []media.Media) string {
	return render(
		[]string{"#", "Quality", "Resolution", "Size", "Stream"},
		lo.Map(items, func(m media.Media, i int) []string {
			return []string{strconv.Itoa(i + 1), m.Quality, m.Resolution, m.FileSize, m.URL}
		}),
	)
}

// StreamTable renders stream segments.
func StreamTable(items []media.StreamSegment) string {
	return render(
		[]string{"#", "Resolution", "Stream"},
		lo.Map(items, func(s media.StreamSegment, i int) []string {
			return []string{strconv.Itoa(i + 1), s.Resolution, s.URL}
		}),
	)
}

// RouteTable renders download routes.
func RouteTable(items []media.Route) string {
	return render(
		[]string{"#", "Quality", "Resolution", "Size", "Route"},
		lo.Map(items, func(r media.Route, i int) []string {
			return []string{strconv.Itoa(i + 1), r.Quality, r.Resolution, r.FileSize, r.DownloadRouteURL}
		}),
	)
}

// Trace renders a diagnostics snapshot with dimmed timestamps.
func Trace(s diag.Snapshot) string {
	var b strings.Builder
	for _, e := range s {
		b.WriteString(traceTime.Render(e.At.Format("3:04:05 PM")))
		b.WriteString("\n")
		b.WriteString(e.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// Error renders an error line.
func Error(err error) string {
	return errorStyle.Render("error: ") + err.Error()
}

