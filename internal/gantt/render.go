package gantt

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	minBarWidth   = 10
	maxLabelWidth = 32
	dateLayout    = "2006-01-02"
)

// Render draws rows as a terminal Gantt chart roughly width columns wide.
func Render(w io.Writer, rows []Row, width int) error {
	accent := lipgloss.Color("62")
	critical := lipgloss.Color("212")
	muted := lipgloss.Color("241")

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	barStyle := lipgloss.NewStyle().Foreground(accent)
	criticalStyle := lipgloss.NewStyle().Foreground(critical).Bold(true)
	dateStyle := lipgloss.NewStyle().Foreground(muted)

	labelWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Title))
	}
	labelWidth = min(labelWidth, maxLabelWidth)
	dateWidth := len(dateLayout)*2 + 3
	barWidth := max(width-labelWidth-dateWidth-4, minBarWidth)

	var b strings.Builder
	for _, row := range rows {
		label := truncate(row.Title, labelWidth)
		label += strings.Repeat(" ", labelWidth-lipgloss.Width(label))

		style := barStyle
		if row.IsCritical {
			style = criticalStyle
		}
		bar := style.Render(drawBar(row, barWidth))
		dates := dateStyle.Render(fmt.Sprintf("%s → %s", row.Start.Format(dateLayout), row.Finish.Format(dateLayout)))

		b.WriteString(labelStyle.Render(label))
		b.WriteString(" │")
		b.WriteString(bar)
		b.WriteString("│ ")
		b.WriteString(dates)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// drawBar returns a fixed-width cell track with the task's span filled in.
func drawBar(row Row, width int) string {
	left := int(math.Round(row.LeftFraction * float64(width)))
	left = min(max(left, 0), width-1)
	if row.IsMilestone {
		return strings.Repeat(" ", left) + "◆" + strings.Repeat(" ", width-left-1)
	}
	span := max(int(math.Round(row.WidthFraction*float64(width))), 1)
	span = min(span, width-left)
	done := int(math.Round(float64(span) * row.ProgressPercent / 100))
	return strings.Repeat(" ", left) +
		strings.Repeat("█", done) +
		strings.Repeat("░", span-done) +
		strings.Repeat(" ", width-left-span)
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
