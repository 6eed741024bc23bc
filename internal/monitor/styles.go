package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dashboard color palette
const (
	ColorDarkBg    = lipgloss.Color("#0B0E14")
	ColorSurfaceBg = lipgloss.Color("#11151C")
	ColorBorder    = lipgloss.Color("#2D3340")

	// Semantic colors for metrics
	ColorHealthy  = lipgloss.Color("#3FB950")
	ColorWarning  = lipgloss.Color("#D29922")
	ColorCritical = lipgloss.Color("#F85149")

	ColorTextPrimary   = lipgloss.Color("#E6EDF3")
	ColorTextSecondary = lipgloss.Color("#9DA7B3")
	ColorTextMuted     = lipgloss.Color("#6E7681")

	ColorAccent    = lipgloss.Color("#58A6FF")
	ColorAccentDim = lipgloss.Color("#BC8CFF")

	// Graph colors
	ColorGraph  = lipgloss.Color("#39C5CF")
	ColorNetIn  = lipgloss.Color("#39C5CF")
	ColorNetOut = lipgloss.Color("#BC8CFF")
	ColorSwap   = lipgloss.Color("#D2A8FF")
)

// Thresholds for metric severity levels
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// Process table
	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(ColorTextSecondary).
				Bold(true)

	TableSortedStyle = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)

	ToggleOnStyle = lipgloss.NewStyle().
			Foreground(ColorDarkBg).
			Background(ColorAccent).
			Padding(0, 1)

	ToggleOffStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	StatusErrorStyle = lipgloss.NewStyle().
				Foreground(ColorCritical)
)

// MetricColor returns the color for a percentage: healthy below 70, warning
// below 90, critical otherwise.
func MetricColor(percent float64) lipgloss.Color {
	return MetricColorWithThresholds(percent, int(WarningThreshold), int(CriticalThreshold))
}

// MetricColorWithThresholds is MetricColor with explicit thresholds.
func MetricColorWithThresholds(percent float64, warning, critical int) lipgloss.Color {
	switch {
	case percent >= float64(critical):
		return ColorCritical
	case percent >= float64(warning):
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// MetricStyle returns a style with the appropriate foreground color for the metric.
func MetricStyle(percent float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColor(percent))
}

// TemperatureColor colors a sensor reading against its own limits, falling
// back to 70/90 degrees when the driver reports none.
func TemperatureColor(celsius, high, critical float64) lipgloss.Color {
	if high <= 0 {
		high = WarningThreshold
	}
	if critical <= high {
		critical = max(CriticalThreshold, high)
	}
	switch {
	case celsius >= critical:
		return ColorCritical
	case celsius >= high:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

func clampPercent(percent float64) float64 {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// ProgressBar renders a thin bar using ━ for filled and ─ for empty cells,
// colored by threshold.
func ProgressBar(width int, percent float64) string {
	return ProgressBarColored(width, percent, MetricColor(percent))
}

// ProgressBarColored is ProgressBar with a fixed fill color.
func ProgressBarColored(width int, percent float64, color lipgloss.Color) string {
	if width < 1 {
		width = 1
	}
	percent = clampPercent(percent)

	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}

	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("━", filled)) +
		lipgloss.NewStyle().Foreground(ColorBorder).Render(strings.Repeat("─", width-filled))
}

// SectionHeader renders a section header with the title on the left and value on the right.
// Format: ╭─ Title ────────────────────────────────────── Value ╮
func SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}

	// "╭─ " + title + " "
	leftWidth := 3 + lipgloss.Width(title) + 1
	// " " + value + " ╮"
	rightWidth := 1 + lipgloss.Width(value) + 2

	fillWidth := width - leftWidth - rightWidth
	if fillWidth < 1 {
		fillWidth = 1
	}
	middle := strings.Repeat("─", fillWidth)

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(ColorGraph).Bold(true)

	return borderStyle.Render("╭─ ") +
		titleStyle.Render(title) +
		borderStyle.Render(" "+middle+" ") +
		valueStyle.Render(value) +
		borderStyle.Render(" ╮")
}

// SectionFooter renders the bottom border of a section.
// Format: ╰────────────────────────────────────────────────────╯
func SectionFooter(width int) string {
	if width < 2 {
		width = 2
	}
	middle := strings.Repeat("─", width-2)
	return lipgloss.NewStyle().Foreground(ColorBorder).Render("╰" + middle + "╯")
}

// SectionContentLine renders a content line with left and right borders,
// padded or cut to width.
// Format: │ content                                              │
func SectionContentLine(content string, width int) string {
	if width < 4 {
		width = 4
	}

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	innerWidth := width - 4

	if lipgloss.Width(content) > innerWidth {
		content = lipgloss.NewStyle().MaxWidth(innerWidth).Render(content)
	}
	padding := innerWidth - lipgloss.Width(content)
	if padding < 0 {
		padding = 0
	}

	return borderStyle.Render("│") + " " + content + strings.Repeat(" ", padding) + " " + borderStyle.Render("│")
}

// Section renders a full box: header, one bordered line per entry of lines, footer.
func Section(title, value string, lines []string, width int) string {
	out := make([]string, 0, len(lines)+2)
	out = append(out, SectionHeader(title, value, width))
	for _, l := range lines {
		for _, sub := range strings.Split(l, "\n") {
			out = append(out, SectionContentLine(sub, width))
		}
	}
	out = append(out, SectionFooter(width))
	return strings.Join(out, "\n")
}
