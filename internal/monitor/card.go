package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/rtop/internal/format"
	"github.com/rileyhilliard/rtop/internal/metrics"
)

// Card layout constants
const (
	cardGraphHeight = 2  // braille graph rows
	cardMinBarWidth = 10 // minimum bar width
	coreCellWidth   = 18 // "c00 " + bar + " 100%"
	maxCoreRows     = 8
	maxSensorLines  = 4
)

// innerWidth is the usable content width of a section box of width w.
func innerWidth(w int) int {
	if w < 8 {
		return 4
	}
	return w - 4
}

// meterLine renders "label bar value", fitting the bar into width.
func meterLine(label string, percent float64, value string, width int) string {
	return meterLineColored(label, percent, value, width, MetricColor(percent))
}

func meterLineColored(label string, percent float64, value string, width int, color lipgloss.Color) string {
	labelCell := LabelStyle.Render(format.PadRight(label, 5))
	valueCell := ValueStyle.Render(value)
	barWidth := width - lipgloss.Width(labelCell) - lipgloss.Width(valueCell) - 1
	if barWidth < cardMinBarWidth {
		barWidth = cardMinBarWidth
	}
	return labelCell + ProgressBarColored(barWidth, percent, color) + " " + valueCell
}

// renderCPUCard shows total usage, history, per-core bars and load.
func (m Model) renderCPUCard(width int, graphs bool) string {
	cpu := m.src.CPU.Snapshot()
	inner := innerWidth(width)

	lines := []string{meterLine("total", cpu.Percent, format.PadLeft(format.Percent(cpu.Percent), 6), inner)}

	if graphs {
		if data := m.history.Last(SeriesCPU, inner*2); len(data) > 0 {
			lines = append(lines, RenderBrailleSparkline(data, inner, cardGraphHeight, ScalePercent, ColorGraph))
		}
		lines = append(lines, renderCoreGrid(cpu.PerCore, inner)...)
	}

	if m.src.Load != nil {
		load := m.src.Load.Snapshot()
		lines = append(lines, LabelStyle.Render("load ")+
			ValueStyle.Render(fmt.Sprintf("%.2f %.2f %.2f", load[0], load[1], load[2])))
	}

	title := "cpu"
	if cpu.Cores > 0 {
		title = fmt.Sprintf("cpu %d %s", cpu.Cores, format.Pluralize(cpu.Cores, "core", "cores"))
	}
	return Section(title, format.Percent(cpu.Percent), lines, width)
}

// renderCoreGrid lays the per-core bars out in as many columns as fit.
// Cores that do not fit in maxCoreRows rows are summarized.
func renderCoreGrid(perCore []float64, width int) []string {
	if len(perCore) == 0 {
		return nil
	}
	cols := width / (coreCellWidth + 1)
	if cols < 1 {
		cols = 1
	}
	cellWidth := (width - (cols - 1)) / cols

	shown := len(perCore)
	if limit := cols * maxCoreRows; shown > limit {
		shown = limit
	}

	var lines []string
	for start := 0; start < shown; start += cols {
		var cells []string
		for i := start; i < start+cols && i < shown; i++ {
			cells = append(cells, coreCell(i, perCore[i], cellWidth))
		}
		lines = append(lines, strings.Join(cells, " "))
	}
	if hidden := len(perCore) - shown; hidden > 0 {
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("+%d more cores", hidden)))
	}
	return lines
}

func coreCell(i int, percent float64, width int) string {
	label := LabelStyle.Render(fmt.Sprintf("c%-3d", i))
	value := MetricStyle(percent).Render(format.PadLeft(fmt.Sprintf("%.0f%%", percent), 4))
	barWidth := width - 4 - 4 - 1
	if barWidth < 2 {
		barWidth = 2
	}
	return label + RenderGradientBar(barWidth, percent) + " " + value
}

// renderMemoryCard shows RAM and swap usage.
func (m Model) renderMemoryCard(width int, graphs bool) string {
	ram := m.src.Memory.Snapshot()
	inner := innerWidth(width)
	memPct := ratio(ram.UsedBytes, ram.TotalBytes)
	swapPct := ratio(ram.SwapUsed, ram.SwapTotal)

	lines := []string{
		meterLine("mem", memPct, usedOf(ram.UsedBytes, ram.TotalBytes), inner),
	}
	if graphs {
		if data := m.history.Last(SeriesMemory, inner); len(data) > 0 {
			lines = append(lines, RenderMiniSparkline(data, inner, ScalePercent, MetricColor(memPct)))
		}
	}
	if ram.SwapTotal > 0 {
		lines = append(lines, meterLineColored("swap", swapPct, usedOf(ram.SwapUsed, ram.SwapTotal), inner, ColorSwap))
	} else {
		lines = append(lines, LabelStyle.Render("swap ")+MutedStyle.Render("none"))
	}
	lines = append(lines, LabelStyle.Render("cache ")+ValueStyle.Render(format.Bytes(ram.Cached))+
		LabelStyle.Render("  avail ")+ValueStyle.Render(format.Bytes(ram.Available)))

	return Section("memory", format.Percent(memPct), lines, width)
}

func usedOf(used, total uint64) string {
	return format.Bytes(used) + " / " + format.Bytes(total)
}

// renderNetworkCard shows aggregate throughput with a sparkline per direction.
func (m Model) renderNetworkCard(width int, graphs bool) string {
	net := m.src.Network.Snapshot()
	inner := innerWidth(width)

	rx := LabelStyle.Render("rx ") + lipgloss.NewStyle().Foreground(ColorNetIn).Render(format.PadLeft(format.Rate(net.RateIn), 11))
	tx := LabelStyle.Render("tx ") + lipgloss.NewStyle().Foreground(ColorNetOut).Render(format.PadLeft(format.Rate(net.RateOut), 11))

	var lines []string
	if graphs {
		graphWidth := inner - lipgloss.Width(rx) - 1
		lines = append(lines,
			rx+" "+RenderMiniSparkline(m.history.Last(SeriesNetIn, graphWidth), graphWidth, ScaleAuto, ColorNetIn),
			tx+" "+RenderMiniSparkline(m.history.Last(SeriesNetOut, graphWidth), graphWidth, ScaleAuto, ColorNetOut),
		)
	} else {
		lines = append(lines, rx+"  "+tx)
	}
	lines = append(lines, LabelStyle.Render("total ")+
		ValueStyle.Render(format.Bytes(net.TotalIn)+" in, "+format.Bytes(net.TotalOut)+" out"))

	value := fmt.Sprintf("%d %s", len(net.Interfaces), format.Pluralize(len(net.Interfaces), "iface", "ifaces"))
	return Section("network", value, lines, width)
}

// renderHardwareCard shows GPUs and the hottest sensors. It returns "" when
// neither source has anything to show.
func (m Model) renderHardwareCard(width int) string {
	inner := innerWidth(width)
	var lines []string

	if m.src.GPU != nil {
		for _, g := range m.src.GPU.Snapshot() {
			lines = append(lines, gpuLine(g, inner))
		}
	}

	var temps []metrics.Temperature
	if m.src.Sensors != nil {
		temps = m.src.Sensors.Snapshot()
	}
	for i, t := range temps {
		if i == maxSensorLines {
			lines = append(lines, MutedStyle.Render(fmt.Sprintf("+%d more sensors", len(temps)-i)))
			break
		}
		lines = append(lines, sensorLine(t, inner))
	}

	if len(lines) == 0 {
		return ""
	}
	return Section("sensors", hottest(temps), lines, width)
}

func gpuLine(g metrics.GPUMetrics, width int) string {
	detail := fmt.Sprintf(" %s", usedOf(g.MemoryUsed, g.MemoryTotal))
	if g.Temperature > 0 {
		detail += fmt.Sprintf(" %d°C", g.Temperature)
	}
	if g.PowerWatts > 0 {
		detail += fmt.Sprintf(" %dW", g.PowerWatts)
	}
	label := fmt.Sprintf("gpu%d", g.Index)
	line := meterLine(label, g.Percent, format.PadLeft(format.Percent(g.Percent), 6), width-lipgloss.Width(detail))
	return line + MutedStyle.Render(detail)
}

func sensorLine(t metrics.Temperature, width int) string {
	value := fmt.Sprintf("%5.1f°C", t.Celsius)
	name := format.Truncate(t.Sensor, width-lipgloss.Width(value)-1)
	pad := width - lipgloss.Width(name) - lipgloss.Width(value)
	if pad < 1 {
		pad = 1
	}
	return LabelStyle.Render(name) + strings.Repeat(" ", pad) +
		lipgloss.NewStyle().Foreground(TemperatureColor(t.Celsius, t.High, t.Critical)).Render(value)
}

// hottest formats the highest temperature, or "" when there are none.
func hottest(temps []metrics.Temperature) string {
	if len(temps) == 0 {
		return ""
	}
	top := temps[0].Celsius
	for _, t := range temps[1:] {
		top = max(top, t.Celsius)
	}
	return fmt.Sprintf("%.0f°C", top)
}
