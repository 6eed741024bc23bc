package monitor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/format"
	"github.com/rileyhilliard/rtop/internal/proc"
)

// Lines around the process rows: dashboard header, table header, footer.
const chromeLines = 3

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	width, height := m.size()
	top := m.renderTop()
	rows := rowsUnder(top, height)

	parts := []string{m.renderHeader()}
	if top != "" {
		parts = append(parts, top)
	}
	parts = append(parts, m.renderProcesses(width, rows), m.renderFooter())
	return strings.Join(parts, "\n")
}

// renderHeader renders the title bar: host, uptime, interval and toggles.
func (m Model) renderHeader() string {
	s := m.settings.Load()

	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render("rtop")

	var info []string
	if m.system.Hostname != "" {
		info = append(info, m.system.Hostname)
	}
	if m.system.Kernel != "" {
		info = append(info, m.system.Kernel)
	}
	if up := m.system.Uptime(m.now()); up > 0 {
		info = append(info, "up "+format.Uptime(up))
	}
	info = append(info, "every "+s.Interval.String())

	stats := lipgloss.NewStyle().Foreground(ColorTextSecondary).Render(" " + strings.Join(info, " | ") + " ")

	return HeaderStyle.Render(title+stats) +
		toggle("all", s.ShowAll) + toggle("pss", s.Smaps) + toggle("top", s.TopPercent)
}

func toggle(label string, on bool) string {
	if on {
		return ToggleOnStyle.Render(label)
	}
	return ToggleOffStyle.Render(label)
}

// renderTop renders the metric cards for the current layout. Wide layouts
// that would take more than half the screen fall back to compact.
func (m Model) renderTop() string {
	width, height := m.size()

	switch m.LayoutMode() {
	case LayoutMinimal:
		return m.renderSummary(width)
	case LayoutWide:
		if top := m.renderWide(width); lipgloss.Height(top) <= height/2 {
			return top
		}
	}
	return m.renderCompact(width)
}

// renderWide puts the CPU card in the left column and everything else on the right.
func (m Model) renderWide(width int) string {
	leftWidth := width / 2
	rightWidth := width - leftWidth

	var left, right []string
	if m.src.CPU != nil {
		left = append(left, m.renderCPUCard(leftWidth, true))
	}
	if m.src.Memory != nil {
		right = append(right, m.renderMemoryCard(rightWidth, true))
	}
	if m.src.Network != nil {
		right = append(right, m.renderNetworkCard(rightWidth, true))
	}
	if hw := m.renderHardwareCard(rightWidth); hw != "" {
		right = append(right, hw)
	}
	return joinColumns(left, right, leftWidth)
}

// renderCompact lays the cards out two per row without graphs.
func (m Model) renderCompact(width int) string {
	half := width / 2

	var cards []string
	if m.src.CPU != nil {
		cards = append(cards, m.renderCPUCard(half, false))
	}
	if m.src.Memory != nil {
		cards = append(cards, m.renderMemoryCard(width-half, false))
	}
	if m.src.Network != nil {
		cards = append(cards, m.renderNetworkCard(half, false))
	}
	if hw := m.renderHardwareCard(width - half); hw != "" {
		cards = append(cards, hw)
	}

	var rows []string
	for i := 0; i < len(cards); i += 2 {
		if i+1 < len(cards) {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i], cards[i+1]))
		} else {
			rows = append(rows, cards[i])
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func joinColumns(left, right []string, leftWidth int) string {
	switch {
	case len(left) == 0 && len(right) == 0:
		return ""
	case len(left) == 0:
		return lipgloss.JoinVertical(lipgloss.Left, right...)
	case len(right) == 0:
		return lipgloss.JoinVertical(lipgloss.Left, left...)
	}
	l := lipgloss.NewStyle().Width(leftWidth).Render(lipgloss.JoinVertical(lipgloss.Left, left...))
	return lipgloss.JoinHorizontal(lipgloss.Top, l, lipgloss.JoinVertical(lipgloss.Left, right...))
}

// renderSummary is the minimal layout: one line with the headline numbers.
func (m Model) renderSummary(width int) string {
	var parts []string
	if m.src.CPU != nil {
		pct := m.src.CPU.Snapshot().Percent
		parts = append(parts, LabelStyle.Render("cpu ")+MetricStyle(pct).Render(format.Percent(pct)))
	}
	if m.src.Memory != nil {
		ram := m.src.Memory.Snapshot()
		pct := ratio(ram.UsedBytes, ram.TotalBytes)
		parts = append(parts, LabelStyle.Render("mem ")+MetricStyle(pct).Render(format.Percent(pct)))
	}
	if m.src.Load != nil {
		parts = append(parts, LabelStyle.Render("load ")+ValueStyle.Render(fmt.Sprintf("%.2f", m.src.Load.Snapshot()[0])))
	}
	if m.src.Network != nil {
		net := m.src.Network.Snapshot()
		parts = append(parts, LabelStyle.Render("net ")+ValueStyle.Render(format.Rate(net.RateIn)+"↓ "+format.Rate(net.RateOut)+"↑"))
	}
	if len(parts) == 0 {
		return ""
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(" " + strings.Join(parts, "  "))
}

// column describes one process table column.
type column struct {
	title string
	width int
	right bool
	sort  config.SortKey // empty when the column is not sortable
}

const (
	colName  = 15
	colCPU   = 6
	colMem   = 9
	colThr   = 4
	colState = 5
)

func processColumns(pidWidth int) []column {
	return []column{
		{title: "PID", width: max(pidWidth, 4), right: true, sort: config.SortPID},
		{title: "NAME", width: colName, sort: config.SortName},
		{title: "CPU%", width: colCPU, right: true, sort: config.SortCPU},
		{title: "MEM", width: colMem, right: true, sort: config.SortMem},
		{title: "THR", width: colThr, right: true},
		{title: "STATE", width: colState},
	}
}

func cell(s string, c column) string {
	s = format.Truncate(s, c.width)
	if c.right {
		return format.PadLeft(s, c.width)
	}
	return format.PadRight(s, c.width)
}

// descending reports whether the table is currently ordered high to low.
func descending(s config.Settings) bool {
	desc := s.Sort == config.SortCPU || s.Sort == config.SortMem
	return desc != s.Reverse
}

// renderProcesses renders the table header and up to rows entries starting
// at the scroll offset, holding the table's read lock while visiting.
func (m Model) renderProcesses(width, rows int) string {
	t := m.src.Table
	if t == nil {
		return TableHeaderStyle.Render(" no process table")
	}
	s := m.settings.Load()

	t.RLock()
	defer t.RUnlock()

	cols := processColumns(t.MaxDigits())
	used := 0
	for _, c := range cols {
		used += c.width + 1
	}
	cmdWidth := width - used - 1

	arrow := "▲"
	if descending(s) {
		arrow = "▼"
	}
	var header strings.Builder
	header.WriteString(" ")
	for _, c := range cols {
		title := c.title
		style := TableHeaderStyle
		if c.sort != "" && c.sort == s.Sort {
			title += arrow
			style = TableSortedStyle
		}
		header.WriteString(style.Render(cell(title, c)) + " ")
	}
	if cmdWidth > 0 {
		header.WriteString(TableHeaderStyle.Render("COMMAND"))
	}

	lines := make([]string, 0, rows+1)
	lines = append(lines, header.String())

	t.Visit(func(rank int, e *proc.Entry) bool {
		if rank < m.offset {
			return true
		}
		if len(lines) > rows {
			return false
		}
		lines = append(lines, processRow(e, cols, cmdWidth))
		return true
	})

	return strings.Join(lines, "\n")
}

func processRow(e *proc.Entry, cols []column, cmdWidth int) string {
	values := []string{
		strconv.FormatUint(uint64(e.PID), 10),
		e.DisplayName(),
		fmt.Sprintf("%.1f", e.CPUPercent),
		format.Bytes(e.Memory()),
		strconv.FormatUint(uint64(e.Threads), 10),
		string(e.State),
	}

	var b strings.Builder
	b.WriteString(" ")
	for i, c := range cols {
		text := cell(values[i], c)
		switch c.sort {
		case config.SortCPU:
			if e.CPUPercent >= WarningThreshold {
				text = MetricStyle(e.CPUPercent).Render(text)
			}
		case config.SortPID:
			text = MutedStyle.Render(text)
		}
		b.WriteString(text + " ")
	}
	if cmdWidth > 0 {
		b.WriteString(LabelStyle.Render(format.Truncate(commandLine(e), cmdWidth)))
	}
	return b.String()
}

// commandLine is the full command, or the bracketed comm for kernel threads.
func commandLine(e *proc.Entry) string {
	if e.Cmdline != "" {
		return e.Cmdline
	}
	return "[" + e.Comm + "]"
}

// tableRows is how many process rows fit under the cards.
func (m Model) tableRows() int {
	_, height := m.size()
	return rowsUnder(m.renderTop(), height)
}

func rowsUnder(top string, height int) int {
	rows := height - chromeLines
	if top != "" {
		rows -= lipgloss.Height(top)
	}
	if rows < 1 {
		return 1
	}
	return rows
}

// renderFooter shows a fresh notification or the key hints, and the table state.
func (m Model) renderFooter() string {
	var left string
	if msg, ok := m.currentStatus(); ok {
		if m.statusErr {
			left = StatusErrorStyle.Render(msg)
		} else {
			left = ValueStyle.Render(msg)
		}
	} else {
		var hints []string
		for _, b := range keys.ShortHelp() {
			h := b.Help()
			hints = append(hints, h.Key+" "+h.Desc)
		}
		left = strings.Join(hints, " | ")
	}

	var right []string
	if t := m.src.Table; t != nil {
		t.RLock()
		n, degraded := t.Len(), t.Degraded()
		t.RUnlock()
		right = append(right, fmt.Sprintf("%d %s", n, format.Pluralize(n, "process", "processes")))
		if degraded {
			right = append(right, "blocking reads")
		}
	}

	return FooterStyle.Render(left + "   " + strings.Join(right, " | "))
}
