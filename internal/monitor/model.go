package monitor

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/metrics"
	"github.com/rileyhilliard/rtop/internal/proc"
	"github.com/rileyhilliard/rtop/internal/sampler"
)

// Sampler names. The CLI registers subsystems under these so the model can
// tell which card an event belongs to.
const (
	SourceProc    = "proc"
	SourceCPU     = "cpu"
	SourceMemory  = "memory"
	SourceLoad    = "load"
	SourceNetwork = "network"
	SourceSensors = "sensors"
	SourceGPU     = "gpu"
)

// LayoutMode represents the responsive layout mode based on terminal size.
type LayoutMode int

const (
	// LayoutMinimal is for terminals under 80 columns or 24 rows: one line per metric.
	LayoutMinimal LayoutMode = iota
	// LayoutCompact stacks the cards in one column.
	LayoutCompact
	// LayoutWide puts the CPU card beside the memory and network cards.
	LayoutWide
)

// Width and height breakpoints for layout modes
const (
	BreakpointCompact = 80
	BreakpointWide    = 120
	HeightMinimal     = 24
)

// Default size used until the first WindowSizeMsg arrives.
const (
	defaultWidth  = 100
	defaultHeight = 30
)

// statusTTL is how long a footer notification stays visible.
const statusTTL = 3 * time.Second

// Sources are the samplers the dashboard renders. A nil field hides its card.
type Sources struct {
	Table   *proc.Table
	CPU     *metrics.CPU
	Memory  *metrics.Memory
	Load    *metrics.Load
	Network *metrics.Network
	Sensors *metrics.Sensors
	GPU     *metrics.GPU
}

// Options configures NewModel.
type Options struct {
	Sources

	// Settings is shared with the samplers; key toggles publish through it.
	Settings *config.Live
	// Events is the sampler group's output channel.
	Events <-chan sampler.Event
	System metrics.SystemInfo
	// ConfigPath is where 'w' saves settings. Empty disables saving.
	ConfigPath  string
	HistorySize int
	Now         func() time.Time
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	src        Sources
	settings   *config.Live
	events     <-chan sampler.Event
	system     metrics.SystemInfo
	configPath string
	history    *History
	now        func() time.Time

	width  int
	height int
	offset int

	showHelp   bool
	quitting   bool
	err        error
	lastUpdate time.Time

	status      string
	statusErr   bool
	statusUntil time.Time
}

// eventMsg carries one sampler event into the update loop.
type eventMsg sampler.Event

// eventsClosedMsg reports that the sampler channel was closed.
type eventsClosedMsg struct{}

// NewModel creates a dashboard model. Settings defaults to the built-in
// configuration when nil.
func NewModel(opts Options) Model {
	if opts.Settings == nil {
		opts.Settings = config.NewLive(config.DefaultConfig().Settings())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return Model{
		src:        opts.Sources,
		settings:   opts.Settings,
		events:     opts.Events,
		system:     opts.System,
		configPath: opts.ConfigPath,
		history:    NewHistory(opts.HistorySize),
		now:        opts.Now,
	}
}

// Init starts listening for sampler events.
func (m Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scroll(0)

	case eventMsg:
		ev := sampler.Event(msg)
		if ev.Kind == sampler.KindFatal {
			m.err = ev.Err
			m.quitting = true
			return m, tea.Quit
		}
		m.record(ev)
		return m, m.waitForEvent()

	case eventsClosedMsg:
		m.events = nil
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

// Err is the fatal sampler error that ended the program, if any.
func (m Model) Err() error { return m.err }

// History exposes the sparkline buffers.
func (m Model) History() *History { return m.history }

// waitForEvent blocks on the sampler channel for one event.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// record pushes the sparkline points owned by the event's source.
func (m *Model) record(ev sampler.Event) {
	m.lastUpdate = ev.At

	switch ev.Source {
	case SourceCPU:
		if m.src.CPU != nil {
			m.history.Push(SeriesCPU, m.src.CPU.Snapshot().Percent)
		}
	case SourceMemory:
		if m.src.Memory != nil {
			ram := m.src.Memory.Snapshot()
			m.history.Push(SeriesMemory, ratio(ram.UsedBytes, ram.TotalBytes))
			m.history.Push(SeriesSwap, ratio(ram.SwapUsed, ram.SwapTotal))
		}
	case SourceNetwork:
		if m.src.Network != nil {
			net := m.src.Network.Snapshot()
			m.history.Push(SeriesNetIn, net.RateIn)
			m.history.Push(SeriesNetOut, net.RateOut)
		}
	case SourceProc:
		m.scroll(0)
	}
}

func (m *Model) notify(s string) {
	m.status = s
	m.statusErr = false
	m.statusUntil = m.now().Add(statusTTL)
}

func (m *Model) notifyErr(err error) {
	m.status = err.Error()
	m.statusErr = true
	m.statusUntil = m.now().Add(statusTTL)
}

// currentStatus is the footer notification while it is still fresh.
func (m Model) currentStatus() (string, bool) {
	if m.status == "" || m.now().After(m.statusUntil) {
		return "", false
	}
	return m.status, true
}

// scroll moves the first visible process row by delta, keeping the last
// page full.
func (m *Model) scroll(delta int) {
	limit := m.processCount() - m.tableRows()
	if limit < 0 {
		limit = 0
	}
	m.offset += delta
	if m.offset > limit {
		m.offset = limit
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) processCount() int {
	t := m.src.Table
	if t == nil {
		return 0
	}
	t.RLock()
	defer t.RUnlock()
	return t.Len()
}

// size returns the terminal size, or a default before the first resize.
func (m Model) size() (int, int) {
	w, h := m.width, m.height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

// LayoutMode returns the layout for the current terminal size.
func (m Model) LayoutMode() LayoutMode {
	w, h := m.size()
	switch {
	case w < BreakpointCompact || h < HeightMinimal:
		return LayoutMinimal
	case w < BreakpointWide:
		return LayoutCompact
	default:
		return LayoutWide
	}
}

func ratio(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}
