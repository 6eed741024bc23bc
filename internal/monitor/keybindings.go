package monitor

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/rtop/internal/config"
)

// KeyMap holds every dashboard binding. It implements help.KeyMap.
type KeyMap struct {
	Quit       key.Binding
	ShowAll    key.Binding
	Smaps      key.Binding
	TopMode    key.Binding
	CycleSort  key.Binding
	Reverse    key.Binding
	Slower     key.Binding
	Faster     key.Binding
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Save       key.Binding
	ToggleHelp key.Binding
	Close      key.Binding
}

var keys = KeyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	ShowAll:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "show kernel threads")),
	Smaps:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "PSS memory (smaps)")),
	TopMode:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "per-core CPU% (top style)")),
	CycleSort:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle sort column")),
	Reverse:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reverse sort")),
	Slower:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "slower refresh")),
	Faster:     key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "faster refresh")),
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
	PageUp:     key.NewBinding(key.WithKeys("pgup", "ctrl+b"), key.WithHelp("pgup", "page up")),
	PageDown:   key.NewBinding(key.WithKeys("pgdown", "ctrl+f", " "), key.WithHelp("pgdn", "page down")),
	Top:        key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first process")),
	Bottom:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last process")),
	Save:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save settings")),
	ToggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Close:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
}

// ShortHelp is the footer hint line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.CycleSort, k.Slower, k.Faster, k.ToggleHelp}
}

// FullHelp groups bindings for the help overlay: toggles, ordering, navigation.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ShowAll, k.Smaps, k.TopMode, k.Save},
		{k.CycleSort, k.Reverse, k.Slower, k.Faster},
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.ToggleHelp, k.Quit},
	}
}

// HandleKeyMsg processes keyboard input. It returns false when the key is
// not bound.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	// Help toggle takes priority
	if key.Matches(msg, keys.ToggleHelp) {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp && key.Matches(msg, keys.Close) {
		m.showHelp = false
		return true, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return true, tea.Quit

	case key.Matches(msg, keys.ShowAll):
		s := m.settings.Update(func(s *config.Settings) { s.ShowAll = !s.ShowAll })
		m.notify("show all " + onOff(s.ShowAll))

	case key.Matches(msg, keys.Smaps):
		s := m.settings.Update(func(s *config.Settings) { s.Smaps = !s.Smaps })
		m.notify("PSS memory " + onOff(s.Smaps))

	case key.Matches(msg, keys.TopMode):
		s := m.settings.Update(func(s *config.Settings) { s.TopPercent = !s.TopPercent })
		m.notify("top-style CPU% " + onOff(s.TopPercent))

	case key.Matches(msg, keys.CycleSort):
		s := m.settings.Update(func(s *config.Settings) { s.Sort = s.Sort.Next() })
		m.offset = 0
		m.notify("sort by " + string(s.Sort))

	case key.Matches(msg, keys.Reverse):
		s := m.settings.Update(func(s *config.Settings) { s.Reverse = !s.Reverse })
		m.offset = 0
		m.notify("reverse " + onOff(s.Reverse))

	case key.Matches(msg, keys.Slower):
		s := m.settings.StepInterval(config.IntervalStep)
		m.notify("interval " + s.Interval.String())

	case key.Matches(msg, keys.Faster):
		s := m.settings.StepInterval(-config.IntervalStep)
		m.notify("interval " + s.Interval.String())

	case key.Matches(msg, keys.Up):
		m.scroll(-1)

	case key.Matches(msg, keys.Down):
		m.scroll(1)

	case key.Matches(msg, keys.PageUp):
		m.scroll(-m.tableRows())

	case key.Matches(msg, keys.PageDown):
		m.scroll(m.tableRows())

	case key.Matches(msg, keys.Top):
		m.offset = 0

	case key.Matches(msg, keys.Bottom):
		m.scroll(m.processCount())

	case key.Matches(msg, keys.Save):
		m.save()

	default:
		return false, nil
	}

	return true, nil
}

// save writes the current toggles into the config file.
func (m *Model) save() {
	if m.configPath == "" {
		m.notifyErr(fmt.Errorf("no config file, run 'rtop init' first"))
		return
	}
	if err := config.SaveSettings(m.configPath, m.settings.Load()); err != nil {
		m.notifyErr(err)
		return
	}
	m.notify("saved " + m.configPath)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
