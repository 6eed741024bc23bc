// Package monitor implements the interactive dashboard.
//
// The dashboard displays the process table together with CPU, memory, load,
// network, sensor and GPU cards, with color-coded thresholds and a layout
// that adapts to terminal size.
//
// # Architecture
//
// The package uses the Bubble Tea framework, which follows The Elm Architecture
// (Model-Update-View pattern):
//
//   - Model: holds the sampler handles, the shared settings and view state
//   - Update: processes keystrokes, resizes and sampler events
//   - View: renders the current state to a string for display
//
// # Message Flow
//
// The model does not poll. Samplers run in their own goroutines (see package
// sampler) and report on a channel:
//
//  1. Init starts a command that blocks on the channel for one event
//  2. the event arrives as an eventMsg; history is updated and the command re-armed
//  3. View reads each sampler's latest snapshot, and the process table under its read lock
//  4. a KindFatal event stores the error and quits; the caller reads it with Err
//
// # Layout Modes
//
//	LayoutMinimal  (<80 cols or <24 rows) - one summary line above the table
//	LayoutCompact  (80-120)               - cards two per row, no graphs
//	LayoutWide     (120+)                 - CPU beside memory and network, with graphs
//
// # Keyboard Shortcuts
//
// Toggles publish a new config.Settings snapshot that the samplers pick up on
// their next tick:
//
//	q, Ctrl+C   - Quit
//	a           - Show kernel threads and processes without a command line
//	m           - Read smaps_rollup for PSS
//	t           - Per-core CPU percent (top style)
//	s / r       - Cycle sort column / reverse
//	+ / -       - Slower / faster refresh, 250ms steps
//	j/k, ↑/↓    - Scroll the process list
//	w           - Save the toggles to the config file
//	?           - Toggle help overlay
package monitor
