// Package ui provides the styled output used by rtop's non-interactive
// commands (ps, doctor, init, version). The dashboard has its own palette in
// package monitor.
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - passing checks
//	ColorError     (red)    - failures
//	ColorWarning   (yellow) - warnings
//	ColorInfo      (cyan)   - informational messages
//	ColorMuted     (gray)   - suggestions, timing info
//
// SetColorMode applies the --color flag (auto, always, never) process-wide.
//
// # Spinner Usage
//
//	s := ui.NewSpinner("Sampling processes", os.Stderr)
//	s.Start()
//	// ... wait for the second sample ...
//	s.Success() // or s.Fail()
//
// # Tables
//
// RenderSimpleTable prints a bubbles table without focus or selection, and
// RenderDoctorTable prints check results grouped by category.
package ui
