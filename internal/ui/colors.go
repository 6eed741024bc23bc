package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// GradientColors are cycled through by the spinner.
var GradientColors = []lipgloss.Color{"5", "4", "6", "2"}

// Color modes accepted by --color and the color config key.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

func SuccessStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorSuccess) }
func ErrorStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(ColorError) }
func WarningStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorWarning) }
func InfoStyle() lipgloss.Style    { return lipgloss.NewStyle().Foreground(ColorInfo) }
func MutedStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(ColorMuted) }

// SetColorMode applies a color mode to every lipgloss style in the process.
// "auto" keeps the profile lipgloss detected from the terminal.
func SetColorMode(mode string) error {
	switch mode {
	case ColorAuto, "":
		return nil
	case ColorAlways:
		lipgloss.SetColorProfile(termenv.TrueColor)
	case ColorNever:
		DisableColors()
	default:
		return fmt.Errorf("unknown color mode %q", mode)
	}
	return nil
}

// DisableColors switches to monochrome output.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// FprintWarning writes a yellow warning line to w.
func FprintWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, WarningStyle().Render(SymbolWarning)+" "+msg)
}

// PrintWarning writes a warning line to stderr.
func PrintWarning(msg string) {
	FprintWarning(os.Stderr, msg)
}
