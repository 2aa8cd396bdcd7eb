package ui

import "fmt"

// ANSI256 color codes.
const (
	colorActive = 71  // green
	colorClosed = 131 // red
	colorMuted  = 245 // medium gray
)

var noColor bool

// RenderStatus returns a request status colored by state.
func RenderStatus(status string) string {
	if noColor {
		return status
	}
	code := colorMuted
	switch status {
	case "active":
		code = colorActive
	case "closed":
		code = colorClosed
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, status)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorMuted, s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
