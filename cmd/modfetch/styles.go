package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for dark terminal backgrounds.
const (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6B7280")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
)

func init() {
	// Plain output when stdout is not a terminal (pipes, CI).
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		plain := lipgloss.NewStyle()
		titleStyle = plain.Bold(false)
		mutedStyle = plain
		successStyle = plain
		errorStyle = plain
		warningStyle = plain
	}
}
