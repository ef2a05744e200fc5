package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// StyleCaption renders the live hypothesis.
	StyleCaption = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleCaptionBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginTop(1)
)

const logoASCII = `
 _                                  _   _
| |__  _   _ _ __  _ __ ___ __ _ _ | |_(_) ___  _ __
| '_ \| | | | '_ \| '__/ __/ _' | '_ \ __| |/ _ \| '_ \
| | | | |_| | |_) | | | (_| (_| | |_) | |_| | (_) | | | |
|_| |_|\__, | .__/|_|  \___\__,_| .__/ \__|_|\___/|_| |_|
       |___/|_|                 |_|`

func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
