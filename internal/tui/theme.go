package tui

import "github.com/charmbracelet/lipgloss"

// Captions are read over whatever terminal theme the user runs, so every
// color has a light and a dark variant.
var (
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"} // teal
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"} // violet

	ColorSuccess = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

	ColorText   = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#F1F5F9"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#475569", Dark: "#94A3B8"}
	ColorSubtle = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#475569"}
)
