package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"bioclas/internal/fuzzy"
)

var (
	accent = lipgloss.Color("#8BC34A")
	muted  = lipgloss.Color("#6b7785")
	danger = lipgloss.Color("#e53935")

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	errorStyle   = lipgloss.NewStyle().Foreground(danger)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)
)

// swatch renders a block of the given colour followed by its hex code.
func swatch(c fuzzy.RGB) string {
	block := lipgloss.NewStyle().Background(lipgloss.Color(c.String())).Render("      ")
	return fmt.Sprintf("%s %s (%d, %d, %d)", block, c, c.R, c.G, c.B)
}

// bar renders degree in [0,1] as a fixed-width bar.
func bar(degree float64, width int) string {
	n := int(degree*float64(width) + 0.5)
	n = max(0, min(width, n))
	return lipgloss.NewStyle().Foreground(accent).Render(strings.Repeat("█", n)) +
		mutedStyle.Render(strings.Repeat("·", width-n))
}
