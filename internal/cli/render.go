package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nicholas-gates/bookscout/internal/metrics"
	"github.com/nicholas-gates/bookscout/internal/schema"
)

// Theme holds the color scheme for the session output.
type Theme struct {
	Heading lipgloss.Color
	Prompt  lipgloss.Color
	Accent  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Heading: lipgloss.Color("#5FAFD7"), // light blue
	Prompt:  lipgloss.Color("#00D787"), // green
	Accent:  lipgloss.Color("#D75FD7"), // magenta
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) headingStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Heading).Bold(true)
}

func (t Theme) promptStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Prompt).Bold(true)
}

func (t Theme) accentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Heading).
		Padding(0, 1).
		Width(76)
}

// BookPanel renders a single book recommendation as a bordered panel.
func (t Theme) BookPanel(book schema.BookRecommendation) string {
	var b strings.Builder
	b.WriteString(t.headingStyle().Render("📚 " + book.Title))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Italic(true).Render("by " + book.Author))
	b.WriteString("\n")
	b.WriteString(t.accentStyle().Render("Genre: " + book.Genre))
	b.WriteString("\n\n")
	b.WriteString(book.Description)
	b.WriteString("\n\n")
	b.WriteString(t.successStyle().Render("Why this book: " + book.Reason))
	return t.panelStyle().Render(b.String())
}

// MediaPanels renders the movie, game and song recommendations.
func (t Theme) MediaPanels(media schema.MediaRecommendations) string {
	movie := t.mediaPanel("🎬 "+media.Movie.Title, "("+media.Movie.Year+")",
		media.Movie.Description, media.Movie.Reason)
	game := t.mediaPanel("🎮 "+media.Game.Title, media.Game.Platform,
		media.Game.Description, media.Game.Reason)
	song := t.mediaPanel("🎵 "+media.Song.Title, "by "+media.Song.Artist,
		media.Song.Description, media.Song.Reason)
	return strings.Join([]string{movie, game, song}, "\n")
}

func (t Theme) mediaPanel(title, subtitle, description, reason string) string {
	var b strings.Builder
	b.WriteString(t.headingStyle().Render(title))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Italic(true).Render(subtitle))
	b.WriteString("\n\n")
	b.WriteString(description)
	b.WriteString("\n\n")
	b.WriteString(t.successStyle().Render("Connection: " + reason))
	return t.panelStyle().Render(b.String())
}

// SessionSummary renders the end-of-session statistics.
func (t Theme) SessionSummary(snap metrics.Snapshot) string {
	var b strings.Builder
	b.WriteString(t.headingStyle().Render("Session summary"))
	b.WriteString("\n")
	b.WriteString(t.hintStyle().Render(fmt.Sprintf("  uptime: %.0fs", snap.UptimeSeconds)))
	b.WriteString("\n")
	b.WriteString(summaryLine(t, "book recommendations", snap.BookAgent))
	b.WriteString(summaryLine(t, "media recommendations", snap.MediaAgent))
	return b.String()
}

func summaryLine(t Theme, label string, op *metrics.OperationSnapshot) string {
	if op == nil {
		return ""
	}
	return t.hintStyle().Render(fmt.Sprintf("  %s: %d run(s), %d failed, avg %.0fms",
		label, op.Count, op.Failures, op.AvgTimeMs)) + "\n"
}
