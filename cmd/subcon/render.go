package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"subcon/internal/store"
	"subcon/internal/types"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
)

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func recordSummary(rec store.Record) string {
	switch rec.Kind {
	case store.KindSubconscious:
		starter := ""
		if rec.Dialogue != nil {
			starter = firstLine(rec.Dialogue.Starter)
		}
		return fmt.Sprintf("%-50s %s  %d pairs  %s", rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Len(), starter)
	default:
		return fmt.Sprintf("%-50s %s  %d turns", rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Len())
	}
}

// recordMarkdown lays a record out as a markdown transcript.
func recordMarkdown(rec store.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", rec.ID)
	if rec.Dialogue != nil {
		fmt.Fprintf(&sb, "> %s\n\n", strings.ReplaceAll(rec.Dialogue.Starter, "\n", "\n> "))
		for i, p := range rec.Dialogue.Pairs {
			fmt.Fprintf(&sb, "## Iteration %d\n\n", i+1)
			writeTurn(&sb, p.Assistant, "A")
			writeTurn(&sb, p.User, "B")
		}
		return sb.String()
	}
	for _, t := range rec.Turns {
		writeTurn(&sb, t, string(t.Role))
	}
	return sb.String()
}

func writeTurn(sb *strings.Builder, t types.Turn, speaker string) {
	fmt.Fprintf(sb, "**%s**", speaker)
	var tags []string
	if t.UsedWeb {
		tags = append(tags, "web")
	}
	if t.UsedRetrieval {
		tags = append(tags, "rag")
	}
	if len(tags) > 0 {
		fmt.Fprintf(sb, " _(%s)_", strings.Join(tags, ", "))
	}
	fmt.Fprintf(sb, "\n\n%s\n\n", t.Content)
	if len(t.Topics) > 0 {
		fmt.Fprintf(sb, "- topics: %s\n", strings.Join(t.Topics, ", "))
	}
	if len(t.Keywords) > 0 {
		fmt.Fprintf(sb, "- keywords: %s\n", strings.Join(t.Keywords, ", "))
	}
	if len(t.Topics) > 0 || len(t.Keywords) > 0 {
		sb.WriteString("\n")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
