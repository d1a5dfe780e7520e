package ui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m *ReviewModel) View() string {
	if len(m.items) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Descriptor updates to review (%d)", len(m.items))))
	b.WriteString("\n\n")

	for i, it := range m.items {
		prefix := "  "
		if i == m.cursor && !m.done {
			prefix = cursorStyle.Render(cursorMark) + " "
		}
		b.WriteString(prefix)
		b.WriteString(renderItem(it, m.width-2))
		b.WriteByte('\n')
		if it.err != nil {
			b.WriteString("    ")
			b.WriteString(errorLogStyle.Render(truncate(it.err.Error(), m.width-4)))
			b.WriteByte('\n')
		}
	}

	if len(m.slogLines) > 0 {
		b.WriteByte('\n')
		for _, l := range m.slogLines {
			b.WriteString(renderSlogLine(l, m.width))
			b.WriteByte('\n')
		}
	}

	if !m.done {
		b.WriteByte('\n')
		b.WriteString(dimStyle.Render("a accept · r reject · s skip · A accept all · q quit"))
	}
	return b.String()
}

// renderItem renders "<mark> <id> <name> <installed> → <revision>".
func renderItem(it reviewItem, width int) string {
	from := "new"
	if it.installed > 0 {
		from = fmt.Sprintf("r%d", it.installed)
	}
	line := fmt.Sprintf("%s %s  %s  %s → r%d",
		decisionMark(it), it.update.ID, it.update.Name, from, it.update.Revision)
	if w := lipgloss.Width(line); width > 0 && w > width {
		return truncate(line, width)
	}
	return line
}

func decisionMark(it reviewItem) string {
	if it.err != nil {
		return failMarkStyle.Render("✗")
	}
	switch it.decision {
	case pending:
		return dimStyle.Render("…")
	case accepted:
		return doneMarkStyle.Render("✓")
	case rejected:
		return rejectMarkStyle.Render("-")
	case skipped:
		return dimStyle.Render("·")
	default:
		return " "
	}
}

func renderSlogLine(l slogMsg, width int) string {
	text := truncate(fmt.Sprintf("%s %s", l.level, l.message), width)
	switch {
	case l.level >= slog.LevelError:
		return errorLogStyle.Render(text)
	case l.level >= slog.LevelWarn:
		return warnLogStyle.Render(text)
	default:
		return dimStyle.Render(text)
	}
}

// truncate shortens s to at most width runes, ending with "…".
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
