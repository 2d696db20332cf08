package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/songbook/internal/models"
)

// View renders the tab bar, the active tab, the status line and help.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if m.loading && !m.lib.Loaded() {
		b.WriteString("Loading...\n")
	} else if c, ok := m.tab.collection(); ok {
		b.WriteString(m.renderTable(c))
	} else {
		b.WriteString(m.renderSongs())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.forTab(m.tab)))
	return b.String()
}

func (m *Model) renderTabs() string {
	rendered := make([]string, len(tabs))
	for i, t := range tabs {
		label := fmt.Sprintf("%d %s", i+1, t)
		if t == m.tab {
			rendered[i] = styles.activeTab.Render(label)
		} else {
			rendered[i] = styles.tab.Render(label)
		}
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	if m.lib.Offline() {
		bar += "  " + styles.warn.Render("offline")
	}
	return bar
}

func (m *Model) renderSongs() string {
	search := m.search.View()
	if !m.searching && m.search.Value() == "" {
		search = styles.help.Render("press / to search")
	}
	return fmt.Sprintf("%s\n\n%s", search, m.songList.View())
}

func (m *Model) renderTable(c models.Collection) string {
	entries := m.lib.Entries(c)
	title := styles.title.Render(fmt.Sprintf("%s (%d)", c.Label(), len(entries)))
	if len(entries) == 0 {
		return fmt.Sprintf("%s\n%s\n", title, styles.help.Render(fmt.Sprintf("No songs in %s yet.", strings.ToLower(c.Label()))))
	}
	return fmt.Sprintf("%s\n%s\n", title, m.tables[c].View())
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	switch m.statusKind {
	case statusErr:
		return styles.err.Render(m.status)
	case statusWarn:
		return styles.warn.Render(m.status)
	default:
		return styles.ok.Render(m.status)
	}
}
