package monitor

import (
	"fmt"
	"strings"

	"github.com/cybercompass/compass/internal/models"
)

// renderView builds the full frame.
func (m Model) renderView() string {
	if m.Width > 0 && (m.Width < MinWidth || m.Height < MinHeight) {
		return subtleStyle.Render(fmt.Sprintf("Terminal too small (need %dx%d)", MinWidth, MinHeight))
	}

	var sb strings.Builder

	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(m.renderChallenges())
	sb.WriteString("\n")
	sb.WriteString(m.renderFooter())

	if m.ShowHelp {
		sb.WriteString("\n")
		sb.WriteString(helpStyle.Render("j/k scroll · r refresh · ? help · q quit"))
	}

	return sb.String()
}

// renderHeader shows session identity, storage backend, and sync state.
func (m Model) renderHeader() string {
	var parts []string
	parts = append(parts, panelTitleStyle.Render("compass monitor"))
	parts = append(parts, subtleStyle.Render(m.SessionID))
	parts = append(parts, subtleStyle.Render("store: "+m.Store.Kind()))
	if m.Syncing {
		parts = append(parts, m.Spinner.View()+syncStyle.Render("syncing"))
	}
	return strings.Join(parts, "  ")
}

// renderChallenges renders the catalog grouped by category with completion
// state, honoring the scroll offset.
func (m Model) renderChallenges() string {
	var lines []string

	byCategory := make(map[string][]models.Challenge)
	for _, c := range m.Challenges {
		byCategory[c.Category] = append(byCategory[c.Category], c)
	}

	for _, cat := range models.Categories {
		cs := byCategory[cat]
		if len(cs) == 0 {
			continue
		}
		done := 0
		for _, c := range cs {
			if rec, ok := m.Progress[c.ID]; ok && rec.IsCompleted {
				done++
			}
		}
		lines = append(lines, fmt.Sprintf("%s %s", formatCategory(cat), subtleStyle.Render(fmt.Sprintf("%d/%d", done, len(cs)))))
		for _, c := range cs {
			rec, ok := m.Progress[c.ID]
			completed := ok && rec.IsCompleted
			lines = append(lines, fmt.Sprintf("  %s %s %s", completionBadge(completed), titleStyle.Render(c.ID), c.Title))
		}
	}

	offset := m.ScrollOffset
	if offset >= len(lines) {
		offset = len(lines) - 1
	}
	if offset < 0 {
		offset = 0
	}
	visible := lines[offset:]

	maxLines := m.Height - 6
	if m.Height > 0 && maxLines > 0 && len(visible) > maxLines {
		visible = visible[:maxLines]
	}

	return panelStyle.Render(strings.Join(visible, "\n"))
}

// renderFooter shows the pending queue and the last broadcast event.
func (m Model) renderFooter() string {
	var parts []string

	if m.QueueLen > 0 {
		parts = append(parts, syncStyle.Render(fmt.Sprintf("%d pending", m.QueueLen)))
	} else {
		parts = append(parts, doneStyle.Render("queue empty"))
	}
	if m.LastEvent != "" {
		parts = append(parts, subtleStyle.Render(m.LastEvent))
	}
	if m.Err != nil {
		parts = append(parts, errStyle.Render("error: "+m.Err.Error()))
	}
	if !m.LastRefresh.IsZero() {
		parts = append(parts, subtleStyle.Render("refreshed "+m.LastRefresh.Format("15:04:05")))
	}

	return strings.Join(parts, "  ")
}
