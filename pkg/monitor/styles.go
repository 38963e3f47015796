package monitor

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/cybercompass/compass/internal/models"
)

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	// Text styles
	titleStyle  = lipgloss.NewStyle().Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	errStyle    = lipgloss.NewStyle().Foreground(errorColor)
	doneStyle   = lipgloss.NewStyle().Foreground(successColor)
	syncStyle   = lipgloss.NewStyle().Foreground(warningColor)

	// Category styles
	categoryStyles = map[string]lipgloss.Style{
		models.CategoryCatfishing:     lipgloss.NewStyle().Foreground(primaryColor),
		models.CategoryCyberbullying:  lipgloss.NewStyle().Foreground(warningColor),
		models.CategoryDeepfakes:      lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		models.CategoryDisinformation: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
	}
)

// formatCategory renders a category with color
func formatCategory(category string) string {
	style, ok := categoryStyles[category]
	if !ok {
		return category
	}
	return style.Render(category)
}

// completionBadge renders a completion marker
func completionBadge(done bool) string {
	if done {
		return doneStyle.Render("✓")
	}
	return subtleStyle.Render("○")
}

// migrationSummary condenses a migration result for the event line
func migrationSummary(r models.MigrationResult) string {
	return fmt.Sprintf("%d migrated, %d conflicts, %d failed", r.Migrated, r.Conflicts, r.Failed)
}
