// Package output provides styled terminal output helpers (success, error,
// warning, challenge and progress formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/cybercompass/compass/internal/models"
)

var (
	// Styles
	titleStyle     = lipgloss.NewStyle().Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	categoryStyles = map[string]lipgloss.Style{
		models.CategoryCatfishing:     lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		models.CategoryCyberbullying:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.CategoryDeepfakes:      lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		models.CategoryDisinformation: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeNoSession    = "no_session"
	ErrCodeNotLoggedIn  = "not_logged_in"
	ErrCodeStorageError = "storage_error"
	ErrCodeNetworkError = "network_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	fmt.Printf(`{"error":{"code":"%s","message":"%s"}}`, code, message)
	fmt.Println()
}

// FormatCategory formats a challenge category with color
func FormatCategory(category string) string {
	style, ok := categoryStyles[category]
	if !ok {
		return fmt.Sprintf("[%s]", category)
	}
	return style.Render(fmt.Sprintf("[%s]", category))
}

// CompletionBadge returns a completion indicator with symbol
func CompletionBadge(completed bool) string {
	if completed {
		return successStyle.Render("✓ done")
	}
	return subtleStyle.Render("○ open")
}

// FormatChallengeShort formats a challenge line for list output, with
// completion state taken from the progress map.
func FormatChallengeShort(c models.Challenge, done bool) string {
	var parts []string
	parts = append(parts, titleStyle.Render(c.ID))
	parts = append(parts, FormatCategory(c.Category))
	parts = append(parts, c.Title)
	parts = append(parts, CompletionBadge(done))
	return strings.Join(parts, "  ")
}

// FormatProgressLine formats a saved progress record for status output.
func FormatProgressLine(rec models.ProgressRecord) string {
	var parts []string
	parts = append(parts, titleStyle.Render(rec.ChallengeID))
	if rec.SelectedOptionID != "" {
		parts = append(parts, subtleStyle.Render(rec.SelectedOptionID))
	}
	parts = append(parts, CompletionBadge(rec.IsCompleted))
	if rec.CompletedAt != nil {
		parts = append(parts, subtleStyle.Render(FormatTimeAgo(*rec.CompletedAt)))
	}
	return strings.Join(parts, "  ")
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nPROGRESS:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}
