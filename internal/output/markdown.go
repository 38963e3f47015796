package output

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const minPromptWidth = 20

// promptWidth picks the wrap width for challenge prompts: the terminal size
// when stdout is one, COLUMNS otherwise, then 80.
func promptWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return 80
}

// RenderMarkdown renders a challenge prompt for the terminal. Best-effort:
// any glamour failure returns the raw markdown, so a broken style or odd
// terminal never hides a prompt.
func RenderMarkdown(text string) string {
	out, err := RenderMarkdownWithWidth(text, promptWidth())
	if err != nil {
		return text
	}
	return out
}

// RenderMarkdownWithWidth renders markdown wrapped to an explicit width.
func RenderMarkdownWithWidth(text string, width int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if width < minPromptWidth {
		width = minPromptWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
