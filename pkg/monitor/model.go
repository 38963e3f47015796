// Package monitor is the live progress dashboard TUI. It renders the
// challenge catalog with completion state and refreshes when the broadcast
// hub announces a progress update, a migration, or a sync status change.
package monitor

import (
	"encoding/json"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cybercompass/compass/internal/broadcast"
	"github.com/cybercompass/compass/internal/catalog"
	"github.com/cybercompass/compass/internal/models"
	"github.com/cybercompass/compass/internal/store"
)

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// MinHeight is the minimum terminal height for proper display
const MinHeight = 10

// Model is the main Bubble Tea model for the monitor TUI
type Model struct {
	Store     *store.Store
	Hub       *broadcast.Hub
	SessionID string

	sub chan broadcast.Message

	// Window dimensions
	Width  int
	Height int

	// Panel data
	Challenges []models.Challenge
	Progress   map[string]models.ProgressRecord
	QueueLen   int

	// UI state
	Syncing      bool
	Spinner      spinner.Model
	LastEvent    string
	ScrollOffset int
	ShowHelp     bool
	LastRefresh  time.Time
	Err          error

	// Configuration
	RefreshInterval time.Duration

	// OnFocus runs when the terminal regains focus (requires
	// tea.WithReportFocus on the program).
	OnFocus func()
}

// TickMsg triggers a data refresh
type TickMsg time.Time

// RefreshDataMsg carries refreshed data
type RefreshDataMsg struct {
	Progress  map[string]models.ProgressRecord
	QueueLen  int
	Err       error
	Timestamp time.Time
}

// BroadcastMsg wraps a hub message for the bubbletea loop
type BroadcastMsg broadcast.Message

// NewModel creates a new monitor model
func NewModel(st *store.Store, hub *broadcast.Hub, sessionID string, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = syncStyle
	return Model{
		Store:           st,
		Hub:             hub,
		SessionID:       sessionID,
		sub:             hub.Subscribe(),
		Challenges:      catalog.All(),
		Progress:        make(map[string]models.ProgressRecord),
		Spinner:         sp,
		RefreshInterval: interval,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchData(),
		m.scheduleTick(),
		m.waitForBroadcast(),
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case RefreshDataMsg:
		m.Progress = msg.Progress
		m.QueueLen = msg.QueueLen
		m.Err = msg.Err
		m.LastRefresh = msg.Timestamp
		return m, nil

	case BroadcastMsg:
		wasSyncing := m.Syncing
		m = m.applyBroadcast(broadcast.Message(msg))
		cmds := []tea.Cmd{m.fetchData(), m.waitForBroadcast()}
		if m.Syncing && !wasSyncing {
			cmds = append(cmds, m.Spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case tea.FocusMsg:
		if m.OnFocus != nil {
			m.OnFocus()
		}
		return m, m.fetchData()

	case spinner.TickMsg:
		if !m.Syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// applyBroadcast folds a hub message into the UI state
func (m Model) applyBroadcast(msg broadcast.Message) Model {
	switch msg.Type {
	case broadcast.TypeProgressUpdate:
		m.LastEvent = "progress: " + msg.ChallengeID
	case broadcast.TypeMigrationSuccess:
		var result models.MigrationResult
		if json.Unmarshal(msg.Payload, &result) == nil {
			m.LastEvent = "migration: " + migrationSummary(result)
		} else {
			m.LastEvent = "migration complete"
		}
	case broadcast.TypeSyncStatusChange:
		var status struct {
			Syncing bool `json:"syncing"`
		}
		if json.Unmarshal(msg.Payload, &status) == nil {
			m.Syncing = status.Syncing
		}
	}
	return m
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.Hub.Unsubscribe(m.sub)
		return m, tea.Quit

	case "j", "down":
		m.ScrollOffset++
		return m, nil

	case "k", "up":
		if m.ScrollOffset > 0 {
			m.ScrollOffset--
		}
		return m, nil

	case "r":
		return m, m.fetchData()

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// fetchData returns a command that reads the local store and sends a RefreshDataMsg
func (m Model) fetchData() tea.Cmd {
	st, sessionID := m.Store, m.SessionID
	return func() tea.Msg {
		out := RefreshDataMsg{
			Progress:  make(map[string]models.ProgressRecord),
			Timestamp: time.Now(),
		}

		records, err := st.GetAllProgress(sessionID)
		if err != nil {
			out.Err = err
			return out
		}
		for _, rec := range records {
			out.Progress[rec.ChallengeID] = rec
		}

		pending, err := st.PendingSyncItems()
		if err != nil {
			out.Err = err
			return out
		}
		out.QueueLen = len(pending)
		return out
	}
}

// waitForBroadcast returns a command that blocks on the hub subscription
func (m Model) waitForBroadcast() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		msg, ok := <-sub
		if !ok {
			return nil
		}
		return BroadcastMsg(msg)
	}
}
