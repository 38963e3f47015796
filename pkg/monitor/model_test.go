package monitor

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cybercompass/compass/internal/broadcast"
	"github.com/cybercompass/compass/internal/models"
	"github.com/cybercompass/compass/internal/store"
)

func newTestModel(t *testing.T) (Model, *store.Store, *broadcast.Hub) {
	t.Helper()

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	hub := broadcast.NewHub()
	t.Cleanup(func() {
		hub.Close()
		st.Close()
	})

	m := NewModel(st, hub, "ses_monitor", time.Second)
	return m, st, hub
}

func TestFetchDataReadsStore(t *testing.T) {
	m, st, _ := newTestModel(t)

	now := time.Now().UTC()
	err := st.SaveProgress(models.ProgressRecord{
		SessionID:   "ses_monitor",
		ChallengeID: "ch_catfish_01",
		IsCompleted: true,
		CompletedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.QueueForSync(models.SyncQueueItem{
		Action:      models.ActionSubmit,
		SessionID:   "ses_monitor",
		ChallengeID: "ch_catfish_01",
		Timestamp:   now,
	}); err != nil {
		t.Fatal(err)
	}

	msg := m.fetchData()()
	refresh, ok := msg.(RefreshDataMsg)
	if !ok {
		t.Fatalf("unexpected msg type %T", msg)
	}
	if refresh.Err != nil {
		t.Fatalf("refresh error: %v", refresh.Err)
	}
	if rec, ok := refresh.Progress["ch_catfish_01"]; !ok || !rec.IsCompleted {
		t.Error("progress record missing from refresh")
	}
	if refresh.QueueLen != 1 {
		t.Errorf("queue len = %d, want 1", refresh.QueueLen)
	}
}

func TestUpdateAppliesRefresh(t *testing.T) {
	m, _, _ := newTestModel(t)

	updated, _ := m.Update(RefreshDataMsg{
		Progress:  map[string]models.ProgressRecord{"ch_bully_01": {ChallengeID: "ch_bully_01", IsCompleted: true}},
		QueueLen:  3,
		Timestamp: time.Now(),
	})
	got := updated.(Model)
	if got.QueueLen != 3 {
		t.Errorf("queue len = %d, want 3", got.QueueLen)
	}
	if _, ok := got.Progress["ch_bully_01"]; !ok {
		t.Error("progress not applied")
	}
}

func TestFocusRunsCallbackAndRefreshes(t *testing.T) {
	m, _, _ := newTestModel(t)

	var focused bool
	m.OnFocus = func() { focused = true }

	_, cmd := m.Update(tea.FocusMsg{})
	if !focused {
		t.Error("focus callback not invoked")
	}
	if cmd == nil {
		t.Error("focus should schedule a data refresh")
	}
}

func TestFocusWithoutCallback(t *testing.T) {
	m, _, _ := newTestModel(t)

	if _, cmd := m.Update(tea.FocusMsg{}); cmd == nil {
		t.Error("focus should schedule a data refresh")
	}
}

func TestBroadcastSyncStatusChange(t *testing.T) {
	m, _, _ := newTestModel(t)

	payload, _ := json.Marshal(map[string]bool{"syncing": true})
	updated, _ := m.Update(BroadcastMsg(broadcast.Message{
		Type:    broadcast.TypeSyncStatusChange,
		Payload: payload,
	}))
	got := updated.(Model)
	if !got.Syncing {
		t.Error("syncing flag not set")
	}

	payload, _ = json.Marshal(map[string]bool{"syncing": false})
	updated, _ = got.Update(BroadcastMsg(broadcast.Message{
		Type:    broadcast.TypeSyncStatusChange,
		Payload: payload,
	}))
	if updated.(Model).Syncing {
		t.Error("syncing flag not cleared")
	}
}

func TestBroadcastMigrationSuccess(t *testing.T) {
	m, _, _ := newTestModel(t)

	payload, _ := json.Marshal(models.MigrationResult{Migrated: 2, Conflicts: 1})
	updated, _ := m.Update(BroadcastMsg(broadcast.Message{
		Type:    broadcast.TypeMigrationSuccess,
		Payload: payload,
	}))
	got := updated.(Model)
	if !strings.Contains(got.LastEvent, "2 migrated") {
		t.Errorf("event = %q", got.LastEvent)
	}
}

func TestScrollBounds(t *testing.T) {
	m, _, _ := newTestModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if updated.(Model).ScrollOffset != 0 {
		t.Error("scroll went negative")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if updated.(Model).ScrollOffset != 1 {
		t.Error("scroll down did not advance")
	}
}

func TestViewShowsCatalog(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.Width = 100
	m.Height = 40
	m.Progress = map[string]models.ProgressRecord{
		"ch_deepfake_01": {ChallengeID: "ch_deepfake_01", IsCompleted: true},
	}

	view := m.View()
	for _, want := range []string{"compass monitor", "ses_monitor", "ch_deepfake_01", "deepfakes"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
