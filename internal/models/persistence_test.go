package models

import (
	"testing"
	"time"

	"github.com/tatianab/gtfoklahoma/internal/stats"
)

func TestStoreSaveAndLoad(t *testing.T) {
	store := NewStore(t.TempDir())
	session := NewSession("okc run", 99)
	session.State.Hour = 7
	session.State.Mile = 12
	session.State.Stats.Pace = stats.PaceMerckx
	session.State.Inventory[2] = 1
	session.State.MarkActionHappened(3)
	session.State.MarkIssueHappened(1)
	session.State.PushEndingHints(0, 2)
	session.History.Entries = append(session.History.Entries, HistoryEntry{
		Kind: "event", ContentID: 0, Title: "Start", ActionID: 1, Action: "Roll out",
	})

	if err := store.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	loaded, err := store.Load(session.ID)
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if loaded.Name != "okc run" || loaded.Seed != 99 || loaded.Ending != -1 {
		t.Errorf("Unexpected session header: %+v", loaded)
	}
	st := loaded.State
	if st.Hour != 7 || st.Mile != 12 || st.EventsHandledMile != -1 {
		t.Errorf("Unexpected position: hour %d, mile %d, handled %d", st.Hour, st.Mile, st.EventsHandledMile)
	}
	if st.Stats != session.State.Stats {
		t.Errorf("Expected stats %+v, got %+v", session.State.Stats, st.Stats)
	}
	if !st.ActionHappened(3) || !st.IssueHappened(1) || st.InventoryCount(2) != 1 {
		t.Errorf("Expected happened sets and inventory to survive, got %+v", st)
	}
	if id, _ := st.PopEndingHint(); id != 2 {
		t.Errorf("Expected top ending hint 2, got %d", id)
	}
	if len(loaded.History.Entries) != 1 || loaded.History.Entries[0].Action != "Roll out" {
		t.Errorf("Expected 1 history entry, got %+v", loaded.History.Entries)
	}
}

func TestStoreLoadNormalizesEmptyState(t *testing.T) {
	store := NewStore(t.TempDir())
	session := NewSession("empty", 1)
	session.State.Inventory = nil
	session.State.IssuesHappened = nil
	if err := store.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	loaded, err := store.Load(session.ID)
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	loaded.State.Inventory[0] = 1
	loaded.State.MarkIssueHappened(0)
}

func TestStoreList(t *testing.T) {
	store := NewStore(t.TempDir())

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("Expected no sessions, got %d", len(sessions))
	}

	first := NewSession("first", 1)
	second := NewSession("second", 2)
	for _, s := range []*GameSession{first, second} {
		if err := store.Save(s); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	sessions, err = store.List()
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != second.ID {
		t.Errorf("Expected most recent session first, got %s", sessions[0].Name)
	}

	if _, err := store.Load("missing"); err == nil {
		t.Error("Expected an error loading a missing session")
	}
}
