package app

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/tatianab/gtfoklahoma/internal/config"
	"github.com/tatianab/gtfoklahoma/internal/dispatch"
	"github.com/tatianab/gtfoklahoma/internal/engine"
	"github.com/tatianab/gtfoklahoma/internal/journal"
)

func testRuntime(t *testing.T) *Runtime {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		SaveDir:    filepath.Join(dir, "saves"),
		JournalDir: filepath.Join(dir, "journal"),
		DBPath:     filepath.Join(dir, "journal.db"),
		Seed:       42,
	}
	rt, err := Open(cfg, log.New(io.Discard))
	if err != nil {
		t.Fatalf("Failed to open runtime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestLaunchIsReproducible(t *testing.T) {
	rt := testRuntime(t)

	a, err := rt.Session("", "first")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if a.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", a.Seed)
	}
	_, libA, err := rt.Launch(a)
	if err != nil {
		t.Fatalf("Failed to launch: %v", err)
	}
	b, _ := rt.Session("", "second")
	_, libB, err := rt.Launch(b)
	if err != nil {
		t.Fatalf("Failed to launch: %v", err)
	}

	for _, act := range libA.Actions.All() {
		if libB.Actions.Lookup(act.ID).Succeeded != act.Succeeded {
			t.Errorf("Expected action %d to draw the same outcome for the same seed", act.ID)
		}
	}
}

func TestLaunchPicksSeed(t *testing.T) {
	rt := testRuntime(t)
	rt.Config.Seed = 0

	s, _ := rt.Session("", "random")
	if _, _, err := rt.Launch(s); err != nil {
		t.Fatalf("Failed to launch: %v", err)
	}
	if s.Seed == 0 {
		t.Error("Expected a seed to be assigned")
	}
}

func TestFinishedSessionCannotResume(t *testing.T) {
	rt := testRuntime(t)
	s, _ := rt.Session("", "done")
	s.Over = true
	if err := rt.Store.Save(s); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	if _, err := rt.Session(s.ID, ""); !errors.Is(err, engine.ErrGameOver) {
		t.Errorf("Expected ErrGameOver, got %v", err)
	}
}

func TestJournalReachesIndex(t *testing.T) {
	rt := testRuntime(t)
	s, _ := rt.Session("", "journal")
	eng, _, err := rt.Launch(s)
	if err != nil {
		t.Fatalf("Failed to launch: %v", err)
	}
	eng.RegisterObserver(firstChoice{})
	if err := eng.Step(context.Background()); err != nil {
		t.Fatalf("Failed to step: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	idx, err := journal.OpenSQLite(rt.Config.DBPath, log.New(io.Discard))
	if err != nil {
		t.Fatalf("Failed to reopen index: %v", err)
	}
	defer idx.Close()
	entries, err := idx.Entries(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Failed to read index: %v", err)
	}
	if len(entries) == 0 {
		t.Error("Expected the mile 0 event in the index")
	}

	fileEntries, err := journal.ReadFile(journal.NewFileWriter(rt.Config.JournalDir).Path(s.ID))
	if err != nil {
		t.Fatalf("Failed to read journal file: %v", err)
	}
	if len(fileEntries) != len(entries) {
		t.Errorf("Expected %d file entries, got %d", len(entries), len(fileEntries))
	}
}

type firstChoice struct{ engine.NopObserver }

func (firstChoice) OnEvent(d *dispatch.Decision)          { _ = d.Resolve(d.Choices[0].ID) }
func (firstChoice) OnStoreEntered(v *dispatch.StoreVisit) { _ = v.Complete() }
