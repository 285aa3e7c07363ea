package models

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const DefaultSaveDir = ".saves"

// NewSession starts a session with a fresh world state.
func NewSession(name string, seed uint64) *GameSession {
	now := time.Now().UTC()
	return &GameSession{
		ID:        uuid.NewString(),
		Name:      name,
		Seed:      seed,
		CreatedAt: now,
		UpdatedAt: now,
		Ending:    -1,
		State:     *NewGameState(),
	}
}

// Store keeps one directory per session under Dir.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultSaveDir
	}
	return &Store{Dir: dir}
}

func (st *Store) Save(s *GameSession) error {
	if s.ID == "" {
		return errors.New("session has no id")
	}
	dir := filepath.Join(st.Dir, s.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()

	// history and state first, so session.yaml marks a complete save
	if err := writeYAML(filepath.Join(dir, "history.yaml"), s.History); err != nil {
		return err
	}
	if err := writeYAML(filepath.Join(dir, "state.yaml"), s.State); err != nil {
		return err
	}
	return writeYAML(filepath.Join(dir, "session.yaml"), s)
}

func (st *Store) Load(id string) (*GameSession, error) {
	dir := filepath.Join(st.Dir, id)

	var session GameSession
	if err := readYAML(filepath.Join(dir, "session.yaml"), &session); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(dir, "state.yaml"), &session.State); err != nil {
		return nil, err
	}
	session.State.normalize()
	if err := readYAML(filepath.Join(dir, "history.yaml"), &session.History); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns the saved sessions without state or history, most
// recently updated first.
func (st *Store) List() ([]GameSession, error) {
	entries, err := os.ReadDir(st.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []GameSession{}, nil
	}
	if err != nil {
		return nil, err
	}

	var sessions []GameSession
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var s GameSession
		// session.yaml is the marker for a valid save
		if err := readYAML(filepath.Join(st.Dir, entry.Name(), "session.yaml"), &s); err != nil {
			continue
		}
		sessions = append(sessions, s)
	}
	slices.SortFunc(sessions, func(a, b GameSession) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return sessions, nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0644)
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
