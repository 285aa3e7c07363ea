// Package app wires configuration, content, persistence and the engine
// together for the commands.
package app

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/tatianab/gtfoklahoma/internal/config"
	"github.com/tatianab/gtfoklahoma/internal/content"
	"github.com/tatianab/gtfoklahoma/internal/engine"
	"github.com/tatianab/gtfoklahoma/internal/journal"
	"github.com/tatianab/gtfoklahoma/internal/models"
	"github.com/tatianab/gtfoklahoma/internal/random"
)

// engineStream separates the engine's random stream from the one that
// draws action outcomes for the same session seed.
const engineStream = 0x5bd1e995

// Runtime holds what a command shares across sessions.
type Runtime struct {
	Config *config.Config
	Logger *log.Logger
	Store  *models.Store

	journal journal.Sink
	index   *journal.SQLiteIndex
}

// Open prepares the save store and the journal sinks named by cfg.
func Open(cfg *config.Config, logger *log.Logger) (*Runtime, error) {
	if logger == nil {
		logger = log.Default()
	}
	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		Store:  models.NewStore(cfg.SaveDir),
	}

	var sinks journal.Multi
	if cfg.JournalDir != "" {
		sinks = append(sinks, journal.NewFileWriter(cfg.JournalDir))
	}
	if cfg.DBPath != "" {
		idx, err := journal.OpenSQLite(cfg.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open journal index: %w", err)
		}
		rt.index = idx
		sinks = append(sinks, idx)
	}
	rt.journal = sinks
	return rt, nil
}

// Index returns the SQLite journal index, or nil when it is disabled.
func (rt *Runtime) Index() *journal.SQLiteIndex { return rt.index }

// Launch builds the catalogs and engine for s. A session without a seed
// gets one from the config. Action outcomes are drawn from the session
// seed, so a resumed session sees the same outcomes it had before.
func (rt *Runtime) Launch(s *models.GameSession) (*engine.Engine, *content.Library, error) {
	if s.Seed == 0 {
		_, seed, err := random.FromConfig(rt.Config.Seed)
		if err != nil {
			return nil, nil, err
		}
		s.Seed = seed
	}
	lib, err := content.Load(rt.Config.ContentDir, random.New(s.Seed), rt.Logger)
	if err != nil {
		return nil, nil, err
	}
	eng := engine.New(lib, s, engine.Options{
		TickDelay:       rt.Config.TickDelay,
		DecisionTimeout: rt.Config.DecisionTimeout,
		Logger:          rt.Logger.With("session", s.ID),
		Rand:            random.New(s.Seed ^ engineStream),
		Journal:         rt.journal,
	})
	return eng, lib, nil
}

// Session loads the saved session id, or starts a new one named name
// when id is empty.
func (rt *Runtime) Session(id, name string) (*models.GameSession, error) {
	if id == "" {
		return models.NewSession(name, rt.Config.Seed), nil
	}
	s, err := rt.Store.Load(id)
	if err != nil {
		return nil, err
	}
	if s.Over {
		return nil, fmt.Errorf("session %s: %w", id, engine.ErrGameOver)
	}
	return s, nil
}

// Close flushes the journals.
func (rt *Runtime) Close() error {
	if rt.journal == nil {
		return nil
	}
	return rt.journal.Close()
}
