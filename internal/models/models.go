package models

import (
	"maps"
	"slices"
	"time"

	"github.com/tatianab/gtfoklahoma/internal/content"
	"github.com/tatianab/gtfoklahoma/internal/stats"
)

// GameState is the dynamic world state of a journey. The engine goroutine
// is its only writer; everyone else works on a Clone.
type GameState struct {
	Hour               int          `yaml:"hour"` // 0-23
	Mile               int          `yaml:"mile"`
	Tick               int64        `yaml:"tick"`
	TicksUntilNextMile int          `yaml:"ticks_until_next_mile"`
	EventsHandledMile  int          `yaml:"events_handled_mile"` // last mile whose events were dispatched
	EventsHandled      map[int]bool `yaml:"events_handled"`
	Stats              stats.Vector `yaml:"stats"`
	Inventory          map[int]int  `yaml:"inventory"` // item id -> quantity, never zero
	EndingHints        []int        `yaml:"ending_hints"`
	ActionsHappened    map[int]bool `yaml:"actions_happened"`
	IssuesHappened     map[int]bool `yaml:"issues_happened"`
}

// NewGameState returns a fresh journey at mile 0 with default stats.
func NewGameState() *GameState {
	return &GameState{
		EventsHandledMile: -1,
		Stats:             stats.Default(),
		Inventory:         make(map[int]int),
		EventsHandled:     make(map[int]bool),
		ActionsHappened:   make(map[int]bool),
		IssuesHappened:    make(map[int]bool),
	}
}

// normalize fills nil maps after a load.
func (s *GameState) normalize() {
	if s.Inventory == nil {
		s.Inventory = make(map[int]int)
	}
	if s.EventsHandled == nil {
		s.EventsHandled = make(map[int]bool)
	}
	if s.ActionsHappened == nil {
		s.ActionsHappened = make(map[int]bool)
	}
	if s.IssuesHappened == nil {
		s.IssuesHappened = make(map[int]bool)
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *GameState) Clone() GameState {
	c := *s
	c.Inventory = maps.Clone(s.Inventory)
	c.EndingHints = slices.Clone(s.EndingHints)
	c.EventsHandled = maps.Clone(s.EventsHandled)
	c.ActionsHappened = maps.Clone(s.ActionsHappened)
	c.IssuesHappened = maps.Clone(s.IssuesHappened)
	return c
}

func (s *GameState) BumpHour() int {
	s.Hour = (s.Hour + 1) % 24
	return s.Hour
}

func (s *GameState) BumpMile() int {
	s.Mile++
	return s.Mile
}

func (s *GameState) BumpTick() int64 {
	s.Tick++
	return s.Tick
}

// ApplyDelta merges delta into the player's stats.
func (s *GameState) ApplyDelta(delta stats.Vector) {
	s.Stats = stats.Merge(s.Stats, delta)
}

// AddItem adds quantity units of item and applies its stat delta once per
// unit.
func (s *GameState) AddItem(item content.Item, quantity int) {
	if quantity <= 0 || item.ID < 0 {
		return
	}
	s.Inventory[item.ID] += quantity
	for range quantity {
		s.ApplyDelta(item.Delta)
	}
}

// RemoveItem removes up to quantity units of id. It reports false when
// the item is not held.
func (s *GameState) RemoveItem(id, quantity int) bool {
	have, ok := s.Inventory[id]
	if !ok {
		return false
	}
	if have <= quantity {
		delete(s.Inventory, id)
	} else {
		s.Inventory[id] = have - quantity
	}
	return true
}

// Items expands the inventory into one record per unit, ordered by id.
func (s *GameState) Items(catalog *content.Items) []content.Item {
	var out []content.Item
	for _, id := range slices.Sorted(maps.Keys(s.Inventory)) {
		item := catalog.Lookup(id)
		for range s.Inventory[id] {
			out = append(out, item)
		}
	}
	return out
}

// PushEndingHints pushes ids in order, so the last one is popped first.
func (s *GameState) PushEndingHints(ids ...int) {
	s.EndingHints = append(s.EndingHints, ids...)
}

// PopEndingHint pops the most recent hint. ok is false on an empty stack.
func (s *GameState) PopEndingHint() (id int, ok bool) {
	n := len(s.EndingHints)
	if n == 0 {
		return -1, false
	}
	id = s.EndingHints[n-1]
	s.EndingHints = s.EndingHints[:n-1]
	return id, true
}

func (s *GameState) MarkActionHappened(id int) { s.ActionsHappened[id] = true }
func (s *GameState) MarkEventHandled(id int)   { s.EventsHandled[id] = true }
func (s *GameState) EventHandled(id int) bool  { return s.EventsHandled[id] }

// UnmarkIssueHappened returns an issue to the pool when its decision was
// abandoned.
func (s *GameState) UnmarkIssueHappened(id int) { delete(s.IssuesHappened, id) }

// The methods below satisfy content.IssueLedger.

func (s *GameState) InventoryCount(id int) int  { return s.Inventory[id] }
func (s *GameState) ActionHappened(id int) bool { return s.ActionsHappened[id] }
func (s *GameState) IssueHappened(id int) bool  { return s.IssuesHappened[id] }
func (s *GameState) MarkIssueHappened(id int)   { s.IssuesHappened[id] = true }

// Dead reports whether the rider's health is gone.
func (s *GameState) Dead() bool { return s.Stats.Health <= 0 }

// HistoryEntry represents a single resolved decision.
type HistoryEntry struct {
	Tick       int64        `yaml:"tick"`
	Hour       int          `yaml:"hour"`
	Mile       int          `yaml:"mile"`
	Kind       string       `yaml:"kind"` // "event", "issue", "store" or "ending"
	ContentID  int          `yaml:"content_id"`
	Title      string       `yaml:"title"`
	ActionID   int          `yaml:"action_id"`
	Action     string       `yaml:"action,omitempty"`
	Outcome    string       `yaml:"outcome,omitempty"`
	Purchased  []int        `yaml:"purchased,omitempty"`
	StatsAfter stats.Vector `yaml:"stats_after"`
	TimedOut   bool         `yaml:"timed_out,omitempty"`
}

// GameHistory is the ordered log of a session's decisions.
type GameHistory struct {
	Entries []HistoryEntry `yaml:"entries"`
}

// GameSession aggregates all game-related data.
type GameSession struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	Seed      uint64      `yaml:"seed"`
	CreatedAt time.Time   `yaml:"created_at"`
	UpdatedAt time.Time   `yaml:"updated_at"`
	Over      bool        `yaml:"over"`
	Ending    int         `yaml:"ending"` // -1 while playing or when no ending was hinted
	State     GameState   `yaml:"-"`
	History   GameHistory `yaml:"-"`
}
