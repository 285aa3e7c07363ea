package content

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"
)

// catalog is an id-keyed store that remembers definition order.
type catalog[T any] struct {
	kind    string
	byID    map[int]T
	order   []int
	missing T
	logger  *log.Logger
}

func newCatalog[T any](kind string, missing T, logger *log.Logger) catalog[T] {
	return catalog[T]{kind: kind, byID: make(map[int]T), missing: missing, logger: logger}
}

func (c *catalog[T]) add(id int, rec T) bool {
	if _, dup := c.byID[id]; dup {
		c.logger.Warn("duplicate id, keeping the first", "catalog", c.kind, "id", id)
		return false
	}
	c.byID[id] = rec
	c.order = append(c.order, id)
	return true
}

// Lookup returns the record for id, or the catalog's sentinel with a
// warning when id is unknown.
func (c *catalog[T]) Lookup(id int) T {
	rec, ok := c.byID[id]
	if !ok {
		c.logger.Warn("lookup miss", "catalog", c.kind, "id", id)
		return c.missing
	}
	return rec
}

// Has reports whether id is defined.
func (c *catalog[T]) Has(id int) bool {
	_, ok := c.byID[id]
	return ok
}

// All returns every record in definition order.
func (c *catalog[T]) All() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len is the number of records.
func (c *catalog[T]) Len() int { return len(c.order) }

type Actions struct{ catalog[Action] }

// Eligible resolves ids to the actions the player may pick right now:
// known and visible, in the given order.
func (c *Actions) Eligible(ids []int, l Ledger) []Action {
	var out []Action
	for _, id := range ids {
		a := c.Lookup(id)
		if a.ID < 0 || !a.IsVisible(l) {
			continue
		}
		out = append(out, a)
	}
	return out
}

type Events struct {
	catalog[Event]
	lastMile int
}

// At returns the events due at mile, in definition order.
func (c *Events) At(mile int) []Event {
	var out []Event
	for _, id := range c.order {
		if e := c.byID[id]; e.Mile == mile {
			out = append(out, e)
		}
	}
	return out
}

// HasEventsAfter reports whether any event is due at or past mile.
func (c *Events) HasEventsAfter(mile int) bool {
	return c.Len() > 0 && c.lastMile >= mile
}

// LastMile is the mile of the final event, or -1 with no events.
func (c *Events) LastMile() int {
	if c.Len() == 0 {
		return -1
	}
	return c.lastMile
}

type Issues struct{ catalog[Issue] }

// CanServe reports whether the issue may fire: it has not happened, all
// of its dependent actions have, and every dependent item is held.
func (c *Issues) CanServe(id int, l Ledger) bool {
	is, ok := c.byID[id]
	if !ok || l.IssueHappened(id) {
		return false
	}
	for _, a := range is.DependentActions {
		if !l.ActionHappened(a) {
			return false
		}
	}
	for _, item := range is.DependentInventory {
		if l.InventoryCount(item) <= 0 {
			return false
		}
	}
	return true
}

// PopRandom draws a servable issue of the category and marks it happened.
// ok is false when nothing can be served.
func (c *Issues) PopRandom(cat IssueCategory, l IssueLedger, rng *rand.Rand) (Issue, bool) {
	var candidates []int
	for _, id := range c.order {
		if c.byID[id].Category == cat && c.CanServe(id, l) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return EmptyIssue, false
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	id := candidates[0]
	l.MarkIssueHappened(id)
	return c.byID[id], true
}

type Items struct{ catalog[Item] }

type Endings struct{ catalog[Ending] }
