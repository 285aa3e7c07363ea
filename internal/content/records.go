// Package content holds the catalogs of actions, events, issues, items and
// endings that drive a journey. Catalogs are built once from declarative
// documents and are read-only afterwards.
package content

import (
	"strings"

	"github.com/tatianab/gtfoklahoma/internal/stats"
)

// ActionType is a bitmask of what performing an action does.
type ActionType uint32

const (
	ActionStatChange ActionType = 1 << iota
	ActionStore
	ActionInventoryDependent
)

// ActionNone is an action that only records that it happened.
const ActionNone ActionType = 0

var actionTypeNames = map[string]ActionType{
	"NONE":                ActionNone,
	"STAT_CHANGE":         ActionStatChange,
	"STORE":               ActionStore,
	"INVENTORY_DEPENDENT": ActionInventoryDependent,
}

// Has reports whether every bit of flag is set in t.
func (t ActionType) Has(flag ActionType) bool {
	return flag != 0 && t&flag == flag
}

func (t ActionType) String() string {
	if t == ActionNone {
		return "NONE"
	}
	var parts []string
	for _, name := range []string{"STAT_CHANGE", "STORE", "INVENTORY_DEPENDENT"} {
		if t.Has(actionTypeNames[name]) {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// InventoryGate hides an action unless the player holds at least Quantity
// of ItemID.
type InventoryGate struct {
	ItemID   int `yaml:"id" json:"id"`
	Quantity int `yaml:"quantity" json:"quantity"`
}

// Outcome is the probabilistic part of a stat-change action.
type Outcome struct {
	SuccessChance   float64
	MessageSuccess  string
	MessageFailure  string
	DeltaRegardless stats.Vector
	DeltaOnSuccess  stats.Vector
	DeltaOnFailure  stats.Vector
}

// Action is something the player can choose in response to an event or
// issue.
type Action struct {
	ID          int
	DisplayName string
	Type        ActionType
	Gates       []InventoryGate
	EndingHints []int
	Outcome     Outcome
	StoreItems  []int

	// Succeeded is drawn once when the catalog is built.
	Succeeded bool
}

// Failed is the inverse of Succeeded.
func (a Action) Failed() bool { return !a.Succeeded }

// Message is the outcome message that applies, or "" if the action has
// none.
func (a Action) Message() string {
	if a.Succeeded {
		return a.Outcome.MessageSuccess
	}
	return a.Outcome.MessageFailure
}

// Delta is the total stat change performing the action applies.
func (a Action) Delta() stats.Vector {
	if !a.Type.Has(ActionStatChange) {
		return stats.Vector{}
	}
	d := a.Outcome.DeltaOnFailure
	if a.Succeeded {
		d = a.Outcome.DeltaOnSuccess
	}
	return stats.Merge(a.Outcome.DeltaRegardless, d)
}

// IsVisible reports whether every inventory gate of a is satisfied.
// Actions without gates are always visible.
func (a Action) IsVisible(l Ledger) bool {
	for _, g := range a.Gates {
		if l.InventoryCount(g.ItemID) < g.Quantity {
			return false
		}
	}
	return true
}

// Event is a story beat due at a mile.
type Event struct {
	ID          int
	ActionIDs   []int
	Description string
	DisplayName string
	EndingHints []int
	Mile        int
}

// IssueCategory separates health issues from mechanical ones. Each
// category has its own odds stat.
type IssueCategory int

const (
	IssueHealth IssueCategory = iota
	IssueMechanical
)

func (c IssueCategory) String() string {
	switch c {
	case IssueHealth:
		return "HEALTH"
	case IssueMechanical:
		return "MECHANICAL"
	}
	return "UNKNOWN"
}

// Issue is a random complication.
type Issue struct {
	ID                 int
	Category           IssueCategory
	ActionIDs          []int
	DependentActions   []int
	DependentInventory []int
	Description        string
	DisplayName        string
	ImageURL           string
	EndingHints        []int
	Delta              stats.Vector
}

// ItemCategory is a display grouping for items.
type ItemCategory int

const (
	ItemMisc ItemCategory = iota
	ItemBike
)

func (c ItemCategory) String() string {
	if c == ItemBike {
		return "BIKE"
	}
	return "MISC"
}

// Item is something that can be bought and carried. Delta is applied once
// per unit acquired.
type Item struct {
	ID          int
	Category    ItemCategory
	Cost        int
	DisplayName string
	ImageURL    string
	Delta       stats.Vector
}

// Ending is what the player is shown when the journey ends.
type Ending struct {
	ID          int
	DisplayName string
	Description string
	ImageTag    string
}

// Sentinels returned by lookups that miss.
var (
	EmptyAction = Action{ID: -1}
	EmptyEvent  = Event{ID: -1, Mile: -1}
	EmptyIssue  = Issue{ID: -1}
	EmptyItem   = Item{ID: -1, Cost: -1}
	NoEnding    = Ending{ID: -1, DisplayName: "The End", Description: "The journey is over."}
)

// Ledger is the read side of the world state that catalog queries need.
type Ledger interface {
	InventoryCount(itemID int) int
	ActionHappened(actionID int) bool
	IssueHappened(issueID int) bool
}

// IssueLedger also records that an issue was drawn.
type IssueLedger interface {
	Ledger
	MarkIssueHappened(issueID int)
}
