package content

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/gtfoklahoma/internal/random"
)

// Library is the full set of catalogs for a journey.
type Library struct {
	Actions *Actions
	Events  *Events
	Issues  *Issues
	Items   *Items
	Endings *Endings
}

// Build parses every document and validates cross references. Action
// outcomes are drawn here from rng (crypto-seeded when nil) and never
// change afterwards.
//
// A document that is not a list is returned as an error. Malformed
// entries and dangling ids are only logged.
func Build(docs Documents, rng *rand.Rand, logger *log.Logger) (*Library, error) {
	if logger == nil {
		logger = log.Default()
	}
	if rng == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, err
		}
		rng = random.New(seed)
	}
	lib := &Library{
		Actions: &Actions{newCatalog("actions", EmptyAction, logger)},
		Events:  &Events{catalog: newCatalog("events", EmptyEvent, logger), lastMile: -1},
		Issues:  &Issues{newCatalog("issues", EmptyIssue, logger)},
		Items:   &Items{newCatalog("items", EmptyItem, logger)},
		Endings: &Endings{newCatalog("endings", NoEnding, logger)},
	}

	err := decodeEach("actions", docs.Actions, logger, func(node *yaml.Node) error {
		var d actionDef
		if err := node.Decode(&d); err != nil {
			return err
		}
		a := d.record(logger)
		a.Succeeded = rng.Float64() < a.Outcome.SuccessChance
		lib.Actions.add(a.ID, a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = decodeEach("events", docs.Events, logger, func(node *yaml.Node) error {
		var d eventDef
		if err := node.Decode(&d); err != nil {
			return err
		}
		e := d.record()
		if lib.Events.add(e.ID, e) && e.Mile > lib.Events.lastMile {
			lib.Events.lastMile = e.Mile
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = decodeEach("issues", docs.Issues, logger, func(node *yaml.Node) error {
		var d issueDef
		if err := node.Decode(&d); err != nil {
			return err
		}
		lib.Issues.add(d.ID, d.record())
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = decodeEach("items", docs.Items, logger, func(node *yaml.Node) error {
		var d itemDef
		if err := node.Decode(&d); err != nil {
			return err
		}
		lib.Items.add(d.ID, d.record())
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = decodeEach("endings", docs.Endings, logger, func(node *yaml.Node) error {
		var d endingDef
		if err := node.Decode(&d); err != nil {
			return err
		}
		lib.Endings.add(d.ID, d.record())
		return nil
	})
	if err != nil {
		return nil, err
	}

	lib.checkReferences(logger)
	return lib, nil
}

func (lib *Library) checkReferences(logger *log.Logger) {
	missing := func(from string, id int, kind string, ref int) {
		logger.Warn("dangling reference", "from", from, "id", id, "to", kind, "ref", ref)
	}
	checkEndings := lib.Endings.Len() > 0

	for _, a := range lib.Actions.All() {
		for _, item := range a.StoreItems {
			if !lib.Items.Has(item) {
				missing("action", a.ID, "item", item)
			}
		}
		for _, g := range a.Gates {
			if !lib.Items.Has(g.ItemID) {
				missing("action", a.ID, "item", g.ItemID)
			}
		}
		for _, e := range a.EndingHints {
			if checkEndings && !lib.Endings.Has(e) {
				missing("action", a.ID, "ending", e)
			}
		}
	}
	for _, ev := range lib.Events.All() {
		for _, a := range ev.ActionIDs {
			if !lib.Actions.Has(a) {
				missing("event", ev.ID, "action", a)
			}
		}
		for _, e := range ev.EndingHints {
			if checkEndings && !lib.Endings.Has(e) {
				missing("event", ev.ID, "ending", e)
			}
		}
	}
	for _, is := range lib.Issues.All() {
		for _, a := range append(append([]int{}, is.ActionIDs...), is.DependentActions...) {
			if !lib.Actions.Has(a) {
				missing("issue", is.ID, "action", a)
			}
		}
		for _, item := range is.DependentInventory {
			if !lib.Items.Has(item) {
				missing("issue", is.ID, "item", item)
			}
		}
		for _, e := range is.EndingHints {
			if checkEndings && !lib.Endings.Has(e) {
				missing("issue", is.ID, "ending", e)
			}
		}
	}
}

// Load builds a library from dir, or from the embedded journey when dir
// is empty.
func Load(dir string, rng *rand.Rand, logger *log.Logger) (*Library, error) {
	docs := Embedded()
	if dir != "" {
		var err error
		if docs, err = ReadDir(dir); err != nil {
			return nil, err
		}
	}
	return Build(docs, rng, logger)
}
