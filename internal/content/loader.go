package content

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/gtfoklahoma/internal/stats"
)

//go:embed data/*.yaml
var defaultData embed.FS

// Documents are the raw content documents, one per catalog. Each must be
// a YAML (or JSON) list of entries.
type Documents struct {
	Actions []byte
	Events  []byte
	Issues  []byte
	Items   []byte
	Endings []byte
}

var documentNames = []string{"actions", "events", "issues", "items", "endings"}

func (d *Documents) slot(kind string) *[]byte {
	switch kind {
	case "actions":
		return &d.Actions
	case "events":
		return &d.Events
	case "issues":
		return &d.Issues
	case "items":
		return &d.Items
	case "endings":
		return &d.Endings
	}
	return nil
}

// Embedded returns the built-in journey.
func Embedded() Documents {
	docs, err := readFS(defaultData, "data")
	if err != nil {
		// The embedded files are part of the binary.
		panic(err)
	}
	return docs
}

// ReadDir reads <kind>.yaml, <kind>.yml or <kind>.json for every catalog
// from dir. The endings document is optional.
func ReadDir(dir string) (Documents, error) {
	docs, err := readFS(os.DirFS(dir), ".")
	if err != nil {
		return Documents{}, fmt.Errorf("load content from %s: %w", dir, err)
	}
	return docs, nil
}

func readFS(fsys fs.FS, dir string) (Documents, error) {
	var docs Documents
	for _, kind := range documentNames {
		var found bool
		for _, ext := range []string{".yaml", ".yml", ".json"} {
			data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, kind+ext)))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return Documents{}, fmt.Errorf("read %s: %w", kind, err)
			}
			*docs.slot(kind) = data
			found = true
			break
		}
		if !found && kind != "endings" {
			return Documents{}, fmt.Errorf("no %s document", kind)
		}
	}
	return docs, nil
}

// entries splits a document into its top-level list entries. A document
// that is not a list is a fatal error; an empty document is an empty list.
func entries(kind string, data []byte) ([]*yaml.Node, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse %s: %w", kind, err)
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("parse %s: top-level value must be a list", kind)
	}
	return doc.Content, nil
}

// decodeEach validates every entry of a document against its schema and
// decodes the valid ones with fn. Invalid entries are logged and skipped.
func decodeEach(kind string, data []byte, logger *log.Logger, fn func(node *yaml.Node) error) error {
	nodes, err := entries(kind, data)
	if err != nil {
		return err
	}
	for i, node := range nodes {
		if err := validateEntry(kind, node); err != nil {
			logger.Warn("skipping malformed entry", "document", kind, "index", i, "line", node.Line, "err", err)
			continue
		}
		if err := fn(node); err != nil {
			logger.Warn("skipping malformed entry", "document", kind, "index", i, "line", node.Line, "err", err)
		}
	}
	return nil
}

type actionDef struct {
	ID                 int             `yaml:"id"`
	DisplayName        string          `yaml:"display_name"`
	Type               []string        `yaml:"type"`
	Items              []int           `yaml:"items"`
	DependentInventory []InventoryGate `yaml:"dependent_inventory_ids"`
	EndingHints        []int           `yaml:"ending_id_hints"`
	SuccessChance      *float64        `yaml:"success_chance"`
	MessageSuccess     string          `yaml:"message_success"`
	MessageFailure     string          `yaml:"message_failure"`
	StatChanges        stats.Delta     `yaml:"stat_changes"`
	Regardless         stats.Delta     `yaml:"stat_changes_regardless"`
	OnSuccess          stats.Delta     `yaml:"stat_changes_on_success"`
	OnFailure          stats.Delta     `yaml:"stat_changes_on_failure"`
}

// record converts the definition. A missing success_chance means the
// action cannot fail. stat_changes is an alias for
// stat_changes_regardless.
func (d actionDef) record(logger *log.Logger) Action {
	a := Action{
		ID:          d.ID,
		DisplayName: d.DisplayName,
		Gates:       d.DependentInventory,
		EndingHints: d.EndingHints,
		StoreItems:  d.Items,
		Outcome: Outcome{
			SuccessChance:   1,
			MessageSuccess:  d.MessageSuccess,
			MessageFailure:  d.MessageFailure,
			DeltaRegardless: stats.Merge(d.StatChanges.Vector(), d.Regardless.Vector()),
			DeltaOnSuccess:  d.OnSuccess.Vector(),
			DeltaOnFailure:  d.OnFailure.Vector(),
		},
	}
	if d.SuccessChance != nil {
		a.Outcome.SuccessChance = *d.SuccessChance
	}
	for _, name := range d.Type {
		t, ok := actionTypeNames[strings.ToUpper(name)]
		if !ok {
			logger.Warn("unknown action type", "action", d.ID, "type", name)
			continue
		}
		a.Type |= t
	}
	for i := range a.Gates {
		if a.Gates[i].Quantity == 0 {
			a.Gates[i].Quantity = 1
		}
	}
	if len(a.Gates) > 0 {
		a.Type |= ActionInventoryDependent
	}
	if len(a.StoreItems) > 0 && !a.Type.Has(ActionStore) {
		logger.Warn("action lists store items but is not a store", "action", d.ID)
	}
	return a
}

type eventDef struct {
	ID          int    `yaml:"id"`
	Actions     []int  `yaml:"actions"`
	Description string `yaml:"description"`
	DisplayName string `yaml:"display_name"`
	EndingHints []int  `yaml:"ending_id_hints"`
	Mile        int    `yaml:"mile"`
}

func (d eventDef) record() Event {
	return Event{
		ID:          d.ID,
		ActionIDs:   d.Actions,
		Description: d.Description,
		DisplayName: d.DisplayName,
		EndingHints: d.EndingHints,
		Mile:        d.Mile,
	}
}

type issueDef struct {
	ID                 int         `yaml:"id"`
	Type               string      `yaml:"type"`
	Actions            []int       `yaml:"actions"`
	DependentActions   []int       `yaml:"dependent_actions"`
	DependentInventory []int       `yaml:"dependent_inventory"`
	Description        string      `yaml:"description"`
	DisplayName        string      `yaml:"display_name"`
	ImageURL           string      `yaml:"image_url"`
	EndingHints        []int       `yaml:"ending_id_hints"`
	StatChanges        stats.Delta `yaml:"stat_changes"`
}

func (d issueDef) record() Issue {
	cat := IssueHealth
	if d.Type == "MECHANICAL" {
		cat = IssueMechanical
	}
	return Issue{
		ID:                 d.ID,
		Category:           cat,
		ActionIDs:          d.Actions,
		DependentActions:   d.DependentActions,
		DependentInventory: d.DependentInventory,
		Description:        d.Description,
		DisplayName:        d.DisplayName,
		ImageURL:           d.ImageURL,
		EndingHints:        d.EndingHints,
		Delta:              d.StatChanges.Vector(),
	}
}

type itemDef struct {
	ID          int         `yaml:"id"`
	Category    string      `yaml:"category"`
	Cost        int         `yaml:"cost"`
	DisplayName string      `yaml:"display_name"`
	ImageURL    string      `yaml:"image_url"`
	StatChanges stats.Delta `yaml:"stat_changes"`
}

// record converts the definition. Buying an item changes money only
// through its delta, so an item whose stat_changes leave money_remaining
// out is charged its cost.
func (d itemDef) record() Item {
	cat := ItemMisc
	if d.Category == "BIKE" {
		cat = ItemBike
	}
	delta := d.StatChanges.Vector()
	if delta.MoneyRemaining == 0 {
		delta.MoneyRemaining = -d.Cost
	}
	return Item{
		ID:          d.ID,
		Category:    cat,
		Cost:        d.Cost,
		DisplayName: d.DisplayName,
		ImageURL:    d.ImageURL,
		Delta:       delta,
	}
}

type endingDef struct {
	ID          int    `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	ImageTag    string `yaml:"image_tag"`
}

func (d endingDef) record() Ending {
	return Ending(d)
}
