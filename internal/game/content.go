package game

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/davewx7/Wizard-Tactics/internal/formula"
)

// Terrain is one entry of the terrain catalog.
type Terrain struct {
	ID       string `yaml:"id"`
	Resource string `yaml:"resource"`
}

// ResourceIndex returns the resource this terrain produces, or -1.
func (t *Terrain) ResourceIndex() int {
	if len(t.Resource) != 1 {
		return -1
	}
	return ResourceIndex(t.Resource[0])
}

// MoveEntry is a movement type's relationship with one terrain.
type MoveEntry struct {
	Cost   int `yaml:"cost"`
	Armor  int `yaml:"armor"`
	Attack int `yaml:"attack"`
}

// defaultMoveCost applies to terrains a movement type does not mention,
// making unlisted terrain expensive rather than impassable.
const defaultMoveCost = 10

// MovementType prices terrain per unit class and carries the terrain
// armor/attack modifiers.
type MovementType struct {
	ID      string
	entries map[string]MoveEntry
}

func (m *MovementType) entry(terrainID string) MoveEntry {
	if e, ok := m.entries[terrainID]; ok {
		return e
	}
	return MoveEntry{Cost: defaultMoveCost}
}

// MovementCost prices entering the given terrain. Negative means impassable.
func (m *MovementType) MovementCost(terrainID string) int { return m.entry(terrainID).Cost }

// ArmorModification is added to a unit's armor while standing on terrainID.
func (m *MovementType) ArmorModification(terrainID string) int { return m.entry(terrainID).Armor }

// AttackModification is added to a unit's attacks made from terrainID.
func (m *MovementType) AttackModification(terrainID string) int { return m.entry(terrainID).Attack }

// Content is the immutable registry every Game session shares: terrain
// catalog, movement tables, card definitions, unit prototypes and the symbol
// table their formulas were compiled against.
type Content struct {
	Terrains   map[string]*Terrain
	MoveTypes  map[string]*MovementType
	Cards      map[string]*Card
	Prototypes map[string]*Unit

	Symbols *formula.SymbolTable
}

// Terrain resolves a terrain id, or nil.
func (c *Content) Terrain(id string) *Terrain { return c.Terrains[id] }

// MoveType resolves a movement type id; the empty id means "default".
func (c *Content) MoveType(id string) *MovementType {
	if id == "" {
		id = "default"
	}
	return c.MoveTypes[id]
}

// Card resolves a card id. Unit abilities are cards under "unitID.abilityID".
func (c *Content) Card(id string) *Card { return c.Cards[id] }

// Prototype resolves a unit prototype id, or nil.
func (c *Content) Prototype(id string) *Unit { return c.Prototypes[id] }

type terrainFile struct {
	Terrains []*Terrain `yaml:"terrains"`
}

type movementFile struct {
	MovementTypes []struct {
		ID      string `yaml:"id"`
		Terrain []struct {
			Terrain   string `yaml:"terrain"`
			MoveEntry `yaml:",inline"`
		} `yaml:"terrain"`
	} `yaml:"movement_types"`
}

type cardFile struct {
	Spells []*cardDef `yaml:"spells"`
}

// LoadContent reads the whole content directory: terrain.yml, movement.yml,
// cards.yml and units/*.yml. Any compile failure aborts the load with the
// offending file named.
func LoadContent(dir string) (*Content, error) {
	content := &Content{
		Terrains:   make(map[string]*Terrain),
		MoveTypes:  make(map[string]*MovementType),
		Cards:      make(map[string]*Card),
		Prototypes: make(map[string]*Unit),
		Symbols:    GameSymbols(),
	}

	var terrains terrainFile
	if err := readYAML(filepath.Join(dir, "terrain.yml"), &terrains); err != nil {
		return nil, err
	}
	for _, t := range terrains.Terrains {
		content.Terrains[t.ID] = t
	}

	var movement movementFile
	if err := readYAML(filepath.Join(dir, "movement.yml"), &movement); err != nil {
		return nil, err
	}
	for _, m := range movement.MovementTypes {
		mt := &MovementType{ID: m.ID, entries: make(map[string]MoveEntry)}
		for _, e := range m.Terrain {
			mt.entries[e.Terrain] = e.MoveEntry
		}
		content.MoveTypes[m.ID] = mt
	}

	var cards cardFile
	if err := readYAML(filepath.Join(dir, "cards.yml"), &cards); err != nil {
		return nil, err
	}
	for _, def := range cards.Spells {
		card, err := compileCard(def, content.Symbols)
		if err != nil {
			return nil, fmt.Errorf("cards.yml: %w", err)
		}
		if _, dup := content.Cards[card.ID]; dup {
			return nil, fmt.Errorf("cards.yml: card %q defined twice", card.ID)
		}
		content.Cards[card.ID] = card
	}

	unitFiles, err := filepath.Glob(filepath.Join(dir, "units", "*.yml"))
	if err != nil {
		return nil, err
	}
	for _, path := range unitFiles {
		var def unitDef
		if err := readYAML(path, &def); err != nil {
			return nil, err
		}
		proto, abilities, err := compilePrototype(&def, content.Symbols)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		proto.MoveType = content.MoveType(def.MovementType)
		content.Prototypes[proto.ID] = proto
		// Each ability doubles as a card keyed unitID.abilityID.
		for _, ab := range abilities {
			content.Cards[ab.card.ID] = ab.card
		}
	}

	return content, nil
}

func readYAML(path string, target any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(target); err != nil {
		return fmt.Errorf("content: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// compileHandlers compiles an event→source map into event→formula, reporting
// the event name on failure.
func compileHandlers(src map[string]string, symbols *formula.SymbolTable, where string) (map[string]*formula.Formula, error) {
	if len(src) == 0 {
		return nil, nil
	}
	handlers := make(map[string]*formula.Formula, len(src))
	for event, text := range src {
		f, err := formula.ParseOptional(text, symbols)
		if err != nil {
			return nil, fmt.Errorf("%s handler %q: %w", where, event, err)
		}
		if f != nil {
			handlers[event] = f
		}
	}
	return handlers, nil
}

// ValidateContent recompiles every formula string in the directory and
// returns all errors found, for the validate command.
func ValidateContent(dir string) []error {
	var errs []error
	if _, err := LoadContent(dir); err != nil {
		errs = append(errs, err)
	}
	return errs
}
