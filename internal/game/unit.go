package game

import (
	"fmt"
	"strings"

	"github.com/davewx7/Wizard-Tactics/internal/formula"
	"github.com/davewx7/Wizard-Tactics/internal/hexgrid"
)

// Modification is a timed stat adjustment on a unit. Effective stats are
// base plus the sum of active modifications.
type Modification struct {
	Life  int `yaml:"life" json:"life,omitempty"`
	Armor int `yaml:"armor" json:"armor,omitempty"`
	Move  int `yaml:"move" json:"move,omitempty"`

	ExpiresEndOfTurn     bool `yaml:"expires_end_of_turn" json:"expires_end_of_turn,omitempty"`
	ExpiresOnStateChange bool `yaml:"expires_on_state_change" json:"expires_on_state_change,omitempty"`
}

// Ability is a unit action resolved through the card machinery. Its card id
// is "unitID.abilityID".
type Ability struct {
	ID         string
	Name       string
	NTargets   int
	Range      int
	TapsCaster bool

	card *Card
}

// Card returns the compiled card this ability resolves through.
func (a *Ability) Card() *Card { return a.card }

// IsUsable reports whether u can activate the ability right now: untapped if
// it taps, cost payable, and enough legal targets on the board.
func (a *Ability) IsUsable(g *Game, u *Unit) bool {
	if a.TapsCaster && u.HasMoved {
		return false
	}
	if !CanPayCost(g.Players[u.Side].Resources, a.card.Cost) {
		return false
	}
	if a.NTargets > 0 && len(a.card.validTargetSet(g, u, u.Side)) < a.NTargets {
		return false
	}
	return true
}

// Unit is a mutable entity on the board. Prototypes are Units too; a live
// unit is an instantiated copy with its own key, side and location.
type Unit struct {
	Key  int
	ID   string
	Name string

	// Upkeep is one resource letter per point of upkeep this unit costs
	// each round.
	Upkeep string

	Loc  hexgrid.Loc
	Side int

	baseLife  int
	baseArmor int
	baseMove  int

	DamageTaken int

	// MaintenanceCost counts against the owner's unit limit.
	MaintenanceCost int

	HasMoved bool
	Scout    bool

	MoveType *MovementType

	canSummon string
	canCast   string

	Mods      []*Modification
	Abilities []*Ability

	Handlers map[string]*formula.Formula

	// Vars persists across rounds; VarsTurn is cleared every new turn.
	Vars     *formula.VarStore
	VarsTurn *formula.VarStore
}

type unitDef struct {
	ID              string            `yaml:"id"`
	Name            string            `yaml:"name"`
	Life            int               `yaml:"life"`
	Armor           int               `yaml:"armor"`
	Move            int               `yaml:"move"`
	Upkeep          string            `yaml:"upkeep"`
	MovementType    string            `yaml:"movement_type"`
	CanSummon       string            `yaml:"can_summon"`
	CanCast         string            `yaml:"can_cast"`
	MaintenanceCost *int              `yaml:"maintenance_cost"`
	Scout           bool              `yaml:"scout"`
	Abilities       []*abilityDef     `yaml:"abilities"`
	Handlers        map[string]string `yaml:"handlers"`
}

type abilityDef struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Type         string            `yaml:"type"`
	Cost         string            `yaml:"cost"`
	Speed        int               `yaml:"speed"`
	TapsCaster   *bool             `yaml:"taps_caster"`
	Targets      int               `yaml:"targets"`
	Range        *int              `yaml:"range"`
	Damage       int               `yaml:"damage"`
	ValidTargets string            `yaml:"valid_targets"`
	Handlers     map[string]string `yaml:"handlers"`
}

func compilePrototype(def *unitDef, symbols *formula.SymbolTable) (*Unit, []*Ability, error) {
	handlers, err := compileHandlers(def.Handlers, symbols, "unit "+def.ID)
	if err != nil {
		return nil, nil, err
	}

	maintenance := 1
	if def.MaintenanceCost != nil {
		maintenance = *def.MaintenanceCost
	}

	u := &Unit{
		ID:              def.ID,
		Name:            def.Name,
		Upkeep:          def.Upkeep,
		baseLife:        def.Life,
		baseArmor:       def.Armor,
		baseMove:        def.Move,
		MaintenanceCost: maintenance,
		Scout:           def.Scout,
		canSummon:       def.CanSummon,
		canCast:         def.CanCast,
		Handlers:        handlers,
	}

	for _, ad := range def.Abilities {
		ability, err := compileAbility(def.ID, ad, symbols)
		if err != nil {
			return nil, nil, err
		}
		u.Abilities = append(u.Abilities, ability)
	}

	return u, u.Abilities, nil
}

func compileAbility(unitID string, def *abilityDef, symbols *formula.SymbolTable) (*Ability, error) {
	cardID := unitID + "." + def.ID
	card, err := compileCard(&cardDef{
		ID:           cardID,
		Name:         def.Name,
		Type:         def.Type,
		Cost:         def.Cost,
		Speed:        def.Speed,
		TapsCaster:   def.TapsCaster,
		Damage:       def.Damage,
		Range:        def.Range,
		Targets:      def.Targets,
		ValidTargets: def.ValidTargets,
		Handlers:     def.Handlers,
	}, symbols)
	if err != nil {
		return nil, fmt.Errorf("ability %s: %w", cardID, err)
	}

	r := -1
	if def.Range != nil {
		r = *def.Range
	}
	taps := true
	if def.TapsCaster != nil {
		taps = *def.TapsCaster
	}
	return &Ability{
		ID:         def.ID,
		Name:       def.Name,
		NTargets:   def.Targets,
		Range:      r,
		TapsCaster: taps,
		card:       card,
	}, nil
}

// instantiate builds a live unit from a prototype. Compiled handlers,
// abilities and the movement table stay shared; everything mutable is fresh.
func (u *Unit) instantiate(key, side int, loc hexgrid.Loc) *Unit {
	live := *u
	live.Key = key
	live.Side = side
	live.Loc = loc
	live.Mods = nil
	live.Vars = formula.NewVarStore()
	live.VarsTurn = formula.NewVarStore()
	return &live
}

// Life is the effective life total including modifications.
func (u *Unit) Life() int {
	result := u.baseLife
	for _, m := range u.Mods {
		result += m.Life
	}
	return result
}

// Armor is the effective armor including modifications, before terrain.
func (u *Unit) Armor() int {
	result := u.baseArmor
	for _, m := range u.Mods {
		result += m.Armor
	}
	return result
}

// Move is the effective movement budget including modifications.
func (u *Unit) Move() int {
	result := u.baseMove
	for _, m := range u.Mods {
		result += m.Move
	}
	return result
}

// TakeDamage accumulates damage; death is decided by the sweep, not here.
func (u *Unit) TakeDamage(amount int) { u.DamageTaken += amount }

// Heal clears all accumulated damage.
func (u *Unit) Heal() { u.DamageTaken = 0 }

// Dead reports whether the sweep should remove this unit.
func (u *Unit) Dead() bool { return u.DamageTaken >= u.Life() }

// AddModification attaches a copy of mod.
func (u *Unit) AddModification(mod Modification) {
	u.Mods = append(u.Mods, &mod)
}

// NewTurn resets the unit for a fresh round: untap, clear per-turn vars and
// purge end-of-turn modifications.
func (u *Unit) NewTurn() {
	u.HasMoved = false
	u.VarsTurn = formula.NewVarStore()
	u.expireMods(func(m *Modification) bool { return m.ExpiresEndOfTurn })
}

// StateChanged purges modifications that last until the next state change.
func (u *Unit) StateChanged() {
	u.expireMods(func(m *Modification) bool { return m.ExpiresOnStateChange })
}

func (u *Unit) expireMods(expired func(*Modification) bool) {
	kept := u.Mods[:0]
	for _, m := range u.Mods {
		if !expired(m) {
			kept = append(kept, m)
		}
	}
	u.Mods = kept
}

// CanSummon reports whether the unit can summon creatures needing the given
// resource letter.
func (u *Unit) CanSummon(c byte) bool { return strings.IndexByte(u.canSummon, c) >= 0 }

// CanCast reports whether the unit can channel spells costing the given
// resource letter.
func (u *Unit) CanCast(c byte) bool { return strings.IndexByte(u.canCast, c) >= 0 }

// DefaultAbility is the unit's first ability, or nil.
// UsableAbilities lists the abilities u could activate right now.
func (u *Unit) UsableAbilities(g *Game) []string {
	var ids []string
	for _, a := range u.Abilities {
		if a.IsUsable(g, u) {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func (u *Unit) DefaultAbility() *Ability {
	if len(u.Abilities) == 0 {
		return nil
	}
	return u.Abilities[0]
}

// ResourceType is the resource a captured tower produces for this unit:
// its first upkeep letter, else the owner's first income resource.
func (u *Unit) ResourceType(g *Game) int {
	if u.Upkeep != "" {
		if n := ResourceIndex(u.Upkeep[0]); n >= 0 {
			return n
		}
	}
	if u.Side >= 0 && u.Side < len(g.Players) {
		for n, gain := range g.Players[u.Side].ResourceGain {
			if gain > 0 {
				return n
			}
		}
	}
	return 0
}

// HandleEvent runs the unit's handler for the event, if any, and executes
// the resulting commands. base supplies extra context fields and may be nil.
func (u *Unit) HandleEvent(g *Game, event string, base formula.Callable) {
	handler, ok := u.Handlers[event]
	if !ok {
		return
	}
	ctx := formula.NewMapCallable(base)
	ctx.Add("unit", formula.Object(u))
	ctx.Add("game", formula.Object(g))
	ctx.Add("rng", formula.Object(formula.RandCallable{RandSource: g.rng}))
	g.ExecuteCommand(handler.Execute(ctx))
}

// GetValue exposes the unit to formulas. Unknown fields are Null.
func (u *Unit) GetValue(key string) formula.Value {
	switch key {
	case "key":
		return formula.Int(u.Key)
	case "id":
		return formula.String(u.ID)
	case "name":
		return formula.String(u.Name)
	case "side":
		return formula.Int(u.Side)
	case "life":
		return formula.Int(u.Life())
	case "armor":
		return formula.Int(u.Armor())
	case "move":
		return formula.Int(u.Move())
	case "damage":
		return formula.Int(u.DamageTaken)
	case "has_moved":
		return formula.Bool(u.HasMoved)
	case "scout":
		return formula.Bool(u.Scout)
	case "upkeep":
		return formula.String(u.Upkeep)
	case "loc":
		return formula.Object(LocObject(u.Loc))
	case "vars":
		return formula.Object(u.Vars)
	case "vars_turn":
		return formula.Object(u.VarsTurn)
	}
	return formula.Null
}

// SetValue accepts the writable subset of unit fields.
func (u *Unit) SetValue(key string, v formula.Value) {
	switch key {
	case "damage":
		u.DamageTaken = v.AsInt()
	case "has_moved":
		u.HasMoved = v.AsBool()
	case "life":
		// Effective life is derived, so adjust the base by the delta.
		u.baseLife += v.AsInt() - u.Life()
	}
}

func (u *Unit) Inputs() []formula.Input {
	names := []string{"key", "id", "name", "side", "life", "armor", "move", "damage", "has_moved", "scout", "upkeep", "loc", "vars", "vars_turn"}
	inputs := make([]formula.Input, len(names))
	for i, n := range names {
		inputs[i] = formula.Input{Name: n}
	}
	return inputs
}
