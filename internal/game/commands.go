package game

import (
	"github.com/davewx7/Wizard-Tactics/internal/formula"
	"github.com/davewx7/Wizard-Tactics/internal/hexgrid"
)

// Special terrain ids the rules hang behavior on.
const (
	terrainVoid  = "void"
	terrainTower = "tower"
)

// Command is a deferred game mutation produced by formula evaluation.
// Evaluation stays pure; Commands run afterwards against the live Game.
type Command interface {
	Execute(g *Game)
}

type freeAttackCommand struct {
	attacker *Unit
	target   *Unit
}

func (c *freeAttackCommand) Execute(g *Game) { g.UnitFreeAttack(c.attacker, c.target) }

func (c *freeAttackCommand) GetValue(string) formula.Value { return formula.Null }
func (c *freeAttackCommand) Inputs() []formula.Input       { return nil }

type modifyUnitCommand struct {
	target *Unit
	mod    Modification
}

func (c *modifyUnitCommand) Execute(g *Game) { c.target.AddModification(c.mod) }

func (c *modifyUnitCommand) GetValue(string) formula.Value { return formula.Null }
func (c *modifyUnitCommand) Inputs() []formula.Input       { return nil }

// LocObject exposes a board location to formulas.
type LocObject hexgrid.Loc

// Loc returns the underlying location.
func (l LocObject) Loc() hexgrid.Loc { return hexgrid.Loc(l) }

func (l LocObject) GetValue(key string) formula.Value {
	switch key {
	case "x":
		return formula.Int(l.X)
	case "y":
		return formula.Int(l.Y)
	}
	return formula.Null
}

func (l LocObject) Inputs() []formula.Input {
	return []formula.Input{{Name: "x"}, {Name: "y"}}
}

// TileObject exposes one board tile to formulas.
type TileObject struct {
	tile *Tile
}

func (t TileObject) GetValue(key string) formula.Value {
	switch key {
	case "loc":
		return formula.Object(LocObject(t.tile.Loc))
	case "terrain":
		return formula.String(t.tile.Terrain.ID)
	}
	return formula.Null
}

func (t TileObject) Inputs() []formula.Input {
	return []formula.Input{{Name: "loc"}, {Name: "terrain"}}
}

// valueToLoc extracts a location from a formula value: a location object, a
// tile, or a unit (taken at its position).
func valueToLoc(v formula.Value) (hexgrid.Loc, bool) {
	switch obj := v.AsCallable().(type) {
	case LocObject:
		return obj.Loc(), true
	case TileObject:
		return obj.tile.Loc, true
	case *Unit:
		return obj.Loc, true
	}
	return hexgrid.Nowhere, false
}

// gameFromContext resolves the live game a formula runs against. Every
// game-facing evaluation context binds "game".
func gameFromContext(ctx formula.Callable) *Game {
	if ctx == nil {
		return nil
	}
	g, _ := ctx.GetValue("game").AsCallable().(*Game)
	return g
}

func valueToUnit(v formula.Value) *Unit {
	u, _ := v.AsCallable().(*Unit)
	return u
}

// GameSymbols builds the symbol table game content is compiled against:
// the core function library plus the game-object natives.
func GameSymbols() *formula.SymbolTable {
	t := formula.NewSymbolTable(nil)

	t.RegisterNative("loc", 2, 2, func(ctx formula.Callable, args []formula.Expr) formula.Value {
		loc := hexgrid.Loc{
			X: args[0].Evaluate(ctx).AsInt(),
			Y: args[1].Evaluate(ctx).AsInt(),
		}
		return formula.Object(LocObject(loc))
	})

	t.RegisterNative("tower", 1, 1, func(ctx formula.Callable, args []formula.Expr) formula.Value {
		g := gameFromContext(ctx)
		if g == nil {
			return formula.Int(-1)
		}
		if loc, ok := valueToLoc(args[0].Evaluate(ctx)); ok {
			return formula.Int(g.TowerOwner(loc))
		}
		return formula.Int(-1)
	})

	t.RegisterNative("get_unit_at_loc", 1, 1, func(ctx formula.Callable, args []formula.Expr) formula.Value {
		g := gameFromContext(ctx)
		if g == nil {
			return formula.Null
		}
		if loc, ok := valueToLoc(args[0].Evaluate(ctx)); ok {
			if u := g.UnitAt(loc); u != nil {
				return formula.Object(u)
			}
		}
		return formula.Null
	})

	t.RegisterNative("get_adjacent_units", 1, 1, func(ctx formula.Callable, args []formula.Expr) formula.Value {
		g := gameFromContext(ctx)
		if g == nil {
			return formula.List(nil)
		}
		var units []formula.Value
		if loc, ok := valueToLoc(args[0].Evaluate(ctx)); ok {
			for _, adj := range loc.Adjacent() {
				if u := g.UnitAt(adj); u != nil {
					units = append(units, formula.Object(u))
				}
			}
		}
		return formula.List(units)
	})

	t.RegisterNative("distance_between", 2, 2, func(ctx formula.Callable, args []formula.Expr) formula.Value {
		a, okA := valueToLoc(args[0].Evaluate(ctx))
		b, okB := valueToLoc(args[1].Evaluate(ctx))
		if !okA || !okB {
			return formula.Null
		}
		return formula.Int(hexgrid.Distance(a, b))
	})

	t.RegisterNative("free_attack", 2, 2, func(ctx formula.Callable, args []formula.Expr) formula.Value {
		attacker := valueToUnit(args[0].Evaluate(ctx))
		target := valueToUnit(args[1].Evaluate(ctx))
		if attacker == nil || target == nil {
			return formula.Null
		}
		return formula.Object(&freeAttackCommand{attacker: attacker, target: target})
	})

	t.RegisterNative("modify_unit_until_end_of_turn", 3, 3, func(ctx formula.Callable, args []formula.Expr) formula.Value {
		return modifyUnitNative(ctx, args, Modification{ExpiresEndOfTurn: true})
	})

	t.RegisterNative("modify_unit_until_game_state_change", 3, 3, func(ctx formula.Callable, args []formula.Expr) formula.Value {
		return modifyUnitNative(ctx, args, Modification{ExpiresOnStateChange: true})
	})

	return t
}

// modifyUnitNative shares the body of the two timed-modification natives:
// (unit, attribute, delta) with the expiry fixed by the caller.
func modifyUnitNative(ctx formula.Callable, args []formula.Expr, mod Modification) formula.Value {
	target := valueToUnit(args[0].Evaluate(ctx))
	if target == nil {
		return formula.Null
	}
	value := args[2].Evaluate(ctx).AsInt()
	switch args[1].Evaluate(ctx).AsString() {
	case "life":
		mod.Life = value
	case "armor":
		mod.Armor = value
	case "move":
		mod.Move = value
	default:
		return formula.Null
	}
	return formula.Object(&modifyUnitCommand{target: target, mod: mod})
}
