// Package ai implements the scripted opponent. It speaks the same message
// protocol as a remote client and is driven synchronously by the engine
// whenever the casting turn reaches it.
package ai

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/rs/zerolog/log"

	"github.com/davewx7/Wizard-Tactics/internal/game"
	"github.com/davewx7/Wizard-Tactics/internal/hexgrid"
)

// DefaultScorer ranks candidate destinations: an uncaptured tower beats
// everything, otherwise closer to the nearest enemy is better.
const DefaultScorer = `tower_unowned ? 10000 : -enemy_distance`

// Player is the default scripted opponent: advance each unit toward an
// unowned tower or the nearest enemy, fire the first usable ability, summon
// the first affordable monster, then pass.
type Player struct {
	id   int
	deck string
	gain []int

	scorer cel.Program

	deckSent  bool
	heldMoved bool
}

// NewPlayer builds a scripted player with the given deck string and income
// vector. scoreExpr ranks move destinations; empty means DefaultScorer.
func NewPlayer(id int, deck string, gain []int, scoreExpr string) (*Player, error) {
	if scoreExpr == "" {
		scoreExpr = DefaultScorer
	}

	env, err := cel.NewEnv(
		cel.Variable("is_tower", cel.BoolType),
		cel.Variable("tower_unowned", cel.BoolType),
		cel.Variable("enemy_distance", cel.IntType),
		cel.Variable("move_cost", cel.IntType),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Compile(scoreExpr)
	if iss.Err() != nil {
		return nil, fmt.Errorf("ai scorer: %w", iss.Err())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("ai scorer: %w", err)
	}

	return &Player{id: id, deck: deck, gain: gain, scorer: prog}, nil
}

// PlayerID implements game.Driver.
func (p *Player) PlayerID() int { return p.id }

// Play implements game.Driver. It emits at most one action per call; the
// engine keeps calling until the casting turn leaves this player.
func (p *Player) Play(g *game.Game) []game.Message {
	if !p.deckSent {
		p.deckSent = true
		return []game.Message{{Type: "spells", Spells: p.deck, ResourceGain: p.gain}}
	}

	if g.PlayerCasting != p.id {
		return nil
	}

	if msg, ok := p.moveUnit(g); ok {
		p.heldMoved = true
		return []game.Message{msg}
	}
	if msg, ok := p.useAbility(g); ok {
		p.heldMoved = false
		return []game.Message{msg}
	}
	if msg, ok := p.summonMonster(g); ok {
		p.heldMoved = false
		return []game.Message{msg}
	}

	// Pass only counts toward round convergence if nothing happened.
	skip := !p.heldMoved
	p.heldMoved = false
	return []game.Message{{Type: "end_turn", Skip: skip}}
}

// moveUnit picks the first unmoved unit and its best-scoring destination.
func (p *Player) moveUnit(g *game.Game) (game.Message, bool) {
	for _, u := range g.Units {
		if u.Side != p.id || u.HasMoved {
			continue
		}

		var best hexgrid.Loc
		bestScore := int64(0)
		found := false
		for loc, route := range g.PossibleMoves(u) {
			score, err := p.scoreMove(g, loc, route.Cost)
			if err != nil {
				log.Warn().Err(err).Msg("ai move scoring failed")
				continue
			}
			if !found || score > bestScore || (score == bestScore && lessLoc(loc, best)) {
				best = loc
				bestScore = score
				found = true
			}
		}

		if found && best != u.Loc {
			return game.Message{Type: "move", From: u.Loc, To: best, HoldTurn: true}, true
		}
	}
	return game.Message{}, false
}

func (p *Player) scoreMove(g *game.Game, loc hexgrid.Loc, cost int) (int64, error) {
	t := g.Tile(loc)
	isTower := t != nil && t.Terrain.ID == "tower"

	enemyDistance := 1 << 20
	for _, enemy := range g.Units {
		if enemy.Side == p.id {
			continue
		}
		if d := hexgrid.Distance(loc, enemy.Loc); d < enemyDistance {
			enemyDistance = d
		}
	}

	out, _, err := p.scorer.Eval(map[string]any{
		"is_tower":       isTower,
		"tower_unowned":  isTower && g.TowerOwner(loc) != p.id,
		"enemy_distance": enemyDistance,
		"move_cost":      cost,
	})
	if err != nil {
		return 0, err
	}
	score, ok := out.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("ai scorer returned %T, want int", out.Value())
	}
	return score, nil
}

// useAbility fires the first usable ability of any unit, targeting enemies
// first.
func (p *Player) useAbility(g *game.Game) (game.Message, bool) {
	for _, u := range g.Units {
		if u.Side != p.id {
			continue
		}
		for _, ability := range u.Abilities {
			if !ability.IsUsable(g, u) {
				continue
			}
			card := ability.Card()
			targets := p.pickTargets(g, card, u)
			if len(targets) < card.RequiredTargets() {
				continue
			}
			return game.Message{
				Type:    "play",
				Spell:   card.ID,
				Caster:  u.Key,
				Targets: targets,
			}, true
		}
	}
	return game.Message{}, false
}

// pickTargets chooses targets for a card, preferring enemy-occupied hexes.
func (p *Player) pickTargets(g *game.Game, card *game.Card, caster *game.Unit) []hexgrid.Loc {
	need := card.RequiredTargets()
	var targets []hexgrid.Loc
	for len(targets) < need {
		ok, possible := card.IsPlayable(g, caster, p.id, targets)
		if ok {
			break
		}
		if len(possible) == 0 {
			return nil
		}
		pick := possible[0]
		for _, loc := range possible {
			if u := g.UnitAt(loc); u != nil && u.Side != p.id {
				pick = loc
				break
			}
		}
		targets = append(targets, pick)
	}
	return targets
}

// summonMonster plays the first affordable monster card with room under the
// unit limit and a legal summoning hex.
func (p *Player) summonMonster(g *game.Game) (game.Message, bool) {
	player := g.Players[p.id]
	for _, held := range player.Spells {
		if held.Embargo > 0 {
			continue
		}
		card := held.Card
		if card.Kind != game.CardMonster {
			continue
		}
		if !game.CanPayCost(player.Resources, card.Cost) {
			continue
		}

		proto := g.Content().Prototype(card.Monster)
		if proto == nil {
			continue
		}
		if g.MaintenanceTotal(p.id)+proto.MaintenanceCost > g.UnitLimit(p.id) {
			continue
		}

		ok, possible := card.IsPlayable(g, nil, p.id, nil)
		if ok || len(possible) == 0 {
			continue
		}
		return game.Message{
			Type:    "play",
			Spell:   card.ID,
			Targets: []hexgrid.Loc{possible[0]},
		}, true
	}
	return game.Message{}, false
}

func lessLoc(a, b hexgrid.Loc) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
