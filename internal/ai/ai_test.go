package ai

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davewx7/Wizard-Tactics/internal/game"
	"github.com/davewx7/Wizard-Tactics/internal/hexgrid"
)

func testGain() []int {
	gain := make([]int, game.NumResources)
	gain[game.ResourceIndex('f')] = 2
	gain[game.ResourceIndex('b')] = 2
	return gain
}

// flatGame builds a small all-grassland board so tests control the layout.
func flatGame(t *testing.T, nplayers int) *game.Game {
	t.Helper()
	content, err := game.LoadContent("../../data")
	require.NoError(t, err)

	g := game.NewGame(content, rand.New(rand.NewSource(11)))
	for i := 0; i < nplayers; i++ {
		g.AddPlayer("player")
	}

	g.Started = true
	g.Width, g.Height = 8, 8
	grass := content.Terrain("grassland")
	require.NotNil(t, grass)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			g.Tiles = append(g.Tiles, game.Tile{Loc: hexgrid.Loc{X: x, Y: y}, Terrain: grass})
		}
	}
	g.State = game.StatePlaying
	return g
}

func TestFirstPlaySendsDeck(t *testing.T) {
	g := flatGame(t, 2)
	p, err := NewPlayer(1, "fireball,summon_goblin", testGain(), "")
	require.NoError(t, err)

	msgs := p.Play(g)
	require.Len(t, msgs, 1)
	assert.Equal(t, "spells", msgs[0].Type)
	assert.Equal(t, "fireball,summon_goblin", msgs[0].Spells)
	assert.Equal(t, testGain(), msgs[0].ResourceGain)

	// afterwards it stays quiet out of turn
	g.PlayerCasting = 0
	assert.Nil(t, p.Play(g))
}

func TestMovesTowardEnemy(t *testing.T) {
	g := flatGame(t, 2)
	p, err := NewPlayer(1, "", testGain(), "")
	require.NoError(t, err)
	p.Play(g) // deck

	enemy := g.PlaceUnit("wizard", 0, hexgrid.Loc{X: 0, Y: 5})
	goblin := g.PlaceUnit("goblin", 1, hexgrid.Loc{X: 5, Y: 5})
	require.NotNil(t, enemy)
	require.NotNil(t, goblin)
	goblin.HasMoved = false
	g.PlayerCasting = 1

	msgs := p.Play(g)
	require.Len(t, msgs, 1)
	require.Equal(t, "move", msgs[0].Type)
	assert.Equal(t, goblin.Loc, msgs[0].From)
	assert.Less(t,
		hexgrid.Distance(msgs[0].To, enemy.Loc),
		hexgrid.Distance(goblin.Loc, enemy.Loc))
}

func TestPrefersUnownedTower(t *testing.T) {
	g := flatGame(t, 2)
	p, err := NewPlayer(1, "", testGain(), "")
	require.NoError(t, err)
	p.Play(g)

	towerLoc := hexgrid.Loc{X: 6, Y: 5}
	g.SetTerrain(towerLoc, "tower")
	require.NotNil(t, g.PlaceUnit("wizard", 0, hexgrid.Loc{X: 0, Y: 0}))

	goblin := g.PlaceUnit("goblin", 1, hexgrid.Loc{X: 5, Y: 5})
	goblin.HasMoved = false
	g.PlayerCasting = 1

	msgs := p.Play(g)
	require.Len(t, msgs, 1)
	require.Equal(t, "move", msgs[0].Type)
	assert.Equal(t, towerLoc, msgs[0].To)
}

func TestUsesAbilityOnAdjacentEnemy(t *testing.T) {
	g := flatGame(t, 2)
	p, err := NewPlayer(1, "", testGain(), "")
	require.NoError(t, err)
	p.Play(g)

	// cornered next to its prey: no destination improves on staying put,
	// so the move step yields and the bite fires
	enemy := g.PlaceUnit("wizard", 0, hexgrid.Loc{X: 0, Y: 0})
	goblin := g.PlaceUnit("goblin", 1, hexgrid.Loc{X: 1, Y: 0})
	require.NotNil(t, enemy)
	goblin.HasMoved = false
	g.PlayerCasting = 1

	msgs := p.Play(g)
	require.Len(t, msgs, 1)
	require.Equal(t, "play", msgs[0].Type)
	assert.Equal(t, "goblin.bite", msgs[0].Spell)
	assert.Equal(t, goblin.Key, msgs[0].Caster)
	assert.Equal(t, []hexgrid.Loc{enemy.Loc}, msgs[0].Targets)
}

func TestPassesWhenIdle(t *testing.T) {
	g := flatGame(t, 2)
	p, err := NewPlayer(1, "", testGain(), "")
	require.NoError(t, err)
	p.Play(g)
	g.PlayerCasting = 1

	msgs := p.Play(g)
	require.Len(t, msgs, 1)
	assert.Equal(t, "end_turn", msgs[0].Type)
	assert.True(t, msgs[0].Skip, "an idle turn counts as a pass")
}

func TestCustomScorerRejectsBadExpression(t *testing.T) {
	_, err := NewPlayer(1, "", testGain(), "not a ((valid expression")
	require.Error(t, err)

	_, err = NewPlayer(1, "", testGain(), "no_such_variable + 1")
	require.Error(t, err)
}

func TestCustomScorerStaysPut(t *testing.T) {
	g := flatGame(t, 2)
	// penalizing distance travelled keeps every unit where it is
	p, err := NewPlayer(1, "", testGain(), "-move_cost")
	require.NoError(t, err)
	p.Play(g)

	goblin := g.PlaceUnit("goblin", 1, hexgrid.Loc{X: 5, Y: 5})
	goblin.HasMoved = false
	g.PlayerCasting = 1

	msgs := p.Play(g)
	require.Len(t, msgs, 1)
	assert.Equal(t, "end_turn", msgs[0].Type)
}

func TestDrivenByEngine(t *testing.T) {
	content, err := game.LoadContent("../../data")
	require.NoError(t, err)
	g := game.NewGame(content, rand.New(rand.NewSource(3)))
	g.AddPlayer("human")

	p, err := NewPlayer(1, "summon_goblin", testGain(), "")
	require.NoError(t, err)
	g.AddAIPlayer("bot", p)

	require.NoError(t, g.HandleMessage(0, &game.Message{Type: "setup"}))
	require.NoError(t, g.HandleMessage(0, &game.Message{
		Type: "spells", Spells: "fireball", ResourceGain: testGain(),
	}))

	require.NoError(t, g.HandleMessage(0, &game.Message{Type: "end_turn", Skip: true}))

	// the engine drove the scripted player until the turn came back
	assert.Equal(t, 0, g.PlayerCasting)
	require.Len(t, g.Players[1].Spells, 1)
	assert.Equal(t, "summon_goblin", g.Players[1].Spells[0].Card.ID)
}
