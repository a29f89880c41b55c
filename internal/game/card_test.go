package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davewx7/Wizard-Tactics/internal/hexgrid"
)

func TestReadWriteDeck(t *testing.T) {
	content := loadTestContent(t)

	deck, err := ReadDeck(content, "fireball,summon_goblin 2, blessing")
	require.NoError(t, err)
	require.Len(t, deck, 3)
	assert.Equal(t, "fireball", deck[0].Card.ID)
	assert.Equal(t, 0, deck[0].Embargo)
	assert.Equal(t, 2, deck[1].Embargo)
	assert.Equal(t, "blessing", deck[2].Card.ID)

	assert.Equal(t, "fireball,summon_goblin 2,blessing", WriteDeck(deck))

	_, err = ReadDeck(content, "no_such_card")
	assert.Error(t, err)
	_, err = ReadDeck(content, "fireball two three")
	assert.Error(t, err)

	empty, err := ReadDeck(content, "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTargetProtocolRoundTrip(t *testing.T) {
	g := flatGame(t, 2)
	a := g.PlaceUnit("goblin", 0, hexgrid.Loc{X: 2, Y: 2})
	b := g.PlaceUnit("goblin", 1, hexgrid.Loc{X: 5, Y: 5})
	require.NotNil(t, a)
	require.NotNil(t, b)

	card := g.Content().Card("fireball")

	ok, possible := card.IsPlayable(g, nil, 0, nil)
	assert.False(t, ok)
	require.NotEmpty(t, possible)

	// every offered target must itself complete the play
	for _, loc := range possible {
		ok, _ := card.IsPlayable(g, nil, 0, []hexgrid.Loc{loc})
		assert.True(t, ok, "offered target %v must be playable", loc)
	}

	// too many targets never pass
	ok, _ = card.IsPlayable(g, nil, 0, []hexgrid.Loc{a.Loc, b.Loc})
	assert.False(t, ok)

	// a target outside the legal set never passes, but the rejection still
	// lists the legal choices so the client can re-prompt
	ok, possible = card.IsPlayable(g, nil, 0, []hexgrid.Loc{{X: 0, Y: 0}})
	assert.False(t, ok)
	assert.ElementsMatch(t, []hexgrid.Loc{a.Loc, b.Loc}, possible)
}

func TestAttackRangeLimitsAbilityTargets(t *testing.T) {
	g := flatGame(t, 2)
	wizard := g.PlaceUnit("wizard", 0, hexgrid.Loc{X: 2, Y: 2})
	near := g.PlaceUnit("goblin", 1, hexgrid.Loc{X: 3, Y: 2})
	far := g.PlaceUnit("goblin", 1, hexgrid.Loc{X: 6, Y: 2})
	require.NotNil(t, far)

	zap := g.Content().Card("wizard.zap")
	_, possible := zap.IsPlayable(g, wizard, 0, nil)
	assert.Equal(t, []hexgrid.Loc{near.Loc}, possible)
}

func TestAttackDamageFloor(t *testing.T) {
	g := flatGame(t, 2)
	victim := &Unit{Key: 90, ID: "dummy", baseLife: 10, baseArmor: 99, Side: 1, Loc: hexgrid.Loc{X: 4, Y: 4}}
	g.Units = append(g.Units, victim)

	card := g.Content().Card("fireball")
	card.Resolve(g, &resolveContext{
		game:       g,
		side:       0,
		targets:    []hexgrid.Loc{victim.Loc},
		activation: ActivationPlayer,
	})

	// mitigation exceeds damage but raw damage was dealt
	assert.Equal(t, 1, victim.DamageTaken)
}

func TestAttackHandlerAdjustsMitigation(t *testing.T) {
	g := flatGame(t, 2)
	victim := &Unit{Key: 91, ID: "dummy", baseLife: 10, baseArmor: 2, Side: 1, Loc: hexgrid.Loc{X: 4, Y: 4}}
	g.Units = append(g.Units, victim)

	// lightning's attack handler shaves one point of defense
	card := g.Content().Card("lightning")
	card.Resolve(g, &resolveContext{
		game:       g,
		side:       0,
		targets:    []hexgrid.Loc{victim.Loc},
		activation: ActivationPlayer,
	})

	assert.Equal(t, 5-2+1, victim.DamageTaken)
}

func TestResolveMissingTargetIsNoOp(t *testing.T) {
	g := flatGame(t, 2)
	card := g.Content().Card("fireball")
	card.Resolve(g, &resolveContext{
		game:       g,
		side:       0,
		targets:    []hexgrid.Loc{{X: 4, Y: 4}},
		activation: ActivationPlayer,
	})
	assert.Empty(t, g.Units)
}

func TestLandCardPlacesTerrain(t *testing.T) {
	g := flatGame(t, 1)
	target := hexgrid.Loc{X: 3, Y: 3}
	g.SetTerrain(target, "void")

	card := g.Content().Card("growth")
	ok, possible := card.IsPlayable(g, nil, 0, nil)
	assert.False(t, ok)
	assert.Equal(t, []hexgrid.Loc{target}, possible, "only the void tile is legal")

	card.Resolve(g, &resolveContext{game: g, side: 0, targets: []hexgrid.Loc{target}})
	assert.Equal(t, "forest", g.Tile(target).Terrain.ID)
}

func TestSummoningHexRules(t *testing.T) {
	g := flatGame(t, 2)
	wizard := g.PlaceUnit("wizard", 0, hexgrid.Loc{X: 2, Y: 2})
	require.NotNil(t, wizard)
	goblin := g.Content().Prototype("goblin")

	adj := hexgrid.Loc{X: 3, Y: 2}
	assert.True(t, isValidSummoningHex(g, 0, adj, goblin))

	// not adjacent to a friendly summoner
	assert.False(t, isValidSummoningHex(g, 0, hexgrid.Loc{X: 6, Y: 6}, goblin))
	// wrong side
	assert.False(t, isValidSummoningHex(g, 1, adj, goblin))
	// occupied
	assert.False(t, isValidSummoningHex(g, 0, wizard.Loc, goblin))
	// void terrain
	g.SetTerrain(adj, "void")
	assert.False(t, isValidSummoningHex(g, 0, adj, goblin))
	g.SetTerrain(adj, "grassland")

	// enemy tower blocks summoning, own tower does not
	g.SetTerrain(adj, "tower")
	g.Players[1].Towers[adj] = 'g'
	assert.False(t, isValidSummoningHex(g, 0, adj, goblin))
	delete(g.Players[1].Towers, adj)
	g.Players[0].Towers[adj] = 'g'
	assert.True(t, isValidSummoningHex(g, 0, adj, goblin))

	// goblins cannot summon drakes, wizards can
	drake := g.Content().Prototype("drake")
	grunt := g.PlaceUnit("goblin", 0, hexgrid.Loc{X: 5, Y: 5})
	require.NotNil(t, grunt)
	assert.False(t, isValidSummoningHex(g, 0, hexgrid.Loc{X: 5, Y: 6}, drake))
}
