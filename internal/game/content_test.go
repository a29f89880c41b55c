package game

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davewx7/Wizard-Tactics/internal/hexgrid"
)

var (
	testContentOnce sync.Once
	testContent     *Content
	testContentErr  error
)

func loadTestContent(t *testing.T) *Content {
	t.Helper()
	testContentOnce.Do(func() {
		testContent, testContentErr = LoadContent(filepath.Join("..", "..", "data"))
	})
	require.NoError(t, testContentErr)
	return testContent
}

// flatGame builds a small all-grassland board, skipping the random setup.
func flatGame(t *testing.T, nplayers int) *Game {
	t.Helper()
	content := loadTestContent(t)
	g := NewGame(content, rand.New(rand.NewSource(7)))
	for i := 0; i < nplayers; i++ {
		g.AddPlayer(fmt.Sprintf("player%d", i))
	}

	g.Started = true
	g.Width, g.Height = 8, 8
	grass := content.Terrain("grassland")
	require.NotNil(t, grass)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			g.Tiles = append(g.Tiles, Tile{Loc: hexgrid.Loc{X: x, Y: y}, Terrain: grass})
		}
	}

	g.State = StatePlaying
	g.PlayerTurn = 0
	g.PlayerCasting = 0
	return g
}

func TestLoadContent(t *testing.T) {
	content := loadTestContent(t)

	require.NotNil(t, content.Terrain("grassland"))
	require.NotNil(t, content.Terrain("void"))
	require.Equal(t, ResourceIndex('g'), content.Terrain("tower").ResourceIndex())

	walk := content.MoveType("walk")
	require.NotNil(t, walk)
	require.Equal(t, 1, walk.MovementCost("grassland"))
	require.Equal(t, -1, walk.MovementCost("rock"))
	require.Equal(t, 2, walk.ArmorModification("tower"))
	require.Equal(t, 1, walk.AttackModification("hills"))
	// unlisted terrain is expensive but passable
	require.Equal(t, defaultMoveCost, walk.MovementCost("unmapped"))

	// empty id falls back to the default table
	require.Equal(t, content.MoveType("default"), content.MoveType(""))

	require.NotNil(t, content.Card("fireball"))
	require.NotNil(t, content.Card("wizard.zap"), "abilities register as cards")
	require.Nil(t, content.Card("no_such_card"))

	wizard := content.Prototype("wizard")
	require.NotNil(t, wizard)
	// prototypes come out of the load wired to their movement table
	require.Equal(t, walk, wizard.MoveType)
	require.Equal(t, content.MoveType("fly"), content.Prototype("drake").MoveType)
	require.Equal(t, 5, wizard.Life())
	require.Len(t, wizard.Abilities, 2)
	require.True(t, wizard.CanSummon('b'))
	require.False(t, content.Prototype("goblin").CanSummon('b'))
}

func TestValidateContent(t *testing.T) {
	require.Empty(t, ValidateContent(filepath.Join("..", "..", "data")))
	require.NotEmpty(t, ValidateContent(filepath.Join("..", "..", "no-such-dir")))
}
