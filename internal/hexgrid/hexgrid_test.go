package hexgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjacencyRowParity(t *testing.T) {
	// Odd rows sit half a tile to the right, so the diagonal neighbors
	// differ by row parity.
	even := Loc{X: 3, Y: 2}.Adjacent()
	assert.Contains(t, even[:], Loc{X: 2, Y: 1})
	assert.Contains(t, even[:], Loc{X: 3, Y: 1})
	assert.NotContains(t, even[:], Loc{X: 4, Y: 1})

	odd := Loc{X: 3, Y: 3}.Adjacent()
	assert.Contains(t, odd[:], Loc{X: 3, Y: 2})
	assert.Contains(t, odd[:], Loc{X: 4, Y: 2})
	assert.NotContains(t, odd[:], Loc{X: 2, Y: 2})
}

func TestAdjacencyIsSymmetric(t *testing.T) {
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			l := Loc{X: x, Y: y}
			for _, a := range l.Adjacent() {
				assert.True(t, a.IsAdjacent(l), "%v <-> %v", l, a)
			}
		}
	}
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance(Loc{X: 2, Y: 2}, Loc{X: 2, Y: 2}))
	assert.Equal(t, 3, Distance(Loc{X: 0, Y: 0}, Loc{X: 3, Y: 0}))

	// Adjacent hexes are at distance 1 regardless of parity.
	for _, l := range []Loc{{X: 2, Y: 2}, {X: 2, Y: 3}} {
		for _, a := range l.Adjacent() {
			assert.Equal(t, 1, Distance(l, a), "%v -> %v", l, a)
		}
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Loc{X: 0, Y: 0}.Valid())
	assert.False(t, Nowhere.Valid())
	assert.False(t, Loc{X: 2, Y: -1}.Valid())
}

// wallCalc blocks a set of hexes and makes others non-stoppable.
type wallCalc struct {
	BaseCalculator
	blocked map[Loc]bool
	noStop  map[Loc]bool
}

func (c wallCalc) AllowedToMove(l Loc) bool     { return !c.blocked[l] }
func (c wallCalc) LegalMoveEndpoint(l Loc) bool { return !c.noStop[l] }

func TestPossibleMovesRespectsBudget(t *testing.T) {
	routes := PossibleMoves(Loc{X: 3, Y: 3}, 2, wallCalc{})
	require.NotEmpty(t, routes)
	for loc, r := range routes {
		assert.LessOrEqual(t, r.Cost, 2)
		assert.LessOrEqual(t, Distance(Loc{X: 3, Y: 3}, loc), 2)
		assert.Equal(t, Loc{X: 3, Y: 3}, r.Steps[0])
		assert.Equal(t, loc, r.Steps[len(r.Steps)-1])
	}
	_, hasOrigin := routes[Loc{X: 3, Y: 3}]
	assert.False(t, hasOrigin)
}

func TestPossibleMovesPassableButNotStoppable(t *testing.T) {
	mid := Loc{X: 3, Y: 2}
	calc := wallCalc{noStop: map[Loc]bool{mid: true}}
	routes := PossibleMoves(Loc{X: 3, Y: 3}, 2, calc)

	_, stoppable := routes[mid]
	assert.False(t, stoppable)
	// Hexes behind it are still reached through it.
	r, ok := routes[Loc{X: 3, Y: 1}]
	require.True(t, ok)
	assert.Equal(t, 2, r.Cost)
}

func TestPossibleMovesBlockedHexesUnreachable(t *testing.T) {
	src := Loc{X: 2, Y: 2}
	blocked := make(map[Loc]bool)
	for _, a := range src.Adjacent() {
		blocked[a] = true
	}
	routes := PossibleMoves(src, 5, wallCalc{blocked: blocked})
	assert.Empty(t, routes)
}

func TestFindPath(t *testing.T) {
	path := FindPath(Loc{X: 0, Y: 0}, Loc{X: 4, Y: 0}, wallCalc{}, 100, false)
	require.NotNil(t, path)
	assert.Equal(t, Loc{X: 0, Y: 0}, path[0])
	assert.Equal(t, Loc{X: 4, Y: 0}, path[len(path)-1])
	assert.Len(t, path, 5)
}

func TestFindPathAdjacentOnly(t *testing.T) {
	dst := Loc{X: 4, Y: 0}
	path := FindPath(Loc{X: 0, Y: 0}, dst, wallCalc{}, 100, true)
	require.NotNil(t, path)
	assert.True(t, path[len(path)-1].IsAdjacent(dst))
}

func TestFindPathNoRouteWithinBudget(t *testing.T) {
	assert.Nil(t, FindPath(Loc{X: 0, Y: 0}, Loc{X: 9, Y: 0}, wallCalc{}, 3, false))
}
