package replay

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davewx7/Wizard-Tactics/internal/game"
	"github.com/davewx7/Wizard-Tactics/internal/hexgrid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "matches.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestMatchRoundTrip(t *testing.T) {
	store := openTestStore(t)

	id, err := store.CreateMatch(42)
	require.NoError(t, err)
	require.NotZero(t, id)

	seed, err := store.Seed(id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), seed)

	_, err = store.Seed(id + 1)
	require.Error(t, err, "unknown match ids do not resolve")
}

func TestActionsKeepOrderPerMatch(t *testing.T) {
	store := openTestStore(t)

	first, err := store.CreateMatch(1)
	require.NoError(t, err)
	second, err := store.CreateMatch(2)
	require.NoError(t, err)

	script := []struct {
		player int
		msg    game.Message
	}{
		{0, game.Message{Type: "setup"}},
		{0, game.Message{Type: "spells", Spells: "fireball", ResourceGain: []int{1, 2}}},
		{0, game.Message{Type: "move", From: hexgrid.Loc{X: 2, Y: 8}, To: hexgrid.Loc{X: 3, Y: 8}}},
		{1, game.Message{Type: "play", Spell: "fireball", Targets: []hexgrid.Loc{{X: 3, Y: 8}}}},
		{1, game.Message{Type: "end_turn", Skip: true}},
	}
	for i := range script {
		require.NoError(t, store.Append(first, script[i].player, &script[i].msg))
	}
	// a second match keeps its own sequence
	require.NoError(t, store.Append(second, 0, &game.Message{Type: "setup"}))

	actions, err := store.Load(first)
	require.NoError(t, err)
	require.Len(t, actions, len(script))
	for i, action := range actions {
		assert.Equal(t, script[i].player, action.Player)
		assert.Equal(t, script[i].msg.Type, action.Message.Type)
	}
	assert.Equal(t, hexgrid.Loc{X: 3, Y: 8}, actions[2].Message.To)
	assert.Equal(t, []hexgrid.Loc{{X: 3, Y: 8}}, actions[3].Message.Targets)
	assert.True(t, actions[4].Message.Skip)

	others, err := store.Load(second)
	require.NoError(t, err)
	require.Len(t, others, 1)

	empty, err := store.Load(999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
