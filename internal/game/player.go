package game

import (
	"github.com/davewx7/Wizard-Tactics/internal/formula"
	"github.com/davewx7/Wizard-Tactics/internal/hexgrid"
)

// Player is one participant: their hand, economy and owned towers.
type Player struct {
	Name string

	// Spells is the player's hand. A positive embargo keeps a card
	// unplayable until it counts down.
	Spells []HeldCard

	Resources    []int
	ResourceGain []int

	// Towers maps each owned tower to the resource letter it produces.
	Towers map[hexgrid.Loc]byte

	Castle hexgrid.Loc
}

func newPlayer(name string) *Player {
	return &Player{
		Name:         name,
		Resources:    make([]int, NumResources),
		ResourceGain: make([]int, NumResources),
		Towers:       make(map[hexgrid.Loc]byte),
		Castle:       hexgrid.Nowhere,
	}
}

// playerCallable exposes a player's resources to formulas by name, readable
// and writable.
type playerCallable struct {
	player *Player
}

func (p playerCallable) GetValue(key string) formula.Value {
	for n := 0; n < NumResources; n++ {
		if key == ResourceName(n) {
			return formula.Int(p.player.Resources[n])
		}
	}
	return formula.Null
}

func (p playerCallable) SetValue(key string, v formula.Value) {
	for n := 0; n < NumResources; n++ {
		if key == ResourceName(n) {
			p.player.Resources[n] = v.AsInt()
			return
		}
	}
}

func (p playerCallable) Inputs() []formula.Input {
	inputs := make([]formula.Input, NumResources)
	for n := range inputs {
		inputs[n] = formula.Input{Name: ResourceName(n), Access: formula.ReadWrite}
	}
	return inputs
}
