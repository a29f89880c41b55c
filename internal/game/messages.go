package game

import "github.com/davewx7/Wizard-Tactics/internal/hexgrid"

// Message is one client action. The server validates everything in it
// against the live game before any state changes; clients are never trusted
// with derived data such as movement paths.
type Message struct {
	Type string `json:"type"`

	// play
	Spell   string        `json:"spell,omitempty"`
	Caster  int           `json:"caster,omitempty"`
	Targets []hexgrid.Loc `json:"targets,omitempty"`

	// move and select_unit
	From hexgrid.Loc `json:"from,omitempty"`
	To   hexgrid.Loc `json:"to,omitempty"`

	// end_turn
	Skip     bool `json:"skip,omitempty"`
	HoldTurn bool `json:"hold_turn,omitempty"`

	// spells (deck submission)
	Spells       string `json:"spells,omitempty"`
	ResourceGain []int  `json:"resource_gain,omitempty"`
}

// Outgoing is one notification bound for clients. Empty recipients means
// broadcast to everyone.
type Outgoing struct {
	Recipients []int
	Body       any
}

// Snapshot is the canonical full-state broadcast sent after every state
// change. Clients replace their world with it wholesale.
type Snapshot struct {
	Started       bool   `json:"started"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	PlayerTurn    int    `json:"player_turn"`
	PlayerCasting int    `json:"player_casting"`
	Tiles         string `json:"tiles"`

	Units   []UnitRecord   `json:"units"`
	Players []PlayerRecord `json:"players"`

	NeutralTowers []hexgrid.Loc `json:"neutral_towers,omitempty"`
}

// UnitRecord is a unit's wire form inside a snapshot.
type UnitRecord struct {
	Key      int         `json:"key"`
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Side     int         `json:"side"`
	Loc      hexgrid.Loc `json:"loc"`
	Life     int         `json:"life"`
	Armor    int         `json:"armor"`
	Move     int         `json:"move"`
	Damage   int         `json:"damage"`
	HasMoved bool        `json:"has_moved"`

	Mods      []Modification    `json:"modifications,omitempty"`
	Abilities []string          `json:"abilities,omitempty"`
	Handlers  map[string]string `json:"handlers,omitempty"`
	Vars      map[string]string `json:"vars,omitempty"`
}

// PlayerRecord is a player's wire form inside a snapshot.
type PlayerRecord struct {
	Name         string        `json:"name"`
	Castle       hexgrid.Loc   `json:"castle"`
	Resources    []int         `json:"resources"`
	ResourceGain []int         `json:"resource_gain"`
	Spells       []SpellRecord `json:"spells"`
	Towers       []TowerRecord `json:"towers"`
}

// SpellRecord is one held card with its embargo and a usability flag the
// server precomputes so clients need no rules knowledge.
type SpellRecord struct {
	Spell    string `json:"spell"`
	Embargo  int    `json:"embargo,omitempty"`
	Playable bool   `json:"playable"`
}

// TowerRecord is one owned tower and the resource it produces.
type TowerRecord struct {
	Loc      hexgrid.Loc `json:"loc"`
	Resource string      `json:"resource"`
}

// NewTurn announces whose casting turn starts.
type NewTurn struct {
	Player string `json:"player"`
}

// MoveAnim tells clients to animate a unit moving along the server's route.
type MoveAnim struct {
	From  hexgrid.Loc   `json:"from"`
	To    hexgrid.Loc   `json:"to"`
	Steps []hexgrid.Loc `json:"steps,omitempty"`
}

// ChooseAbility prompts the mover: the unit still has usable abilities, so
// its turn is not ended automatically.
type ChooseAbility struct {
	Unit      int      `json:"unit"`
	Abilities []string `json:"abilities"`
}

// AttackAnim tells clients to animate an attack.
type AttackAnim struct {
	From hexgrid.Loc `json:"from"`
	To   hexgrid.Loc `json:"to"`
}

// DeathAnim tells clients a unit died at a location.
type DeathAnim struct {
	Loc hexgrid.Loc `json:"loc"`
}

// IllegalCast rejects a play and lists the targets that would be legal.
type IllegalCast struct {
	Spell   string        `json:"spell"`
	Targets []hexgrid.Loc `json:"targets,omitempty"`
}

// UnitMoves answers select_unit with every reachable destination.
type UnitMoves struct {
	From  hexgrid.Loc   `json:"from"`
	Moves []hexgrid.Loc `json:"moves"`
}

// ErrorNotice reports a rejected message to its sender.
type ErrorNotice struct {
	Message string `json:"message"`
}

// DebugMessage carries debug() output from content formulas.
type DebugMessage struct {
	Text string `json:"text"`
}
