package game

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/davewx7/Wizard-Tactics/internal/formula"
	"github.com/davewx7/Wizard-Tactics/internal/hexgrid"
)

// State is the coarse lifecycle of a session.
type State int

const (
	StateSetup State = iota
	StatePlaying
)

// Tile is one board hex.
type Tile struct {
	Loc     hexgrid.Loc
	Terrain *Terrain
}

// Driver supplies moves for a scripted player. It is consulted whenever
// the casting turn reaches its player and must eventually end its turn.
type Driver interface {
	PlayerID() int
	Play(g *Game) []Message
}

// Board dimensions and starting positions for a generated map.
const (
	boardWidth  = 16
	boardHeight = 16
)

var wizardStarts = [2]hexgrid.Loc{{X: 2, Y: 8}, {X: 12, Y: 8}}
var castleLocs = [2]hexgrid.Loc{{X: 1, Y: 14}, {X: 13, Y: 14}}

// Game is the root aggregate: the board, every unit and player, and the
// turn state machine. All mutation flows through HandleMessage or through
// Commands it executes; formulas only ever read.
type Game struct {
	content *Content
	rng     *rand.Rand

	Started bool
	Width   int
	Height  int

	Tiles   []Tile
	Units   []*Unit
	Players []*Player

	State              State
	PlayerTurn         int
	PlayerCasting      int
	SpellCastingPasses int

	neutralTowers map[hexgrid.Loc]bool

	nextUnitKey int
	outgoing    []Outgoing

	drivers   []Driver
	drivingAI bool

	recorder func(nplayer int, msg *Message)
}

// NewGame creates an empty session over the given content. The rng is the
// session's single randomness source, so a seeded game replays exactly.
func NewGame(content *Content, rng *rand.Rand) *Game {
	return &Game{
		content:       content,
		rng:           rng,
		State:         StateSetup,
		PlayerTurn:    -1,
		PlayerCasting: -1,
		neutralTowers: make(map[hexgrid.Loc]bool),
		nextUnitKey:   1,
	}
}

// Content returns the shared content registry.
func (g *Game) Content() *Content { return g.content }

// AddPlayer registers a human participant and returns their id.
func (g *Game) AddPlayer(name string) int {
	g.Players = append(g.Players, newPlayer(name))
	return len(g.Players) - 1
}

// AddAIPlayer registers a scripted participant driven by d.
func (g *Game) AddAIPlayer(name string, d Driver) int {
	id := g.AddPlayer(name)
	g.drivers = append(g.drivers, d)
	return id
}

// SwapOutgoing hands the caller every queued notification and clears the
// queue.
func (g *Game) SwapOutgoing() []Outgoing {
	out := g.outgoing
	g.outgoing = nil
	return out
}

func (g *Game) broadcast(body any) {
	g.outgoing = append(g.outgoing, Outgoing{Body: body})
}

func (g *Game) send(nplayer int, body any) {
	g.outgoing = append(g.outgoing, Outgoing{Recipients: []int{nplayer}, Body: body})
}

// QueueAttackAnim broadcasts an attack animation cue.
func (g *Game) QueueAttackAnim(from, to hexgrid.Loc) {
	g.broadcast(AttackAnim{From: from, To: to})
}

// QueueDebugMessage broadcasts debug() output from content formulas.
func (g *Game) QueueDebugMessage(text string) {
	g.broadcast(DebugMessage{Text: strings.ReplaceAll(text, `"`, `'`)})
}

// Tile returns the tile at loc, or nil when off the board or before setup.
func (g *Game) Tile(loc hexgrid.Loc) *Tile {
	if !g.Started || loc.X < 0 || loc.Y < 0 || loc.X >= g.Width || loc.Y >= g.Height {
		return nil
	}
	return &g.Tiles[loc.Y*g.Width+loc.X]
}

// SetTerrain rewrites the terrain of a tile. Unknown terrain ids are
// dropped with a warning rather than corrupting the board.
func (g *Game) SetTerrain(loc hexgrid.Loc, terrainID string) {
	t := g.Tile(loc)
	if t == nil {
		return
	}
	terrain := g.content.Terrain(terrainID)
	if terrain == nil {
		log.Warn().Str("terrain", terrainID).Stringer("loc", loc).Msg("unknown terrain id")
		return
	}
	t.Terrain = terrain
}

// EachLoc visits every board location in row-major order.
func (g *Game) EachLoc(fn func(loc hexgrid.Loc)) {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			fn(hexgrid.Loc{X: x, Y: y})
		}
	}
}

// UnitAt returns the unit standing on loc, or nil.
func (g *Game) UnitAt(loc hexgrid.Loc) *Unit {
	for _, u := range g.Units {
		if u.Loc == loc {
			return u
		}
	}
	return nil
}

// UnitByKey resolves a unit by its session-unique key, or nil.
func (g *Game) UnitByKey(key int) *Unit {
	for _, u := range g.Units {
		if u.Key == key {
			return u
		}
	}
	return nil
}

// UnitAlive reports whether u is still on the board.
func (g *Game) UnitAlive(u *Unit) bool {
	for _, other := range g.Units {
		if other == u {
			return true
		}
	}
	return false
}

// UnitProtection is a unit's effective defense: armor plus the terrain
// armor modifier of its movement type.
func (g *Game) UnitProtection(u *Unit) int {
	result := u.Armor()
	if t := g.Tile(u.Loc); t != nil && u.MoveType != nil {
		result += u.MoveType.ArmorModification(t.Terrain.ID)
	}
	return result
}

// TowerOwner returns the player owning the tower at loc, or -1 for a
// neutral or absent tower.
func (g *Game) TowerOwner(loc hexgrid.Loc) int {
	for n, p := range g.Players {
		if _, ok := p.Towers[loc]; ok {
			return n
		}
	}
	return -1
}

// TowerLocs returns every tower on the board, neutral or owned, sorted for
// deterministic iteration.
func (g *Game) TowerLocs() []hexgrid.Loc {
	var locs []hexgrid.Loc
	for loc := range g.neutralTowers {
		locs = append(locs, loc)
	}
	for _, p := range g.Players {
		for loc := range p.Towers {
			locs = append(locs, loc)
		}
	}
	sort.Slice(locs, func(i, j int) bool {
		if locs[i].Y != locs[j].Y {
			return locs[i].Y < locs[j].Y
		}
		return locs[i].X < locs[j].X
	})
	return locs
}

// captureTower transfers the tower at loc, if any, to the mover's side.
// The tower produces the unit's resource type from then on.
func (g *Game) captureTower(loc hexgrid.Loc, u *Unit) {
	nplayer := u.Side

	isTower := g.neutralTowers[loc]
	if isTower {
		delete(g.neutralTowers, loc)
	} else {
		for n, p := range g.Players {
			if n == nplayer {
				continue
			}
			if _, ok := p.Towers[loc]; ok {
				delete(p.Towers, loc)
				isTower = true
				break
			}
		}
	}

	if !isTower {
		return
	}

	if nplayer >= 0 && nplayer < len(g.Players) {
		g.Players[nplayer].Towers[loc] = ResourceLetter(u.ResourceType(g))
	}
}

// PlaceUnit instantiates a prototype onto the board. New units enter play
// tapped. Returns nil if the prototype or location does not resolve.
func (g *Game) PlaceUnit(protoID string, side int, loc hexgrid.Loc) *Unit {
	proto := g.content.Prototype(protoID)
	if proto == nil {
		log.Warn().Str("unit", protoID).Msg("unknown unit prototype")
		return nil
	}
	if g.Tile(loc) == nil || g.UnitAt(loc) != nil {
		return nil
	}

	u := proto.instantiate(g.nextUnitKey, side, loc)
	u.HasMoved = true
	g.nextUnitKey++
	g.Units = append(g.Units, u)
	return u
}

// playerUnitLimit caps the maintenance points of units a side keeps in
// play at once.
const playerUnitLimit = 5

// UnitLimit returns the maintenance points a side may keep in play.
func (g *Game) UnitLimit(side int) int { return playerUnitLimit }

// MaintenanceTotal sums the maintenance cost of a side's units, counted
// against its unit limit.
func (g *Game) MaintenanceTotal(side int) int {
	total := 0
	for _, u := range g.Units {
		if u.Side == side {
			total += u.MaintenanceCost
		}
	}
	return total
}

// unitMoveCalculator prices the board for one unit: terrain cost by its
// movement type, occupied hexes impassable.
type unitMoveCalculator struct {
	g *Game
	u *Unit
}

func (c unitMoveCalculator) MovementCost(a, b hexgrid.Loc) int {
	t := c.g.Tile(b)
	if t == nil {
		return -1
	}
	if c.u.MoveType == nil {
		return defaultMoveCost
	}
	return c.u.MoveType.MovementCost(t.Terrain.ID)
}

func (c unitMoveCalculator) EstimatedCost(a, b hexgrid.Loc) int {
	return hexgrid.Distance(a, b)
}

func (c unitMoveCalculator) AllowedToMove(a hexgrid.Loc) bool {
	if c.g.UnitAt(a) != nil {
		return false
	}
	return c.MovementCost(a, a) >= 0
}

func (c unitMoveCalculator) LegalMoveEndpoint(a hexgrid.Loc) bool {
	return c.g.UnitAt(a) == nil
}

// PossibleMoves computes every destination u can reach this turn. The
// server always derives this itself; client-supplied paths are ignored.
func (g *Game) PossibleMoves(u *Unit) map[hexgrid.Loc]hexgrid.Route {
	return hexgrid.PossibleMoves(u.Loc, u.Move(), unitMoveCalculator{g: g, u: u})
}

// ExecuteCommand runs the result of a formula evaluation against the game:
// lists recurse, Commands and the evaluator's own set/add/debug commands
// execute, anything else is inert.
func (g *Game) ExecuteCommand(v formula.Value) {
	for _, elem := range v.Elements() {
		g.ExecuteCommand(elem)
	}

	switch cmd := v.AsCallable().(type) {
	case Command:
		cmd.Execute(g)
	case *formula.SetCommand:
		cmd.Apply()
	case *formula.AddCommand:
		cmd.Apply()
	case *formula.DebugCommand:
		log.Debug().Str("text", cmd.Text).Msg("formula debug")
		g.QueueDebugMessage(cmd.Text)
	}
}

// Sweep applies state-based actions until none remain: units with damage
// at or past their life leave the board with a death animation. Any death
// is a game state change, expiring the modifications tied to one.
func (g *Game) Sweep() {
	for {
		var survivors []*Unit
		var died []*Unit
		for _, u := range g.Units {
			if u.Dead() {
				died = append(died, u)
			} else {
				survivors = append(survivors, u)
			}
		}
		if len(died) == 0 {
			return
		}
		g.Units = survivors
		for _, u := range died {
			log.Info().Str("unit", u.ID).Stringer("loc", u.Loc).Msg("unit died")
			g.broadcast(DeathAnim{Loc: u.Loc})
		}
		for _, u := range g.Units {
			u.StateChanged()
		}
	}
}

// UnitFreeAttack resolves an event-granted attack: the attacker's default
// ability fires at the target without giving it an attacked reaction.
func (g *Game) UnitFreeAttack(attacker, target *Unit) {
	if !g.UnitAlive(attacker) || !g.UnitAlive(target) {
		return
	}
	ability := attacker.DefaultAbility()
	if ability == nil || ability.card.Kind != CardAttack {
		return
	}
	ability.card.Resolve(g, &resolveContext{
		game:       g,
		caster:     attacker,
		side:       attacker.Side,
		targets:    []hexgrid.Loc{target.Loc},
		activation: ActivationEvent,
	})
	g.Sweep()
}

// SetRecorder installs a hook that sees every handled message, including
// the ones scripted players generate. Replays are rebuilt from it; the hook
// fires before the message applies so nested messages log in causal order.
func (g *Game) SetRecorder(fn func(nplayer int, msg *Message)) {
	g.recorder = fn
}

// HandleMessage validates and applies one client action. A rejected
// message changes nothing; the sender gets an error or illegal_cast
// notice instead.
func (g *Game) HandleMessage(nplayer int, msg *Message) error {
	log.Debug().Int("player", nplayer).Str("type", msg.Type).Msg("handle message")

	if g.recorder != nil {
		g.recorder(nplayer, msg)
	}
	return g.applyMessage(nplayer, msg)
}

func (g *Game) applyMessage(nplayer int, msg *Message) error {
	switch msg.Type {
	case "setup":
		return g.handleSetup()
	case "spells":
		return g.handleSpells(nplayer, msg)
	case "select_unit":
		return g.handleSelectUnit(nplayer, msg)
	case "move":
		return g.handleMove(nplayer, msg)
	case "play":
		return g.handlePlay(nplayer, msg)
	case "end_turn":
		return g.handleEndTurn(nplayer, msg)
	}

	g.send(nplayer, ErrorNotice{Message: fmt.Sprintf("unknown message type %q", msg.Type)})
	return fmt.Errorf("unknown message type %q", msg.Type)
}

func (g *Game) handleSetup() error {
	if len(g.Players) == 0 {
		return fmt.Errorf("setup with no players")
	}

	g.Setup()
	g.broadcast(g.Snapshot())

	g.State = StatePlaying
	g.PlayerTurn = 0
	g.PlayerCasting = 0
	g.broadcast(NewTurn{Player: g.Players[0].Name})
	return nil
}

// Setup generates the board: mostly grassland with scattered rock and
// neutral towers, one wizard per player at the fixed starts.
func (g *Game) Setup() {
	g.Started = true
	g.Width = boardWidth
	g.Height = boardHeight
	g.Tiles = g.Tiles[:0]

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			loc := hexgrid.Loc{X: x, Y: y}
			terrainID := "grassland"
			if loc == wizardStarts[0] || loc == wizardStarts[1] {
				// keep the starts clear
			} else if g.rng.Intn(24) == 0 {
				terrainID = terrainTower
				g.neutralTowers[loc] = true
			} else if g.rng.Intn(16) == 0 {
				terrainID = "rock"
			}
			g.Tiles = append(g.Tiles, Tile{Loc: loc, Terrain: g.content.Terrain(terrainID)})
		}
	}

	for n := range g.Players {
		if n < len(wizardStarts) {
			g.PlaceUnit("wizard", n, wizardStarts[n])
		}
		if n < len(castleLocs) {
			g.Players[n].Castle = castleLocs[n]
		}
	}
}

func (g *Game) handleSpells(nplayer int, msg *Message) error {
	if nplayer < 0 || nplayer >= len(g.Players) {
		return fmt.Errorf("spells from invalid player %d", nplayer)
	}

	deck, err := ReadDeck(g.content, msg.Spells)
	if err != nil {
		g.send(nplayer, ErrorNotice{Message: err.Error()})
		return err
	}

	p := g.Players[nplayer]
	p.Spells = deck
	p.ResourceGain = make([]int, NumResources)
	copy(p.ResourceGain, msg.ResourceGain)
	p.Resources = make([]int, NumResources)
	copy(p.Resources, p.ResourceGain)

	g.drawHand(nplayer)
	g.broadcast(g.Snapshot())
	return nil
}

func (g *Game) handleSelectUnit(nplayer int, msg *Message) error {
	if err := g.requireCasting(nplayer); err != nil {
		return err
	}

	u := g.UnitAt(msg.From)
	switch {
	case u == nil:
		return g.reject(nplayer, fmt.Sprintf("no unit at %v", msg.From))
	case u.Side != nplayer:
		return g.reject(nplayer, "not your unit")
	case u.HasMoved:
		return g.reject(nplayer, "unit has already moved")
	}

	moves := g.PossibleMoves(u)
	result := UnitMoves{From: u.Loc}
	for loc := range moves {
		result.Moves = append(result.Moves, loc)
	}
	sort.Slice(result.Moves, func(i, j int) bool {
		if result.Moves[i].Y != result.Moves[j].Y {
			return result.Moves[i].Y < result.Moves[j].Y
		}
		return result.Moves[i].X < result.Moves[j].X
	})
	g.send(nplayer, result)
	return nil
}

func (g *Game) handleMove(nplayer int, msg *Message) error {
	if err := g.requireCasting(nplayer); err != nil {
		return err
	}

	u := g.UnitAt(msg.From)
	switch {
	case u == nil:
		return g.reject(nplayer, fmt.Sprintf("no unit at %v", msg.From))
	case u.Side != nplayer:
		return g.reject(nplayer, "not your unit")
	case u.HasMoved:
		return g.reject(nplayer, "unit has already moved")
	}

	// The destination must be reachable by the server's own search.
	route, ok := g.PossibleMoves(u)[msg.To]
	if !ok {
		return g.reject(nplayer, fmt.Sprintf("unit cannot reach %v", msg.To))
	}

	g.broadcast(MoveAnim{From: msg.From, To: msg.To, Steps: route.Steps})
	u.Loc = msg.To
	u.HasMoved = true
	g.captureTower(msg.To, u)
	g.Sweep()

	// Every other unit gets to react to the move. Reactions can kill, so
	// iterate a copy and re-check liveness.
	moveCtx := formula.NewMapCallable(nil)
	moveCtx.Add("mover", formula.Object(u))
	moveCtx.Add("from", formula.Object(LocObject(msg.From)))
	moveCtx.Add("to", formula.Object(LocObject(msg.To)))
	for _, other := range append([]*Unit(nil), g.Units...) {
		if other != u && g.UnitAlive(other) {
			other.HandleEvent(g, "unit_moved", moveCtx)
		}
	}
	g.Sweep()
	g.broadcast(g.Snapshot())

	// A mover with abilities left awaits the player's choice; otherwise the
	// casting turn ends unless the player asked to hold it.
	if g.UnitAlive(u) {
		if usable := u.UsableAbilities(g); len(usable) > 0 {
			g.send(nplayer, ChooseAbility{Unit: u.Key, Abilities: usable})
			return nil
		}
	}
	if !msg.HoldTurn {
		g.advanceTurn(false)
	}
	return nil
}

func (g *Game) handlePlay(nplayer int, msg *Message) error {
	if err := g.requireCasting(nplayer); err != nil {
		return err
	}

	card := g.content.Card(msg.Spell)
	if card == nil {
		return g.reject(nplayer, fmt.Sprintf("unknown card %q", msg.Spell))
	}

	p := g.Players[nplayer]

	var caster *Unit
	if msg.Caster != 0 {
		caster = g.UnitByKey(msg.Caster)
		if caster == nil {
			return g.reject(nplayer, fmt.Sprintf("no unit with key %d", msg.Caster))
		}
		if caster.Side != nplayer {
			return g.reject(nplayer, "not your unit")
		}
	}

	if !CanPayCost(p.Resources, card.Cost) {
		return g.reject(nplayer, fmt.Sprintf("cannot pay for %s", card.ID))
	}

	ok, possible := card.IsPlayable(g, caster, nplayer, msg.Targets)
	if !ok {
		g.send(nplayer, IllegalCast{Spell: card.ID, Targets: possible})
		return fmt.Errorf("illegal cast of %s", card.ID)
	}

	if caster != nil {
		if card.TapsCaster {
			caster.HasMoved = true
		}
	} else {
		// A hand-played card is embargoed for one to three rounds.
		for i := range p.Spells {
			if p.Spells[i].Card.ID == card.ID {
				p.Spells[i].Embargo = 1 + g.rng.Intn(3)
			}
		}
	}

	for n, amount := range card.Cost {
		p.Resources[n] -= amount
	}

	card.Resolve(g, &resolveContext{
		game:       g,
		caster:     caster,
		side:       nplayer,
		targets:    msg.Targets,
		activation: ActivationPlayer,
	})
	g.Sweep()
	g.broadcast(g.Snapshot())

	// A successful play is a non-pass action and passes the casting turn.
	g.advanceTurn(false)
	return nil
}

func (g *Game) handleEndTurn(nplayer int, msg *Message) error {
	if err := g.requireCasting(nplayer); err != nil {
		return err
	}
	g.advanceTurn(msg.Skip)
	return nil
}

func (g *Game) requireCasting(nplayer int) error {
	if g.State != StatePlaying {
		return g.reject(nplayer, "game has not started")
	}
	if nplayer != g.PlayerCasting {
		return g.reject(nplayer, "not your turn")
	}
	return nil
}

func (g *Game) reject(nplayer int, reason string) error {
	g.send(nplayer, ErrorNotice{Message: reason})
	return fmt.Errorf("rejected message from player %d: %s", nplayer, reason)
}

// advanceTurn rotates the casting pointer. The round completes only once
// every player has passed in a row; any other action restarts that count.
func (g *Game) advanceTurn(skip bool) {
	if skip {
		g.SpellCastingPasses++
	} else {
		g.SpellCastingPasses = 0
	}

	g.PlayerCasting++
	if g.PlayerCasting >= len(g.Players) {
		g.PlayerCasting = 0
	}

	g.Sweep()

	if g.SpellCastingPasses >= len(g.Players) {
		g.completeRound()
	}

	g.broadcast(g.Snapshot())
	g.broadcast(NewTurn{Player: g.Players[g.PlayerCasting].Name})

	g.driveAI()
}

// completeRound runs the between-rounds bookkeeping: refresh each hand,
// count down embargoes, accrue resources net of upkeep, then hand the new
// round to the player after the last round's starter.
func (g *Game) completeRound() {
	g.SpellCastingPasses = 0

	for n := range g.Players {
		g.drawHand(n)
		p := g.Players[n]

		for i := range p.Spells {
			if p.Spells[i].Embargo > 0 {
				p.Spells[i].Embargo--
			}
		}

		upkeep := make([]int, NumResources)
		for _, u := range g.Units {
			if u.Side != n {
				continue
			}
			for i := 0; i < len(u.Upkeep); i++ {
				if r := ResourceIndex(u.Upkeep[i]); r >= 0 {
					upkeep[r]++
				}
			}
		}

		// Each tower sustains one point of upkeep in its resource.
		for _, letter := range p.Towers {
			if r := ResourceIndex(letter); r >= 0 && upkeep[r] > 0 {
				upkeep[r]--
			}
		}

		for m := 0; m < NumResources; m++ {
			p.Resources[m] += p.ResourceGain[m] - upkeep[m]
			if p.Resources[m] < 0 {
				p.Resources[m] = 0
			}
		}
	}

	g.PlayerTurn++
	if g.PlayerTurn >= len(g.Players) {
		g.PlayerTurn = 0
	}
	g.PlayerCasting = g.PlayerTurn

	for _, u := range g.Units {
		u.NewTurn()
	}
}

// drawHand refreshes a player's hand. The whole deck stays in hand with
// embargoes gating replays, so only the resource vectors need sizing.
func (g *Game) drawHand(nplayer int) {
	p := g.Players[nplayer]
	for len(p.Resources) < NumResources {
		p.Resources = append(p.Resources, 0)
	}
	for len(p.ResourceGain) < NumResources {
		p.ResourceGain = append(p.ResourceGain, 0)
	}
}

// driveAI lets scripted players act until the casting turn returns to a
// human. Only the outermost call drives; messages an AI sends can advance
// the turn to another AI, which the loop then picks up.
func (g *Game) driveAI() {
	if g.drivingAI {
		return
	}
	g.drivingAI = true
	defer func() { g.drivingAI = false }()

	for {
		progressed := false
		for _, d := range g.drivers {
			if g.PlayerCasting != d.PlayerID() {
				continue
			}
			msgs := d.Play(g)
			if len(msgs) == 0 {
				continue
			}
			for i := range msgs {
				if err := g.HandleMessage(d.PlayerID(), &msgs[i]); err != nil {
					log.Warn().Err(err).Int("player", d.PlayerID()).Msg("ai message rejected")
				}
			}
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

// Snapshot serializes the full game state for broadcast.
func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		Started:       g.Started,
		Width:         g.Width,
		Height:        g.Height,
		PlayerTurn:    g.PlayerTurn,
		PlayerCasting: g.PlayerCasting,
	}

	var tiles []string
	for _, t := range g.Tiles {
		tiles = append(tiles, t.Terrain.ID)
	}
	snap.Tiles = strings.Join(tiles, ",")

	for _, u := range g.Units {
		record := UnitRecord{
			Key:      u.Key,
			ID:       u.ID,
			Name:     u.Name,
			Side:     u.Side,
			Loc:      u.Loc,
			Life:     u.Life(),
			Armor:    u.Armor(),
			Move:     u.Move(),
			Damage:   u.DamageTaken,
			HasMoved: u.HasMoved,
		}
		for _, m := range u.Mods {
			record.Mods = append(record.Mods, *m)
		}
		for _, a := range u.Abilities {
			record.Abilities = append(record.Abilities, a.ID)
		}
		if len(u.Handlers) > 0 {
			record.Handlers = make(map[string]string, len(u.Handlers))
			for event, f := range u.Handlers {
				record.Handlers[event] = f.Str()
			}
		}
		if u.Vars != nil && u.Vars.Len() > 0 {
			record.Vars = make(map[string]string, u.Vars.Len())
			u.Vars.Each(func(key string, v formula.Value) {
				record.Vars[key] = v.String()
			})
		}
		snap.Units = append(snap.Units, record)
	}

	for _, p := range g.Players {
		record := PlayerRecord{
			Name:         p.Name,
			Castle:       p.Castle,
			Resources:    append([]int(nil), p.Resources...),
			ResourceGain: append([]int(nil), p.ResourceGain...),
		}
		for _, hc := range p.Spells {
			playable := hc.Embargo == 0 && CanPayCost(p.Resources, hc.Card.Cost)
			record.Spells = append(record.Spells, SpellRecord{
				Spell:    hc.Card.ID,
				Embargo:  hc.Embargo,
				Playable: playable,
			})
		}
		for _, loc := range g.TowerLocs() {
			if letter, ok := p.Towers[loc]; ok {
				record.Towers = append(record.Towers, TowerRecord{
					Loc:      loc,
					Resource: string(letter),
				})
			}
		}
		snap.Players = append(snap.Players, record)
	}

	for _, loc := range g.TowerLocs() {
		if g.neutralTowers[loc] {
			snap.NeutralTowers = append(snap.NeutralTowers, loc)
		}
	}

	return snap
}

// GetValue exposes the game to formulas: its players, tiles and units.
func (g *Game) GetValue(key string) formula.Value {
	switch key {
	case "players":
		v := make([]formula.Value, len(g.Players))
		for n, p := range g.Players {
			v[n] = formula.Object(playerCallable{player: p})
		}
		return formula.List(v)
	case "tiles":
		v := make([]formula.Value, len(g.Tiles))
		for n := range g.Tiles {
			v[n] = formula.Object(TileObject{tile: &g.Tiles[n]})
		}
		return formula.List(v)
	case "units":
		v := make([]formula.Value, len(g.Units))
		for n, u := range g.Units {
			v[n] = formula.Object(u)
		}
		return formula.List(v)
	case "player_turn":
		return formula.Int(g.PlayerTurn)
	case "player_casting":
		return formula.Int(g.PlayerCasting)
	}
	return formula.Null
}

func (g *Game) Inputs() []formula.Input {
	return []formula.Input{
		{Name: "players"}, {Name: "tiles"}, {Name: "units"},
		{Name: "player_turn"}, {Name: "player_casting"},
	}
}
