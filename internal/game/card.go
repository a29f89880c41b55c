package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/davewx7/Wizard-Tactics/internal/formula"
	"github.com/davewx7/Wizard-Tactics/internal/hexgrid"
)

// CardKind is the closed set of card behaviors. Each kind carries its own
// effect payload on Card; resolution dispatches on the kind.
type CardKind int

const (
	CardDummy CardKind = iota
	CardLand
	CardMonster
	CardModification
	CardAttack
)

func parseCardKind(s string) (CardKind, error) {
	switch s {
	case "dummy", "":
		return CardDummy, nil
	case "land":
		return CardLand, nil
	case "monster":
		return CardMonster, nil
	case "modification":
		return CardModification, nil
	case "attack":
		return CardAttack, nil
	}
	return 0, fmt.Errorf("unrecognized card type %q", s)
}

// Activation distinguishes a player-initiated card from one triggered by an
// event such as a free attack. Some handlers only fire for player actions.
type Activation int

const (
	ActivationPlayer Activation = iota
	ActivationEvent
)

// Card is a compiled, immutable card definition. All copies of a card in
// play share one Card.
type Card struct {
	ID          string
	Name        string
	Description string
	Kind        CardKind

	Cost       []int
	Speed      int
	TapsCaster bool

	// Attack and modification payloads.
	Damage   int
	Range    int
	NTargets int

	// Land cards place these terrains, one per target in order.
	Land []string
	// Monster cards summon this prototype.
	Monster string
	// Modification cards apply this to each targeted unit.
	Mod *Modification

	handlers     map[string]*formula.Formula
	validTargets *formula.Formula
}

type cardDef struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	Type         string            `yaml:"type"`
	Cost         string            `yaml:"cost"`
	Speed        int               `yaml:"speed"`
	TapsCaster   *bool             `yaml:"taps_caster"`
	Damage       int               `yaml:"damage"`
	Range        *int              `yaml:"range"`
	Targets      int               `yaml:"targets"`
	Land         string            `yaml:"land"`
	Monster      string            `yaml:"monster"`
	Modification *Modification     `yaml:"modification"`
	ValidTargets string            `yaml:"valid_targets"`
	Handlers     map[string]string `yaml:"handlers"`
}

func compileCard(def *cardDef, symbols *formula.SymbolTable) (*Card, error) {
	kind, err := parseCardKind(def.Type)
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", def.ID, err)
	}

	handlers, err := compileHandlers(def.Handlers, symbols, "card "+def.ID)
	if err != nil {
		return nil, err
	}

	validTargets, err := formula.ParseOptional(def.ValidTargets, symbols)
	if err != nil {
		return nil, fmt.Errorf("card %s valid_targets: %w", def.ID, err)
	}

	taps := true
	if def.TapsCaster != nil {
		taps = *def.TapsCaster
	}
	r := -1
	if def.Range != nil {
		r = *def.Range
	}

	card := &Card{
		ID:           def.ID,
		Name:         def.Name,
		Description:  def.Description,
		Kind:         kind,
		Cost:         ParseCost(def.Cost),
		Speed:        def.Speed,
		TapsCaster:   taps,
		Damage:       def.Damage,
		Range:        r,
		NTargets:     def.Targets,
		Monster:      def.Monster,
		Mod:          def.Modification,
		handlers:     handlers,
		validTargets: validTargets,
	}
	if def.Land != "" {
		card.Land = strings.Fields(strings.ReplaceAll(def.Land, ",", " "))
	}
	return card, nil
}

// RequiredTargets is how many target locations a play of this card names.
func (c *Card) RequiredTargets() int {
	switch c.Kind {
	case CardLand:
		return len(c.Land)
	case CardMonster:
		return 1
	case CardAttack:
		return 1
	case CardModification:
		return c.NTargets
	}
	return 0
}

// CalculateValidTargets evaluates the card's explicit valid-targets formula.
// It returns false when the card has none and the caller should fall back
// to the kind-specific default.
func (c *Card) CalculateValidTargets(g *Game, caster *Unit, side int) ([]hexgrid.Loc, bool) {
	if c.validTargets == nil {
		return nil, false
	}

	ctx := formula.NewMapCallable(nil)
	ctx.Add("game", formula.Object(g))
	if caster != nil {
		ctx.Add("caster", formula.Object(caster))
	}
	v := c.validTargets.Execute(ctx)

	var result []hexgrid.Loc
	for _, elem := range v.Elements() {
		if loc, ok := valueToLoc(elem); ok {
			result = append(result, loc)
		}
	}
	return result, true
}

// validTargetSet is the full legal target set: the explicit formula when the
// card declares one, else the default for its kind.
func (c *Card) validTargetSet(g *Game, caster *Unit, side int) []hexgrid.Loc {
	if targets, ok := c.CalculateValidTargets(g, caster, side); ok {
		return targets
	}

	switch c.Kind {
	case CardLand:
		var locs []hexgrid.Loc
		g.EachLoc(func(loc hexgrid.Loc) {
			if t := g.Tile(loc); t != nil && t.Terrain.ID == terrainVoid {
				locs = append(locs, loc)
			}
		})
		return locs

	case CardMonster:
		proto := g.content.Prototype(c.Monster)
		if proto == nil {
			return nil
		}
		var locs []hexgrid.Loc
		g.EachLoc(func(loc hexgrid.Loc) {
			if isValidSummoningHex(g, side, loc, proto) {
				locs = append(locs, loc)
			}
		})
		return locs

	case CardAttack:
		if caster == nil || c.Range < 0 {
			// Hand-played attacks reach anywhere a unit stands.
			var locs []hexgrid.Loc
			for _, u := range g.Units {
				locs = append(locs, u.Loc)
			}
			return locs
		}
		var locs []hexgrid.Loc
		for _, loc := range hexgrid.Radius(caster.Loc, c.Range) {
			if loc != caster.Loc && g.UnitAt(loc) != nil {
				locs = append(locs, loc)
			}
		}
		return locs

	case CardModification:
		if c.Range > 0 {
			seen := make(map[hexgrid.Loc]bool)
			var locs []hexgrid.Loc
			for _, u := range g.Units {
				if u.Side != side || !c.castableBy(u) {
					continue
				}
				for _, loc := range hexgrid.Radius(u.Loc, c.Range) {
					if !seen[loc] && g.Tile(loc) != nil {
						seen[loc] = true
						locs = append(locs, loc)
					}
				}
			}
			return locs
		}
		var locs []hexgrid.Loc
		g.EachLoc(func(loc hexgrid.Loc) { locs = append(locs, loc) })
		return locs
	}

	return nil
}

// castableBy reports whether u can channel every resource in the card's cost.
func (c *Card) castableBy(u *Unit) bool {
	for n, amount := range c.Cost {
		if amount > 0 && !u.CanCast(ResourceLetter(n)) {
			return false
		}
	}
	return true
}

// IsPlayable is the target-selection protocol. With a complete target set it
// reports whether the card can resolve with exactly those targets. With an
// incomplete set it returns false and fills possible with the legal next
// choices, letting the client pick targets one at a time.
func (c *Card) IsPlayable(g *Game, caster *Unit, side int, targets []hexgrid.Loc) (bool, []hexgrid.Loc) {
	need := c.RequiredTargets()
	if len(targets) > need {
		return false, nil
	}

	legal := c.validTargetSet(g, caster, side)
	legalSet := make(map[hexgrid.Loc]bool, len(legal))
	for _, loc := range legal {
		legalSet[loc] = true
	}

	chosen := make(map[hexgrid.Loc]bool, len(targets))
	valid := true
	for _, loc := range targets {
		if !legalSet[loc] || chosen[loc] {
			valid = false
			break
		}
		chosen[loc] = true
	}

	if valid && len(targets) == need {
		return true, nil
	}

	// Rejections still list the remaining legal choices so the client can
	// re-prompt.
	var possible []hexgrid.Loc
	for _, loc := range legal {
		if !chosen[loc] {
			possible = append(possible, loc)
		}
	}
	return false, possible
}

// resolveContext carries one resolution of a card: who cast it, at what,
// and whether a player or an event triggered it. It is the base context
// every handler of the resolution sees.
type resolveContext struct {
	game       *Game
	caster     *Unit
	side       int
	targets    []hexgrid.Loc
	activation Activation
}

func (r *resolveContext) GetValue(key string) formula.Value {
	switch key {
	case "caster":
		if r.caster == nil {
			return formula.Null
		}
		return formula.Object(r.caster)
	case "side":
		return formula.Int(r.side)
	case "targets":
		locs := make([]formula.Value, len(r.targets))
		for i, loc := range r.targets {
			locs[i] = formula.Object(LocObject(loc))
		}
		return formula.List(locs)
	case "target":
		if len(r.targets) == 0 {
			return formula.Null
		}
		return formula.Object(LocObject(r.targets[0]))
	case "rng":
		return formula.Object(formula.RandCallable{RandSource: r.game.rng})
	}
	return formula.Null
}

func (r *resolveContext) Inputs() []formula.Input {
	return []formula.Input{{Name: "caster"}, {Name: "side"}, {Name: "targets"}, {Name: "target"}}
}

// Resolve applies the card against the live game: the resolve handler first,
// then the kind-specific effect. A target that no longer resolves to
// anything is skipped, never an error; effects already applied stand.
func (c *Card) Resolve(g *Game, ctx *resolveContext) {
	c.handleEvent(g, "resolve", ctx)

	switch c.Kind {
	case CardLand:
		for i, loc := range ctx.targets {
			if i >= len(c.Land) {
				break
			}
			if g.Tile(loc) != nil {
				g.SetTerrain(loc, c.Land[i])
			}
		}

	case CardMonster:
		for _, loc := range ctx.targets {
			g.PlaceUnit(c.Monster, ctx.side, loc)
		}

	case CardModification:
		if c.Mod == nil {
			return
		}
		for _, loc := range ctx.targets {
			if u := g.UnitAt(loc); u != nil {
				u.AddModification(*c.Mod)
			}
		}

	case CardAttack:
		c.resolveAttack(g, ctx)
	}
}

func (c *Card) resolveAttack(g *Game, ctx *resolveContext) {
	// Free attacks are event-driven and do not give the victim an
	// "attacked" reaction.
	if ctx.activation == ActivationPlayer {
		for _, target := range ctx.targets {
			if u := g.UnitAt(target); u != nil {
				u.HandleEvent(g, "attacked", ctx)
			}
		}
	}

	g.Sweep()

	// The attack is countered if the reaction removed the attacker.
	if ctx.caster != nil && !g.UnitAlive(ctx.caster) {
		return
	}

	for _, target := range ctx.targets {
		u := g.UnitAt(target)
		if u == nil {
			continue
		}

		if ctx.caster != nil {
			g.QueueAttackAnim(ctx.caster.Loc, target)
		}

		attack := &attackCallable{damage: c.Damage, defense: g.UnitProtection(u)}
		base := formula.NewMapCallable(ctx)
		base.Add("attack", formula.Object(attack))
		c.handleEvent(g, "attack", base)

		final := attack.damage - attack.defense
		if final <= 0 {
			if attack.damage > 0 {
				final = 1
			} else {
				final = 0
			}
		}
		u.TakeDamage(final)
	}
}

func (c *Card) handleEvent(g *Game, event string, base formula.Callable) {
	handler, ok := c.handlers[event]
	if !ok {
		return
	}
	ctx := formula.NewMapCallable(base)
	ctx.Add("game", formula.Object(g))
	g.ExecuteCommand(handler.Execute(ctx))
}

// attackCallable is the mutable damage/defense pair an attack handler may
// rewrite before mitigation is applied.
type attackCallable struct {
	damage  int
	defense int
}

func (a *attackCallable) GetValue(key string) formula.Value {
	switch key {
	case "damage":
		return formula.Int(a.damage)
	case "defense":
		return formula.Int(a.defense)
	}
	return formula.Null
}

func (a *attackCallable) SetValue(key string, v formula.Value) {
	switch key {
	case "damage":
		a.damage = v.AsInt()
	case "defense":
		a.defense = v.AsInt()
	}
}

func (a *attackCallable) Inputs() []formula.Input {
	return []formula.Input{
		{Name: "damage", Access: formula.ReadWrite},
		{Name: "defense", Access: formula.ReadWrite},
	}
}

// isValidSummoningHex is where a monster may enter play: a real, unoccupied,
// non-void hex (towers only if owned), adjacent to a friendly unit able to
// summon every resource in the monster's upkeep.
func isValidSummoningHex(g *Game, player int, loc hexgrid.Loc, proto *Unit) bool {
	t := g.Tile(loc)
	if t == nil || t.Terrain.ID == terrainVoid || g.UnitAt(loc) != nil {
		return false
	}
	if t.Terrain.ID == terrainTower && g.TowerOwner(loc) != player {
		return false
	}
	for _, u := range g.Units {
		if u.Side != player || !u.Loc.IsAdjacent(loc) {
			continue
		}
		canSummon := true
		for i := 0; i < len(proto.Upkeep); i++ {
			if !u.CanSummon(proto.Upkeep[i]) {
				canSummon = false
				break
			}
		}
		if canSummon {
			return true
		}
	}
	return false
}

// HeldCard is one card in a player's hand with its replay embargo.
type HeldCard struct {
	Card    *Card
	Embargo int
}

// ReadDeck parses a deck string: comma-separated card ids, each optionally
// followed by a space and an embargo count.
func ReadDeck(content *Content, s string) ([]HeldCard, error) {
	var result []HeldCard
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Fields(item)
		if len(parts) > 2 {
			return nil, fmt.Errorf("illegal deck entry %q", item)
		}
		card := content.Card(parts[0])
		if card == nil {
			return nil, fmt.Errorf("unknown card %q", parts[0])
		}
		embargo := 0
		if len(parts) == 2 {
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("illegal deck entry %q: %w", item, err)
			}
			embargo = n
		}
		result = append(result, HeldCard{Card: card, Embargo: embargo})
	}
	return result, nil
}

// WriteDeck is the inverse of ReadDeck.
func WriteDeck(cards []HeldCard) string {
	var sb strings.Builder
	for i, hc := range cards {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(hc.Card.ID)
		if hc.Embargo != 0 {
			fmt.Fprintf(&sb, " %d", hc.Embargo)
		}
	}
	return sb.String()
}
