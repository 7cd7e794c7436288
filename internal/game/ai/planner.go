// Package ai implements the heuristic opponent used in single-player matches.
package ai

import (
	"math/rand"
	"sort"

	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
	"github.com/towerclash/towerclash-server/internal/game/rules"
)

// ActionKind enumerates the decisions the planner can return.
type ActionKind string

const (
	ActionAttack  ActionKind = "attack"
	ActionSummon  ActionKind = "summon"
	ActionMove    ActionKind = "move"
	ActionEndTurn ActionKind = "end_turn"
)

// Action is one planner decision, expressed in the same vocabulary as a player intent.
type Action struct {
	Kind      ActionKind
	From      board.Position
	To        board.Position
	CardIndex int

	// Attack estimates, used for ranking only.
	Damage  int
	Lethal  bool
	VsTower bool
}

// State is the read-only view the planner decides from.
type State struct {
	Board   *board.Board
	Self    string
	Side    board.Side
	Hand    []string
	Energy  int
	Catalog *catalog.Catalog
}

// Planner picks actions by fixed priority: attack, summon, move, end turn.
type Planner struct {
	rng *rand.Rand
}

// NewPlanner creates a planner drawing spawn cells from rng.
func NewPlanner(rng *rand.Rand) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Planner{rng: rng}
}

// Decide returns exactly one action for the acting side.
func (p *Planner) Decide(s State) Action {
	if attacks := Attacks(s); len(attacks) > 0 {
		return attacks[0]
	}
	if a, ok := p.summon(s); ok {
		return a
	}
	if a, ok := forwardStep(s); ok {
		return a
	}
	return Action{Kind: ActionEndTurn}
}

// Attacks lists every legal attack ranked lethal first, then towers, then
// by damage. Ties keep board scan order.
func Attacks(s State) []Action {
	var out []Action
	for _, from := range s.Board.Units(s.Self) {
		u, _ := s.Board.UnitAt(from)
		if u.HasAttacked {
			continue
		}
		for _, to := range s.Board.Occupied() {
			target := s.Board.At(to)
			if target.OwnerID() == s.Self || from.Distance(to) > u.Range {
				continue
			}
			dmg := rules.AttackDamage(u.Attack, target.Armor())
			out = append(out, Action{
				Kind:    ActionAttack,
				From:    from,
				To:      to,
				Damage:  dmg,
				Lethal:  target.Health() <= dmg,
				VsTower: target.Kind() == board.KindTower,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Lethal != b.Lethal {
			return a.Lethal
		}
		if a.VsTower != b.VsTower {
			return a.VsTower
		}
		return a.Damage > b.Damage
	})
	return out
}

func (p *Planner) summon(s State) (Action, bool) {
	if s.Catalog == nil || s.Energy < s.Catalog.Cheapest() {
		return Action{}, false
	}

	best, bestCost := -1, -1
	for i, id := range s.Hand {
		card, ok := s.Catalog.Card(id)
		if !ok || card.Cost > s.Energy {
			continue
		}
		if card.Cost > bestCost {
			best, bestCost = i, card.Cost
		}
	}
	if best < 0 {
		return Action{}, false
	}

	slots := s.Board.EmptyInRow(s.Side.SpawnRow())
	if len(slots) == 0 {
		return Action{}, false
	}
	return Action{
		Kind:      ActionSummon,
		CardIndex: best,
		To:        slots[p.rng.Intn(len(slots))],
	}, true
}

func forwardStep(s State) (Action, bool) {
	for _, from := range s.Board.Units(s.Self) {
		u, _ := s.Board.UnitAt(from)
		if u.HasMoved || u.Speed < 1 {
			continue
		}
		to := board.Pos(from.R+s.Side.Forward(), from.C)
		if s.Board.IsEmpty(to) {
			return Action{Kind: ActionMove, From: from, To: to}, true
		}
	}
	return Action{}, false
}
