package game

import (
	"errors"

	"github.com/towerclash/towerclash-server/internal/game/board"
)

// ErrUnknownPlayer is returned for intents from someone not seated in the match.
var ErrUnknownPlayer = errors.New("player not in match")

// Seat describes a participant before the match is built.
type Seat struct {
	ID   string
	Name string
	IsAI bool
}

// Player is a participant's per-match state. Units are found by scanning the board.
type Player struct {
	ID     string
	Name   string
	Side   board.Side
	IsAI   bool
	Hand   []string
	Deck   []string
	Energy int

	maxEnergy int
}

func (p *Player) canAfford(cost int) bool {
	return cost >= 0 && cost <= p.Energy
}

// spend deducts cost, never going below zero.
func (p *Player) spend(cost int) {
	if cost <= 0 {
		return
	}
	p.Energy -= cost
	if p.Energy < 0 {
		p.Energy = 0
	}
}

// gain adds energy up to the cap.
func (p *Player) gain(n int) {
	p.Energy += n
	if p.Energy > p.maxEnergy {
		p.Energy = p.maxEnergy
	}
}

func (p *Player) removeFromHand(i int) string {
	id := p.Hand[i]
	p.Hand = append(p.Hand[:i:i], p.Hand[i+1:]...)
	return id
}
