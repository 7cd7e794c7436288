// Package effects applies ability payloads to board occupants and tracks
// temporary stat changes until they expire.
package effects

import (
	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
)

// Kind names one step of the effect pipeline as seen by clients.
type Kind string

const (
	KindDamage  Kind = "damage"
	KindKill    Kind = "kill"
	KindHeal    Kind = "heal"
	KindBuff    Kind = "buff"
	KindDebuff  Kind = "debuff"
	KindSpecial Kind = "special"
)

// SpecialAttackAfterMove is reported when a target's move flag is reset.
const SpecialAttackAfterMove = "canAttackAfterMove"

// Effect is one thing that happened to one target.
type Effect struct {
	Kind   Kind                `json:"type"`
	Value  int                 `json:"value,omitempty"`
	Change *catalog.StatChange `json:"change,omitempty"`
	Note   string              `json:"note,omitempty"`
}

// TargetReport lists the effects applied to a single cell.
type TargetReport struct {
	Target  board.Position `json:"targetPos"`
	Label   string         `json:"target"`
	Owner   string         `json:"owner"`
	Effects []Effect       `json:"effects"`

	// DestroyedTower holds the owner id when the target was a tower that fell.
	DestroyedTower string `json:"-"`
}

// Killed reports whether the target was removed from the board.
func (r TargetReport) Killed() bool {
	for _, e := range r.Effects {
		if e.Kind == KindKill {
			return true
		}
	}
	return false
}

// PassiveReport groups the effects of one passive ability firing.
type PassiveReport struct {
	Source      board.Position  `json:"unitPos"`
	AbilityName string          `json:"abilityName"`
	Trigger     catalog.Trigger `json:"trigger"`
	Targets     []TargetReport  `json:"effects"`
}

// DestroyedTower returns the owner of the first tower destroyed across reports, if any.
func DestroyedTower(reports []TargetReport) (string, bool) {
	for _, r := range reports {
		if r.DestroyedTower != "" {
			return r.DestroyedTower, true
		}
	}
	return "", false
}
