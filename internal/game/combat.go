package game

import (
	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
	"github.com/towerclash/towerclash-server/internal/game/effects"
	"github.com/towerclash/towerclash-server/internal/game/rules"
)

// resolveAttack applies a validated regular attack and broadcasts the result.
// A destroyed tower ends the match; a destroyed unit fires the killer's
// onKill passives.
func (m *Match) resolveAttack(from board.Position, attacker *board.Unit, to board.Position, defender board.Occupant) {
	damage := rules.AttackDamage(attacker.Attack, defender.Armor())
	remaining := defender.TakeDamage(damage)
	killed := remaining <= 0
	if killed {
		_, _ = m.Board.Remove(to)
	}
	attacker.HasAttacked = true

	m.broadcast(MsgAttackResult, AttackResult{
		MatchID:        m.ID,
		AttackerCardID: attacker.CardID,
		TargetCardID:   defender.Label(),
		Damage:         damage,
		IsKill:         killed,
		From:           from,
		To:             to,
		AttackerOwner:  attacker.Owner,
		TargetOwner:    defender.OwnerID(),
	})

	if !killed {
		return
	}
	if defender.Kind() == board.KindTower {
		m.finish(attacker.Owner, ReasonTowerDestroyed, ReasonTowerLost)
		return
	}

	killer := from
	reports := effects.FirePassives(m.Board, m.Ledger, catalog.TriggerOnKill, effects.PassiveContext{KillerPos: &killer})
	m.publishPassives(reports)
}
