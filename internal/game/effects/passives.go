package effects

import (
	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
	"github.com/towerclash/towerclash-server/internal/game/targeting"
)

// PassiveContext scopes a passive trigger.
type PassiveContext struct {
	// KillerPos restricts onKill passives to the unit standing there.
	KillerPos *board.Position
	// Owner restricts onStartTurn passives to that player's units.
	Owner string
}

func (c PassiveContext) admits(trigger catalog.Trigger, pos board.Position, u *board.Unit) bool {
	switch trigger {
	case catalog.TriggerOnKill:
		return c.KillerPos != nil && *c.KillerPos == pos
	case catalog.TriggerOnStartTurn:
		return c.Owner == "" || c.Owner == u.Owner
	default:
		return true
	}
}

// FirePassives scans the board and runs every passive ability whose trigger
// matches, acting as the owning unit's player. Targets resolve from the
// unit's own cell.
func FirePassives(b *board.Board, ledger *Ledger, trigger catalog.Trigger, ctx PassiveContext) []PassiveReport {
	var reports []PassiveReport
	for _, pos := range b.Units("") {
		u, ok := b.UnitAt(pos)
		if !ok || !ctx.admits(trigger, pos, u) {
			continue
		}
		for _, ability := range u.Abilities {
			if ability.IsActive() || ability.Trigger != trigger {
				continue
			}
			// An earlier passive may have removed this unit.
			if current, still := b.UnitAt(pos); !still || current != u {
				break
			}

			report := PassiveReport{Source: pos, AbilityName: ability.Name, Trigger: trigger}
			for _, tp := range targeting.Affected(b, u.Owner, pos, targeting.RequirementOf(ability), nil) {
				if tr, applied := Apply(b, ledger, u.Owner, ability, tp); applied {
					report.Targets = append(report.Targets, tr)
				}
			}
			if len(report.Targets) > 0 {
				reports = append(reports, report)
			}
		}
	}
	return reports
}

// PassiveTargets flattens the target reports of passive firings.
func PassiveTargets(reports []PassiveReport) []TargetReport {
	var out []TargetReport
	for _, r := range reports {
		out = append(out, r.Targets...)
	}
	return out
}
