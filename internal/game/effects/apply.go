package effects

import (
	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
)

// Apply runs the effect pipeline of ability, cast by actor, against the
// occupant at pos: damage, heal, buff, debuff, then the move-reset special.
// It returns false when nothing was applied, including when a damaging
// ability without friendly fire hits one of actor's own occupants.
func Apply(b *board.Board, ledger *Ledger, actor string, ability catalog.Ability, pos board.Position) (TargetReport, bool) {
	target := b.At(pos)
	if target == nil {
		return TargetReport{}, false
	}
	if ability.Damage > 0 && !ability.FriendlyFire && target.OwnerID() == actor {
		return TargetReport{}, false
	}

	report := TargetReport{Target: pos, Label: target.Label(), Owner: target.OwnerID()}

	if ability.Damage > 0 {
		dmg := AbilityDamage(ability, target)
		target.TakeDamage(dmg)
		report.Effects = append(report.Effects, Effect{Kind: KindDamage, Value: dmg})

		if target.Health() <= 0 {
			_, _ = b.Remove(pos)
			report.Effects = append(report.Effects, Effect{Kind: KindKill})
			if target.Kind() == board.KindTower {
				report.DestroyedTower = target.OwnerID()
			}
			return report, true
		}
	}

	if ability.Heal > 0 {
		healed := target.Heal(ability.Heal)
		report.Effects = append(report.Effects, Effect{Kind: KindHeal, Value: healed})
	}

	unit, isUnit := target.(*board.Unit)

	if ability.Buff != nil && isUnit {
		applyChange(ledger, unit, pos, ability.Name, KindBuff, *ability.Buff, 1)
		report.Effects = append(report.Effects, Effect{Kind: KindBuff, Change: ability.Buff})
	}

	if ability.Debuff != nil && isUnit {
		applyChange(ledger, unit, pos, ability.Name, KindDebuff, *ability.Debuff, -1)
		report.Effects = append(report.Effects, Effect{Kind: KindDebuff, Change: ability.Debuff})
	}

	if ability.AllowAttackAfterFullMove && isUnit {
		unit.HasMoved = false
		report.Effects = append(report.Effects, Effect{Kind: KindSpecial, Note: SpecialAttackAfterMove})
	}

	return report, len(report.Effects) > 0
}

// AbilityDamage is the damage ability deals to target: base plus any
// structure bonus, reduced by armor unless the ability ignores defense,
// never below zero.
func AbilityDamage(ability catalog.Ability, target board.Occupant) int {
	dmg := ability.Damage
	if ability.Bonus != nil && ability.Bonus.Kind == catalog.BonusVsStructure && target.Kind() == board.KindTower {
		dmg += ability.Bonus.Amount
	}
	if !ability.IgnoresDefense {
		dmg -= target.Armor()
	}
	if dmg < 0 {
		dmg = 0
	}
	return dmg
}

func applyChange(ledger *Ledger, u *board.Unit, pos board.Position, source string, kind Kind, change catalog.StatChange, sign int) {
	attack := sign * change.Attack
	defense := sign * change.Defense
	speed := sign * change.Speed

	u.Attack += attack
	u.Defense += defense
	u.Speed += speed

	if change.Permanent() || ledger == nil {
		return
	}
	ledger.Add(Entry{
		UnitID:    u.ID,
		Target:    pos,
		Source:    source,
		Kind:      kind,
		Attack:    attack,
		Defense:   defense,
		Speed:     speed,
		Remaining: *change.DurationTurns,
	})
}
