package game

import (
	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/effects"
	"github.com/towerclash/towerclash-server/internal/game/rules"
	"github.com/towerclash/towerclash-server/internal/game/targeting"
)

// Ability rejection messages shown to the caster.
const (
	MsgInsufficientEnergy = "insufficient energy"
	MsgAbilityUsed        = "this unit already used an ability this turn"
)

// UseAbility casts the active ability at abilityIndex of the actor's unit at
// unitPos. It does not end the turn and does not consume the unit's move or
// attack. Rule rejections come back as *targeting.RejectionError.
func (m *Match) UseAbility(playerID string, unitPos board.Position, abilityIndex int, target *board.Position) error {
	p, err := m.act(playerID)
	if err != nil {
		return err
	}
	u, ok := m.Board.UnitAt(unitPos)
	if !ok {
		return rules.ErrNoUnit
	}
	if u.Owner != p.ID {
		return rules.ErrNotOwner
	}
	if abilityIndex < 0 || abilityIndex >= len(u.Abilities) {
		return rules.ErrBadAbilityIndex
	}
	ability := u.Abilities[abilityIndex]
	if !ability.IsActive() {
		return rules.ErrNotActiveAbility
	}

	if !p.canAfford(ability.EnergyCost) {
		return &targeting.RejectionError{Message: MsgInsufficientEnergy}
	}
	if u.AbilityUsedThisTurn {
		return &targeting.RejectionError{Message: MsgAbilityUsed}
	}
	req := targeting.RequirementOf(ability)
	if err := targeting.Validate(m.Board, p.ID, unitPos, req, target); err != nil {
		return err
	}

	p.spend(ability.EnergyCost)
	u.AbilityUsedThisTurn = true

	var reports []effects.TargetReport
	for _, pos := range targeting.Affected(m.Board, p.ID, unitPos, req, target) {
		if report, applied := effects.Apply(m.Board, m.Ledger, p.ID, ability, pos); applied {
			reports = append(reports, report)
		}
	}

	m.broadcast(MsgAbilityResult, AbilityResult{
		MatchID:      m.ID,
		Success:      true,
		UnitPos:      unitPos,
		AbilityIndex: abilityIndex,
		AbilityName:  ability.Name,
		Effects:      reports,
	})
	m.checkTowers(reports)
	return nil
}
