package game

import (
	"fmt"

	"github.com/towerclash/towerclash-server/internal/game/board"
)

// IntentKind names an in-match player intent.
type IntentKind string

const (
	IntentSummon     IntentKind = "summon_unit"
	IntentMove       IntentKind = "move_unit"
	IntentAttack     IntentKind = "attack_unit"
	IntentUseAbility IntentKind = "use_ability"
	IntentEndTurn    IntentKind = "end_turn"
	IntentForfeit    IntentKind = "forfeit"
)

// Intent is a proposed action from a player. Only the fields relevant to
// Kind are read.
type Intent struct {
	PlayerID     string
	Kind         IntentKind
	CardIndex    int
	From         board.Position
	To           board.Position
	AbilityIndex int
	Target       *board.Position
	Reason       string
}

// Apply routes the intent to the matching operation.
func (m *Match) Apply(in Intent) error {
	switch in.Kind {
	case IntentSummon:
		return m.Summon(in.PlayerID, in.CardIndex, in.To)
	case IntentMove:
		return m.Move(in.PlayerID, in.From, in.To)
	case IntentAttack:
		return m.Attack(in.PlayerID, in.From, in.To)
	case IntentUseAbility:
		return m.UseAbility(in.PlayerID, in.From, in.AbilityIndex, in.Target)
	case IntentEndTurn:
		return m.EndTurn(in.PlayerID)
	case IntentForfeit:
		return m.Forfeit(in.PlayerID, in.Reason)
	default:
		return fmt.Errorf("unknown intent %q", in.Kind)
	}
}
