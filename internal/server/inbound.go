package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/towerclash/towerclash-server/internal/game"
	"github.com/towerclash/towerclash-server/internal/game/board"
)

// Inbound message types.
const (
	MsgFindMatch    = "find_match"
	MsgLeaveQueue   = "leave_queue"
	MsgConfirmMatch = "confirm_match"
	MsgStartSolo    = "start_solo_game"
	MsgSummonUnit   = "summon_unit"
	MsgMoveUnit     = "move_unit"
	MsgAttackUnit   = "attack_unit"
	MsgUseAbility   = "use_ability"
	MsgEndTurn      = "end_turn"
)

const defaultGuestName = "Player"

var errMalformed = errors.New("malformed message")

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type nameData struct {
	Name string `json:"name"`
}

type matchData struct {
	MatchID string `json:"matchId"`
}

type summonData struct {
	MatchID   string          `json:"matchId"`
	CardIndex *int            `json:"cardIndex"`
	Target    *board.Position `json:"target"`
}

type moveData struct {
	MatchID string          `json:"matchId"`
	From    *board.Position `json:"from"`
	To      *board.Position `json:"to"`
}

type abilityData struct {
	MatchID      string          `json:"matchId"`
	UnitPos      *board.Position `json:"unitPos"`
	AbilityIndex *int            `json:"abilityIndex"`
	TargetPos    *board.Position `json:"targetPos"`
}

// handle decodes one inbound message and routes it. Failures are logged and
// otherwise dropped.
func (h *Hub) handle(playerID string, raw []byte) {
	lobby := h.currentLobby()
	if lobby == nil {
		return
	}
	msgType, err := route(lobby, playerID, raw)
	if err != nil {
		h.logger.Debug("inbound message dropped",
			zap.String("player_id", playerID),
			zap.String("type", msgType),
			zap.Error(err),
		)
	}
}

func route(lobby Lobby, playerID string, raw []byte) (string, error) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", fmt.Errorf("%w: %v", errMalformed, err)
	}

	switch msg.Type {
	case MsgFindMatch:
		var d nameData
		if err := decode(msg.Data, &d); err != nil {
			return msg.Type, err
		}
		return msg.Type, lobby.FindMatch(playerID, displayName(d.Name))

	case MsgLeaveQueue:
		lobby.LeaveQueue(playerID)
		return msg.Type, nil

	case MsgConfirmMatch:
		var d matchData
		if err := decode(msg.Data, &d); err != nil {
			return msg.Type, err
		}
		return msg.Type, lobby.ConfirmMatch(playerID, d.MatchID)

	case MsgStartSolo:
		var d nameData
		if err := decode(msg.Data, &d); err != nil {
			return msg.Type, err
		}
		_, err := lobby.StartSolo(playerID, displayName(d.Name))
		return msg.Type, err

	case MsgSummonUnit:
		var d summonData
		if err := decode(msg.Data, &d); err != nil {
			return msg.Type, err
		}
		if d.CardIndex == nil || d.Target == nil {
			return msg.Type, errMalformed
		}
		return msg.Type, lobby.Dispatch(playerID, d.MatchID, game.Intent{
			Kind:      game.IntentSummon,
			CardIndex: *d.CardIndex,
			To:        *d.Target,
		})

	case MsgMoveUnit, MsgAttackUnit:
		var d moveData
		if err := decode(msg.Data, &d); err != nil {
			return msg.Type, err
		}
		if d.From == nil || d.To == nil {
			return msg.Type, errMalformed
		}
		kind := game.IntentMove
		if msg.Type == MsgAttackUnit {
			kind = game.IntentAttack
		}
		return msg.Type, lobby.Dispatch(playerID, d.MatchID, game.Intent{Kind: kind, From: *d.From, To: *d.To})

	case MsgUseAbility:
		var d abilityData
		if err := decode(msg.Data, &d); err != nil {
			return msg.Type, err
		}
		if d.UnitPos == nil || d.AbilityIndex == nil {
			return msg.Type, errMalformed
		}
		return msg.Type, lobby.Dispatch(playerID, d.MatchID, game.Intent{
			Kind:         game.IntentUseAbility,
			From:         *d.UnitPos,
			AbilityIndex: *d.AbilityIndex,
			Target:       d.TargetPos,
		})

	case MsgEndTurn:
		var d matchData
		if err := decode(msg.Data, &d); err != nil {
			return msg.Type, err
		}
		return msg.Type, lobby.Dispatch(playerID, d.MatchID, game.Intent{Kind: game.IntentEndTurn})

	default:
		return msg.Type, fmt.Errorf("%w: unknown type %q", errMalformed, msg.Type)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

const maxNameLength = 32

// displayName trims name and truncates it to maxNameLength runes.
func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultGuestName
	}
	if runes := []rune(name); len(runes) > maxNameLength {
		name = strings.TrimSpace(string(runes[:maxNameLength]))
	}
	return name
}
