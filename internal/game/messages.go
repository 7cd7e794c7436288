package game

import (
	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/effects"
)

// Outbound message types.
const (
	MsgConnected      = "connected"
	MsgMatchFound     = "match_found"
	MsgMatchCancelled = "match_cancelled"
	MsgGameStart      = "game_start"
	MsgGameUpdate     = "game_update"
	MsgActionPrompt   = "action_prompt"
	MsgAttackResult   = "attack_result"
	MsgAbilityResult  = "ability_result"
	MsgPassiveResult  = "passive_result"
	MsgGameOver       = "game_over"
)

// Game over results.
const (
	ResultVictory = "victory"
	ResultDefeat  = "defeat"
)

// Continuation prompt options.
const (
	OptionAttack  = "attack"
	OptionEndTurn = "end_turn"
)

// Envelope is the wire shape of every message: {"type": ..., "data": ...}.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Outbound is a message addressed to one player.
type Outbound struct {
	PlayerID string
	Message  Envelope
}

// Notifier delivers messages to connected players. Implementations must not block.
type Notifier interface {
	Send(playerID string, msg Envelope)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(playerID string, msg Envelope)

func (f NotifierFunc) Send(playerID string, msg Envelope) { f(playerID, msg) }

type MatchFound struct {
	MatchID      string `json:"matchId"`
	OpponentName string `json:"opponentName"`
}

type MatchCancelled struct {
	MatchID string `json:"matchId"`
	Reason  string `json:"reason"`
}

type ActionPrompt struct {
	MatchID string         `json:"matchId"`
	Message string         `json:"message"`
	Options []string       `json:"options"`
	UnitPos board.Position `json:"unitPos"`
}

type AttackResult struct {
	MatchID        string         `json:"matchId"`
	AttackerCardID string         `json:"attackerCardId"`
	TargetCardID   string         `json:"targetCardId"`
	Damage         int            `json:"damage"`
	IsKill         bool           `json:"isKill"`
	From           board.Position `json:"from"`
	To             board.Position `json:"to"`
	AttackerOwner  string         `json:"attackerOwner"`
	TargetOwner    string         `json:"targetOwner"`
}

type AbilityResult struct {
	MatchID      string                 `json:"matchId"`
	Success      bool                   `json:"success"`
	Message      string                 `json:"message,omitempty"`
	UnitPos      board.Position         `json:"unitPos"`
	AbilityIndex int                    `json:"abilityIndex"`
	AbilityName  string                 `json:"abilityName,omitempty"`
	Effects      []effects.TargetReport `json:"effects,omitempty"`
}

type PassiveResult struct {
	MatchID string `json:"matchId"`
	effects.PassiveReport
}

type GameOver struct {
	MatchID string `json:"matchId"`
	Result  string `json:"result"`
	Reason  string `json:"reason"`
}
