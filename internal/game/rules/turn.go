package rules

import (
	"fmt"
	"strings"

	"github.com/towerclash/towerclash-server/internal/game/board"
)

// Phase is the state of the per-match turn machine.
type Phase int

const (
	// PhaseAwaitingAction waits for the active player's next intent.
	PhaseAwaitingAction Phase = iota
	// PhaseAwaitingContinuation follows a melee move that brought an enemy
	// into range; the player may attack with the moved unit or end the turn.
	PhaseAwaitingContinuation
	// PhaseMatchEnded is terminal.
	PhaseMatchEnded
)

var phaseNames = map[Phase]string{
	PhaseAwaitingAction:       "AWAITING_ACTION",
	PhaseAwaitingContinuation: "AWAITING_CONTINUATION",
	PhaseMatchEnded:           "MATCH_ENDED",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// TurnManager tracks the active player, turn number and phase.
type TurnManager struct {
	turnNumber    int
	activePlayer  string
	waitingPlayer string
	phase         Phase
	continuation  board.Position
}

// NewTurnManager creates a new turn manager at turn 1 with first acting.
func NewTurnManager(first, second string) *TurnManager {
	return &TurnManager{
		turnNumber:    1,
		activePlayer:  strings.TrimSpace(first),
		waitingPlayer: strings.TrimSpace(second),
		phase:         PhaseAwaitingAction,
	}
}

// TurnNumber returns the current turn number (1-based).
func (tm *TurnManager) TurnNumber() int {
	return tm.turnNumber
}

// ActivePlayer returns the player who currently has the turn.
func (tm *TurnManager) ActivePlayer() string {
	return tm.activePlayer
}

// WaitingPlayer returns the player who does not have the turn.
func (tm *TurnManager) WaitingPlayer() string {
	return tm.waitingPlayer
}

// IsActive reports whether playerID holds the turn.
func (tm *TurnManager) IsActive(playerID string) bool {
	return tm.phase != PhaseMatchEnded && tm.activePlayer == playerID
}

// Phase returns the current phase.
func (tm *TurnManager) Phase() Phase {
	return tm.phase
}

// Ended reports whether the match is over.
func (tm *TurnManager) Ended() bool {
	return tm.phase == PhaseMatchEnded
}

// AwaitContinuation records that the unit now at pos may still attack this turn.
func (tm *TurnManager) AwaitContinuation(pos board.Position) {
	if tm.phase == PhaseMatchEnded {
		return
	}
	tm.phase = PhaseAwaitingContinuation
	tm.continuation = pos
}

// Continuation returns the unit position of an open continuation choice.
func (tm *TurnManager) Continuation() (board.Position, bool) {
	return tm.continuation, tm.phase == PhaseAwaitingContinuation
}

// SwitchTurn hands the turn to the waiting player and returns the new active player.
// It is the only place the active player changes.
func (tm *TurnManager) SwitchTurn() string {
	if tm.phase == PhaseMatchEnded {
		return tm.activePlayer
	}
	tm.activePlayer, tm.waitingPlayer = tm.waitingPlayer, tm.activePlayer
	tm.turnNumber++
	tm.phase = PhaseAwaitingAction
	tm.continuation = board.Position{}
	return tm.activePlayer
}

// End moves the machine to its terminal phase.
func (tm *TurnManager) End() {
	tm.phase = PhaseMatchEnded
	tm.continuation = board.Position{}
}
