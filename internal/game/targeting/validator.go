package targeting

import (
	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
)

// Rejection messages shown to the player.
const (
	MsgNoTarget    = "no target selected"
	MsgOutOfBounds = "target is off the board"
	MsgOutOfRange  = "target out of range"
	MsgNoOccupant  = "no target at that position"
	MsgNeedAlly    = "you must select an ally"
	MsgNeedEnemy   = "you must select an enemy"
)

// RejectionError is a validation failure whose message is safe to show to the player.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

func reject(msg string) error {
	return &RejectionError{Message: msg}
}

// Validate checks a target choice for an ability cast by actor from origin.
// A supplied target is range-checked for every kind; kinds that take no
// target ignore it otherwise.
func Validate(b *board.Board, actor string, origin board.Position, req Requirement, target *board.Position) error {
	if target != nil && req.Range > 0 && origin.Distance(*target) > req.Range {
		return reject(MsgOutOfRange)
	}
	if !req.Kind.NeedsTarget() {
		return nil
	}
	if target == nil {
		return reject(MsgNoTarget)
	}
	if !target.InBounds() {
		return reject(MsgOutOfBounds)
	}

	if req.Kind == catalog.TargetTile {
		return nil
	}

	occupant := b.At(*target)
	if occupant == nil {
		return reject(MsgNoOccupant)
	}
	switch req.Kind {
	case catalog.TargetAlly:
		if occupant.OwnerID() != actor {
			return reject(MsgNeedAlly)
		}
	case catalog.TargetEnemy:
		if occupant.OwnerID() == actor {
			return reject(MsgNeedEnemy)
		}
	}
	return nil
}
