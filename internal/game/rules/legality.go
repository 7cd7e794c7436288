package rules

import (
	"errors"

	"github.com/towerclash/towerclash-server/internal/game/board"
)

// Rejection reasons for player intents. They are never sent to clients.
var (
	ErrMatchEnded         = errors.New("match has ended")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrAwaitingChoice     = errors.New("awaiting continuation choice")
	ErrNoUnit             = errors.New("no unit at position")
	ErrNotOwner           = errors.New("unit not owned by player")
	ErrAlreadyMoved       = errors.New("unit already moved")
	ErrAlreadyAttacked    = errors.New("unit already attacked")
	ErrOccupied           = errors.New("destination occupied")
	ErrUnreachable        = errors.New("destination not reachable")
	ErrNoTarget           = errors.New("no target at position")
	ErrFriendlyTarget     = errors.New("target owned by attacker")
	ErrOutOfRange         = errors.New("target out of range")
	ErrNotSpawnRow        = errors.New("cell not on spawn row")
	ErrBadCardIndex       = errors.New("card index out of hand bounds")
	ErrUnknownCard        = errors.New("unknown card")
	ErrInsufficientEnergy = errors.New("insufficient energy")
	ErrBadAbilityIndex    = errors.New("ability index out of bounds")
	ErrNotActiveAbility   = errors.New("ability is not active")
)

// CheckMove validates moving actor's unit from one cell to another and
// returns the unit.
func CheckMove(b *board.Board, actor string, from, to board.Position) (*board.Unit, error) {
	u, err := ownedUnit(b, actor, from)
	if err != nil {
		return nil, err
	}
	if u.HasMoved {
		return nil, ErrAlreadyMoved
	}
	if !to.InBounds() || !b.IsEmpty(to) {
		return nil, ErrOccupied
	}
	if !Reachable(b, from, u.Speed, to) {
		return nil, ErrUnreachable
	}
	return u, nil
}

// CheckAttack validates an attack and returns the attacker and defender.
func CheckAttack(b *board.Board, actor string, from, to board.Position) (*board.Unit, board.Occupant, error) {
	u, err := ownedUnit(b, actor, from)
	if err != nil {
		return nil, nil, err
	}
	if u.HasAttacked {
		return nil, nil, ErrAlreadyAttacked
	}
	target := b.At(to)
	if target == nil {
		return nil, nil, ErrNoTarget
	}
	if target.OwnerID() == actor {
		return nil, nil, ErrFriendlyTarget
	}
	if from.Distance(to) > u.Range {
		return nil, nil, ErrOutOfRange
	}
	return u, target, nil
}

// CheckSpawn validates a summon cell for side.
func CheckSpawn(b *board.Board, side board.Side, cell board.Position) error {
	if !cell.InBounds() || cell.R != side.SpawnRow() {
		return ErrNotSpawnRow
	}
	if !b.IsEmpty(cell) {
		return ErrOccupied
	}
	return nil
}

// AttackDamage is the damage of a regular attack: at least 1.
func AttackDamage(attack, armor int) int {
	if d := attack - armor; d > 1 {
		return d
	}
	return 1
}

// EnemyInRange reports whether any occupant not owned by u's owner lies
// within u's range of pos.
func EnemyInRange(b *board.Board, pos board.Position, u *board.Unit) bool {
	for _, p := range b.Occupied() {
		if b.At(p).OwnerID() != u.Owner && pos.Distance(p) <= u.Range {
			return true
		}
	}
	return false
}

// Reachable reports whether to can be reached from from in at most speed
// orthogonal steps through empty cells.
func Reachable(b *board.Board, from board.Position, speed int, to board.Position) bool {
	if from == to || speed < 1 || from.Distance(to) > speed {
		return false
	}
	for _, p := range ReachableCells(b, from, speed) {
		if p == to {
			return true
		}
	}
	return false
}

// ReachableCells returns every empty cell within speed steps of from, in BFS order.
func ReachableCells(b *board.Board, from board.Position, speed int) []board.Position {
	if speed < 1 {
		return nil
	}
	dist := map[board.Position]int{from: 0}
	queue := []board.Position{from}
	var out []board.Position
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if dist[cur] == speed {
			continue
		}
		for _, n := range cur.Neighbors() {
			if _, seen := dist[n]; seen || !b.IsEmpty(n) {
				continue
			}
			dist[n] = dist[cur] + 1
			out = append(out, n)
			queue = append(queue, n)
		}
	}
	return out
}

func ownedUnit(b *board.Board, actor string, pos board.Position) (*board.Unit, error) {
	u, ok := b.UnitAt(pos)
	if !ok {
		return nil, ErrNoUnit
	}
	if u.Owner != actor {
		return nil, ErrNotOwner
	}
	return u, nil
}
