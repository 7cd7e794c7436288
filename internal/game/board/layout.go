package board

import "fmt"

// Side is a fixed half of the board. Player 1 plays South and acts first.
type Side int

const (
	SideSouth Side = iota + 1
	SideNorth
)

func (s Side) String() string {
	switch s {
	case SideSouth:
		return "south"
	case SideNorth:
		return "north"
	default:
		return fmt.Sprintf("SIDE_%d", int(s))
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideSouth {
		return SideNorth
	}
	return SideSouth
}

// TowerPosition is the fixed tower cell of the side.
func (s Side) TowerPosition() Position {
	if s == SideSouth {
		return Position{R: Rows - 1, C: 3}
	}
	return Position{R: 0, C: 3}
}

// SpawnRow is the only row the side may summon onto.
func (s Side) SpawnRow() int {
	if s == SideSouth {
		return Rows - 2
	}
	return 1
}

// Forward is the row delta pointing at the enemy tower.
func (s Side) Forward() int {
	if s == SideSouth {
		return -1
	}
	return 1
}

// NewStandard returns a board with both towers in place.
func NewStandard(south, north string, towerHP int) *Board {
	b := New()
	_ = b.Place(SideSouth.TowerPosition(), NewTower(south, towerHP))
	_ = b.Place(SideNorth.TowerPosition(), NewTower(north, towerHP))
	return b
}
