// Package board implements the fixed match grid and its occupants.
package board

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	// Rows is the number of board rows.
	Rows = 8
	// Cols is the number of board columns.
	Cols = 7
)

var (
	ErrOutOfBounds = errors.New("position out of bounds")
	ErrOccupied    = errors.New("cell occupied")
	ErrEmpty       = errors.New("cell empty")
)

// Position addresses a board cell.
type Position struct {
	R int `json:"r"`
	C int `json:"c"`
}

// Pos is shorthand for Position{R: r, C: c}.
func Pos(r, c int) Position {
	return Position{R: r, C: c}
}

// InBounds reports whether p lies on the board.
func (p Position) InBounds() bool {
	return p.R >= 0 && p.R < Rows && p.C >= 0 && p.C < Cols
}

// Distance returns the Manhattan distance between p and q.
func (p Position) Distance(q Position) int {
	return abs(p.R-q.R) + abs(p.C-q.C)
}

// Neighbors returns the in-bounds orthogonal neighbours of p.
func (p Position) Neighbors() []Position {
	out := make([]Position, 0, 4)
	for _, d := range [...]Position{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		n := Position{R: p.R + d.R, C: p.C + d.C}
		if n.InBounds() {
			out = append(out, n)
		}
	}
	return out
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.R, p.C)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Board is the match grid. Each cell holds at most one occupant.
type Board struct {
	cells [Rows][Cols]Occupant
}

// New returns an empty board.
func New() *Board {
	return &Board{}
}

// At returns the occupant at p, or nil when the cell is empty or off the board.
func (b *Board) At(p Position) Occupant {
	if !p.InBounds() {
		return nil
	}
	return b.cells[p.R][p.C]
}

// IsEmpty reports whether p is on the board and unoccupied.
func (b *Board) IsEmpty(p Position) bool {
	return p.InBounds() && b.cells[p.R][p.C] == nil
}

// UnitAt returns the unit at p, if any.
func (b *Board) UnitAt(p Position) (*Unit, bool) {
	u, ok := b.At(p).(*Unit)
	return u, ok
}

// TowerAt returns the tower at p, if any.
func (b *Board) TowerAt(p Position) (*Tower, bool) {
	t, ok := b.At(p).(*Tower)
	return t, ok
}

// Place puts o on an empty cell.
func (b *Board) Place(p Position, o Occupant) error {
	if !p.InBounds() {
		return fmt.Errorf("place at %s: %w", p, ErrOutOfBounds)
	}
	if o == nil {
		return fmt.Errorf("place at %s: nil occupant", p)
	}
	if b.cells[p.R][p.C] != nil {
		return fmt.Errorf("place at %s: %w", p, ErrOccupied)
	}
	b.cells[p.R][p.C] = o
	return nil
}

// Remove vacates p and returns what was there.
func (b *Board) Remove(p Position) (Occupant, error) {
	if !p.InBounds() {
		return nil, fmt.Errorf("remove at %s: %w", p, ErrOutOfBounds)
	}
	o := b.cells[p.R][p.C]
	if o == nil {
		return nil, fmt.Errorf("remove at %s: %w", p, ErrEmpty)
	}
	b.cells[p.R][p.C] = nil
	return o, nil
}

// Move relocates the occupant of from to the empty cell to.
func (b *Board) Move(from, to Position) error {
	if !from.InBounds() || !to.InBounds() {
		return fmt.Errorf("move %s->%s: %w", from, to, ErrOutOfBounds)
	}
	o := b.cells[from.R][from.C]
	if o == nil {
		return fmt.Errorf("move %s->%s: %w", from, to, ErrEmpty)
	}
	if from == to {
		return nil
	}
	if b.cells[to.R][to.C] != nil {
		return fmt.Errorf("move %s->%s: %w", from, to, ErrOccupied)
	}
	b.cells[to.R][to.C] = o
	b.cells[from.R][from.C] = nil
	return nil
}

// Occupied returns every occupied position in row-major scan order.
func (b *Board) Occupied() []Position {
	var out []Position
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if b.cells[r][c] != nil {
				out = append(out, Position{R: r, C: c})
			}
		}
	}
	return out
}

// OwnedBy returns the positions of every occupant (units and towers) owned by owner.
func (b *Board) OwnedBy(owner string) []Position {
	var out []Position
	for _, p := range b.Occupied() {
		if b.cells[p.R][p.C].OwnerID() == owner {
			out = append(out, p)
		}
	}
	return out
}

// Units returns the positions of units owned by owner in scan order.
// An empty owner matches every unit.
func (b *Board) Units(owner string) []Position {
	var out []Position
	for _, p := range b.Occupied() {
		u, ok := b.cells[p.R][p.C].(*Unit)
		if !ok {
			continue
		}
		if owner == "" || u.Owner == owner {
			out = append(out, p)
		}
	}
	return out
}

// FindUnit locates a unit by its identity.
func (b *Board) FindUnit(id uuid.UUID) (Position, *Unit, bool) {
	for _, p := range b.Units("") {
		u := b.cells[p.R][p.C].(*Unit)
		if u.ID == id {
			return p, u, true
		}
	}
	return Position{}, nil, false
}

// TowerOf returns the tower owned by owner.
func (b *Board) TowerOf(owner string) (Position, *Tower, bool) {
	for _, p := range b.Occupied() {
		if t, ok := b.cells[p.R][p.C].(*Tower); ok && t.Owner == owner {
			return p, t, true
		}
	}
	return Position{}, nil, false
}

// EmptyInRow returns the empty cells of row in column order.
func (b *Board) EmptyInRow(row int) []Position {
	var out []Position
	for c := 0; c < Cols; c++ {
		p := Position{R: row, C: c}
		if b.IsEmpty(p) {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	cp := &Board{}
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			switch o := b.cells[r][c].(type) {
			case *Unit:
				cp.cells[r][c] = o.Clone()
			case *Tower:
				t := *o
				cp.cells[r][c] = &t
			}
		}
	}
	return cp
}
