// Package targeting validates ability targets and resolves the cells an ability affects.
package targeting

import (
	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
)

// Requirement is the targeting part of an ability definition.
type Requirement struct {
	Kind catalog.TargetKind
	// Range limits the distance from the caster to the chosen cell. Zero means unrestricted.
	Range int
	// AreaSize is the side of the affected square when Area is set.
	AreaSize int
	Area     bool
}

// RequirementOf extracts the targeting requirement of an ability.
func RequirementOf(a catalog.Ability) Requirement {
	return Requirement{
		Kind:     a.Target,
		Range:    a.Range,
		AreaSize: a.AreaSize,
		Area:     a.AreaEffect,
	}
}

// Resolve returns the cells a non-area ability affects, in scan order.
// anchor is the caster's cell for self and the chosen cell for ally and enemy.
// Tile abilities without an area resolve nothing.
func Resolve(b *board.Board, actor string, kind catalog.TargetKind, anchor board.Position) []board.Position {
	switch kind {
	case catalog.TargetSelf, catalog.TargetAlly, catalog.TargetEnemy:
		if b.At(anchor) != nil {
			return []board.Position{anchor}
		}
		return nil
	case catalog.TargetAllAllies:
		return b.Units(actor)
	case catalog.TargetAllEnemies:
		var out []board.Position
		for _, p := range b.Units("") {
			if b.At(p).OwnerID() != actor {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

// Area returns the square of side size centered on center, clipped to the board.
// The radius is size/2 rounded down.
func Area(center board.Position, size int) []board.Position {
	if size < 1 {
		size = 1
	}
	radius := size / 2
	var out []board.Position
	for r := center.R - radius; r <= center.R+radius; r++ {
		for c := center.C - radius; c <= center.C+radius; c++ {
			p := board.Pos(r, c)
			if p.InBounds() {
				out = append(out, p)
			}
		}
	}
	return out
}

// Affected resolves every occupied cell an ability cast from origin at target touches.
// Area abilities use the clipped square around target, or around origin when the
// kind takes no target.
func Affected(b *board.Board, actor string, origin board.Position, req Requirement, target *board.Position) []board.Position {
	anchor := origin
	if req.Kind.NeedsTarget() && target != nil {
		anchor = *target
	}
	if !req.Area {
		return Resolve(b, actor, req.Kind, anchor)
	}
	var out []board.Position
	for _, p := range Area(anchor, req.AreaSize) {
		if b.At(p) != nil {
			out = append(out, p)
		}
	}
	return out
}
