package effects

import (
	"github.com/google/uuid"

	"github.com/towerclash/towerclash-server/internal/game/board"
)

// Entry is a timed stat change on one unit. Attack, Defense and Speed are the
// signed deltas that were applied, so expiry subtracts them exactly.
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	UnitID    uuid.UUID      `json:"unitId"`
	Target    board.Position `json:"targetPos"`
	Source    string         `json:"source"`
	Kind      Kind           `json:"type"`
	Attack    int            `json:"attack"`
	Defense   int            `json:"defense"`
	Speed     int            `json:"speed"`
	Remaining int            `json:"turnsRemaining"`
}

// Expired is an entry removed by Tick. Reverted is false when the unit was
// no longer on the board.
type Expired struct {
	Entry    Entry
	Reverted bool
}

// Ledger records timed buffs and debuffs for a match. Permanent changes are
// applied directly and never recorded.
type Ledger struct {
	entries []Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Add records an entry and returns it with its id assigned.
func (l *Ledger) Add(e Entry) Entry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of the live entries in insertion order.
func (l *Ledger) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of live entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Tick advances every entry by one turn switch. Entries reaching zero have
// their deltas reversed on the unit, wherever it now stands, and are dropped.
func (l *Ledger) Tick(b *board.Board) []Expired {
	var expired []Expired
	kept := l.entries[:0]
	for _, e := range l.entries {
		e.Remaining--
		if e.Remaining > 0 {
			if pos, _, ok := b.FindUnit(e.UnitID); ok {
				e.Target = pos
			}
			kept = append(kept, e)
			continue
		}

		pos, u, ok := b.FindUnit(e.UnitID)
		if ok {
			u.Attack -= e.Attack
			u.Defense -= e.Defense
			u.Speed -= e.Speed
			e.Target = pos
		}
		expired = append(expired, Expired{Entry: e, Reverted: ok})
	}
	for i := len(kept); i < len(l.entries); i++ {
		l.entries[i] = Entry{}
	}
	l.entries = kept
	return expired
}

// Clone returns an independent copy.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{entries: l.Entries()}
}
