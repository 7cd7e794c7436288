package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// StateHash returns a SHA-256 digest of the canonical match state. Both
// projections of one sync point carry the same value, so clients can detect
// divergent views.
func (m *Match) StateHash() string {
	sum := sha256.Sum256([]byte(m.canonical()))
	return hex.EncodeToString(sum[:])
}

// canonical renders the match deterministically: scan order for the board,
// seat order for players, insertion order for the ledger.
func (m *Match) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "MATCH:%s|%d|%s|%s\n",
		m.ID,
		m.Turn.TurnNumber(),
		m.Turn.Phase(),
		m.Turn.ActivePlayer(),
	)
	if pos, open := m.Turn.Continuation(); open {
		fmt.Fprintf(&buf, "CONTINUATION:%d,%d\n", pos.R, pos.C)
	}

	for _, p := range m.Players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%d|%t|%d\n", p.ID, p.Side, p.Energy, p.IsAI, len(p.Deck))
		fmt.Fprintf(&buf, "  HAND:%s\n", strings.Join(p.Hand, ","))
	}

	for _, v := range m.occupants() {
		fmt.Fprintf(&buf, "CELL:%d,%d|%s|%s|%s|%d/%d|%d|%d|%d|%d|%t|%t|%t|%t\n",
			v.Pos.R, v.Pos.C,
			v.Type,
			v.Owner,
			v.CardID,
			v.HP, v.MaxHP,
			v.Attack,
			v.Defense,
			v.Range,
			v.Speed,
			v.Ranged,
			v.HasMoved,
			v.HasAttacked,
			v.AbilityUsedThisTurn,
		)
	}

	for _, e := range m.Ledger.Entries() {
		fmt.Fprintf(&buf, "LEDGER:%s|%s|%s|%d|%d|%d|%d\n",
			e.UnitID, e.Source, e.Kind, e.Attack, e.Defense, e.Speed, e.Remaining)
	}

	return buf.String()
}
