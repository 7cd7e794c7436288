package game

import (
	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
)

// OccupantView is the client representation of a unit or tower.
type OccupantView struct {
	Pos     board.Position `json:"pos"`
	Type    board.Kind     `json:"type"`
	Owner   string         `json:"owner"`
	CardID  string         `json:"id"`
	HP      int            `json:"hp"`
	MaxHP   int            `json:"maxHp"`
	Attack  int            `json:"attack,omitempty"`
	Defense int            `json:"defense,omitempty"`
	Range   int            `json:"range,omitempty"`
	Speed   int            `json:"speed,omitempty"`
	Ranged  bool           `json:"isRanged,omitempty"`

	HasMoved            bool `json:"hasMoved,omitempty"`
	HasAttacked         bool `json:"hasAttacked,omitempty"`
	AbilityUsedThisTurn bool `json:"abilityUsedThisTurn,omitempty"`

	Abilities []catalog.Ability `json:"abilities,omitempty"`
}

// GameView is one player's projection of the match.
type GameView struct {
	MatchID          string            `json:"matchId"`
	PlayerID         string            `json:"playerId"`
	Side             string            `json:"side"`
	Board            [][]*OccupantView `json:"board"`
	Hand             []string          `json:"hand"`
	Energy           int               `json:"energy"`
	Turn             bool              `json:"turn"`
	OpponentName     string            `json:"opponentName"`
	OpponentHandSize int               `json:"opponentHandSize"`
	OpponentEnergy   int               `json:"opponentEnergy"`
	Phase            string            `json:"phase"`
	TurnNumber       int               `json:"turnNumber"`
	StateHash        string            `json:"stateHash"`
}

// GameStart is the opening projection.
type GameStart struct {
	GameView
	Player1ID string `json:"player1Id"`
	Player2ID string `json:"player2Id"`
}

func viewOf(pos board.Position, o board.Occupant) OccupantView {
	v := OccupantView{
		Pos:    pos,
		Type:   o.Kind(),
		Owner:  o.OwnerID(),
		CardID: o.Label(),
		HP:     o.Health(),
		MaxHP:  o.MaxHealth(),
	}
	if u, ok := o.(*board.Unit); ok {
		v.Attack = u.Attack
		v.Defense = u.Defense
		v.Range = u.Range
		v.Speed = u.Speed
		v.Ranged = u.Ranged
		v.HasMoved = u.HasMoved
		v.HasAttacked = u.HasAttacked
		v.AbilityUsedThisTurn = u.AbilityUsedThisTurn
		v.Abilities = catalog.CloneAbilities(u.Abilities)
	}
	return v
}

// occupants lists every occupant in scan order.
func (m *Match) occupants() []OccupantView {
	var out []OccupantView
	for _, pos := range m.Board.Occupied() {
		out = append(out, viewOf(pos, m.Board.At(pos)))
	}
	return out
}

func (m *Match) grid() [][]*OccupantView {
	g := make([][]*OccupantView, board.Rows)
	for r := range g {
		g[r] = make([]*OccupantView, board.Cols)
	}
	for _, v := range m.occupants() {
		v := v
		g[v.Pos.R][v.Pos.C] = &v
	}
	return g
}

func (m *Match) viewFor(p *Player, hash string) GameView {
	opp := m.Opponent(p.ID)
	return GameView{
		MatchID:          m.ID,
		PlayerID:         p.ID,
		Side:             p.Side.String(),
		Board:            m.grid(),
		Hand:             append([]string{}, p.Hand...),
		Energy:           p.Energy,
		Turn:             m.Turn.IsActive(p.ID),
		OpponentName:     opp.Name,
		OpponentHandSize: len(opp.Hand),
		OpponentEnergy:   opp.Energy,
		Phase:            m.Turn.Phase().String(),
		TurnNumber:       m.Turn.TurnNumber(),
		StateHash:        hash,
	}
}

func (m *Match) startView(p *Player, hash string) GameStart {
	return GameStart{
		GameView:  m.viewFor(p, hash),
		Player1ID: m.Players[0].ID,
		Player2ID: m.Players[1].ID,
	}
}

// Projections computes both players' views from the same state, sharing one state hash.
func (m *Match) Projections() [2]GameView {
	hash := m.StateHash()
	return [2]GameView{m.viewFor(m.Players[0], hash), m.viewFor(m.Players[1], hash)}
}
