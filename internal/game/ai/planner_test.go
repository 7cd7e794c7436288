package ai

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
	"github.com/towerclash/towerclash-server/internal/game/rules"
)

const (
	human = "human"
	bot   = "bot"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return c
}

func unitOf(t *testing.T, c *catalog.Catalog, id, owner string) *board.Unit {
	t.Helper()
	card, ok := c.Card(id)
	require.True(t, ok)
	return board.NewUnit(owner, card)
}

func TestAttackRankingPrefersKillsThenTowers(t *testing.T) {
	c := testCatalog(t)
	b := board.NewStandard(human, bot, 50)

	archer := unitOf(t, c, "archer", bot)
	require.NoError(t, b.Place(board.Pos(2, 3), archer))
	// Tower at (0,3) is in range 2; a healthy knight at (4,3) and a weak healer at (2,5).
	require.NoError(t, b.Place(board.Pos(4, 3), unitOf(t, c, "knight", human)))
	weak := unitOf(t, c, "healer", human)
	weak.HP = 3
	require.NoError(t, b.Place(board.Pos(2, 5), weak))

	state := State{Board: b, Self: bot, Side: board.SideNorth, Catalog: c}
	attacks := Attacks(state)
	require.Len(t, attacks, 3)

	assert.Equal(t, board.Pos(2, 5), attacks[0].To)
	assert.True(t, attacks[0].Lethal)
	assert.True(t, attacks[1].VsTower)
	assert.Equal(t, board.Pos(4, 3), attacks[2].To)

	// The planner never attacks its own tower.
	for _, a := range attacks {
		assert.NotEqual(t, board.Pos(0, 3), a.To)
	}
}

func TestSummonPicksHighestAffordableCard(t *testing.T) {
	c := testCatalog(t)
	b := board.NewStandard(human, bot, 50)
	p := NewPlanner(rand.New(rand.NewSource(7)))

	state := State{
		Board: b, Self: bot, Side: board.SideNorth, Catalog: c,
		Hand:   []string{"healer", "catapult", "lancer", "archer"},
		Energy: 5,
	}
	a := p.Decide(state)
	require.Equal(t, ActionSummon, a.Kind)
	assert.Equal(t, 2, a.CardIndex)
	assert.Equal(t, board.SideNorth.SpawnRow(), a.To.R)
	assert.True(t, b.IsEmpty(a.To))
}

func TestSummonFallsThroughWhenSpawnRowFull(t *testing.T) {
	c := testCatalog(t)
	b := board.NewStandard(human, bot, 50)
	for col := 0; col < board.Cols; col++ {
		require.NoError(t, b.Place(board.Pos(1, col), unitOf(t, c, "shield", bot)))
	}

	p := NewPlanner(nil)
	a := p.Decide(State{Board: b, Self: bot, Side: board.SideNorth, Catalog: c, Hand: []string{"healer"}, Energy: 10})
	require.Equal(t, ActionMove, a.Kind)
	assert.Equal(t, board.Pos(1, 0), a.From)
	assert.Equal(t, board.Pos(2, 0), a.To)
}

func TestEndTurnWhenNothingToDo(t *testing.T) {
	c := testCatalog(t)
	b := board.NewStandard(human, bot, 50)
	p := NewPlanner(nil)

	a := p.Decide(State{Board: b, Self: bot, Side: board.SideNorth, Catalog: c, Hand: []string{"catapult"}, Energy: 1})
	assert.Equal(t, ActionEndTurn, a.Kind)
}

func TestMoveSkipsImmobileAndMovedUnits(t *testing.T) {
	c := testCatalog(t)
	b := board.NewStandard(human, bot, 50)

	moved := unitOf(t, c, "knight", human)
	moved.HasMoved = true
	require.NoError(t, b.Place(board.Pos(6, 0), moved))
	frozen := unitOf(t, c, "knight", human)
	frozen.Speed = 0
	require.NoError(t, b.Place(board.Pos(6, 1), frozen))
	require.NoError(t, b.Place(board.Pos(6, 2), unitOf(t, c, "knight", human)))

	a, ok := forwardStep(State{Board: b, Self: human, Side: board.SideSouth})
	require.True(t, ok)
	assert.Equal(t, board.Pos(6, 2), a.From)
	assert.Equal(t, board.Pos(5, 2), a.To)
}

// Decisions on random boards must always pass the same checks player intents do.
func TestDecisionsAreAlwaysLegal(t *testing.T) {
	c := testCatalog(t)
	ids := c.IDs()
	rng := rand.New(rand.NewSource(42))
	p := NewPlanner(rand.New(rand.NewSource(3)))

	for round := 0; round < 300; round++ {
		b := board.NewStandard(human, bot, 1+rng.Intn(50))
		for i := 0; i < rng.Intn(20); i++ {
			owner := human
			if rng.Intn(2) == 0 {
				owner = bot
			}
			u := unitOf(t, c, ids[rng.Intn(len(ids))], owner)
			u.HasMoved = rng.Intn(3) == 0
			u.HasAttacked = rng.Intn(3) == 0
			u.HP = 1 + rng.Intn(u.MaxHP)
			_ = b.Place(board.Pos(rng.Intn(board.Rows), rng.Intn(board.Cols)), u)
		}
		hand := make([]string, rng.Intn(6))
		for i := range hand {
			hand[i] = ids[rng.Intn(len(ids))]
		}
		state := State{Board: b, Self: bot, Side: board.SideNorth, Hand: hand, Energy: rng.Intn(11), Catalog: c}

		a := p.Decide(state)
		switch a.Kind {
		case ActionAttack:
			_, _, err := rules.CheckAttack(b, bot, a.From, a.To)
			require.NoError(t, err, "round %d", round)
		case ActionMove:
			_, err := rules.CheckMove(b, bot, a.From, a.To)
			require.NoError(t, err, "round %d", round)
		case ActionSummon:
			require.NoError(t, rules.CheckSpawn(b, board.SideNorth, a.To), "round %d", round)
			require.True(t, a.CardIndex >= 0 && a.CardIndex < len(hand))
			card, ok := c.Card(hand[a.CardIndex])
			require.True(t, ok)
			require.LessOrEqual(t, card.Cost, state.Energy)
		case ActionEndTurn:
		default:
			t.Fatalf("round %d: unexpected action %q", round, a.Kind)
		}
	}
}
