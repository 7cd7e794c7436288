package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
)

func turns(n int) *int { return &n }

func place(t *testing.T, b *board.Board, p board.Position, owner string, card catalog.Card) *board.Unit {
	t.Helper()
	u := board.NewUnit(owner, card)
	require.NoError(t, b.Place(p, u))
	return u
}

var grunt = catalog.Card{ID: "grunt", MaxHP: 10, Attack: 4, Defense: 2, Range: 1, Speed: 2}

func TestDamageRespectsDefenseAndFloor(t *testing.T) {
	b := board.New()
	u := place(t, b, board.Pos(3, 3), "p2", grunt)

	bolt := catalog.Ability{Name: "Bolt", Type: catalog.AbilityActive, Target: catalog.TargetEnemy, Damage: 5}
	report, ok := Apply(b, NewLedger(), "p1", bolt, board.Pos(3, 3))
	require.True(t, ok)
	assert.Equal(t, []Effect{{Kind: KindDamage, Value: 3}}, report.Effects)
	assert.Equal(t, 7, u.HP)

	spark := catalog.Ability{Name: "Spark", Type: catalog.AbilityActive, Target: catalog.TargetEnemy, Damage: 1}
	report, ok = Apply(b, NewLedger(), "p1", spark, board.Pos(3, 3))
	require.True(t, ok)
	assert.Equal(t, 0, report.Effects[0].Value)
	assert.Equal(t, 7, u.HP)

	pierce := catalog.Ability{Name: "Pierce", Type: catalog.AbilityActive, Target: catalog.TargetEnemy, Damage: 7, IgnoresDefense: true}
	report, ok = Apply(b, NewLedger(), "p1", pierce, board.Pos(3, 3))
	require.True(t, ok)
	assert.True(t, report.Killed())
	assert.Nil(t, b.At(board.Pos(3, 3)))
}

func TestStructureBonusOnlyAgainstTowers(t *testing.T) {
	b := board.NewStandard("p1", "p2", 50)
	u := place(t, b, board.Pos(1, 3), "p2", catalog.Card{ID: "wall", MaxHP: 30, Range: 1})

	siege := catalog.Ability{
		Name: "Siege", Type: catalog.AbilityActive, Target: catalog.TargetEnemy,
		Damage: 5, IgnoresDefense: true,
		Bonus: &catalog.Bonus{Kind: catalog.BonusVsStructure, Amount: 10},
	}

	_, ok := Apply(b, NewLedger(), "p1", siege, board.Pos(0, 3))
	require.True(t, ok)
	_, tower, _ := b.TowerOf("p2")
	assert.Equal(t, 35, tower.HP)

	_, ok = Apply(b, NewLedger(), "p1", siege, board.Pos(1, 3))
	require.True(t, ok)
	assert.Equal(t, 25, u.HP)
}

func TestTowerKillIsReported(t *testing.T) {
	b := board.NewStandard("p1", "p2", 4)
	nuke := catalog.Ability{Name: "Nuke", Type: catalog.AbilityActive, Target: catalog.TargetEnemy, Damage: 10}

	report, ok := Apply(b, NewLedger(), "p1", nuke, board.Pos(0, 3))
	require.True(t, ok)
	assert.Equal(t, "p2", report.DestroyedTower)
	owner, destroyed := DestroyedTower([]TargetReport{report})
	assert.True(t, destroyed)
	assert.Equal(t, "p2", owner)
}

func TestFriendlyFireSkipsWholeTarget(t *testing.T) {
	b := board.New()
	ally := place(t, b, board.Pos(3, 3), "p1", grunt)
	ally.HP = 5

	scorch := catalog.Ability{Name: "Scorch", Type: catalog.AbilityActive, Target: catalog.TargetTile, Damage: 4, Heal: 3}
	_, ok := Apply(b, NewLedger(), "p1", scorch, board.Pos(3, 3))
	assert.False(t, ok)
	assert.Equal(t, 5, ally.HP)

	scorch.FriendlyFire = true
	_, ok = Apply(b, NewLedger(), "p1", scorch, board.Pos(3, 3))
	assert.True(t, ok)
	assert.Equal(t, 6, ally.HP)
}

func TestHealClampsToMax(t *testing.T) {
	b := board.New()
	u := place(t, b, board.Pos(0, 0), "p1", grunt)
	u.HP = 8

	mend := catalog.Ability{Name: "Mend", Type: catalog.AbilityActive, Target: catalog.TargetAlly, Heal: 5}
	report, ok := Apply(b, NewLedger(), "p1", mend, board.Pos(0, 0))
	require.True(t, ok)
	assert.Equal(t, 10, u.HP)
	assert.Equal(t, 2, report.Effects[0].Value)
}

func TestBuffExpiryRestoresStatsExactly(t *testing.T) {
	b := board.New()
	u := place(t, b, board.Pos(5, 1), "p1", grunt)
	ledger := NewLedger()

	rally := catalog.Ability{
		Name: "Rally", Type: catalog.AbilityActive, Target: catalog.TargetSelf,
		Buff: &catalog.StatChange{Attack: 3, Defense: -1, Speed: 1, DurationTurns: turns(2)},
	}
	curse := catalog.Ability{
		Name: "Curse", Type: catalog.AbilityActive, Target: catalog.TargetEnemy,
		Debuff: &catalog.StatChange{Attack: 2, Speed: 2, DurationTurns: turns(1)},
	}

	_, ok := Apply(b, ledger, "p1", rally, board.Pos(5, 1))
	require.True(t, ok)
	_, ok = Apply(b, ledger, "p2", curse, board.Pos(5, 1))
	require.True(t, ok)
	assert.Equal(t, 5, u.Attack)
	assert.Equal(t, 1, u.Defense)
	assert.Equal(t, 1, u.Speed)
	assert.Equal(t, 2, ledger.Len())

	// The unit moves; expiry must follow it.
	require.NoError(t, b.Move(board.Pos(5, 1), board.Pos(3, 1)))

	expired := ledger.Tick(b)
	require.Len(t, expired, 1)
	assert.True(t, expired[0].Reverted)
	assert.Equal(t, "Curse", expired[0].Entry.Source)
	assert.Equal(t, 7, u.Attack)
	assert.Equal(t, 3, u.Speed)

	expired = ledger.Tick(b)
	require.Len(t, expired, 1)
	assert.Equal(t, board.Pos(3, 1), expired[0].Entry.Target)
	assert.Equal(t, grunt.Attack, u.Attack)
	assert.Equal(t, grunt.Defense, u.Defense)
	assert.Equal(t, grunt.Speed, u.Speed)
	assert.Zero(t, ledger.Len())
}

func TestPermanentBuffIsNotRecorded(t *testing.T) {
	b := board.New()
	u := place(t, b, board.Pos(2, 2), "p1", grunt)
	ledger := NewLedger()

	bloodlust := catalog.Ability{Name: "Bloodlust", Type: catalog.AbilityPassive, Trigger: catalog.TriggerOnKill,
		Target: catalog.TargetSelf, Buff: &catalog.StatChange{Attack: 2}}
	_, ok := Apply(b, ledger, "p1", bloodlust, board.Pos(2, 2))
	require.True(t, ok)

	assert.Equal(t, 6, u.Attack)
	assert.Zero(t, ledger.Len())
	for i := 0; i < 5; i++ {
		ledger.Tick(b)
	}
	assert.Equal(t, 6, u.Attack)
}

func TestExpiryOfRemovedUnitIsSkipped(t *testing.T) {
	b := board.New()
	place(t, b, board.Pos(2, 2), "p1", grunt)
	ledger := NewLedger()

	haste := catalog.Ability{Name: "Haste", Type: catalog.AbilityActive, Target: catalog.TargetSelf,
		Buff: &catalog.StatChange{Speed: 1, DurationTurns: turns(1)}}
	_, ok := Apply(b, ledger, "p1", haste, board.Pos(2, 2))
	require.True(t, ok)

	_, err := b.Remove(board.Pos(2, 2))
	require.NoError(t, err)
	// A different unit now stands on the old cell and must not be touched.
	other := place(t, b, board.Pos(2, 2), "p2", grunt)

	expired := ledger.Tick(b)
	require.Len(t, expired, 1)
	assert.False(t, expired[0].Reverted)
	assert.Equal(t, grunt.Speed, other.Speed)
}

func TestSpecialResetsMoveFlag(t *testing.T) {
	b := board.New()
	u := place(t, b, board.Pos(4, 4), "p1", grunt)
	u.HasMoved = true

	charge := catalog.Ability{Name: "Charge", Type: catalog.AbilityActive, Target: catalog.TargetSelf, AllowAttackAfterFullMove: true}
	report, ok := Apply(b, NewLedger(), "p1", charge, board.Pos(4, 4))
	require.True(t, ok)
	assert.False(t, u.HasMoved)
	assert.Equal(t, KindSpecial, report.Effects[0].Kind)
}

func TestBuffSkipsTowers(t *testing.T) {
	b := board.NewStandard("p1", "p2", 50)
	fortify := catalog.Ability{Name: "Fortify", Type: catalog.AbilityActive, Target: catalog.TargetAlly,
		Buff: &catalog.StatChange{Defense: 3, DurationTurns: turns(1)}}

	_, ok := Apply(b, NewLedger(), "p1", fortify, board.Pos(7, 3))
	assert.False(t, ok)
}

func TestOnKillFiresOnlyForKiller(t *testing.T) {
	b := board.New()
	bloodlust := catalog.Ability{Name: "Bloodlust", Type: catalog.AbilityPassive, Trigger: catalog.TriggerOnKill,
		Target: catalog.TargetSelf, Buff: &catalog.StatChange{Attack: 2}}
	card := grunt
	card.Abilities = []catalog.Ability{bloodlust}

	killer := place(t, b, board.Pos(4, 1), "p1", card)
	bystander := place(t, b, board.Pos(4, 5), "p1", card)

	killerPos := board.Pos(4, 1)
	reports := FirePassives(b, NewLedger(), catalog.TriggerOnKill, PassiveContext{KillerPos: &killerPos})

	require.Len(t, reports, 1)
	assert.Equal(t, "Bloodlust", reports[0].AbilityName)
	assert.Equal(t, 6, killer.Attack)
	assert.Equal(t, 4, bystander.Attack)
}

func TestOnStartTurnScopedToOwner(t *testing.T) {
	b := board.New()
	renewal := catalog.Ability{Name: "Renewal", Type: catalog.AbilityPassive, Trigger: catalog.TriggerOnStartTurn,
		Target: catalog.TargetSelf, Heal: 2}
	card := grunt
	card.Abilities = []catalog.Ability{renewal}

	mine := place(t, b, board.Pos(6, 0), "p1", card)
	theirs := place(t, b, board.Pos(1, 0), "p2", card)
	mine.HP, theirs.HP = 5, 5

	reports := FirePassives(b, NewLedger(), catalog.TriggerOnStartTurn, PassiveContext{Owner: "p1"})
	require.Len(t, reports, 1)
	assert.Equal(t, 7, mine.HP)
	assert.Equal(t, 5, theirs.HP)
	assert.Len(t, PassiveTargets(reports), 1)
}
