package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 7, c.Len())
	assert.Equal(t, 2, c.Cheapest())

	catapult, ok := c.Card("catapult")
	require.True(t, ok)
	require.Len(t, catapult.Abilities, 1)
	require.NotNil(t, catapult.Abilities[0].Bonus)
	assert.Equal(t, BonusVsStructure, catapult.Abilities[0].Bonus.Kind)
	assert.Equal(t, 10, catapult.Abilities[0].Bonus.Amount)

	knight, ok := c.Card("knight")
	require.True(t, ok)
	require.NotNil(t, knight.Abilities[0].Buff)
	assert.True(t, knight.Abilities[0].Buff.Permanent())
}

func TestParseBonus(t *testing.T) {
	b, err := ParseBonus("extraDamageAgainstStructures:7")
	require.NoError(t, err)
	assert.Equal(t, &Bonus{Kind: BonusVsStructure, Amount: 7}, b)

	b, err = ParseBonus("")
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = ParseBonus("extraDamageAgainstStructures")
	assert.Error(t, err)

	_, err = ParseBonus("extraDamageAgainstStructures:x")
	assert.Error(t, err)

	_, err = ParseBonus("teleport:3")
	assert.Error(t, err)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"empty": `cards: []`,
		"duplicate": `
cards:
  - {id: a, cost: 1, maxHp: 1, range: 1, speed: 1}
  - {id: a, cost: 1, maxHp: 1, range: 1, speed: 1}`,
		"bad stats": `
cards:
  - {id: a, cost: 1, maxHp: 0, range: 1, speed: 1}`,
		"unknown target": `
cards:
  - id: a
    cost: 1
    maxHp: 1
    range: 1
    speed: 1
    abilities:
      - {name: x, abilityType: active, target: everyone}`,
		"passive without trigger": `
cards:
  - id: a
    cost: 1
    maxHp: 1
    range: 1
    speed: 1
    abilities:
      - {name: x, abilityType: passive, target: self}`,
		"area without size": `
cards:
  - id: a
    cost: 1
    maxHp: 1
    range: 1
    speed: 1
    abilities:
      - {name: x, abilityType: active, target: tile, areaEffect: true}`,
		"unknown custom effect": `
cards:
  - id: a
    cost: 1
    maxHp: 1
    range: 1
    speed: 1
    abilities:
      - {name: x, abilityType: active, target: enemy, customEffect: "fly:2"}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.yaml")
	doc := `
cards:
  - id: scout
    name: Scout
    cost: 1
    maxHp: 5
    attack: 2
    range: 1
    speed: 4
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"scout"}, c.IDs())
	assert.Equal(t, []string{"scout", "scout", "scout"}, c.Deck(3))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCloneAbilitiesDoesNotAlias(t *testing.T) {
	d := 2
	src := []Ability{{
		Name:   "Shield Wall",
		Type:   AbilityActive,
		Target: TargetAllAllies,
		Buff:   &StatChange{Defense: 2, DurationTurns: &d},
	}}

	cp := CloneAbilities(src)
	cp[0].Buff.Defense = 9
	*cp[0].Buff.DurationTurns = 5

	assert.Equal(t, 2, src[0].Buff.Defense)
	assert.Equal(t, 2, *src[0].Buff.DurationTurns)
}
