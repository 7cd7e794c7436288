package board

import (
	"github.com/google/uuid"

	"github.com/towerclash/towerclash-server/internal/game/catalog"
)

// Kind tags the concrete occupant type.
type Kind string

const (
	KindUnit  Kind = "unit"
	KindTower Kind = "tower"
)

// TowerMarker identifies a tower wherever a card id would otherwise appear.
const TowerMarker = "tower"

// Occupant is anything that can sit on a cell: a *Unit or a *Tower.
type Occupant interface {
	OwnerID() string
	Kind() Kind
	// Label is the card id for units and TowerMarker for towers.
	Label() string
	Health() int
	MaxHealth() int
	// Armor is the defense subtracted from incoming damage.
	Armor() int
	// TakeDamage lowers health by n (n >= 0) and returns the new health.
	TakeDamage(n int) int
	// Heal raises health by n, clamped to max, and returns the amount restored.
	Heal(n int) int
}

// Unit is a summoned card on the board.
type Unit struct {
	ID      uuid.UUID
	Owner   string
	CardID  string
	HP      int
	MaxHP   int
	Attack  int
	Defense int
	Range   int
	Speed   int
	Ranged  bool

	HasMoved            bool
	HasAttacked         bool
	AbilityUsedThisTurn bool

	Abilities []catalog.Ability
}

// NewUnit instantiates a card for owner with fresh flags and its own copy of the abilities.
func NewUnit(owner string, card catalog.Card) *Unit {
	return &Unit{
		ID:        uuid.New(),
		Owner:     owner,
		CardID:    card.ID,
		HP:        card.MaxHP,
		MaxHP:     card.MaxHP,
		Attack:    card.Attack,
		Defense:   card.Defense,
		Range:     card.Range,
		Speed:     card.Speed,
		Ranged:    card.Ranged,
		Abilities: catalog.CloneAbilities(card.Abilities),
	}
}

func (u *Unit) OwnerID() string { return u.Owner }
func (u *Unit) Kind() Kind      { return KindUnit }
func (u *Unit) Label() string   { return u.CardID }
func (u *Unit) Health() int     { return u.HP }
func (u *Unit) MaxHealth() int  { return u.MaxHP }
func (u *Unit) Armor() int      { return u.Defense }

func (u *Unit) TakeDamage(n int) int {
	if n > 0 {
		u.HP -= n
	}
	return u.HP
}

func (u *Unit) Heal(n int) int {
	return heal(&u.HP, u.MaxHP, n)
}

// ResetFlags clears the per-turn action flags.
func (u *Unit) ResetFlags() {
	u.HasMoved = false
	u.HasAttacked = false
	u.AbilityUsedThisTurn = false
}

// Clone returns a deep copy of the unit.
func (u *Unit) Clone() *Unit {
	cp := *u
	cp.Abilities = catalog.CloneAbilities(u.Abilities)
	return &cp
}

// Tower is a side's objective. It never moves or attacks.
type Tower struct {
	Owner string
	HP    int
	MaxHP int
}

// NewTower returns a tower at full health.
func NewTower(owner string, hp int) *Tower {
	return &Tower{Owner: owner, HP: hp, MaxHP: hp}
}

func (t *Tower) OwnerID() string { return t.Owner }
func (t *Tower) Kind() Kind      { return KindTower }
func (t *Tower) Label() string   { return TowerMarker }
func (t *Tower) Health() int     { return t.HP }
func (t *Tower) MaxHealth() int  { return t.MaxHP }
func (t *Tower) Armor() int      { return 0 }

func (t *Tower) TakeDamage(n int) int {
	if n > 0 {
		t.HP -= n
	}
	return t.HP
}

func (t *Tower) Heal(n int) int {
	return heal(&t.HP, t.MaxHP, n)
}

func heal(hp *int, maxHP, n int) int {
	if n <= 0 {
		return 0
	}
	before := *hp
	*hp += n
	if *hp > maxHP {
		*hp = maxHP
	}
	return *hp - before
}
