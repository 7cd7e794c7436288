package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// AbilityType distinguishes abilities a player invokes from abilities that fire on their own.
type AbilityType string

const (
	AbilityActive  AbilityType = "active"
	AbilityPassive AbilityType = "passive"
)

// TargetKind describes what an ability may be aimed at.
type TargetKind string

const (
	TargetSelf       TargetKind = "self"
	TargetAlly       TargetKind = "ally"
	TargetEnemy      TargetKind = "enemy"
	TargetTile       TargetKind = "tile"
	TargetAllAllies  TargetKind = "allAllies"
	TargetAllEnemies TargetKind = "allEnemies"
)

var targetKinds = map[TargetKind]bool{
	TargetSelf:       true,
	TargetAlly:       true,
	TargetEnemy:      true,
	TargetTile:       true,
	TargetAllAllies:  true,
	TargetAllEnemies: true,
}

// Valid reports whether k is a known target kind.
func (k TargetKind) Valid() bool {
	return targetKinds[k]
}

// NeedsTarget reports whether the kind requires the player to pick a cell.
func (k TargetKind) NeedsTarget() bool {
	switch k {
	case TargetSelf, TargetAllAllies, TargetAllEnemies:
		return false
	default:
		return true
	}
}

// Trigger names the event that fires a passive ability.
type Trigger string

const (
	TriggerOnKill      Trigger = "onKill"
	TriggerOnStartTurn Trigger = "onStartTurn"
)

// StatChange is a signed modification of a unit's combat stats.
// A nil DurationTurns means the change is permanent.
type StatChange struct {
	Attack        int  `yaml:"attack" json:"attack,omitempty"`
	Defense       int  `yaml:"defense" json:"defense,omitempty"`
	Speed         int  `yaml:"speed" json:"speed,omitempty"`
	DurationTurns *int `yaml:"durationTurns" json:"durationTurns,omitempty"`
}

// Permanent reports whether the change never expires.
func (s StatChange) Permanent() bool {
	return s.DurationTurns == nil
}

func (s *StatChange) clone() *StatChange {
	if s == nil {
		return nil
	}
	cp := *s
	if s.DurationTurns != nil {
		d := *s.DurationTurns
		cp.DurationTurns = &d
	}
	return &cp
}

// BonusKind enumerates the conditional damage bonuses an ability can carry.
type BonusKind int

const (
	// BonusVsStructure adds flat damage when the target is a tower.
	BonusVsStructure BonusKind = iota + 1
)

func (k BonusKind) String() string {
	switch k {
	case BonusVsStructure:
		return "vsStructure"
	default:
		return fmt.Sprintf("BONUS_%d", int(k))
	}
}

// Bonus is a conditional damage bonus resolved from catalog data at load time.
type Bonus struct {
	Kind   BonusKind `json:"kind"`
	Amount int       `json:"amount"`
}

// ParseBonus decodes the catalog's compact bonus encoding, e.g.
// "extraDamageAgainstStructures:5". An empty string yields nil.
func ParseBonus(raw string) (*Bonus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	name, value, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, fmt.Errorf("custom effect %q: missing amount", raw)
	}

	amount, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("custom effect %q: invalid amount: %w", raw, err)
	}

	switch strings.TrimSpace(name) {
	case "extraDamageAgainstStructures":
		return &Bonus{Kind: BonusVsStructure, Amount: amount}, nil
	default:
		return nil, fmt.Errorf("custom effect %q: unknown kind", raw)
	}
}

// Ability is a catalog ability definition. Optional payloads are explicit
// sub-records; a zero Damage or Heal means the effect does not fire.
type Ability struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Type        AbilityType `json:"abilityType"`
	Trigger     Trigger     `json:"trigger,omitempty"`
	EnergyCost  int         `json:"energyCost,omitempty"`
	Range       int         `json:"range,omitempty"`
	Target      TargetKind  `json:"target"`
	AreaEffect  bool        `json:"areaEffect,omitempty"`
	AreaSize    int         `json:"areaSize,omitempty"`
	Damage      int         `json:"damage,omitempty"`
	Heal        int         `json:"heal,omitempty"`
	Buff        *StatChange `json:"buff,omitempty"`
	Debuff      *StatChange `json:"debuff,omitempty"`

	IgnoresDefense           bool `json:"ignoresDefense,omitempty"`
	FriendlyFire             bool `json:"friendlyFire,omitempty"`
	AllowAttackAfterFullMove bool `json:"allowAttackAfterFullMove,omitempty"`

	Bonus *Bonus `json:"bonus,omitempty"`
}

// IsActive reports whether the ability is invoked by a player.
func (a Ability) IsActive() bool {
	return a.Type == AbilityActive
}

// Clone returns a deep copy so per-unit state never aliases catalog data.
func (a Ability) Clone() Ability {
	cp := a
	cp.Buff = a.Buff.clone()
	cp.Debuff = a.Debuff.clone()
	if a.Bonus != nil {
		b := *a.Bonus
		cp.Bonus = &b
	}
	return cp
}

// CloneAbilities deep-copies a slice of abilities.
func CloneAbilities(src []Ability) []Ability {
	if len(src) == 0 {
		return nil
	}
	out := make([]Ability, len(src))
	for i, a := range src {
		out[i] = a.Clone()
	}
	return out
}

func (a Ability) validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("ability name is required")
	}
	switch a.Type {
	case AbilityActive:
		if a.EnergyCost < 0 {
			return fmt.Errorf("ability %s: negative energy cost", a.Name)
		}
	case AbilityPassive:
		if a.Trigger != TriggerOnKill && a.Trigger != TriggerOnStartTurn {
			return fmt.Errorf("ability %s: unknown trigger %q", a.Name, a.Trigger)
		}
	default:
		return fmt.Errorf("ability %s: unknown ability type %q", a.Name, a.Type)
	}
	if !a.Target.Valid() {
		return fmt.Errorf("ability %s: unknown target %q", a.Name, a.Target)
	}
	if a.AreaEffect && a.AreaSize < 1 {
		return fmt.Errorf("ability %s: area effect needs areaSize >= 1", a.Name)
	}
	if a.Damage < 0 || a.Heal < 0 || a.Range < 0 {
		return fmt.Errorf("ability %s: damage, heal and range must not be negative", a.Name)
	}
	return nil
}
