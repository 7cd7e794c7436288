// Package catalog holds the read-only card table that matches are built from.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var defaultCards []byte

// Card is one summonable unit definition.
type Card struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Cost        int       `json:"cost"`
	MaxHP       int       `json:"maxHp"`
	Attack      int       `json:"attack"`
	Defense     int       `json:"defense"`
	Range       int       `json:"range"`
	Speed       int       `json:"speed"`
	Ranged      bool      `json:"isRanged"`
	Abilities   []Ability `json:"abilities,omitempty"`
}

// Catalog is an immutable card table keyed by card id.
type Catalog struct {
	cards map[string]Card
	order []string
}

type rawFile struct {
	Cards []rawCard `yaml:"cards"`
}

type rawCard struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Cost        int          `yaml:"cost"`
	MaxHP       int          `yaml:"maxHp"`
	Attack      int          `yaml:"attack"`
	Defense     int          `yaml:"defense"`
	Range       int          `yaml:"range"`
	Speed       int          `yaml:"speed"`
	IsRanged    bool         `yaml:"isRanged"`
	Abilities   []rawAbility `yaml:"abilities"`
}

type rawAbility struct {
	Name                     string      `yaml:"name"`
	Description              string      `yaml:"description"`
	AbilityType              string      `yaml:"abilityType"`
	Trigger                  string      `yaml:"trigger"`
	EnergyCost               int         `yaml:"energyCost"`
	Range                    int         `yaml:"range"`
	Target                   string      `yaml:"target"`
	AreaEffect               bool        `yaml:"areaEffect"`
	AreaSize                 int         `yaml:"areaSize"`
	Damage                   int         `yaml:"damage"`
	Heal                     int         `yaml:"heal"`
	Buff                     *StatChange `yaml:"buff"`
	Debuff                   *StatChange `yaml:"debuff"`
	IgnoresDefense           bool        `yaml:"ignoresDefense"`
	FriendlyFire             bool        `yaml:"friendlyFire"`
	AllowAttackAfterFullMove bool        `yaml:"allowAttackAfterFullMove"`
	CustomEffect             string      `yaml:"customEffect"`
}

// Default returns the catalog shipped with the server.
func Default() (*Catalog, error) {
	return Parse(defaultCards)
}

// Load reads a YAML catalog from disk. An empty path loads the default catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file rawFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Cards) == 0 {
		return nil, fmt.Errorf("catalog has no cards")
	}

	c := &Catalog{
		cards: make(map[string]Card, len(file.Cards)),
		order: make([]string, 0, len(file.Cards)),
	}
	for _, rc := range file.Cards {
		card, err := rc.toCard()
		if err != nil {
			return nil, err
		}
		if _, dup := c.cards[card.ID]; dup {
			return nil, fmt.Errorf("card %s: duplicate id", card.ID)
		}
		c.cards[card.ID] = card
		c.order = append(c.order, card.ID)
	}
	return c, nil
}

func (rc rawCard) toCard() (Card, error) {
	id := strings.TrimSpace(rc.ID)
	if id == "" {
		return Card{}, fmt.Errorf("card id is required")
	}
	if rc.Cost < 0 || rc.MaxHP <= 0 || rc.Speed < 0 || rc.Range < 1 {
		return Card{}, fmt.Errorf("card %s: invalid stats", id)
	}

	card := Card{
		ID:          id,
		Name:        rc.Name,
		Description: rc.Description,
		Cost:        rc.Cost,
		MaxHP:       rc.MaxHP,
		Attack:      rc.Attack,
		Defense:     rc.Defense,
		Range:       rc.Range,
		Speed:       rc.Speed,
		Ranged:      rc.IsRanged,
	}

	for _, ra := range rc.Abilities {
		bonus, err := ParseBonus(ra.CustomEffect)
		if err != nil {
			return Card{}, fmt.Errorf("card %s: %w", id, err)
		}
		ability := Ability{
			Name:                     ra.Name,
			Description:              ra.Description,
			Type:                     AbilityType(ra.AbilityType),
			Trigger:                  Trigger(ra.Trigger),
			EnergyCost:               ra.EnergyCost,
			Range:                    ra.Range,
			Target:                   TargetKind(ra.Target),
			AreaEffect:               ra.AreaEffect,
			AreaSize:                 ra.AreaSize,
			Damage:                   ra.Damage,
			Heal:                     ra.Heal,
			Buff:                     ra.Buff,
			Debuff:                   ra.Debuff,
			IgnoresDefense:           ra.IgnoresDefense,
			FriendlyFire:             ra.FriendlyFire,
			AllowAttackAfterFullMove: ra.AllowAttackAfterFullMove,
			Bonus:                    bonus,
		}
		if err := ability.validate(); err != nil {
			return Card{}, fmt.Errorf("card %s: %w", id, err)
		}
		card.Abilities = append(card.Abilities, ability)
	}
	return card, nil
}

// Card looks up a card by id.
func (c *Catalog) Card(id string) (Card, bool) {
	card, ok := c.cards[id]
	return card, ok
}

// IDs returns card ids in catalog order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of cards.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Cheapest returns the lowest summon cost in the catalog.
func (c *Catalog) Cheapest() int {
	cheapest := -1
	for _, id := range c.order {
		if cost := c.cards[id].Cost; cheapest < 0 || cost < cheapest {
			cheapest = cost
		}
	}
	return cheapest
}

// Deck returns every card id repeated copies times, in catalog order.
func (c *Catalog) Deck(copies int) []string {
	if copies < 1 {
		copies = 1
	}
	deck := make([]string, 0, len(c.order)*copies)
	for i := 0; i < copies; i++ {
		deck = append(deck, c.order...)
	}
	return deck
}
