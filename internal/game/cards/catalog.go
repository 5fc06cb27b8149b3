package cards

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Category groups templates by how the engine treats their instances.
type Category int

const (
	CategoryPermanentResource Category = iota
	CategoryYieldGenerator
	CategoryUnit
	CategoryOneShot
)

func (c Category) String() string {
	switch c {
	case CategoryPermanentResource:
		return "PERMANENT_RESOURCE"
	case CategoryYieldGenerator:
		return "YIELD_GENERATOR"
	case CategoryUnit:
		return "UNIT"
	case CategoryOneShot:
		return "ONE_SHOT"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory accepts the upper or lower case names produced by String.
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PERMANENT_RESOURCE", "PERMANENT":
		return CategoryPermanentResource, nil
	case "YIELD_GENERATOR", "DEFI":
		return CategoryYieldGenerator, nil
	case "UNIT":
		return CategoryUnit, nil
	case "ONE_SHOT", "SPELL":
		return CategoryOneShot, nil
	default:
		return 0, fmt.Errorf("unknown card category %q", s)
	}
}

// Template is the static definition of a card. Templates are read-only to the engine.
type Template struct {
	ID        string
	Name      string
	Cost      int64
	Category  Category
	Abilities []Ability
}

// YieldMultiplier returns the multiplier of the template's Yield ability, or 0.
func (t *Template) YieldMultiplier() int64 {
	var total int64
	for _, a := range t.Abilities {
		if y, ok := a.(Yield); ok {
			total += y.Multiplier
		}
	}
	return total
}

// IncomeAmount returns the per-turn income granted while on the battlefield.
func (t *Template) IncomeAmount() int64 {
	var total int64
	for _, a := range t.Abilities {
		if inc, ok := a.(Income); ok {
			total += inc.Amount
		}
	}
	return total
}

// IsYieldBearing reports whether instances of this template accept stakes.
func (t *Template) IsYieldBearing() bool {
	return t.Category == CategoryYieldGenerator
}

// Deck is a registered, ordered list of template IDs. Cards are drawn from the front.
type Deck struct {
	ID    string
	Cards []string
}

// Catalog holds templates and registered decks. It is immutable after construction.
type Catalog struct {
	templates map[string]*Template
	decks     map[string]*Deck
}

// NewCatalog validates and indexes templates and decks.
func NewCatalog(templates []*Template, decks []*Deck) (*Catalog, error) {
	c := &Catalog{
		templates: make(map[string]*Template, len(templates)),
		decks:     make(map[string]*Deck, len(decks)),
	}

	for _, t := range templates {
		if t == nil || t.ID == "" {
			return nil, fmt.Errorf("template with empty id")
		}
		if t.Cost < 0 {
			return nil, fmt.Errorf("template %s has negative cost", t.ID)
		}
		if _, dup := c.templates[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template %s", t.ID)
		}
		if t.Category == CategoryYieldGenerator && t.YieldMultiplier() == 0 {
			return nil, fmt.Errorf("yield generator %s has no yield ability", t.ID)
		}
		c.templates[t.ID] = t
	}

	for _, d := range decks {
		if d == nil || d.ID == "" {
			return nil, fmt.Errorf("deck with empty id")
		}
		if _, dup := c.decks[d.ID]; dup {
			return nil, fmt.Errorf("duplicate deck %s", d.ID)
		}
		for i, cardID := range d.Cards {
			if _, ok := c.templates[cardID]; !ok {
				return nil, fmt.Errorf("deck %s slot %d references unknown card %s", d.ID, i, cardID)
			}
		}
		c.decks[d.ID] = &Deck{ID: d.ID, Cards: append([]string(nil), d.Cards...)}
	}

	return c, nil
}

// Template returns the template for id.
func (c *Catalog) Template(id string) (*Template, bool) {
	t, ok := c.templates[id]
	return t, ok
}

// Deck returns a copy of the card list of a registered deck.
func (c *Catalog) Deck(id string) ([]string, bool) {
	d, ok := c.decks[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), d.Cards...), true
}

// DeckIDs returns the registered deck IDs in sorted order.
func (c *Catalog) DeckIDs() []string {
	ids := make([]string, 0, len(c.decks))
	for id := range c.decks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type templateSpec struct {
	ID        string        `mapstructure:"id"`
	Name      string        `mapstructure:"name"`
	Cost      int64         `mapstructure:"cost"`
	Category  string        `mapstructure:"category"`
	Abilities []abilitySpec `mapstructure:"abilities"`
}

type deckSpec struct {
	ID    string   `mapstructure:"id"`
	Cards []string `mapstructure:"cards"`
}

type catalogFile struct {
	Cards []templateSpec `mapstructure:"cards"`
	Decks []deckSpec     `mapstructure:"decks"`
}

// LoadCatalog reads a catalog file (YAML, JSON or TOML, by extension).
func LoadCatalog(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", path, err)
	}

	templates := make([]*Template, 0, len(file.Cards))
	for _, spec := range file.Cards {
		category, err := ParseCategory(spec.Category)
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", spec.ID, err)
		}
		var abilities []Ability
		for _, as := range spec.Abilities {
			a, err := as.toAbility()
			if err != nil {
				return nil, fmt.Errorf("card %s: %w", spec.ID, err)
			}
			abilities = append(abilities, a)
		}
		name := spec.Name
		if name == "" {
			name = spec.ID
		}
		templates = append(templates, &Template{
			ID:        spec.ID,
			Name:      name,
			Cost:      spec.Cost,
			Category:  category,
			Abilities: abilities,
		})
	}

	decks := make([]*Deck, 0, len(file.Decks))
	for _, spec := range file.Decks {
		decks = append(decks, &Deck{ID: spec.ID, Cards: spec.Cards})
	}

	return NewCatalog(templates, decks)
}
