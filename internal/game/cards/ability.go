package cards

import (
	"fmt"
	"strings"
)

// Ability is a closed set of card effects. Only types in this package implement it.
type Ability interface {
	isAbility()
	String() string
}

// Income adds Amount ETH to the owner's hot balance at each of their turn starts
// while the instance is on the battlefield.
type Income struct {
	Amount int64
}

// Yield pays StakedETH × Multiplier at each of the owner's turn starts.
type Yield struct {
	Multiplier int64
}

// TargetRule selects which opponent instance a Destroy removes.
type TargetRule int

const (
	// TargetOpponentUnit picks the most recently played opponent unit.
	TargetOpponentUnit TargetRule = iota
	// TargetOpponentPermanent picks the most recently played opponent permanent resource.
	TargetOpponentPermanent
)

func (r TargetRule) String() string {
	switch r {
	case TargetOpponentUnit:
		return "opponent_unit"
	case TargetOpponentPermanent:
		return "opponent_permanent"
	default:
		return fmt.Sprintf("target_%d", int(r))
	}
}

// Matches reports whether a template category is a legal target for the rule.
func (r TargetRule) Matches(c Category) bool {
	switch r {
	case TargetOpponentUnit:
		return c == CategoryUnit
	case TargetOpponentPermanent:
		return c == CategoryPermanentResource
	default:
		return false
	}
}

// Destroy removes one opponent battlefield instance chosen by Target when played.
type Destroy struct {
	Target TargetRule
}

func (Income) isAbility()  {}
func (Yield) isAbility()   {}
func (Destroy) isAbility() {}

func (a Income) String() string  { return fmt.Sprintf("income(%d)", a.Amount) }
func (a Yield) String() string   { return fmt.Sprintf("yield(x%d)", a.Multiplier) }
func (a Destroy) String() string { return fmt.Sprintf("destroy(%s)", a.Target) }

// abilitySpec is the on-disk form of an ability. It only exists at the parse boundary.
type abilitySpec struct {
	Kind       string `mapstructure:"kind" json:"kind"`
	Amount     int64  `mapstructure:"amount" json:"amount,omitempty"`
	Multiplier int64  `mapstructure:"multiplier" json:"multiplier,omitempty"`
	Target     string `mapstructure:"target" json:"target,omitempty"`
}

func (s abilitySpec) toAbility() (Ability, error) {
	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case "income":
		if s.Amount <= 0 {
			return nil, fmt.Errorf("income amount must be > 0")
		}
		return Income{Amount: s.Amount}, nil
	case "yield":
		if s.Multiplier <= 0 {
			return nil, fmt.Errorf("yield multiplier must be > 0")
		}
		return Yield{Multiplier: s.Multiplier}, nil
	case "destroy":
		switch strings.ToLower(strings.TrimSpace(s.Target)) {
		case "", "opponent_unit":
			return Destroy{Target: TargetOpponentUnit}, nil
		case "opponent_permanent":
			return Destroy{Target: TargetOpponentPermanent}, nil
		default:
			return nil, fmt.Errorf("unknown destroy target %q", s.Target)
		}
	default:
		return nil, fmt.Errorf("unknown ability kind %q", s.Kind)
	}
}
