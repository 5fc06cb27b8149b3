package rules

import "fmt"

// Rules holds the economy constants fixed when the authority is deployed.
type Rules struct {
	InitialETH                      int64 `mapstructure:"initial_eth"`
	ETHPerTurn                      int64 `mapstructure:"eth_per_turn"`
	InitialHandSize                 int   `mapstructure:"initial_hand_size"`
	MaxHandSize                     int   `mapstructure:"max_hand_size"`
	MaxColdStorageWithdrawalPerTurn int64 `mapstructure:"max_cold_storage_withdrawal_per_turn"`
	WinConditionETH                 int64 `mapstructure:"win_condition_eth"`
}

// DefaultRules returns the constants used by the reference deployment.
func DefaultRules() Rules {
	return Rules{
		InitialETH:                      3,
		ETHPerTurn:                      1,
		InitialHandSize:                 5,
		MaxHandSize:                     10,
		MaxColdStorageWithdrawalPerTurn: 1,
		WinConditionETH:                 20,
	}
}

// Validate rejects constant sets that would make games unplayable.
func (r Rules) Validate() error {
	switch {
	case r.InitialETH < 0:
		return fmt.Errorf("initial_eth must be >= 0, got %d", r.InitialETH)
	case r.ETHPerTurn < 0:
		return fmt.Errorf("eth_per_turn must be >= 0, got %d", r.ETHPerTurn)
	case r.InitialHandSize < 0:
		return fmt.Errorf("initial_hand_size must be >= 0, got %d", r.InitialHandSize)
	case r.MaxHandSize <= 0:
		return fmt.Errorf("max_hand_size must be > 0, got %d", r.MaxHandSize)
	case r.InitialHandSize > r.MaxHandSize:
		return fmt.Errorf("initial_hand_size %d exceeds max_hand_size %d", r.InitialHandSize, r.MaxHandSize)
	case r.MaxColdStorageWithdrawalPerTurn < 0:
		return fmt.Errorf("max_cold_storage_withdrawal_per_turn must be >= 0, got %d", r.MaxColdStorageWithdrawalPerTurn)
	case r.WinConditionETH <= 0:
		return fmt.Errorf("win_condition_eth must be > 0, got %d", r.WinConditionETH)
	}
	return nil
}
