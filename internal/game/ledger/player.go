// Package ledger holds the per-player economy: hot balance, cold storage, the
// per-turn withdrawal counter and the deck/hand/battlefield lists.
//
// Every operation validates before it mutates, so a returned error always leaves
// the PlayerState untouched.
package ledger

import (
	"github.com/ethduel/duel-server-go/internal/game/rules"
)

// PlayerState is one seat of a game. It is owned exclusively by its Game.
type PlayerState struct {
	Player string
	DeckID string

	// Deck holds template IDs; instances are minted only when a slot is drawn.
	Deck      []string
	DeckIndex int

	Hand        []uint64
	Battlefield []uint64

	ETH                          int64
	ColdStorage                  int64
	ColdStorageWithdrawnThisTurn int64
}

// NewPlayerState seats player with a copy of the deck list.
func NewPlayerState(player, deckID string, deck []string) *PlayerState {
	return &PlayerState{
		Player:      player,
		DeckID:      deckID,
		Deck:        append([]string(nil), deck...),
		Hand:        make([]uint64, 0),
		Battlefield: make([]uint64, 0),
	}
}

// DeckRemaining returns how many deck slots have not been drawn.
func (p *PlayerState) DeckRemaining() int {
	if p.DeckIndex >= len(p.Deck) {
		return 0
	}
	return len(p.Deck) - p.DeckIndex
}

// Total returns hot plus cold balance.
func (p *PlayerState) Total() int64 {
	return p.ETH + p.ColdStorage
}

// Credit adds income to the hot balance. Non-positive amounts are ignored.
func (p *PlayerState) Credit(amount int64) {
	if amount <= 0 {
		return
	}
	p.ETH += amount
}

// Spend pays a card cost from the hot balance.
func (p *PlayerState) Spend(cost int64) error {
	if cost < 0 {
		return rules.Errorf(rules.CodeInvalidAmount, "negative cost %d", cost)
	}
	if p.ETH < cost {
		return rules.Errorf(rules.CodeInsufficientResources, "cost %d exceeds balance %d", cost, p.ETH)
	}
	p.ETH -= cost
	return nil
}

// Stake moves amount from the hot balance into a stake.
func (p *PlayerState) Stake(amount int64) error {
	if amount <= 0 || amount > p.ETH {
		return rules.Errorf(rules.CodeInvalidStakeAmount, "stake %d with balance %d", amount, p.ETH)
	}
	p.ETH -= amount
	return nil
}

// Deposit moves amount from hot balance to cold storage. Deposits are uncapped.
func (p *PlayerState) Deposit(amount int64) error {
	if amount <= 0 {
		return rules.Errorf(rules.CodeInvalidAmount, "deposit must be positive, got %d", amount)
	}
	if p.ETH < amount {
		return rules.Errorf(rules.CodeInsufficientETH, "deposit %d exceeds balance %d", amount, p.ETH)
	}
	p.ETH -= amount
	p.ColdStorage += amount
	return nil
}

// Withdraw moves amount from cold storage to the hot balance, bounded by the
// per-turn cap.
func (p *PlayerState) Withdraw(amount, perTurnCap int64) error {
	if amount <= 0 {
		return rules.Errorf(rules.CodeInvalidAmount, "withdrawal must be positive, got %d", amount)
	}
	if p.ColdStorage < amount {
		return rules.Errorf(rules.CodeInsufficientColdStorage, "withdrawal %d exceeds cold storage %d", amount, p.ColdStorage)
	}
	if p.ColdStorageWithdrawnThisTurn+amount > perTurnCap {
		return rules.Errorf(rules.CodeExceedsWithdrawalLimit, "withdrawn %d of %d this turn, requested %d",
			p.ColdStorageWithdrawnThisTurn, perTurnCap, amount)
	}
	p.ColdStorage -= amount
	p.ETH += amount
	p.ColdStorageWithdrawnThisTurn += amount
	return nil
}

// ResetWithdrawals clears the per-turn withdrawal counter.
func (p *PlayerState) ResetWithdrawals() {
	p.ColdStorageWithdrawnThisTurn = 0
}

// PeekDeck returns the template at the front of the deck.
func (p *PlayerState) PeekDeck() (string, error) {
	if p.DeckRemaining() == 0 {
		return "", rules.Errorf(rules.CodeDeckEmpty, "deck %s exhausted", p.DeckID)
	}
	return p.Deck[p.DeckIndex], nil
}

// CanTakeIntoHand reports whether another card fits under maxHand.
func (p *PlayerState) CanTakeIntoHand(maxHand int) error {
	if len(p.Hand) >= maxHand {
		return rules.Errorf(rules.CodeHandFull, "hand holds %d of %d", len(p.Hand), maxHand)
	}
	return nil
}

// DrawInto consumes the front deck slot and places instanceID in the hand.
// Callers must have checked PeekDeck and CanTakeIntoHand.
func (p *PlayerState) DrawInto(instanceID uint64) {
	p.DeckIndex++
	p.Hand = append(p.Hand, instanceID)
}

// HandAt returns the instance at handIndex.
func (p *PlayerState) HandAt(handIndex int) (uint64, error) {
	if handIndex < 0 || handIndex >= len(p.Hand) {
		return 0, rules.Errorf(rules.CodeCardNotInHand, "hand index %d out of range [0,%d)", handIndex, len(p.Hand))
	}
	return p.Hand[handIndex], nil
}

// TakeFromHand removes and returns the instance at handIndex.
func (p *PlayerState) TakeFromHand(handIndex int) (uint64, error) {
	id, err := p.HandAt(handIndex)
	if err != nil {
		return 0, err
	}
	p.Hand = append(p.Hand[:handIndex:handIndex], p.Hand[handIndex+1:]...)
	return id, nil
}

// AddToBattlefield places instanceID on the battlefield.
func (p *PlayerState) AddToBattlefield(instanceID uint64) {
	p.Battlefield = append(p.Battlefield, instanceID)
}

// OnBattlefield reports whether instanceID is on this player's battlefield.
func (p *PlayerState) OnBattlefield(instanceID uint64) bool {
	for _, id := range p.Battlefield {
		if id == instanceID {
			return true
		}
	}
	return false
}

// RemoveFromBattlefield removes instanceID from the battlefield.
func (p *PlayerState) RemoveFromBattlefield(instanceID uint64) error {
	for i, id := range p.Battlefield {
		if id == instanceID {
			p.Battlefield = append(p.Battlefield[:i:i], p.Battlefield[i+1:]...)
			return nil
		}
	}
	return rules.Errorf(rules.CodeCardNotOnBattlefield, "instance %d not on battlefield", instanceID)
}

// Clone returns a deep copy.
func (p *PlayerState) Clone() *PlayerState {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Deck = append([]string(nil), p.Deck...)
	cp.Hand = append(make([]uint64, 0, len(p.Hand)), p.Hand...)
	cp.Battlefield = append(make([]uint64, 0, len(p.Battlefield)), p.Battlefield...)
	return &cp
}
