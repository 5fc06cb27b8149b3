// Package notify carries committed game actions to observers: an in-process bus
// for local subscribers and a NATS bridge for other processes.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/game/rules"
)

// Notification announces one committed action. Seq is the game's commit sequence
// after the action and orders notifications of the same game.
type Notification struct {
	Seq        uint64          `json:"seq"`
	Kind       rules.EventType `json:"kind"`
	GameID     string          `json:"gameId"`
	Actor      string          `json:"actor,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	InstanceID uint64          `json:"instanceId,omitempty"`
	CardID     string          `json:"cardId,omitempty"`
	Amount     int64           `json:"amount,omitempty"`
	Destroyed  uint64          `json:"destroyed,omitempty"`
	Winner     string          `json:"winner,omitempty"`
}

// Publisher delivers notifications.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// FromOutcome converts a committed action into its notifications. An action that
// finishes the game yields a second game-finished notification with the same Seq.
func FromOutcome(out game.Outcome, at time.Time) []Notification {
	ns := []Notification{{
		Seq:        out.Seq,
		Kind:       out.Event,
		GameID:     out.GameID,
		Actor:      out.Actor,
		Timestamp:  at,
		InstanceID: out.InstanceID,
		CardID:     out.CardID,
		Amount:     out.Amount,
		Destroyed:  out.Destroyed,
	}}
	if out.Finished {
		ns = append(ns, Notification{
			Seq:       out.Seq,
			Kind:      rules.EventGameFinished,
			GameID:    out.GameID,
			Actor:     out.Actor,
			Timestamp: at,
			Winner:    out.Winner,
		})
	}
	return ns
}

// Fanout publishes to every member and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, n Notification) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
