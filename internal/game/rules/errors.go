package rules

import (
	"errors"
	"fmt"
)

// Code identifies a logical rejection. Codes travel over the wire as strings.
type Code string

const (
	CodeGameNotFound            Code = "GAME_NOT_FOUND"
	CodeGameFull                Code = "GAME_FULL"
	CodeGameAlreadyStarted      Code = "GAME_ALREADY_STARTED"
	CodeGameNotStarted          Code = "GAME_NOT_STARTED"
	CodeGameNotActive           Code = "GAME_NOT_ACTIVE"
	CodeGameIsFinished          Code = "GAME_IS_FINISHED"
	CodeNotYourTurn             Code = "NOT_YOUR_TURN"
	CodeNotInGame               Code = "NOT_IN_GAME"
	CodeAlreadyInGame           Code = "ALREADY_IN_GAME"
	CodeInvalidDeck             Code = "INVALID_DECK"
	CodeDeckEmpty               Code = "DECK_EMPTY"
	CodeHandFull                Code = "HAND_FULL"
	CodeCardNotInHand           Code = "CARD_NOT_IN_HAND"
	CodeCardNotOnBattlefield    Code = "CARD_NOT_ON_BATTLEFIELD"
	CodeNotCardOwner            Code = "NOT_CARD_OWNER"
	CodeNotDeFiCard             Code = "NOT_DEFI_CARD"
	CodeInvalidStakeAmount      Code = "INVALID_STAKE_AMOUNT"
	CodeInsufficientETH         Code = "INSUFFICIENT_ETH"
	CodeInsufficientResources   Code = "INSUFFICIENT_RESOURCES"
	CodeInsufficientColdStorage Code = "INSUFFICIENT_COLD_STORAGE"
	CodeExceedsWithdrawalLimit  Code = "EXCEEDS_WITHDRAWAL_LIMIT"
	CodeInvalidAmount           Code = "INVALID_AMOUNT"
	CodeInvalidPlayer           Code = "INVALID_PLAYER"
	CodeMustDrawFirst           Code = "MUST_DRAW_FIRST"
	CodeAlreadyDrawn            Code = "ALREADY_DRAWN"
	CodeCardNotFound            Code = "CARD_NOT_FOUND"
)

// GameError is a logical rejection of an action. It never indicates a fault in
// the authority and is never retried automatically.
type GameError struct {
	Code    Code
	Message string
}

func (e *GameError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any GameError carrying the same code.
func (e *GameError) Is(target error) bool {
	var other *GameError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrGameNotFound            = &GameError{Code: CodeGameNotFound}
	ErrGameFull                = &GameError{Code: CodeGameFull}
	ErrGameAlreadyStarted      = &GameError{Code: CodeGameAlreadyStarted}
	ErrGameNotStarted          = &GameError{Code: CodeGameNotStarted}
	ErrGameNotActive           = &GameError{Code: CodeGameNotActive}
	ErrGameIsFinished          = &GameError{Code: CodeGameIsFinished}
	ErrNotYourTurn             = &GameError{Code: CodeNotYourTurn}
	ErrNotInGame               = &GameError{Code: CodeNotInGame}
	ErrAlreadyInGame           = &GameError{Code: CodeAlreadyInGame}
	ErrInvalidDeck             = &GameError{Code: CodeInvalidDeck}
	ErrDeckEmpty               = &GameError{Code: CodeDeckEmpty}
	ErrHandFull                = &GameError{Code: CodeHandFull}
	ErrCardNotInHand           = &GameError{Code: CodeCardNotInHand}
	ErrCardNotOnBattlefield    = &GameError{Code: CodeCardNotOnBattlefield}
	ErrNotCardOwner            = &GameError{Code: CodeNotCardOwner}
	ErrNotDeFiCard             = &GameError{Code: CodeNotDeFiCard}
	ErrInvalidStakeAmount      = &GameError{Code: CodeInvalidStakeAmount}
	ErrInsufficientETH         = &GameError{Code: CodeInsufficientETH}
	ErrInsufficientResources   = &GameError{Code: CodeInsufficientResources}
	ErrInsufficientColdStorage = &GameError{Code: CodeInsufficientColdStorage}
	ErrExceedsWithdrawalLimit  = &GameError{Code: CodeExceedsWithdrawalLimit}
	ErrInvalidAmount           = &GameError{Code: CodeInvalidAmount}
	ErrInvalidPlayer           = &GameError{Code: CodeInvalidPlayer}
	ErrMustDrawFirst           = &GameError{Code: CodeMustDrawFirst}
	ErrAlreadyDrawn            = &GameError{Code: CodeAlreadyDrawn}
	ErrCardNotFound            = &GameError{Code: CodeCardNotFound}
)

// Errorf builds a GameError with a formatted message.
func Errorf(code Code, format string, args ...interface{}) error {
	return &GameError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the rejection code from err, or "" if err is not a GameError.
func CodeOf(err error) Code {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// FromCode rebuilds a GameError received from a remote authority.
func FromCode(code Code, message string) error {
	if code == "" {
		if message == "" {
			return nil
		}
		return errors.New(message)
	}
	return &GameError{Code: code, Message: message}
}
