package engine

import "errors"

// Engine error taxonomy. Every rejection is local, synchronous and
// recoverable: ProcessAction returns the prior state unchanged alongside
// one of these, never a partially applied state.
var (
	ErrInvalidPlayerCount    = errors.New("game requires between 2 and 4 players")
	ErrInvalidPlayer         = errors.New("unknown player")
	ErrPlayerDisconnected    = errors.New("player is disconnected")
	ErrPhaseViolation        = errors.New("action not permitted in current phase")
	ErrTurnViolation         = errors.New("not this player's turn")
	ErrInvalidCardSource     = errors.New("cards violate the hand, face-up, face-down depletion order")
	ErrInvalidPlay           = errors.New("play does not meet the pile threshold")
	ErrInsufficientCards     = errors.New("not enough cards in deck to deal")
	ErrInvalidSwap           = errors.New("swap requires one hand card and one face-up card")
	ErrRollbackNotFound      = errors.New("no history entry for that timestamp")
	ErrRollbackNotAuthorized = errors.New("player is not authorized to roll back")
	ErrCardConservation      = errors.New("card accounting invariant violated")
)
