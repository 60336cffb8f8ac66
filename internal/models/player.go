package models

import "github.com/google/uuid"

// PlayerState holds one player's three card layers plus connection and
// readiness flags. Plays must exhaust Hand first, then FaceUpCards,
// then FaceDownCards (the depletion order).
type PlayerState struct {
	ID              uuid.UUID `json:"id"`
	Hand            []Card    `json:"hand"`
	FaceUpCards     []Card    `json:"faceUpCards"`
	FaceDownCards   []Card    `json:"faceDownCards"`
	Connected       bool      `json:"connected"`
	Ready           bool      `json:"ready"`
	TimeoutWarnings int       `json:"timeoutWarnings"`
	IsBot           bool      `json:"isBot"`
}

// Clone returns a deep copy. Card slices never alias the original, so
// retained snapshots cannot be mutated retroactively.
func (p PlayerState) Clone() PlayerState {
	cp := p
	cp.Hand = append([]Card(nil), p.Hand...)
	cp.FaceUpCards = append([]Card(nil), p.FaceUpCards...)
	cp.FaceDownCards = append([]Card(nil), p.FaceDownCards...)
	return cp
}

// CardCount returns the total number of cards across all three layers.
func (p PlayerState) CardCount() int {
	return len(p.Hand) + len(p.FaceUpCards) + len(p.FaceDownCards)
}

// HasFinished reports whether the player has shed every card.
func (p PlayerState) HasFinished() bool {
	return p.CardCount() == 0
}

// PlayableLocation returns the layer the player must play from next
// under the depletion order, or LocationBurned if nothing remains.
func (p PlayerState) PlayableLocation() CardLocation {
	switch {
	case len(p.Hand) > 0:
		return LocationHand
	case len(p.FaceUpCards) > 0:
		return LocationFaceUp
	case len(p.FaceDownCards) > 0:
		return LocationFaceDown
	default:
		return LocationBurned
	}
}
