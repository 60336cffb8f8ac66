package engine

import (
	"github.com/google/uuid"

	"github.com/palacegame/palace/internal/models"
)

// RedactedPlayer is one player's state as a particular viewer is
// allowed to see it. Hands are revealed only to their owner; face-down
// cards are never revealed to anyone, their count is.
type RedactedPlayer struct {
	ID              uuid.UUID     `json:"id"`
	HandSize        int           `json:"handSize"`
	Hand            []models.Card `json:"hand,omitempty"`
	FaceUpCards     []models.Card `json:"faceUpCards"`
	FaceDownCount   int           `json:"faceDownCount"`
	Connected       bool          `json:"connected"`
	Ready           bool          `json:"ready"`
	TimeoutWarnings int           `json:"timeoutWarnings"`
	IsBot           bool          `json:"isBot"`
}

// RedactedState is the broadcast form of a GameState. The raw state,
// with every hand and face-down card in the clear, never crosses the
// process boundary.
type RedactedState struct {
	GameID         uuid.UUID              `json:"gameId"`
	Phase          GamePhase              `json:"phase"`
	Players        []RedactedPlayer       `json:"players"`
	CurrentPlayer  uuid.UUID              `json:"currentPlayer"`
	NextPlayer     uuid.UUID              `json:"nextPlayer"`
	DeckSize       int                    `json:"deckSize"`
	Pile           []models.Card          `json:"pile"`
	BurnedCount    int                    `json:"burnedCount"`
	SpecialEffects []models.SpecialEffect `json:"specialEffects"`
	Winner         uuid.UUID              `json:"winner,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
}

// RedactedFor builds the snapshot of the game from one viewer's
// perspective. The pile and face-up cards are public; the deck and
// opponents' hidden layers collapse to counts.
func RedactedFor(state *GameState, viewerID uuid.UUID) RedactedState {
	out := RedactedState{
		GameID:         state.ID,
		Phase:          state.Phase,
		CurrentPlayer:  state.CurrentPlayer,
		NextPlayer:     state.NextPlayer,
		DeckSize:       len(state.Deck),
		Pile:           append([]models.Card(nil), state.Pile...),
		BurnedCount:    len(state.Burned),
		SpecialEffects: append([]models.SpecialEffect(nil), state.SpecialEffects...),
		Winner:         state.Winner,
		Timestamp:      state.Timestamp,
	}

	for _, p := range state.Players {
		rp := RedactedPlayer{
			ID:              p.ID,
			HandSize:        len(p.Hand),
			FaceUpCards:     append([]models.Card(nil), p.FaceUpCards...),
			FaceDownCount:   len(p.FaceDownCards),
			Connected:       p.Connected,
			Ready:           p.Ready,
			TimeoutWarnings: p.TimeoutWarnings,
			IsBot:           p.IsBot,
		}
		if p.ID == viewerID {
			rp.Hand = append([]models.Card(nil), p.Hand...)
		}
		out.Players = append(out.Players, rp)
	}
	return out
}
