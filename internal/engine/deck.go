package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/palacegame/palace/internal/models"
)

// DeckSize is the standard deck: 4 suits by 13 ranks, no jokers.
const DeckSize = 52

// NewDeck builds an unshuffled 52-card deck. Every card gets a fresh
// unique ID, location DECK, face down.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, suit := range models.Suits {
		for _, rank := range models.Ranks {
			deck = append(deck, models.Card{
				ID:       uuid.New(),
				Suit:     suit,
				Rank:     rank,
				Location: models.LocationDeck,
			})
		}
	}
	return deck
}

// Shuffle permutes the deck in place with Fisher-Yates. Pass a seeded
// *rand.Rand for deterministic test deals; nil uses a time-seeded source.
func Shuffle(deck []models.Card, rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// Deal consumes cards from the head of the deck and distributes them to
// each player: face-down first, then face-up, then hand. It returns the
// per-player layers and the remaining deck.
func Deal(deck []models.Card, playerIDs []uuid.UUID, counts StartingCards) (map[uuid.UUID]models.PlayerState, []models.Card, error) {
	perPlayer := counts.Hand + counts.FaceUp + counts.FaceDown
	if perPlayer*len(playerIDs) > len(deck) {
		return nil, deck, fmt.Errorf("%w: need %d, have %d",
			ErrInsufficientCards, perPlayer*len(playerIDs), len(deck))
	}

	players := make(map[uuid.UUID]models.PlayerState, len(playerIDs))
	idx := 0
	take := func(n int, owner uuid.UUID, loc models.CardLocation, faceUp bool) []models.Card {
		cards := make([]models.Card, 0, n)
		for i := 0; i < n; i++ {
			c := deck[idx]
			c.Location = loc
			c.FaceUp = faceUp
			c.OwnerID = owner
			cards = append(cards, c)
			idx++
		}
		return cards
	}

	for _, id := range playerIDs {
		players[id] = models.PlayerState{
			ID:            id,
			FaceDownCards: take(counts.FaceDown, id, models.LocationFaceDown, false),
			FaceUpCards:   take(counts.FaceUp, id, models.LocationFaceUp, true),
			Hand:          take(counts.Hand, id, models.LocationHand, true),
			Connected:     true,
		}
	}

	remaining := append([]models.Card(nil), deck[idx:]...)
	return players, remaining, nil
}
