package models

import "github.com/google/uuid"

// Suit identifies one of the four standard suits.
type Suit string

const (
	SuitHearts   Suit = "H"
	SuitDiamonds Suit = "D"
	SuitClubs    Suit = "C"
	SuitSpades   Suit = "S"
)

// Suits lists every suit in deck construction order.
var Suits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// Rank identifies a card rank. Twos, Eights and Jacks carry special
// play semantics; everything else is ordered by RankValue.
type Rank string

const (
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
	RankAce   Rank = "A"
)

// Ranks lists every rank in ascending value order.
var Ranks = []Rank{
	RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven, RankEight,
	RankNine, RankTen, RankJack, RankQueen, RankKing, RankAce,
}

var rankValues = map[Rank]int{
	RankTwo: 2, RankThree: 3, RankFour: 4, RankFive: 5, RankSix: 6,
	RankSeven: 7, RankEight: 8, RankNine: 9, RankTen: 10,
	RankJack: 11, RankQueen: 12, RankKing: 13, RankAce: 14,
}

// RankValue returns the numeric value of a rank (2 for Two up to 14 for
// Ace), or 0 for an unknown rank.
func RankValue(r Rank) int {
	return rankValues[r]
}

// CardLocation tracks where a card currently lives. Every card is in
// exactly one location at any instant.
type CardLocation string

const (
	LocationDeck     CardLocation = "DECK"
	LocationHand     CardLocation = "HAND"
	LocationFaceUp   CardLocation = "FACE_UP"
	LocationFaceDown CardLocation = "FACE_DOWN"
	LocationPile     CardLocation = "PILE"
	LocationBurned   CardLocation = "BURNED"
)

// Card is a single playing card. The ID is unique for the lifetime of
// one game and never reused.
type Card struct {
	ID       uuid.UUID    `json:"id"`
	Suit     Suit         `json:"suit"`
	Rank     Rank         `json:"rank"`
	Location CardLocation `json:"location"`
	FaceUp   bool         `json:"faceUp"`
	OwnerID  uuid.UUID    `json:"ownerId,omitempty"`
}

// Value returns the card's numeric rank value.
func (c Card) Value() int {
	return rankValues[c.Rank]
}

// Compare returns 1 if a outranks b, -1 if b outranks a, 0 on a tie.
func Compare(a, b Card) int {
	av, bv := a.Value(), b.Value()
	switch {
	case av > bv:
		return 1
	case av < bv:
		return -1
	default:
		return 0
	}
}

func (c Card) String() string {
	return string(c.Rank) + string(c.Suit)
}
