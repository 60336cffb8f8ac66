package engine

import "github.com/palacegame/palace/internal/models"

// AllSameRank reports whether every card in the set shares one rank.
// An empty set is vacuously true.
func AllSameRank(cards []models.Card) bool {
	if len(cards) == 0 {
		return true
	}
	for _, c := range cards[1:] {
		if c.Rank != cards[0].Rank {
			return false
		}
	}
	return true
}

// GroupByRank buckets cards by rank, preserving the input order within
// each bucket.
func GroupByRank(cards []models.Card) map[models.Rank][]models.Card {
	groups := make(map[models.Rank][]models.Card)
	for _, c := range cards {
		groups[c.Rank] = append(groups[c.Rank], c)
	}
	return groups
}

// HighestCard returns the card with the greatest rank value, preferring
// the earliest on ties. The set must be non-empty.
func HighestCard(cards []models.Card) models.Card {
	best := cards[0]
	for _, c := range cards[1:] {
		if c.Value() > best.Value() {
			best = c
		}
	}
	return best
}

// FourOfAKind returns the first exact four-card rank group found in the
// set, or nil if none exists.
func FourOfAKind(cards []models.Card) []models.Card {
	groups := GroupByRank(cards)
	for _, rank := range models.Ranks {
		if group := groups[rank]; len(group) == 4 {
			return group
		}
	}
	return nil
}

// trailingSameRank counts how many cards at the top of the pile share
// the given rank, stopping at the first mismatch.
func trailingSameRank(pile []models.Card, rank models.Rank) int {
	n := 0
	for i := len(pile) - 1; i >= 0; i-- {
		if pile[i].Rank != rank {
			break
		}
		n++
	}
	return n
}

// containsCard reports whether the set holds a card with the given ID.
func containsCard(cards []models.Card, id models.Card) bool {
	for _, c := range cards {
		if c.ID == id.ID {
			return true
		}
	}
	return false
}

// removeCards returns the set minus any card whose ID appears in toRemove.
func removeCards(cards, toRemove []models.Card) []models.Card {
	kept := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		if !containsCard(toRemove, c) {
			kept = append(kept, c)
		}
	}
	return kept
}
