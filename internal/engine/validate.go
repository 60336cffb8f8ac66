package engine

import "github.com/palacegame/palace/internal/models"

// EffectiveThreshold returns the minimum rank value the next play must
// meet, accounting for transparent eights: the pile is scanned from the
// top down, skipping eights, and the first non-eight card sets the
// threshold. A pile that is empty or made entirely of eights imposes no
// threshold at all (0).
func EffectiveThreshold(pile []models.Card, rules GameRules) int {
	if len(pile) == 0 {
		return 0
	}
	if !rules.TransparentEights {
		return pile[len(pile)-1].Value()
	}
	for i := len(pile) - 1; i >= 0; i-- {
		if pile[i].Rank != models.RankEight {
			return pile[i].Value()
		}
	}
	return 0
}

// IsValidPlay is the rank-legality predicate for a candidate card set
// against the pile. Card-source depletion order is the caller's job;
// this function assumes the cards already come from a legal source.
func IsValidPlay(cards, pile []models.Card, rules GameRules) bool {
	if len(cards) == 0 {
		return false
	}
	// Cards played together must share one rank. The only exception is
	// a set that completes an exact four-of-a-kind with the trailing
	// pile cards, which is always playable (it burns).
	completesBurn := rules.BurnOnFour && completesFourOfAKind(cards, pile)
	if !AllSameRank(cards) {
		return completesBurn
	}
	if len(cards) > 1 && !rules.AllowMultiples && !completesBurn {
		return false
	}
	if completesBurn {
		return true
	}
	if len(pile) == 0 {
		return true
	}
	if cards[0].Rank == models.RankTwo && rules.TwoReset {
		return true
	}
	threshold := EffectiveThreshold(pile, rules)
	if threshold == 0 {
		return true
	}
	return cards[0].Value() >= threshold
}
