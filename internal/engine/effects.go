package engine

import (
	"time"

	"github.com/palacegame/palace/internal/models"
)

// EffectResult is the outcome of resolving a play against the pile.
type EffectResult struct {
	// Effects lists the triggered effects in resolution order.
	Effects []models.SpecialEffect
	// NextThreshold is the minimum rank value the following play must
	// meet, or 0 meaning anything is playable.
	NextThreshold int
	// SkipCount is how many players beyond the natural next are bypassed.
	SkipCount int
	// Burn reports that the pile is cleared and the acting player
	// replays immediately.
	Burn bool
}

// ResolveEffects maps a played same-rank card set plus the prior pile
// contents to the triggered effects, the next-play threshold and the
// skip count. A burn takes absolute precedence: once it fires, nothing
// else applies, including a jack's skip.
func ResolveEffects(played, pile []models.Card, rules GameRules) EffectResult {
	now := time.Now().UnixMilli()
	result := EffectResult{NextThreshold: played[0].Value()}

	if rules.BurnOnFour && completesFourOfAKind(played, pile) {
		result.Effects = append(result.Effects, models.SpecialEffect{Type: models.EffectBurn, Timestamp: now})
		result.NextThreshold = 0
		result.Burn = true
		return result
	}

	switch played[0].Rank {
	case models.RankTwo:
		if rules.TwoReset {
			result.Effects = append(result.Effects, models.SpecialEffect{Type: models.EffectReset, Timestamp: now})
			result.NextThreshold = models.RankValue(models.RankTwo)
		}
	case models.RankEight:
		if rules.TransparentEights {
			result.Effects = append(result.Effects, models.SpecialEffect{Type: models.EffectTransparent, Timestamp: now})
			result.NextThreshold = EffectiveThreshold(pile, rules)
		}
	case models.RankJack:
		if rules.JackSkips {
			result.Effects = append(result.Effects, models.SpecialEffect{Type: models.EffectSkip, Timestamp: now})
			result.SkipCount = len(played)
		}
	}

	return result
}

// completesFourOfAKind reports whether the played set plus the
// immediately preceding same-rank pile cards total exactly four cards
// of one rank. Three or five must not qualify.
func completesFourOfAKind(played, pile []models.Card) bool {
	if len(played) == 0 || !AllSameRank(played) {
		return false
	}
	return len(played)+trailingSameRank(pile, played[0].Rank) == 4
}
