package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/palacegame/palace/internal/models"
)

// ChooseBotMove picks the bot's play from its currently eligible card
// layer. An empty result means no legal play exists and the bot must
// pick up the pile. The decision runs through the same IsValidPlay and
// ResolveEffects as human plays; there is no second rule implementation.
//
// Heuristic order: complete a burn; spend a special rank when the
// moment is right (a two on a high pile, a jack when the next player is
// nearly out); shed a same-rank group; otherwise the highest legal
// single card.
func ChooseBotMove(state *GameState, botID uuid.UUID) ([]models.Card, error) {
	bot := state.Player(botID)
	if bot == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPlayer, botID)
	}

	switch bot.PlayableLocation() {
	case models.LocationFaceDown:
		// Blind play: nothing to reason about, flip the first card.
		return bot.FaceDownCards[:1], nil
	case models.LocationBurned:
		return nil, nil
	}

	valid := enumerateValidPlays(bot, state.Pile, state.Config.Rules)
	if len(valid) == 0 {
		return nil, nil
	}

	if play := burnCompletingPlay(valid, state.Pile, state.Config.Rules); play != nil {
		return play, nil
	}
	if play := specialRankPlay(valid, state); play != nil {
		return play, nil
	}
	for _, play := range valid {
		if len(play) > 1 {
			return play, nil
		}
	}

	best := valid[0]
	for _, play := range valid[1:] {
		if len(play) == 1 && play[0].Value() > best[0].Value() {
			best = play
		}
	}
	return best, nil
}

// enumerateValidPlays tests each single card and each full same-rank
// group against the validator, in ascending rank order for a stable,
// deterministic result.
func enumerateValidPlays(bot *models.PlayerState, pile []models.Card, rules GameRules) [][]models.Card {
	var source []models.Card
	if len(bot.Hand) > 0 {
		source = bot.Hand
	} else {
		source = bot.FaceUpCards
	}

	groups := GroupByRank(source)
	ranks := make([]models.Rank, 0, len(groups))
	for rank := range groups {
		ranks = append(ranks, rank)
	}
	sort.Slice(ranks, func(i, j int) bool {
		return models.RankValue(ranks[i]) < models.RankValue(ranks[j])
	})

	var valid [][]models.Card
	for _, rank := range ranks {
		group := groups[rank]
		if IsValidPlay(group[:1], pile, rules) {
			valid = append(valid, group[:1])
		}
		if len(group) > 1 && IsValidPlay(group, pile, rules) {
			valid = append(valid, group)
		}
	}
	return valid
}

// burnCompletingPlay returns the first play that would clear the pile.
func burnCompletingPlay(valid [][]models.Card, pile []models.Card, rules GameRules) []models.Card {
	if !rules.BurnOnFour {
		return nil
	}
	for _, play := range valid {
		if completesFourOfAKind(play, pile) {
			return play
		}
	}
	return nil
}

// specialRankPlay applies the secondary heuristics for twos, eights and
// jacks: a two when the threshold is punishingly high, a jack to deny a
// nearly finished opponent, else the first available special play.
func specialRankPlay(valid [][]models.Card, state *GameState) []models.Card {
	var specials [][]models.Card
	for _, play := range valid {
		switch play[0].Rank {
		case models.RankTwo, models.RankEight, models.RankJack:
			specials = append(specials, play)
		}
	}
	if len(specials) == 0 {
		return nil
	}

	if EffectiveThreshold(state.Pile, state.Config.Rules) > 10 {
		for _, play := range specials {
			if play[0].Rank == models.RankTwo {
				return play
			}
		}
	}

	if next := state.Player(state.NextPlayer); next != nil && next.CardCount() <= 3 {
		for _, play := range specials {
			if play[0].Rank == models.RankJack {
				return play
			}
		}
	}

	return specials[0]
}
