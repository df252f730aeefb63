// internal/callbreak/bot.go
package callbreak

import (
	"github.com/google/uuid"

	"github.com/cardtable/cardtable/internal/deck"
	"github.com/cardtable/cardtable/internal/models"
)

// SuggestDeclaration estimates a hand's trick count: an ace or king is a
// likely trick, and every spade past the third tends to win by ruffing.
func SuggestDeclaration(hand deck.Hand, cfg Config) int {
	wins := 0
	spades := 0
	for _, c := range hand {
		if c.Suit == Trump {
			spades++
		}
		if c.Rank == models.RankAce || c.Rank == models.RankKing {
			wins++
		}
	}
	if spades > 3 {
		wins += spades - 3
	}
	if wins < 1 {
		wins = 1
	}
	if wins > cfg.Tricks {
		wins = cfg.Tricks
	}
	return wins
}

// legalCards returns the subset of the hand the follow-suit rule allows.
func legalCards(s State, hand deck.Hand) deck.Hand {
	if len(s.Current.Plays) == 0 {
		return hand
	}
	led := s.Current.Plays[0].Card.Suit
	if follow := hand.BySuit()[led]; len(follow) > 0 {
		return follow
	}
	return hand
}

// currentBest returns the card presently winning the trick.
func currentBest(tr Trick) (models.Card, bool) {
	if len(tr.Plays) == 0 {
		return models.Card{}, false
	}
	best := tr.Plays[0].Card
	for _, p := range tr.Plays[1:] {
		if beats(p.Card, best) {
			best = p.Card
		}
	}
	return best, true
}

// ChooseMove picks the bot's move. Declaring phase: declare the hand
// estimate. Playing phase: take the trick with the cheapest winning card, or
// throw the lowest legal card when the trick is lost; leading, put out the
// strongest plain-suit card and keep trumps for ruffing.
func ChooseMove(s State, playerID uuid.UUID) (models.Move, bool) {
	if s.Turn != playerID || s.Status.Terminal() {
		return nil, false
	}
	switch s.Status {
	case models.StatusInProgress:
		return models.Declare{
			Player: playerID,
			Wins:   SuggestDeclaration(s.Hands[playerID], s.Config),
		}, true
	case models.StatusWinsDeclared, models.StatusRoundStarted:
		card, ok := chooseCard(s, playerID)
		if !ok {
			return nil, false
		}
		return models.PlayCard{Player: playerID, Card: card}, true
	}
	return nil, false
}

func chooseCard(s State, playerID uuid.UUID) (models.Card, bool) {
	legal := legalCards(s, s.Hands[playerID])
	if len(legal) == 0 {
		return models.Card{}, false
	}

	best, following := currentBest(s.Current)
	if !following {
		// Leading: strongest plain-suit card first, trumps only when forced.
		if lead, ok := highestCard(legal, func(c models.Card) bool { return c.Suit != Trump }); ok {
			return lead, true
		}
		lead, _ := highestCard(legal, func(models.Card) bool { return true })
		return lead, true
	}

	if winner, ok := lowestCard(legal, func(c models.Card) bool { return beats(c, best) }); ok {
		return winner, true
	}
	loser, _ := lowestCard(legal, func(models.Card) bool { return true })
	return loser, true
}

func highestCard(cards deck.Hand, keep func(models.Card) bool) (models.Card, bool) {
	var best models.Card
	found := false
	for _, c := range cards {
		if !keep(c) {
			continue
		}
		if !found || trickValue(c) > trickValue(best) {
			best, found = c, true
		}
	}
	return best, found
}

func lowestCard(cards deck.Hand, keep func(models.Card) bool) (models.Card, bool) {
	var best models.Card
	found := false
	for _, c := range cards {
		if !keep(c) {
			continue
		}
		if !found || trickValue(c) < trickValue(best) {
			best, found = c, true
		}
	}
	return best, found
}
