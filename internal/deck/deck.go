// internal/deck/deck.go
package deck

import (
	"fmt"
	"math/rand"

	"github.com/cardtable/cardtable/internal/models"
)

// Pack sizes supported by New. The 48-card pack drops the sevens so each
// suit splits into a lower and an upper book of six.
const (
	PackWithoutSevens = 48
	PackFull          = 52
)

// New returns a uniformly shuffled pack of the requested size.
func New(packSize int) ([]models.Card, error) {
	if packSize != PackWithoutSevens && packSize != PackFull {
		return nil, fmt.Errorf("unsupported pack size %d", packSize)
	}
	cards := make([]models.Card, 0, packSize)
	for _, suit := range models.Suits {
		for _, rank := range models.Ranks {
			if packSize == PackWithoutSevens && rank == models.RankSeven {
				continue
			}
			cards = append(cards, models.Card{Rank: rank, Suit: suit})
		}
	}
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return cards, nil
}

// Deal splits a pack into n equal hands. The pack must divide evenly;
// 52 cards across 5 players is an error, not a short deal.
func Deal(cards []models.Card, n int) ([]Hand, error) {
	if n <= 0 {
		return nil, fmt.Errorf("cannot deal to %d players", n)
	}
	if len(cards)%n != 0 {
		return nil, fmt.Errorf("cannot deal %d cards evenly to %d players", len(cards), n)
	}
	size := len(cards) / n
	hands := make([]Hand, n)
	for i := 0; i < n; i++ {
		hands[i] = NewHand(cards[i*size : (i+1)*size])
	}
	return hands, nil
}
