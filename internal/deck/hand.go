// internal/deck/hand.go
package deck

import (
	"sort"

	"github.com/cardtable/cardtable/internal/models"
)

// Hand is the set of cards held by one player, kept in a canonical sorted
// order. All operations are value-level: they return a new Hand and never
// mutate the receiver, so engine states can share hands structurally.
type Hand []models.Card

// NewHand copies and canonicalizes a card slice.
func NewHand(cards []models.Card) Hand {
	h := make(Hand, len(cards))
	copy(h, cards)
	h.sortInPlace()
	return h
}

func (h Hand) sortInPlace() {
	sort.Slice(h, func(i, j int) bool {
		if h[i].Suit != h[j].Suit {
			return h[i].Suit < h[j].Suit
		}
		return h[i].Rank.Value() < h[j].Rank.Value()
	})
}

// Contains reports whether the hand holds the card.
func (h Hand) Contains(c models.Card) bool {
	for _, held := range h {
		if held == c {
			return true
		}
	}
	return false
}

// ContainsAll reports whether the hand holds every listed card.
func (h Hand) ContainsAll(cards []models.Card) bool {
	for _, c := range cards {
		if !h.Contains(c) {
			return false
		}
	}
	return true
}

// Add returns a new hand including c. Adding a card already held returns
// the hand unchanged; a card lives in at most one spot.
func (h Hand) Add(c models.Card) Hand {
	if h.Contains(c) {
		return h
	}
	out := make(Hand, len(h), len(h)+1)
	copy(out, h)
	out = append(out, c)
	out.sortInPlace()
	return out
}

// Remove returns a new hand without c. Removing an absent card returns the
// hand unchanged.
func (h Hand) Remove(c models.Card) Hand {
	out := make(Hand, 0, len(h))
	for _, held := range h {
		if held != c {
			out = append(out, held)
		}
	}
	return out
}

// RemoveAll returns a new hand without any of the listed cards.
func (h Hand) RemoveAll(cards []models.Card) Hand {
	out := h
	for _, c := range cards {
		out = out.Remove(c)
	}
	return out
}

// ByBook partitions the hand by book classification.
func (h Hand) ByBook() map[models.Book]Hand {
	out := make(map[models.Book]Hand)
	for _, c := range h {
		b := c.Book()
		out[b] = append(out[b], c)
	}
	return out
}

// BySuit partitions the hand by suit.
func (h Hand) BySuit() map[models.Suit]Hand {
	out := make(map[models.Suit]Hand)
	for _, c := range h {
		out[c.Suit] = append(out[c.Suit], c)
	}
	return out
}

// CountBook returns how many cards of the given book the hand holds.
func (h Hand) CountBook(b models.Book) int {
	n := 0
	for _, c := range h {
		if c.Book() == b {
			n++
		}
	}
	return n
}
