// internal/models/card.go
package models

import "fmt"

// Suit is a single-letter suit code, matching the wire format.
type Suit string

const (
	Clubs    Suit = "C"
	Diamonds Suit = "D"
	Hearts   Suit = "H"
	Spades   Suit = "S"
)

// Suits lists the four suits in a fixed order.
var Suits = []Suit{Clubs, Diamonds, Hearts, Spades}

// Name returns the long suit name used in book labels.
func (s Suit) Name() string {
	switch s {
	case Clubs:
		return "Clubs"
	case Diamonds:
		return "Diamonds"
	case Hearts:
		return "Hearts"
	case Spades:
		return "Spades"
	}
	return string(s)
}

// Rank is a single-character rank code; ten is "T".
type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "T"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
)

// Ranks lists all thirteen ranks in ascending book order (ace low).
var Ranks = []Rank{
	RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing,
}

// pivotValue is the rank that splits each suit into a lower and an upper
// book. Sevens themselves are excluded from the 48-card pack.
const pivotValue = 7

// Value returns the ace-low ordinal of the rank (A=1 .. K=13).
func (r Rank) Value() int {
	for i, rk := range Ranks {
		if rk == r {
			return i + 1
		}
	}
	return 0
}

// Card is an immutable rank+suit value. The zero Card is invalid.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// String returns the compact card id, e.g. "AH" or "TS".
func (c Card) String() string {
	return string(c.Rank) + string(c.Suit)
}

// Book returns the book this card belongs to.
func (c Card) Book() Book {
	if c.Rank.Value() < pivotValue {
		return Book("Lower " + c.Suit.Name())
	}
	return Book("Upper " + c.Suit.Name())
}

// MarshalText encodes the card as its compact id so Cards can key JSON maps.
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a compact card id.
func (c *Card) UnmarshalText(data []byte) error {
	parsed, err := ParseCard(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard converts a compact id like "9D" back into a Card.
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("malformed card id %q", s)
	}
	card := Card{Rank: Rank(s[:1]), Suit: Suit(s[1:])}
	if card.Rank.Value() == 0 {
		return Card{}, fmt.Errorf("unknown rank in card id %q", s)
	}
	switch card.Suit {
	case Clubs, Diamonds, Hearts, Spades:
		return card, nil
	}
	return Card{}, fmt.Errorf("unknown suit in card id %q", s)
}

// Book is a named group of six cards, e.g. "Lower Hearts".
type Book string

// Books returns the eight books of the 48-card pack in a fixed order.
func Books() []Book {
	out := make([]Book, 0, 8)
	for _, s := range Suits {
		out = append(out, Book("Lower "+s.Name()), Book("Upper "+s.Name()))
	}
	return out
}

// BookCards returns the six member cards of a book in ascending rank order.
func BookCards(b Book) []Card {
	var suit Suit
	lower := false
	for _, s := range Suits {
		if b == Book("Lower "+s.Name()) {
			suit, lower = s, true
		} else if b == Book("Upper "+s.Name()) {
			suit = s
		}
	}
	if suit == "" {
		return nil
	}
	out := make([]Card, 0, 6)
	for _, r := range Ranks {
		v := r.Value()
		if v == pivotValue {
			continue
		}
		if (lower && v < pivotValue) || (!lower && v > pivotValue) {
			out = append(out, Card{Rank: r, Suit: suit})
		}
	}
	return out
}
