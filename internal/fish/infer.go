// internal/fish/infer.go
package fish

import (
	"sort"

	"github.com/google/uuid"

	"github.com/cardtable/cardtable/internal/deck"
	"github.com/cardtable/cardtable/internal/models"
)

// Location is what one observer believes about a single card. Exactly one
// of the three levels is populated: a direct observation sets Known, a
// candidate set collapsing to one player sets Inferred, otherwise Possible
// lists the remaining candidates. Once a book is settled its entries are
// deleted entirely.
type Location struct {
	Known    uuid.UUID   `json:"known,omitempty"`
	Inferred uuid.UUID   `json:"inferred,omitempty"`
	Possible []uuid.UUID `json:"possible,omitempty"`
}

// Determined returns the owner when the card's location is certain enough
// to act on (known or inferred).
func (l Location) Determined() (uuid.UUID, bool) {
	if l.Known != uuid.Nil {
		return l.Known, true
	}
	if l.Inferred != uuid.Nil {
		return l.Inferred, true
	}
	return uuid.Nil, false
}

// Tracker is the card-location belief state of one observer, normally a bot
// seat. It is online constraint propagation over the move log: candidate
// sets only ever shrink, and observing the same move twice changes nothing.
type Tracker struct {
	self uuid.UUID
	locs map[models.Card]*Location
}

// NewTracker builds the initial belief state from a freshly dealt game:
// the observer's own cards are known, every other card could sit with any
// other player.
func NewTracker(s State, self uuid.UUID) *Tracker {
	t := &Tracker{self: self, locs: make(map[models.Card]*Location)}
	own := s.Hands[self]
	others := make([]uuid.UUID, 0, len(s.Players)-1)
	for _, p := range s.Players {
		if p.ID != self {
			others = append(others, p.ID)
		}
	}
	pack, _ := deck.New(s.Config.PackSize)
	for _, c := range pack {
		if _, settled := s.Settled[c.Book()]; settled {
			continue
		}
		if own.Contains(c) {
			t.locs[c] = &Location{Known: self}
			continue
		}
		t.locs[c] = &Location{Possible: append([]uuid.UUID(nil), others...)}
	}
	return t
}

// Location returns the current belief about a card.
func (t *Tracker) Location(c models.Card) (Location, bool) {
	loc, ok := t.locs[c]
	if !ok {
		return Location{}, false
	}
	return *loc, true
}

// Observe folds one logged move into the belief state.
func (t *Tracker) Observe(rec models.MoveRecord) {
	switch m := rec.Move.(type) {
	case models.Ask:
		if rec.Success {
			// The card was surrendered: its owner is now the asker, with
			// no residual uncertainty.
			t.locs[m.Card] = &Location{Known: m.Asker}
			return
		}
		t.eliminate(m.Card, m.Asker)
		t.eliminate(m.Card, m.Target)
	case models.Claim:
		// Settled books need no further inference, win or lose.
		for _, c := range models.BookCards(m.Book) {
			delete(t.locs, c)
		}
	}
}

// eliminate removes a candidate from a card's possible owners, promoting to
// inferred once a single candidate remains. Known and inferred entries are
// left alone: a collapse never reopens.
func (t *Tracker) eliminate(c models.Card, playerID uuid.UUID) {
	loc, ok := t.locs[c]
	if !ok || loc.Known != uuid.Nil || loc.Inferred != uuid.Nil {
		return
	}
	kept := loc.Possible[:0]
	for _, id := range loc.Possible {
		if id != playerID {
			kept = append(kept, id)
		}
	}
	loc.Possible = kept
	if len(loc.Possible) == 1 {
		loc.Inferred = loc.Possible[0]
		loc.Possible = nil
	}
}

// PossibleOwners returns a sorted copy of the remaining candidates.
func (t *Tracker) PossibleOwners(c models.Card) []uuid.UUID {
	loc, ok := t.locs[c]
	if !ok {
		return nil
	}
	out := append([]uuid.UUID(nil), loc.Possible...)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
