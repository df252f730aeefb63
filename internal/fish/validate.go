// internal/fish/validate.go
package fish

import (
	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/models"
)

// Validate runs the legality predicate for a move against the current
// state. It is pure: the executor never observes a (state, move) pair that
// failed validation.
func Validate(s State, mv models.Move) error {
	if s.Status.Terminal() {
		return engine.Invalidf("game is completed")
	}
	if s.Status != models.StatusInProgress {
		return engine.Invalidf("moves are not accepted in status %s", s.Status)
	}
	switch m := mv.(type) {
	case models.Ask:
		return validateAsk(s, m)
	case models.Claim:
		return validateClaim(s, m)
	case models.Transfer:
		return validateTransfer(s, m)
	default:
		return engine.Invalidf("move kind %s is not part of this game", mv.Kind())
	}
}

func validateAsk(s State, m models.Ask) error {
	if m.Asker != s.Turn {
		return engine.Invalidf("it is not your turn")
	}
	if _, ok := s.Player(m.Target); !ok {
		return engine.NotFound("player", m.Target.String())
	}
	if m.Target == m.Asker {
		return engine.Invalidf("cannot ask yourself")
	}
	askerTeam, ok := s.TeamOf(m.Asker)
	if !ok {
		return engine.NotFound("team for player", m.Asker.String())
	}
	if askerTeam.HasMember(m.Target) {
		return engine.Invalidf("cannot ask your own teammate")
	}
	if len(s.Hands[m.Target]) == 0 {
		return engine.Invalidf("cannot ask a player with no cards")
	}
	book := m.Card.Book()
	if _, settled := s.Settled[book]; settled {
		return engine.Invalidf("book %s has already been claimed", book)
	}
	hand := s.Hands[m.Asker]
	if hand.Contains(m.Card) {
		return engine.Invalidf("you already hold %s", m.Card)
	}
	if hand.CountBook(book) == 0 {
		return engine.Invalidf("you hold no card of %s, cannot ask cold", book)
	}
	return nil
}

func validateClaim(s State, m models.Claim) error {
	if m.Claimer != s.Turn {
		return engine.Invalidf("it is not your turn")
	}
	if _, settled := s.Settled[m.Book]; settled {
		return engine.Invalidf("book %s has already been claimed", m.Book)
	}
	cards := models.BookCards(m.Book)
	if cards == nil {
		return engine.NotFound("book", string(m.Book))
	}
	if s.Hands[m.Claimer].CountBook(m.Book) == 0 {
		return engine.Invalidf("you hold no card of %s", m.Book)
	}
	if len(m.Owners) != len(cards) {
		return engine.Conflictf("claim must name an owner for all %d cards of %s", len(cards), m.Book)
	}
	for _, c := range cards {
		owner, ok := m.Owners[c]
		if !ok {
			return engine.Conflictf("claim is missing an owner for %s", c)
		}
		if _, seated := s.Player(owner); !seated {
			return engine.NotFound("declared owner", owner.String())
		}
	}
	return nil
}

func validateTransfer(s State, m models.Transfer) error {
	if m.From != s.Turn {
		return engine.Invalidf("it is not your turn")
	}
	last := s.Last
	if last == nil || !last.Success {
		return engine.Invalidf("transfer is only allowed immediately after a successful claim")
	}
	team, ok := s.TeamOf(m.From)
	if !ok || team.ID != last.TeamID {
		return engine.Invalidf("transfer is only allowed by the side that claimed")
	}
	if _, seated := s.Player(m.To); !seated {
		return engine.NotFound("player", m.To.String())
	}
	if !team.HasMember(m.To) || m.To == m.From {
		return engine.Invalidf("can only transfer to a teammate")
	}
	if len(s.Hands[m.To]) == 0 {
		return engine.Invalidf("cannot transfer to a teammate with no cards")
	}
	return nil
}
