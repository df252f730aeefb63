// internal/callbreak/validate.go
package callbreak

import (
	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/models"
)

// Validate checks a move against the current state. Rejections are typed
// engine errors; the executor never sees a move that fails here.
func Validate(s State, mv models.Move) error {
	switch m := mv.(type) {
	case models.Declare:
		return validateDeclare(s, m)
	case models.PlayCard:
		return validatePlay(s, m)
	default:
		return engine.Invalidf("move kind %s is not part of this game", mv.Kind())
	}
}

func validateDeclare(s State, m models.Declare) error {
	if s.Status != models.StatusInProgress {
		return engine.Invalidf("cannot declare in status %s", s.Status)
	}
	if _, ok := s.Player(m.Player); !ok {
		return engine.NotFound("player", m.Player.String())
	}
	if s.Turn != m.Player {
		return engine.Invalidf("not %s's turn to declare", m.Player)
	}
	if _, declared := s.Declared[m.Player]; declared {
		return engine.Conflictf("player %s already declared", m.Player)
	}
	if m.Wins < 1 || m.Wins > s.Config.Tricks {
		return engine.Invalidf("declared wins %d outside 1..%d", m.Wins, s.Config.Tricks)
	}
	return nil
}

func validatePlay(s State, m models.PlayCard) error {
	if s.Status != models.StatusWinsDeclared && s.Status != models.StatusRoundStarted {
		return engine.Invalidf("cannot play a card in status %s", s.Status)
	}
	if _, ok := s.Player(m.Player); !ok {
		return engine.NotFound("player", m.Player.String())
	}
	if s.Turn != m.Player {
		return engine.Invalidf("not %s's turn", m.Player)
	}
	hand := s.Hands[m.Player]
	if !hand.Contains(m.Card) {
		return engine.Invalidf("player %s does not hold %s", m.Player, m.Card)
	}
	if len(s.Current.Plays) > 0 {
		led := s.Current.Plays[0].Card.Suit
		if m.Card.Suit != led && len(hand.BySuit()[led]) > 0 {
			return engine.Invalidf("must follow the led suit %s", led.Name())
		}
	}
	return nil
}
