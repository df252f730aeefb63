// internal/callbreak/apply.go
package callbreak

import (
	"time"

	"github.com/google/uuid"

	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/models"
)

// Apply validates and executes one move, returning the successor state and
// its log record. Rejected moves return the input state untouched.
func Apply(s State, mv models.Move) (State, models.MoveRecord, error) {
	if err := Validate(s, mv); err != nil {
		return s, models.MoveRecord{}, err
	}
	var (
		out State
		rec models.MoveRecord
	)
	switch m := mv.(type) {
	case models.Declare:
		out, rec = applyDeclare(s, m)
	case models.PlayCard:
		out, rec = applyPlay(s, m)
	default:
		return s, models.MoveRecord{}, engine.Invalidf("move kind %s is not part of this game", mv.Kind())
	}
	out.History = append(out.History, rec)
	if err := out.CheckConservation(); err != nil {
		return s, models.MoveRecord{}, err
	}
	return out, rec, nil
}

// applyDeclare records one player's declared wins. Declarations run in seat
// order; the last one opens play with the deal's lead seat.
func applyDeclare(s State, m models.Declare) (State, models.MoveRecord) {
	out := s.clone()
	out.Declared[m.Player] = m.Wins
	if len(out.Declared) == len(out.Players) {
		out.Status = models.StatusWinsDeclared
		out.Turn = out.Order[0]
		out.Current = Trick{Leader: out.Order[0]}
	} else {
		out.Turn = out.nextInOrder(m.Player)
	}
	return out, models.MoveRecord{At: time.Now(), Actor: m.Player, Move: m, Success: true}
}

// applyPlay contributes one card to the current trick, resolving the trick
// when the fourth card lands and the deal when the last trick resolves.
func applyPlay(s State, m models.PlayCard) (State, models.MoveRecord) {
	out := s.clone()
	out.Status = models.StatusRoundStarted

	if len(out.Current.Plays) == 0 {
		out.Current.Leader = m.Player
	}
	out.Hands[m.Player] = out.Hands[m.Player].Remove(m.Card)
	out.Current.Plays = append(out.Current.Plays, Play{Player: m.Player, Card: m.Card})

	if len(out.Current.Plays) < len(out.Players) {
		out.Turn = out.nextInOrder(m.Player)
		return out, models.MoveRecord{At: time.Now(), Actor: m.Player, Move: m, Success: true}
	}

	winner := trickWinner(out.Current)
	out.Current.Winner = winner
	out.Won[winner]++
	out.Finished = append(out.Finished, out.Current)
	out.Current = Trick{Leader: winner}
	out.Turn = winner

	if len(out.Finished) == out.Config.Tricks {
		out = scoreDeal(out)
	}
	return out, models.MoveRecord{At: time.Now(), Actor: m.Player, Move: m, Success: true}
}

// trickWinner resolves a complete trick: the highest trump wins, otherwise
// the highest card of the led suit.
func trickWinner(tr Trick) uuid.UUID {
	best := tr.Plays[0]
	for _, p := range tr.Plays[1:] {
		if beats(p.Card, best.Card) {
			best = p
		}
	}
	return best.Player
}

// beats reports whether challenger takes the trick from the current best
// card. The led suit is implicit: best is either the led card or something
// that already beat it, so a challenger of a third suit never wins.
func beats(challenger, best models.Card) bool {
	if challenger.Suit == best.Suit {
		return trickValue(challenger) > trickValue(best)
	}
	return challenger.Suit == Trump
}

// trickValue orders ranks ace-high for trick resolution, unlike the ace-low
// book ordering.
func trickValue(c models.Card) int {
	if v := c.Rank.Value(); v != 1 {
		return v
	}
	return 14
}

// scoreDeal settles a finished deal: exact declarations score 10 per trick,
// overtricks add 2 each on top, and a missed declaration loses the full 10
// per declared trick. The game completes after the configured deal count.
func scoreDeal(s State) State {
	out := s
	for _, p := range out.Players {
		d := out.Declared[p.ID]
		w := out.Won[p.ID]
		switch {
		case w == d:
			out.Scores[p.ID] += 10 * d
		case w > d:
			out.Scores[p.ID] += 10*d + 2*(w-d)
		default:
			out.Scores[p.ID] -= 10 * d
		}
	}
	out.DealsPlayed++
	out.Turn = uuid.Nil
	out.Current = Trick{}
	if out.DealsPlayed == out.Config.Deals {
		out.Status = models.StatusCompleted
	} else {
		out.Status = models.StatusRoundCompleted
	}
	return out
}
