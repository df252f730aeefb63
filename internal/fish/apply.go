// internal/fish/apply.go
package fish

import (
	"time"

	"github.com/google/uuid"

	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/models"
)

// Apply validates and executes one move, returning the successor state and
// the log record describing what happened. A rejected move returns the
// input state untouched.
func Apply(s State, mv models.Move) (State, models.MoveRecord, error) {
	if err := Validate(s, mv); err != nil {
		return s, models.MoveRecord{}, err
	}
	var (
		out State
		rec models.MoveRecord
		err error
	)
	switch m := mv.(type) {
	case models.Ask:
		out, rec = applyAsk(s, m)
	case models.Claim:
		out, rec = applyClaim(s, m)
	case models.Transfer:
		out, rec = applyTransfer(s, m)
	default:
		return s, models.MoveRecord{}, engine.Invalidf("move kind %s is not part of this game", mv.Kind())
	}
	out.History = append(out.History, rec)
	if err = out.CheckConservation(); err != nil {
		return s, models.MoveRecord{}, err
	}
	return out, rec, nil
}

func applyAsk(s State, m models.Ask) (State, models.MoveRecord) {
	out := s.clone()
	out.Last = nil

	held := out.Hands[m.Target].Contains(m.Card)
	if held {
		out.Hands[m.Target] = out.Hands[m.Target].Remove(m.Card)
		out.Hands[m.Asker] = out.Hands[m.Asker].Add(m.Card)
		// A successful ask keeps the turn with the asker.
	} else {
		out.Turn = m.Target
	}
	return out, models.MoveRecord{At: time.Now(), Actor: m.Asker, Move: m, Success: held}
}

func applyClaim(s State, m models.Claim) (State, models.MoveRecord) {
	out := s.clone()

	claimerTeam, _ := out.TeamOf(m.Claimer)
	opposing, _ := out.OpposingTeam(m.Claimer)

	// Ground truth: who actually holds each card of the book right now.
	cards := models.BookCards(m.Book)
	success := true
	soleOwner := true
	withTeam := true
	for _, c := range cards {
		actual := uuid.Nil
		for id, h := range out.Hands {
			if h.Contains(c) {
				actual = id
				break
			}
		}
		if actual != m.Owners[c] {
			success = false
		}
		if actual != m.Claimer {
			soleOwner = false
		}
		if !claimerTeam.HasMember(actual) {
			withTeam = false
		}
	}

	// The book leaves play on success and failure alike.
	for id, h := range out.Hands {
		out.Hands[id] = h.RemoveAll(cards)
	}

	winner := claimerTeam
	if !success {
		winner = opposing
	}
	out.Settled[m.Book] = winner.ID
	for i := range out.Teams {
		if out.Teams[i].ID == winner.ID {
			out.Teams[i].Score++
			out.Teams[i].BooksWon = append(out.Teams[i].BooksWon, m.Book)
		}
	}

	out.Last = &ClaimResult{
		Claimer:   m.Claimer,
		TeamID:    claimerTeam.ID,
		Book:      m.Book,
		Success:   success,
		SoleOwner: soleOwner,
		WithTeam:  withTeam,
	}

	if len(out.Settled) == len(models.Books()) {
		out.Status = models.StatusCompleted
		out.Turn = uuid.Nil
		return out, models.MoveRecord{At: time.Now(), Actor: m.Claimer, Move: m, Success: success}
	}

	switch {
	case success && len(out.Hands[m.Claimer]) > 0:
		// Claimer keeps the turn.
	case success:
		// Claimer emptied their hand with the claim: a teammate with cards
		// takes over, falling back to anyone holding cards.
		next := out.nextWithCards(claimerTeam.Members)
		if next == uuid.Nil {
			next = out.anyWithCards()
		}
		out.Turn = next
	default:
		// A failed claim hands the turn to an opponent holding cards.
		next := out.nextWithCards(opposing.Members)
		if next == uuid.Nil {
			next = out.anyWithCards()
		}
		out.Turn = next
	}
	return out, models.MoveRecord{At: time.Now(), Actor: m.Claimer, Move: m, Success: success}
}

func applyTransfer(s State, m models.Transfer) (State, models.MoveRecord) {
	out := s.clone()
	out.Last = nil
	out.Turn = m.To
	return out, models.MoveRecord{At: time.Now(), Actor: m.From, Move: m, Success: true}
}
