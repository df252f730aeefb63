// internal/fish/bot.go
package fish

import (
	"sort"

	"github.com/google/uuid"

	"github.com/cardtable/cardtable/internal/models"
)

// MaxWeight is the certainty weight of a card whose owner is known. 720
// divides cleanly by every team and player count in play, so fractional
// confidence stays integral.
const MaxWeight = 720

// BookSuggestion scores one unclaimed book from a player's point of view.
type BookSuggestion struct {
	Book      models.Book
	Weight    int
	WithTeam  bool // every card determinedly with the player's team
	Claimable bool // every card's owner is determined
}

// AskSuggestion scores one candidate ask.
type AskSuggestion struct {
	Target uuid.UUID
	Card   models.Card
	Weight int
}

// ClaimSuggestion carries a fully resolved owner map for a claimable book.
type ClaimSuggestion struct {
	Book   models.Book
	Owners map[models.Card]uuid.UUID
	Weight int
}

// TransferSuggestion scores handing the turn to a teammate.
type TransferSuggestion struct {
	To     uuid.UUID
	Weight int
}

// cardWeight translates belief about a card into confidence: full weight
// for cards in the player's hand or with a known owner, half for inferred,
// and an even split across the remaining candidates otherwise.
func cardWeight(t *Tracker, s State, playerID uuid.UUID, c models.Card) int {
	if s.Hands[playerID].Contains(c) {
		return MaxWeight
	}
	loc, ok := t.Location(c)
	if !ok {
		return 0
	}
	if loc.Known != uuid.Nil {
		return MaxWeight
	}
	if loc.Inferred != uuid.Nil {
		return MaxWeight / 2
	}
	if n := len(loc.Possible); n > 0 {
		return MaxWeight / n
	}
	return 0
}

// cardOwner resolves the determined owner of a card from the player's view:
// their own hand first, then the tracker's known/inferred owner.
func cardOwner(t *Tracker, s State, playerID uuid.UUID, c models.Card) (uuid.UUID, bool) {
	if s.Hands[playerID].Contains(c) {
		return playerID, true
	}
	loc, ok := t.Location(c)
	if !ok {
		return uuid.Nil, false
	}
	return loc.Determined()
}

// SuggestBooks ranks every unsettled book by average per-card confidence,
// flagging which are fully with the team and which are claimable outright.
func SuggestBooks(s State, t *Tracker, playerID uuid.UUID) []BookSuggestion {
	team, _ := s.TeamOf(playerID)
	var out []BookSuggestion
	for _, b := range models.Books() {
		if _, settled := s.Settled[b]; settled {
			continue
		}
		cards := models.BookCards(b)
		sum := 0
		withTeam := true
		claimable := true
		for _, c := range cards {
			sum += cardWeight(t, s, playerID, c)
			owner, ok := cardOwner(t, s, playerID, c)
			if !ok {
				withTeam = false
				claimable = false
			} else if !team.HasMember(owner) {
				withTeam = false
			}
		}
		out = append(out, BookSuggestion{
			Book:      b,
			Weight:    sum / len(cards),
			WithTeam:  withTeam,
			Claimable: claimable,
		})
	}
	sortDescending(out, func(b BookSuggestion) int { return b.Weight })
	return out
}

// SuggestAsks enumerates weighted asks: for every book the player holds
// partially, every missing card, toward every opposing player who could
// hold it.
func SuggestAsks(s State, t *Tracker, playerID uuid.UUID) []AskSuggestion {
	opposing, _ := s.OpposingTeam(playerID)
	hand := s.Hands[playerID]
	var out []AskSuggestion
	for _, b := range models.Books() {
		if _, settled := s.Settled[b]; settled {
			continue
		}
		held := hand.CountBook(b)
		if held == 0 || held == len(models.BookCards(b)) {
			continue
		}
		for _, c := range models.BookCards(b) {
			if hand.Contains(c) {
				continue
			}
			loc, ok := t.Location(c)
			if !ok {
				continue
			}
			if owner, determined := loc.Determined(); determined {
				if opposing.HasMember(owner) && len(s.Hands[owner]) > 0 {
					w := MaxWeight
					if loc.Known == uuid.Nil {
						w = MaxWeight / 2
					}
					out = append(out, AskSuggestion{Target: owner, Card: c, Weight: w})
				}
				continue
			}
			for _, candidate := range loc.Possible {
				if opposing.HasMember(candidate) && len(s.Hands[candidate]) > 0 {
					out = append(out, AskSuggestion{
						Target: candidate,
						Card:   c,
						Weight: MaxWeight / len(loc.Possible),
					})
				}
			}
		}
	}
	sortDescending(out, func(a AskSuggestion) int { return a.Weight })
	return out
}

// SuggestClaims proposes claims only for books that are claimable and fully
// with the team, with every owner determined. Books the player holds no card
// of are skipped: claiming them is illegal, the holding teammate claims on
// their own turn.
func SuggestClaims(s State, t *Tracker, playerID uuid.UUID) []ClaimSuggestion {
	hand := s.Hands[playerID]
	var out []ClaimSuggestion
	for _, bs := range SuggestBooks(s, t, playerID) {
		if !bs.Claimable || !bs.WithTeam {
			continue
		}
		if hand.CountBook(bs.Book) == 0 {
			continue
		}
		owners := make(map[models.Card]uuid.UUID)
		weight := 0
		for _, c := range models.BookCards(bs.Book) {
			owner, _ := cardOwner(t, s, playerID, c)
			owners[c] = owner
			weight += cardWeight(t, s, playerID, c)
		}
		out = append(out, ClaimSuggestion{Book: bs.Book, Owners: owners, Weight: weight})
	}
	sortDescending(out, func(c ClaimSuggestion) int { return c.Weight })
	return out
}

// SuggestTransfers proposes turn transfers after a successful claim of a
// book that was not fully with the team. Teammates are preferred by how many
// cards they hold of still-contested books the observer knows well.
func SuggestTransfers(s State, t *Tracker, playerID uuid.UUID) []TransferSuggestion {
	last := s.Last
	if last == nil || !last.Success || last.Claimer != playerID || last.WithTeam {
		return nil
	}
	team, _ := s.TeamOf(playerID)
	books := SuggestBooks(s, t, playerID)
	var out []TransferSuggestion
	for _, mate := range team.Members {
		if mate == playerID || len(s.Hands[mate]) == 0 {
			continue
		}
		weight := 0
		for _, bs := range books {
			for _, c := range models.BookCards(bs.Book) {
				if owner, ok := cardOwner(t, s, playerID, c); ok && owner == mate {
					weight += bs.Weight
				}
			}
		}
		out = append(out, TransferSuggestion{To: mate, Weight: weight})
	}
	sortDescending(out, func(tr TransferSuggestion) int { return tr.Weight })
	return out
}

// ChooseMove picks the bot's move: claim what is certain, otherwise hand a
// won turn to a better-placed teammate, otherwise chase the best ask. When
// the hand holds only complete books the bot claims its best guess so the
// game always progresses.
func ChooseMove(s State, t *Tracker, playerID uuid.UUID) (models.Move, bool) {
	if s.Turn != playerID || s.Status != models.StatusInProgress {
		return nil, false
	}
	if claims := SuggestClaims(s, t, playerID); len(claims) > 0 {
		return models.Claim{Claimer: playerID, Book: claims[0].Book, Owners: claims[0].Owners}, true
	}
	if transfers := SuggestTransfers(s, t, playerID); len(transfers) > 0 {
		return models.Transfer{From: playerID, To: transfers[0].To}, true
	}
	if asks := SuggestAsks(s, t, playerID); len(asks) > 0 {
		return models.Ask{Asker: playerID, Target: asks[0].Target, Card: asks[0].Card}, true
	}
	return guessClaim(s, t, playerID)
}

// guessClaim declares the best available owner map for the player's
// highest-confidence held book, guessing among remaining candidates when a
// card's owner is undetermined.
func guessClaim(s State, t *Tracker, playerID uuid.UUID) (models.Move, bool) {
	hand := s.Hands[playerID]
	for _, bs := range SuggestBooks(s, t, playerID) {
		if hand.CountBook(bs.Book) == 0 {
			continue
		}
		owners := make(map[models.Card]uuid.UUID)
		for _, c := range models.BookCards(bs.Book) {
			if owner, ok := cardOwner(t, s, playerID, c); ok {
				owners[c] = owner
				continue
			}
			possible := t.PossibleOwners(c)
			if len(possible) == 0 {
				owners[c] = playerID
				continue
			}
			owners[c] = possible[0]
		}
		return models.Claim{Claimer: playerID, Book: bs.Book, Owners: owners}, true
	}
	return nil, false
}

// sortDescending is a stable descending sort so equal weights keep their
// encounter order.
func sortDescending[T any](items []T, weight func(T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		return weight(items[i]) > weight(items[j])
	})
}
