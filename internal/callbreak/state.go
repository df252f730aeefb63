// internal/callbreak/state.go
package callbreak

import (
	"github.com/google/uuid"

	"github.com/cardtable/cardtable/internal/deck"
	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/models"
)

// Trump is fixed: spades beat every other suit regardless of the lead.
const Trump = models.Spades

// Config fixes the rule parameters for one game.
type Config struct {
	PlayerCount int `json:"player_count"`
	Tricks      int `json:"tricks"`
	Deals       int `json:"deals"`
}

// DefaultConfig is standard four-player Callbreak: five deals of thirteen
// tricks on the full 52-card pack.
var DefaultConfig = Config{PlayerCount: 4, Tricks: 13, Deals: 5}

// Play is one card contributed to a trick.
type Play struct {
	Player uuid.UUID   `json:"player"`
	Card   models.Card `json:"card"`
}

// Trick is one resolved or in-flight trick. Winner is set on resolution.
type Trick struct {
	Leader uuid.UUID `json:"leader"`
	Plays  []Play    `json:"plays"`
	Winner uuid.UUID `json:"winner,omitempty"`
}

// State is the full Callbreak game state. Like the Fish state it is treated
// as immutable: transitions clone and return, never mutate in place.
type State struct {
	GameID      uuid.UUID               `json:"game_id"`
	Status      models.Status           `json:"status"`
	Turn        uuid.UUID               `json:"turn"`
	Players     []models.Player         `json:"players"`
	Order       []uuid.UUID             `json:"order"` // play order for the current deal
	Hands       map[uuid.UUID]deck.Hand `json:"hands"`
	Declared    map[uuid.UUID]int       `json:"declared"`
	Won         map[uuid.UUID]int       `json:"won"`
	Scores      map[uuid.UUID]int       `json:"scores"` // cumulative, in points
	Current     Trick                   `json:"current"`
	Finished    []Trick                 `json:"finished"`
	DealsPlayed int                     `json:"deals_played"`
	History     []models.MoveRecord     `json:"history"`
	Config      Config                  `json:"config"`
}

// NewState creates a game with the creator seated.
func NewState(gameID uuid.UUID, creator models.Player, cfg Config) State {
	return State{
		GameID:  gameID,
		Status:  models.StatusCreated,
		Turn:    creator.ID,
		Players: []models.Player{creator},
		Hands:   map[uuid.UUID]deck.Hand{},
		Config:  cfg,
	}
}

func (s State) clone() State {
	out := s
	out.Players = append([]models.Player(nil), s.Players...)
	out.Order = append([]uuid.UUID(nil), s.Order...)
	out.Hands = make(map[uuid.UUID]deck.Hand, len(s.Hands))
	for id, h := range s.Hands {
		out.Hands[id] = h
	}
	out.Declared = copyCounts(s.Declared)
	out.Won = copyCounts(s.Won)
	out.Scores = copyCounts(s.Scores)
	out.Current.Plays = append([]Play(nil), s.Current.Plays...)
	out.Finished = make([]Trick, len(s.Finished))
	for i, tr := range s.Finished {
		tr.Plays = append([]Play(nil), tr.Plays...)
		out.Finished[i] = tr
	}
	out.History = append([]models.MoveRecord(nil), s.History...)
	return out
}

func copyCounts(in map[uuid.UUID]int) map[uuid.UUID]int {
	if in == nil {
		return nil
	}
	out := make(map[uuid.UUID]int, len(in))
	for id, n := range in {
		out[id] = n
	}
	return out
}

// Player returns the seat for a player id.
func (s State) Player(id uuid.UUID) (models.Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return models.Player{}, false
}

// AddPlayer seats a new player; a full table moves to PLAYERS_READY.
func AddPlayer(s State, p models.Player) (State, error) {
	if s.Status != models.StatusCreated {
		return s, engine.Invalidf("cannot join a game in status %s", s.Status)
	}
	if _, ok := s.Player(p.ID); ok {
		return s, engine.Conflictf("player %s already seated", p.ID)
	}
	out := s.clone()
	out.Players = append(out.Players, p)
	if len(out.Players) == out.Config.PlayerCount {
		out.Status = models.StatusPlayersReady
	}
	return out, nil
}

// StartDeal shuffles a fresh pack and opens the declaring phase. The seat
// order rotates by one for every deal already played, so the lead moves
// around the table across a full game.
func StartDeal(s State) (State, map[uuid.UUID]deck.Hand, error) {
	if s.Status != models.StatusPlayersReady && s.Status != models.StatusRoundCompleted {
		return s, nil, engine.Invalidf("cannot deal in status %s", s.Status)
	}
	cards, err := deck.New(deck.PackFull)
	if err != nil {
		return s, nil, err
	}
	hands, err := deck.Deal(cards, len(s.Players))
	if err != nil {
		return s, nil, err
	}
	offset := s.DealsPlayed % len(s.Players)
	dealt := make(map[uuid.UUID]deck.Hand, len(hands))
	for i := range s.Players {
		seat := s.Players[(offset+i)%len(s.Players)]
		dealt[seat.ID] = hands[i]
	}
	out := beginDeal(s, dealt)
	return out, dealt, nil
}

// beginDeal installs pre-built hands and resets the per-deal books. Restore
// goes through here too, so replayed deals use the recorded hands instead of
// a fresh shuffle.
func beginDeal(s State, hands map[uuid.UUID]deck.Hand) State {
	out := s.clone()
	offset := out.DealsPlayed % len(out.Players)
	out.Order = make([]uuid.UUID, 0, len(out.Players))
	for i := range out.Players {
		out.Order = append(out.Order, out.Players[(offset+i)%len(out.Players)].ID)
	}
	out.Hands = make(map[uuid.UUID]deck.Hand, len(hands))
	for id, h := range hands {
		out.Hands[id] = h
	}
	out.Declared = make(map[uuid.UUID]int, len(out.Players))
	out.Won = make(map[uuid.UUID]int, len(out.Players))
	if out.Scores == nil {
		out.Scores = make(map[uuid.UUID]int, len(out.Players))
	}
	out.Current = Trick{}
	out.Finished = nil
	out.Status = models.StatusInProgress
	out.Turn = out.Order[0]
	return out
}

// nextInOrder returns the seat after id in the current deal's play order.
func (s State) nextInOrder(id uuid.UUID) uuid.UUID {
	for i, seat := range s.Order {
		if seat == id {
			return s.Order[(i+1)%len(s.Order)]
		}
	}
	return uuid.Nil
}

// CheckConservation verifies that during a deal every pack card lives in
// exactly one hand, one finished trick, or the current trick.
func (s State) CheckConservation() error {
	switch s.Status {
	case models.StatusInProgress, models.StatusWinsDeclared, models.StatusRoundStarted:
	default:
		return nil
	}
	seen := make(map[models.Card]int)
	for _, h := range s.Hands {
		for _, c := range h {
			seen[c]++
		}
	}
	for _, tr := range s.Finished {
		for _, p := range tr.Plays {
			seen[p.Card]++
		}
	}
	for _, p := range s.Current.Plays {
		seen[p.Card]++
	}
	if len(seen) != deck.PackFull {
		return engine.Invariantf("%d cards accounted for, want %d", len(seen), deck.PackFull)
	}
	for c, n := range seen {
		if n != 1 {
			return engine.Invariantf("card %s appears %d times", c, n)
		}
	}
	return nil
}
