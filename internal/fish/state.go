// internal/fish/state.go
package fish

import (
	"github.com/google/uuid"

	"github.com/cardtable/cardtable/internal/deck"
	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/models"
)

// Config fixes the rule parameters for one game.
type Config struct {
	PackSize    int `json:"pack_size"`
	PlayerCount int `json:"player_count"`
}

// DefaultConfig is four-player Literature on the 48-card pack.
var DefaultConfig = Config{PackSize: deck.PackWithoutSevens, PlayerCount: 4}

// ClaimResult remembers the most recent claim so the transfer validator can
// check its one-move window. It is cleared by any subsequent move.
type ClaimResult struct {
	Claimer   uuid.UUID   `json:"claimer"`
	TeamID    uuid.UUID   `json:"team_id"`
	Book      models.Book `json:"book"`
	Success   bool        `json:"success"`
	SoleOwner bool        `json:"sole_owner"` // every card came from the claimer's own hand
	WithTeam  bool        `json:"with_team"`  // every card came from the claiming team
}

// State is the full Fish game state. It is treated as immutable: every
// transition builds a new State via clone and returns it, so a rejected move
// can never leave a half-applied result behind.
type State struct {
	GameID  uuid.UUID                  `json:"game_id"`
	Status  models.Status              `json:"status"`
	Turn    uuid.UUID                  `json:"turn"`
	Players []models.Player            `json:"players"`
	Teams   []models.Team              `json:"teams"`
	Hands   map[uuid.UUID]deck.Hand    `json:"hands"`
	Settled map[models.Book]uuid.UUID  `json:"settled"` // book -> winning team
	Last    *ClaimResult               `json:"last_claim,omitempty"`
	History []models.MoveRecord        `json:"history"`
	Config  Config                     `json:"config"`
}

// NewState creates a game with the creator seated and holding the turn.
func NewState(gameID uuid.UUID, creator models.Player, cfg Config) State {
	return State{
		GameID:  gameID,
		Status:  models.StatusCreated,
		Turn:    creator.ID,
		Players: []models.Player{creator},
		Hands:   map[uuid.UUID]deck.Hand{},
		Settled: map[models.Book]uuid.UUID{},
		Config:  cfg,
	}
}

// clone copies the state deeply enough that mutations of the copy never
// reach the original. Hands themselves are value-level and safe to share.
func (s State) clone() State {
	out := s
	out.Players = append([]models.Player(nil), s.Players...)
	out.Teams = make([]models.Team, len(s.Teams))
	for i, t := range s.Teams {
		t.Members = append([]uuid.UUID(nil), t.Members...)
		t.BooksWon = append([]models.Book(nil), t.BooksWon...)
		out.Teams[i] = t
	}
	out.Hands = make(map[uuid.UUID]deck.Hand, len(s.Hands))
	for id, h := range s.Hands {
		out.Hands[id] = h
	}
	out.Settled = make(map[models.Book]uuid.UUID, len(s.Settled))
	for b, t := range s.Settled {
		out.Settled[b] = t
	}
	out.History = append([]models.MoveRecord(nil), s.History...)
	if s.Last != nil {
		last := *s.Last
		out.Last = &last
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

// TeamOf returns the team a player belongs to.
func (s State) TeamOf(playerID uuid.UUID) (models.Team, bool) {
	for _, t := range s.Teams {
		if t.HasMember(playerID) {
			return t, true
		}
	}
	return models.Team{}, false
}

// OpposingTeam returns the team a player does not belong to.
func (s State) OpposingTeam(playerID uuid.UUID) (models.Team, bool) {
	for _, t := range s.Teams {
		if !t.HasMember(playerID) {
			return t, true
		}
	}
	return models.Team{}, false
}

// AddPlayer seats a new player. Once the table is full the game moves to
// PLAYERS_READY.
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

// CreateTeams partitions the seats into two alternating teams (seats
// 0,2,4... vs 1,3,5...). Teams partition players exactly once.
func CreateTeams(s State, nameA, nameB string) (State, error) {
	if s.Status != models.StatusPlayersReady {
		return s, engine.Invalidf("cannot create teams in status %s", s.Status)
	}
	out := s.clone()
	teamA := models.Team{ID: uuid.New(), Name: nameA}
	teamB := models.Team{ID: uuid.New(), Name: nameB}
	for i := range out.Players {
		if i%2 == 0 {
			teamA.Members = append(teamA.Members, out.Players[i].ID)
			out.Players[i].TeamID = teamA.ID
		} else {
			teamB.Members = append(teamB.Members, out.Players[i].ID)
			out.Players[i].TeamID = teamB.ID
		}
	}
	out.Teams = []models.Team{teamA, teamB}
	out.Status = models.StatusTeamsCreated
	return out, nil
}

// DealHands shuffles a fresh pack, splits it evenly, and starts play with
// the creator (seat 0) on turn.
func DealHands(s State) (State, map[uuid.UUID]deck.Hand, error) {
	if s.Status != models.StatusTeamsCreated {
		return s, nil, engine.Invalidf("cannot deal in status %s", s.Status)
	}
	cards, err := deck.New(s.Config.PackSize)
	if err != nil {
		return s, nil, err
	}
	hands, err := deck.Deal(cards, len(s.Players))
	if err != nil {
		return s, nil, err
	}
	out := s.clone()
	dealt := make(map[uuid.UUID]deck.Hand, len(hands))
	for i, p := range out.Players {
		out.Hands[p.ID] = hands[i]
		dealt[p.ID] = hands[i]
	}
	out.Status = models.StatusInProgress
	out.Turn = out.Players[0].ID
	return out, dealt, nil
}

// nextWithCards walks the candidate list in order and returns the first
// player still holding cards, or uuid.Nil when none does.
func (s State) nextWithCards(candidates []uuid.UUID) uuid.UUID {
	for _, id := range candidates {
		if len(s.Hands[id]) > 0 {
			return id
		}
	}
	return uuid.Nil
}

// anyWithCards returns any seat still holding cards, preferring seat order.
func (s State) anyWithCards() uuid.UUID {
	for _, p := range s.Players {
		if len(s.Hands[p.ID]) > 0 {
			return p.ID
		}
	}
	return uuid.Nil
}

// CheckConservation verifies that every pack card lives in exactly one hand
// or one settled book. A failure is an InvariantViolation: it cannot happen
// through the executor and marks a bug.
func (s State) CheckConservation() error {
	if s.Status != models.StatusInProgress && s.Status != models.StatusCompleted {
		return nil
	}
	seen := make(map[models.Card]int)
	for _, h := range s.Hands {
		for _, c := range h {
			seen[c]++
		}
	}
	for b := range s.Settled {
		for _, c := range models.BookCards(b) {
			seen[c]++
		}
	}
	pack, err := deck.New(s.Config.PackSize)
	if err != nil {
		return err
	}
	if len(seen) != len(pack) {
		return engine.Invariantf("%d cards accounted for, want %d", len(seen), len(pack))
	}
	for c, n := range seen {
		if n != 1 {
			return engine.Invariantf("card %s appears %d times", c, n)
		}
	}
	return nil
}
