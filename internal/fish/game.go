// internal/fish/game.go
package fish

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardtable/cardtable/internal/deck"
	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/models"
)

// Variant is the rule-set name used in snapshots and routing.
const Variant = "fish"

// Game wraps the pure state machine as the single mutable cell the host
// owns. The host serializes access; nothing here locks.
type Game struct {
	st       State
	initial  map[uuid.UUID]deck.Hand
	trackers map[uuid.UUID]*Tracker
}

// NewGame creates a Fish game with the creator seated.
func NewGame(creator models.Player, cfg Config) *Game {
	return &Game{
		st:       NewState(uuid.New(), creator, cfg),
		trackers: make(map[uuid.UUID]*Tracker),
	}
}

func (g *Game) ID() uuid.UUID            { return g.st.GameID }
func (g *Game) Variant() string          { return Variant }
func (g *Game) Status() models.Status    { return g.st.Status }
func (g *Game) CurrentTurn() uuid.UUID   { return g.st.Turn }
func (g *Game) Players() []models.Player { return append([]models.Player(nil), g.st.Players...) }

// State returns a copy of the current state for inspection.
func (g *Game) State() State { return g.st.clone() }

// AddPlayer seats a player while the game is still forming.
func (g *Game) AddPlayer(p models.Player) error {
	next, err := AddPlayer(g.st, p)
	if err != nil {
		return err
	}
	g.st = next
	return nil
}

// CreateTeams partitions the seats into two teams.
func (g *Game) CreateTeams(nameA, nameB string) error {
	next, err := CreateTeams(g.st, nameA, nameB)
	if err != nil {
		return err
	}
	g.st = next
	return nil
}

// Deal distributes a fresh pack and initializes one inference tracker per
// bot seat. It returns the dealt hands for the host to reveal privately.
func (g *Game) Deal() (map[uuid.UUID]deck.Hand, error) {
	next, hands, err := DealHands(g.st)
	if err != nil {
		return nil, err
	}
	g.st = next
	g.initial = hands
	g.trackers = make(map[uuid.UUID]*Tracker)
	for _, p := range g.st.Players {
		if p.IsBot {
			g.trackers[p.ID] = NewTracker(g.st, p.ID)
		}
	}
	return hands, nil
}

// Apply validates and executes a move, then feeds the outcome to every bot
// tracker. All-or-nothing: on error the state is untouched.
func (g *Game) Apply(mv models.Move) (models.MoveRecord, error) {
	next, rec, err := Apply(g.st, mv)
	if err != nil {
		return models.MoveRecord{}, err
	}
	g.st = next
	for _, t := range g.trackers {
		t.Observe(rec)
	}
	return rec, nil
}

// SuggestBotMove picks a move for a bot seat from its own belief state.
func (g *Game) SuggestBotMove(playerID uuid.UUID) (models.Move, bool) {
	t, ok := g.trackers[playerID]
	if !ok {
		return nil, false
	}
	return ChooseMove(g.st, t, playerID)
}

// snapshot is the persisted form: the dealt hands plus the move history,
// from which the current state is reproducible exactly.
type snapshot struct {
	Variant string                  `json:"variant"`
	GameID  uuid.UUID               `json:"game_id"`
	Config  Config                  `json:"config"`
	Status  models.Status           `json:"status"`
	Players []models.Player         `json:"players"`
	Teams   []models.Team           `json:"teams"`
	Initial map[uuid.UUID]deck.Hand `json:"initial,omitempty"`
	History []models.MoveRecord     `json:"history"`
}

// Snapshot serializes everything needed to rehydrate after eviction.
func (g *Game) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		Variant: Variant,
		GameID:  g.st.GameID,
		Config:  g.st.Config,
		Status:  g.st.Status,
		Players: g.st.Players,
		Teams:   g.st.Teams,
		Initial: g.initial,
		History: g.st.History,
	})
}

// Restore rebuilds a game by replaying its move history from the dealt
// hands. Replay goes through the same pure executor, so a snapshot that
// fails to replay marks corrupted history.
func Restore(data []byte) (*Game, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode fish snapshot: %w", err)
	}
	if snap.Variant != Variant {
		return nil, fmt.Errorf("snapshot variant %q is not %q", snap.Variant, Variant)
	}
	if len(snap.Players) == 0 {
		return nil, fmt.Errorf("snapshot has no players")
	}

	st := NewState(snap.GameID, snap.Players[0], snap.Config)
	st.Players = append([]models.Player(nil), snap.Players...)
	if len(st.Players) == snap.Config.PlayerCount {
		st.Status = models.StatusPlayersReady
	}
	// Teams are restored without scores; replay recomputes them.
	for _, t := range snap.Teams {
		t.Score = 0
		t.BooksWon = nil
		st.Teams = append(st.Teams, t)
	}
	if len(st.Teams) > 0 {
		st.Status = models.StatusTeamsCreated
	}

	g := &Game{st: st, trackers: make(map[uuid.UUID]*Tracker)}
	if snap.Initial == nil {
		// Not yet dealt; the pre-deal lifecycle state is the whole story.
		g.st.Status = snap.Status
		return g, nil
	}

	g.initial = snap.Initial
	g.st.Hands = make(map[uuid.UUID]deck.Hand, len(snap.Initial))
	for id, h := range snap.Initial {
		g.st.Hands[id] = deck.NewHand(h)
	}
	g.st.Status = models.StatusInProgress
	g.st.Turn = g.st.Players[0].ID
	for _, p := range g.st.Players {
		if p.IsBot {
			g.trackers[p.ID] = NewTracker(g.st, p.ID)
		}
	}

	for _, rec := range snap.History {
		next, _, err := Apply(g.st, rec.Move)
		if err != nil {
			return nil, fmt.Errorf("replay %s by %s: %w", rec.Move.Kind(), rec.Actor, err)
		}
		g.st = next
		for _, t := range g.trackers {
			t.Observe(rec)
		}
	}
	return g, nil
}

// RedactedPlayer is one seat as seen by another player.
type RedactedPlayer struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	TeamID   uuid.UUID `json:"team_id,omitempty"`
	IsBot    bool      `json:"is_bot"`
	HandSize int       `json:"hand_size"`
}

// RedactedState is a game snapshot from one player's perspective: their own
// hand in full, everyone else reduced to counts.
type RedactedState struct {
	GameID  uuid.UUID                 `json:"game_id"`
	Variant string                    `json:"variant"`
	Status  models.Status             `json:"status"`
	Turn    uuid.UUID                 `json:"turn"`
	Players []RedactedPlayer          `json:"players"`
	Teams   []models.Team             `json:"teams"`
	Hand    deck.Hand                 `json:"hand"`
	Settled map[models.Book]uuid.UUID `json:"settled"`
}

// RedactedState renders the game as seen by viewer.
func (g *Game) RedactedState(viewer uuid.UUID) interface{} {
	out := RedactedState{
		GameID:  g.st.GameID,
		Variant: Variant,
		Status:  g.st.Status,
		Turn:    g.st.Turn,
		Teams:   append([]models.Team(nil), g.st.Teams...),
		Hand:    g.st.Hands[viewer],
		Settled: make(map[models.Book]uuid.UUID, len(g.st.Settled)),
	}
	for b, t := range g.st.Settled {
		out.Settled[b] = t
	}
	for _, p := range g.st.Players {
		out.Players = append(out.Players, RedactedPlayer{
			ID:       p.ID,
			Name:     p.Name,
			TeamID:   p.TeamID,
			IsBot:    p.IsBot,
			HandSize: len(g.st.Hands[p.ID]),
		})
	}
	return out
}

// ensure the wrapper satisfies the host contract.
var _ engine.Game = (*Game)(nil)
