// internal/callbreak/game.go
package callbreak

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardtable/cardtable/internal/deck"
	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/models"
)

// Variant is the rule-set name used in snapshots and routing.
const Variant = "callbreak"

// Game wraps the pure state machine as the single mutable cell the host
// owns. The host serializes access; nothing here locks.
type Game struct {
	st    State
	deals []map[uuid.UUID]deck.Hand
}

// NewGame creates a Callbreak game with the creator seated.
func NewGame(creator models.Player, cfg Config) *Game {
	return &Game{st: NewState(uuid.New(), creator, cfg)}
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

// StartDeal shuffles and deals the next deal, recording the dealt hands so
// the whole game stays reproducible from the snapshot. The host calls this
// for the first deal and again after every ROUND_COMPLETED tick.
func (g *Game) StartDeal() (map[uuid.UUID]deck.Hand, error) {
	next, hands, err := StartDeal(g.st)
	if err != nil {
		return nil, err
	}
	g.st = next
	g.deals = append(g.deals, hands)
	return hands, nil
}

// Apply validates and executes a move. All-or-nothing: on error the state is
// untouched.
func (g *Game) Apply(mv models.Move) (models.MoveRecord, error) {
	next, rec, err := Apply(g.st, mv)
	if err != nil {
		return models.MoveRecord{}, err
	}
	g.st = next
	return rec, nil
}

// SuggestBotMove picks a move for a bot seat. Callbreak is perfect-recall on
// the visible tricks, so no belief tracker is needed.
func (g *Game) SuggestBotMove(playerID uuid.UUID) (models.Move, bool) {
	return ChooseMove(g.st, playerID)
}

// snapshot is the persisted form: per-deal initial hands plus the move
// history, from which the current state is reproducible exactly.
type snapshot struct {
	Variant string                    `json:"variant"`
	GameID  uuid.UUID                 `json:"game_id"`
	Config  Config                    `json:"config"`
	Status  models.Status             `json:"status"`
	Players []models.Player           `json:"players"`
	Deals   []map[uuid.UUID]deck.Hand `json:"deals,omitempty"`
	History []models.MoveRecord       `json:"history"`
}

// Snapshot serializes everything needed to rehydrate after eviction.
func (g *Game) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		Variant: Variant,
		GameID:  g.st.GameID,
		Config:  g.st.Config,
		Status:  g.st.Status,
		Players: g.st.Players,
		Deals:   g.deals,
		History: g.st.History,
	})
}

// Restore rebuilds a game by replaying its move history deal by deal from
// the recorded hands. Replay goes through the same pure executor, so a
// snapshot that fails to replay marks corrupted history.
func Restore(data []byte) (*Game, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode callbreak snapshot: %w", err)
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
	g := &Game{st: st}

	dealIdx := 0
	nextDeal := func() error {
		if dealIdx >= len(snap.Deals) {
			return fmt.Errorf("history outruns the %d recorded deals", len(snap.Deals))
		}
		hands := make(map[uuid.UUID]deck.Hand, len(snap.Deals[dealIdx]))
		for id, h := range snap.Deals[dealIdx] {
			hands[id] = deck.NewHand(h)
		}
		g.st = beginDeal(g.st, hands)
		g.deals = append(g.deals, hands)
		dealIdx++
		return nil
	}

	for _, rec := range snap.History {
		if g.st.Status == models.StatusPlayersReady || g.st.Status == models.StatusRoundCompleted {
			if err := nextDeal(); err != nil {
				return nil, err
			}
		}
		next, _, err := Apply(g.st, rec.Move)
		if err != nil {
			return nil, fmt.Errorf("replay %s by %s: %w", rec.Move.Kind(), rec.Actor, err)
		}
		g.st = next
	}
	// A deal dealt but not yet acted on still needs its hands installed.
	if dealIdx < len(snap.Deals) {
		if err := nextDeal(); err != nil {
			return nil, err
		}
	}
	if dealIdx == 0 {
		g.st.Status = snap.Status
	}
	return g, nil
}

// RedactedPlayer is one seat as seen by another player.
type RedactedPlayer struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsBot    bool      `json:"is_bot"`
	HandSize int       `json:"hand_size"`
	Declared int       `json:"declared"`
	Won      int       `json:"won"`
	Score    int       `json:"score"`
}

// RedactedState is a game snapshot from one player's perspective: their own
// hand in full, everyone else reduced to counts and public books.
type RedactedState struct {
	GameID      uuid.UUID        `json:"game_id"`
	Variant     string           `json:"variant"`
	Status      models.Status    `json:"status"`
	Turn        uuid.UUID        `json:"turn"`
	DealsPlayed int              `json:"deals_played"`
	Players     []RedactedPlayer `json:"players"`
	Hand        deck.Hand        `json:"hand"`
	Current     Trick            `json:"current"`
	TricksDone  int              `json:"tricks_done"`
}

// RedactedState renders the game as seen by viewer. The current trick is
// public information; only hands are private.
func (g *Game) RedactedState(viewer uuid.UUID) interface{} {
	out := RedactedState{
		GameID:      g.st.GameID,
		Variant:     Variant,
		Status:      g.st.Status,
		Turn:        g.st.Turn,
		DealsPlayed: g.st.DealsPlayed,
		Hand:        g.st.Hands[viewer],
		Current:     g.st.Current,
		TricksDone:  len(g.st.Finished),
	}
	for _, p := range g.st.Players {
		out.Players = append(out.Players, RedactedPlayer{
			ID:       p.ID,
			Name:     p.Name,
			IsBot:    p.IsBot,
			HandSize: len(g.st.Hands[p.ID]),
			Declared: g.st.Declared[p.ID],
			Won:      g.st.Won[p.ID],
			Score:    g.st.Scores[p.ID],
		})
	}
	return out
}

// ensure the wrapper satisfies the host contract.
var _ engine.Game = (*Game)(nil)
