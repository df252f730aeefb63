// internal/host/host.go
package host

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardtable/cardtable/internal/cache"
	"github.com/cardtable/cardtable/internal/callbreak"
	"github.com/cardtable/cardtable/internal/deck"
	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/fish"
	"github.com/cardtable/cardtable/internal/models"
)

// Event types broadcast to connected clients.
const (
	EventPlayerJoined   = "player_joined"
	EventTeamsCreated   = "teams_created"
	EventMoveApplied    = "move_applied"
	EventMoveRejected   = "move_rejected" // private
	EventHandDealt      = "hand_dealt"    // private
	EventSyncState      = "sync_state"    // private
	EventRoundCompleted = "round_completed"
	EventGameEnd        = "game_end"
)

// Event is one fan-out message. Payload carries the event-specific fields;
// State carries a per-player redacted view where the event warrants one.
type Event struct {
	Type    string                 `json:"type"`
	GameID  uuid.UUID              `json:"game_id"`
	Actor   uuid.UUID              `json:"actor,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   interface{}            `json:"state,omitempty"`
}

// SnapshotSaver persists a game snapshot for later rehydration.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, gameID uuid.UUID, variant string, status models.Status, data []byte) error
}

// PlayerResult is one player's final standing in a completed game.
type PlayerResult struct {
	PlayerID uuid.UUID
	Score    int
	Won      bool
}

// ResultRecorder stores the final outcome of a completed game.
type ResultRecorder interface {
	RecordResults(ctx context.Context, gameID uuid.UUID, variant string, results []PlayerResult) error
}

// Host is the single-writer actor owning one game instance. Every access to
// the wrapped game goes through Mu; timers and persistence goroutines
// re-acquire it and validate staleness through moveIndex before acting.
type Host struct {
	Mu   sync.Mutex
	Game engine.Game

	// BroadcastFn sends an event to every connected player. If nil, no
	// broadcast is done.
	BroadcastFn func(ev Event)

	// BroadcastToPlayerFn sends an event to a single specific player.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev Event)

	Snapshots SnapshotSaver
	Results   ResultRecorder

	// BotDelay is the pause before a bot on turn moves; TickDelay the pause
	// before a completed Callbreak round rolls into the next deal.
	BotDelay  time.Duration
	TickDelay time.Duration

	moveIndex    int
	botTimer     *time.Timer
	tickTimer    *time.Timer
	lastActivity time.Time

	log *logrus.Entry
}

// New wraps a game engine in a host actor.
func New(g engine.Game) *Host {
	return &Host{
		Game:         g,
		BotDelay:     1 * time.Second,
		TickDelay:    2 * time.Second,
		lastActivity: time.Now(),
		log: logrus.WithFields(logrus.Fields{
			"game_id": g.ID(),
			"variant": g.Variant(),
		}),
	}
}

// ID returns the hosted game's id without taking the lock; the id is
// immutable.
func (h *Host) ID() uuid.UUID { return h.Game.ID() }

// IdleSince reports how long the host has gone without activity.
func (h *Host) IdleSince() time.Duration {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return time.Since(h.lastActivity)
}

// AddPlayer seats a player in a still-forming game.
func (h *Host) AddPlayer(p models.Player) error {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	var err error
	switch g := h.Game.(type) {
	case *fish.Game:
		err = g.AddPlayer(p)
	case *callbreak.Game:
		err = g.AddPlayer(p)
	default:
		err = engine.Invalidf("variant %s does not accept players", h.Game.Variant())
	}
	if err != nil {
		return err
	}
	h.touch()
	h.broadcast(Event{
		Type:   EventPlayerJoined,
		GameID: h.Game.ID(),
		Actor:  p.ID,
		Payload: map[string]interface{}{
			"name":   p.Name,
			"is_bot": p.IsBot,
			"status": h.Game.Status(),
		},
	})
	h.persistSnapshot()
	return nil
}

// CreateTeams partitions a full Fish table into its two teams.
func (h *Host) CreateTeams(nameA, nameB string) error {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	g, ok := h.Game.(*fish.Game)
	if !ok {
		return engine.Invalidf("variant %s has no teams", h.Game.Variant())
	}
	if err := g.CreateTeams(nameA, nameB); err != nil {
		return err
	}
	h.touch()
	h.broadcast(Event{
		Type:    EventTeamsCreated,
		GameID:  h.Game.ID(),
		Payload: map[string]interface{}{"status": h.Game.Status()},
	})
	h.persistSnapshot()
	return nil
}

// Start deals the first hands and opens play.
func (h *Host) Start() error {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return h.startDealLocked()
}

// startDealLocked deals the next hands for the variant. Assumes lock held.
func (h *Host) startDealLocked() error {
	switch g := h.Game.(type) {
	case *fish.Game:
		hands, err := g.Deal()
		if err != nil {
			return err
		}
		h.sendHands(hands)
	case *callbreak.Game:
		hands, err := g.StartDeal()
		if err != nil {
			return err
		}
		h.sendHands(hands)
	default:
		return engine.Invalidf("variant %s cannot be dealt", h.Game.Variant())
	}
	h.moveIndex++
	h.touch()
	h.syncAllLocked()
	h.persistSnapshot()
	h.scheduleBotMove()
	return nil
}

// sendHands privately reveals each seat its dealt hand.
func (h *Host) sendHands(hands map[uuid.UUID]deck.Hand) {
	if h.BroadcastToPlayerFn == nil {
		return
	}
	for id, hand := range hands {
		h.BroadcastToPlayerFn(id, Event{
			Type:   EventHandDealt,
			GameID: h.Game.ID(),
			Actor:  id,
			State:  hand,
		})
	}
}

// Submit validates and executes one move on behalf of a player.
func (h *Host) Submit(mv models.Move) (models.MoveRecord, error) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return h.submitLocked(mv)
}

// submitLocked runs a move through the engine and fans out the result.
// Assumes lock held; bot timers re-enter through here.
func (h *Host) submitLocked(mv models.Move) (models.MoveRecord, error) {
	if h.Game.Status().Terminal() {
		return models.MoveRecord{}, engine.Invalidf("game %s is completed", h.Game.ID())
	}
	rec, err := h.Game.Apply(mv)
	if err != nil {
		if engine.IsInvariant(err) {
			// An invariant failure is a bug in the engine, not user input.
			// Log loudly; the actor keeps serving.
			h.log.WithError(err).Error("engine invariant violated")
		} else if h.BroadcastToPlayerFn != nil {
			h.BroadcastToPlayerFn(mv.Actor(), Event{
				Type:    EventMoveRejected,
				GameID:  h.Game.ID(),
				Actor:   mv.Actor(),
				Payload: map[string]interface{}{"kind": mv.Kind(), "reason": err.Error()},
			})
		}
		return models.MoveRecord{}, err
	}

	h.moveIndex++
	h.touch()
	h.publishRecord(rec)
	h.broadcast(Event{
		Type:   EventMoveApplied,
		GameID: h.Game.ID(),
		Actor:  rec.Actor,
		Payload: map[string]interface{}{
			"kind":    rec.Move.Kind(),
			"success": rec.Success,
			"status":  h.Game.Status(),
			"turn":    h.Game.CurrentTurn(),
		},
	})
	h.afterTransition()
	return rec, nil
}

// afterTransition persists and schedules whatever the new state calls for.
// Persistence and fan-out happen strictly after the transition itself.
func (h *Host) afterTransition() {
	h.persistSnapshot()
	switch {
	case h.Game.Status().Terminal():
		h.finishLocked()
	case h.Game.Status() == models.StatusRoundCompleted:
		h.broadcast(Event{
			Type:    EventRoundCompleted,
			GameID:  h.Game.ID(),
			Payload: map[string]interface{}{"status": h.Game.Status()},
		})
		h.scheduleDealRollover()
	default:
		h.scheduleBotMove()
	}
}

// finishLocked fans out the end of the game and records the result.
func (h *Host) finishLocked() {
	h.stopTimers()
	h.broadcast(Event{
		Type:    EventGameEnd,
		GameID:  h.Game.ID(),
		Payload: map[string]interface{}{"status": h.Game.Status()},
	})
	if h.Results != nil {
		gameID, variant := h.Game.ID(), h.Game.Variant()
		results := h.finalResults()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.Results.RecordResults(ctx, gameID, variant, results); err != nil {
				h.log.WithError(err).Error("failed to record game results")
			}
		}()
	}
	h.log.Info("game completed")
}

// finalResults flattens the variant's scoring into per-player standings.
// Winners are everyone sharing the top score (for Fish, the top team score).
func (h *Host) finalResults() []PlayerResult {
	scores := make(map[uuid.UUID]int)
	switch g := h.Game.(type) {
	case *fish.Game:
		st := g.State()
		for _, p := range st.Players {
			if team, ok := st.TeamOf(p.ID); ok {
				scores[p.ID] = team.Score
			}
		}
	case *callbreak.Game:
		st := g.State()
		for _, p := range st.Players {
			scores[p.ID] = st.Scores[p.ID]
		}
	default:
		return nil
	}
	top := 0
	first := true
	for _, s := range scores {
		if first || s > top {
			top, first = s, false
		}
	}
	out := make([]PlayerResult, 0, len(scores))
	for _, p := range h.Game.Players() {
		out = append(out, PlayerResult{PlayerID: p.ID, Score: scores[p.ID], Won: scores[p.ID] == top})
	}
	return out
}

// scheduleBotMove arms the bot timer when the player on turn is a bot. Any
// previous timer is stopped first, so timers never stack; the callback
// validates moveIndex to discard stale firings.
func (h *Host) scheduleBotMove() {
	turn := h.Game.CurrentTurn()
	if turn == uuid.Nil {
		return
	}
	var bot bool
	for _, p := range h.Game.Players() {
		if p.ID == turn {
			bot = p.IsBot
			break
		}
	}
	if !bot {
		return
	}
	if h.botTimer != nil {
		h.botTimer.Stop()
	}
	idx := h.moveIndex
	h.botTimer = time.AfterFunc(h.BotDelay, func() {
		h.Mu.Lock()
		defer h.Mu.Unlock()
		if h.moveIndex != idx || h.Game.Status().Terminal() {
			// A player action got in first; this firing is stale.
			return
		}
		mv, ok := h.Game.SuggestBotMove(turn)
		if !ok {
			h.log.WithField("player_id", turn).Warn("bot on turn has no move")
			return
		}
		if _, err := h.submitLocked(mv); err != nil {
			h.log.WithError(err).WithField("player_id", turn).Error("bot move rejected")
		}
	})
}

// scheduleDealRollover arms the tick that rolls a completed Callbreak round
// into the next deal.
func (h *Host) scheduleDealRollover() {
	if h.tickTimer != nil {
		h.tickTimer.Stop()
	}
	idx := h.moveIndex
	h.tickTimer = time.AfterFunc(h.TickDelay, func() {
		h.Mu.Lock()
		defer h.Mu.Unlock()
		if h.moveIndex != idx || h.Game.Status() != models.StatusRoundCompleted {
			return
		}
		if err := h.startDealLocked(); err != nil {
			h.log.WithError(err).Error("failed to start next deal")
		}
	})
}

func (h *Host) stopTimers() {
	if h.botTimer != nil {
		h.botTimer.Stop()
	}
	if h.tickTimer != nil {
		h.tickTimer.Stop()
	}
}

// SyncPlayer privately sends one player their current redacted view, used on
// connect and reconnect.
func (h *Host) SyncPlayer(playerID uuid.UUID) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	h.syncPlayerLocked(playerID)
}

func (h *Host) syncPlayerLocked(playerID uuid.UUID) {
	if h.BroadcastToPlayerFn == nil {
		return
	}
	h.BroadcastToPlayerFn(playerID, Event{
		Type:   EventSyncState,
		GameID: h.Game.ID(),
		State:  h.Game.RedactedState(playerID),
	})
}

// syncAllLocked pushes every seat its private view, e.g. after a deal.
func (h *Host) syncAllLocked() {
	for _, p := range h.Game.Players() {
		h.syncPlayerLocked(p.ID)
	}
}

// Snapshot serializes the hosted game under the lock.
func (h *Host) Snapshot() ([]byte, error) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return h.Game.Snapshot()
}

// persistSnapshot saves the current snapshot asynchronously. The bytes are
// produced under the lock; only the write leaves it.
func (h *Host) persistSnapshot() {
	if h.Snapshots == nil {
		return
	}
	data, err := h.Game.Snapshot()
	if err != nil {
		h.log.WithError(err).Error("failed to serialize snapshot")
		return
	}
	gameID, variant, status := h.Game.ID(), h.Game.Variant(), h.Game.Status()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Snapshots.SaveSnapshot(ctx, gameID, variant, status, data); err != nil {
			h.log.WithError(err).Error("failed to persist snapshot")
		}
	}()
}

// publishRecord pushes one move record onto the historian queue.
func (h *Host) publishRecord(rec models.MoveRecord) {
	entry := cache.MoveRecordEntry{
		GameID:    h.Game.ID(),
		Variant:   h.Game.Variant(),
		MoveIndex: h.moveIndex,
		Record:    rec,
		Timestamp: time.Now().UnixMilli(),
	}
	go func() {
		if cache.Rdb == nil {
			// Redis is optional in development; the snapshot still persists.
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishMoveRecord(ctx, entry); err != nil {
			h.log.WithError(err).Error("failed to publish move record")
		}
	}()
}

func (h *Host) broadcast(ev Event) {
	if h.BroadcastFn != nil {
		h.BroadcastFn(ev)
	}
}

func (h *Host) touch() {
	h.lastActivity = time.Now()
}
