package host

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/cardtable/internal/callbreak"
	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/fish"
	"github.com/cardtable/cardtable/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []Event
	playerEvents map[uuid.UUID][]Event
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[uuid.UUID][]Event)}
}

func (mb *mockBroadcaster) broadcastFn(ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID uuid.UUID, ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) lastEvent() *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.allEvents) == 0 {
		return nil
	}
	return &mb.allEvents[len(mb.allEvents)-1]
}

func (mb *mockBroadcaster) eventsOfType(typ string) []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []Event
	for _, ev := range mb.allEvents {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) lastPlayerEvent(playerID uuid.UUID) *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.playerEvents[playerID]
	if len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

// memorySnapshots is an in-memory SnapshotSaver/SnapshotLoader pair.
type memorySnapshots struct {
	mu    sync.Mutex
	saved map[uuid.UUID]savedSnapshot
}

type savedSnapshot struct {
	variant string
	data    []byte
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{saved: make(map[uuid.UUID]savedSnapshot)}
}

func (m *memorySnapshots) SaveSnapshot(_ context.Context, gameID uuid.UUID, variant string, _ models.Status, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[gameID] = savedSnapshot{variant: variant, data: data}
	return nil
}

func (m *memorySnapshots) LoadSnapshot(_ context.Context, gameID uuid.UUID) (string, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.saved[gameID]
	if !ok {
		return "", nil, engine.NotFound("game snapshot", gameID.String())
	}
	return snap.variant, snap.data, nil
}

// setupFishHost builds a dealt Fish game behind a host with mock fan-out.
func setupFishHost(t *testing.T, botSeat int) (*Host, []models.Player, *mockBroadcaster) {
	t.Helper()
	players := make([]models.Player, 4)
	for i := range players {
		players[i] = models.Player{ID: uuid.New(), Name: string(rune('A' + i)), IsBot: i == botSeat}
	}
	h := New(fish.NewGame(players[0], fish.DefaultConfig))
	h.BotDelay = 10 * time.Millisecond
	mb := newMockBroadcaster()
	h.BroadcastFn = mb.broadcastFn
	h.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	for _, p := range players[1:] {
		require.NoError(t, h.AddPlayer(p))
	}
	require.NoError(t, h.CreateTeams("Odds", "Evens"))
	require.NoError(t, h.Start())
	require.Equal(t, models.StatusInProgress, h.Game.Status())
	return h, players, mb
}

// legalAsk finds a valid ask for whoever holds the turn.
func legalAsk(t *testing.T, h *Host) models.Ask {
	t.Helper()
	g := h.Game.(*fish.Game)
	st := g.State()
	turn := st.Turn
	opp, ok := st.OpposingTeam(turn)
	require.True(t, ok)
	hand := st.Hands[turn]
	for _, target := range opp.Members {
		if len(st.Hands[target]) == 0 {
			continue
		}
		for _, held := range hand {
			for _, c := range models.BookCards(held.Book()) {
				if !hand.Contains(c) {
					return models.Ask{Asker: turn, Target: target, Card: c}
				}
			}
		}
	}
	t.Fatal("no legal ask available")
	return models.Ask{}
}

func TestSubmitBroadcastsAppliedMoves(t *testing.T) {
	h, _, mb := setupFishHost(t, -1)

	rec, err := h.Submit(legalAsk(t, h))
	require.NoError(t, err)

	applied := mb.eventsOfType(EventMoveApplied)
	require.Len(t, applied, 1)
	assert.Equal(t, rec.Actor, applied[0].Actor)
	assert.Equal(t, models.MoveAsk, applied[0].Payload["kind"])
	assert.Equal(t, rec.Success, applied[0].Payload["success"])
}

func TestRejectedMoveIsPrivate(t *testing.T) {
	h, players, mb := setupFishHost(t, -1)

	// Seat 3 never holds the opening turn.
	offTurn := players[3].ID
	card := h.Game.(*fish.Game).State().Hands[players[0].ID][0]
	_, err := h.Submit(models.Ask{Asker: offTurn, Target: players[0].ID, Card: card})
	require.Error(t, err)
	assert.True(t, engine.IsRejection(err))

	assert.Empty(t, mb.eventsOfType(EventMoveApplied), "rejections are not broadcast")
	ev := mb.lastPlayerEvent(offTurn)
	require.NotNil(t, ev)
	assert.Equal(t, EventMoveRejected, ev.Type)
	assert.NotEmpty(t, ev.Payload["reason"])
}

func TestDealSendsPrivateHands(t *testing.T) {
	h, players, mb := setupFishHost(t, -1)
	_ = h

	for _, p := range players {
		evs := mb.playerEvents[p.ID]
		var dealt, synced bool
		for _, ev := range evs {
			if ev.Type == EventHandDealt {
				dealt = true
			}
			if ev.Type == EventSyncState {
				synced = true
			}
		}
		assert.True(t, dealt, "every seat learns its own hand")
		assert.True(t, synced, "every seat gets a redacted sync")
	}
}

func TestBotMovesWhenOnTurn(t *testing.T) {
	// Seat 0 holds the opening turn and is a bot: the armed timer must make
	// it move without any player input.
	h, _, mb := setupFishHost(t, 0)

	require.Eventually(t, func() bool {
		return len(mb.eventsOfType(EventMoveApplied)) > 0
	}, 2*time.Second, 10*time.Millisecond, "the bot timer drives the game forward")

	ev := mb.eventsOfType(EventMoveApplied)[0]
	assert.Equal(t, h.Game.Players()[0].ID, ev.Actor)
}

func TestStaleBotTimerIsIgnored(t *testing.T) {
	// Seat 1 is the bot. Once the turn lands on it a timer is armed; bumping
	// the move index before it fires must make the firing a no-op.
	h, players, mb := setupFishHost(t, 1)
	h.BotDelay = 60 * time.Millisecond
	bot := players[1].ID

	for i := 0; h.Game.CurrentTurn() != bot; i++ {
		require.Less(t, i, 500, "asks must eventually fail over to the bot seat")
		_, err := h.Submit(legalAsk(t, h))
		require.NoError(t, err)
	}

	h.Mu.Lock()
	h.moveIndex++
	baseline := len(mb.eventsOfType(EventMoveApplied))
	h.Mu.Unlock()

	time.Sleep(200 * time.Millisecond)
	assert.Len(t, mb.eventsOfType(EventMoveApplied), baseline,
		"a stale timer firing must not move the game")
}

func TestCompletedGameRefusesMoves(t *testing.T) {
	h, players, _ := setupFishHost(t, -1)

	// Force completion through the engine, then submit.
	g := h.Game.(*fish.Game)
	for g.Status() != models.StatusCompleted {
		st := g.State()
		// Claim a book the turn holder has cards of, with ground-truth owners.
		var book models.Book
		for _, held := range st.Hands[st.Turn] {
			if _, settled := st.Settled[held.Book()]; !settled {
				book = held.Book()
				break
			}
		}
		owners := make(map[models.Card]uuid.UUID)
		for _, c := range models.BookCards(book) {
			for id, hand := range st.Hands {
				if hand.Contains(c) {
					owners[c] = id
				}
			}
		}
		_, err := g.Apply(models.Claim{Claimer: st.Turn, Book: book, Owners: owners})
		require.NoError(t, err)
	}

	_, err := h.Submit(models.Ask{Asker: players[0].ID, Target: players[1].ID})
	require.Error(t, err)
	assert.True(t, engine.IsRejection(err))
}

func TestStoreEvictAndRehydrate(t *testing.T) {
	snaps := newMemorySnapshots()
	store := NewStore()
	store.Loader = snaps
	store.Configure = func(h *Host) {
		h.Snapshots = snaps
	}

	players := make([]models.Player, 4)
	for i := range players {
		players[i] = models.Player{ID: uuid.New(), Name: string(rune('A' + i))}
	}
	h := New(fish.NewGame(players[0], fish.DefaultConfig))
	store.Add(h)
	for _, p := range players[1:] {
		require.NoError(t, h.AddPlayer(p))
	}
	require.NoError(t, h.CreateTeams("Odds", "Evens"))
	require.NoError(t, h.Start())
	rec, err := h.Submit(legalAsk(t, h))
	require.NoError(t, err)

	// The async snapshot write carrying the move must land before eviction.
	require.Eventually(t, func() bool {
		_, data, err := snaps.LoadSnapshot(context.Background(), h.ID())
		if err != nil {
			return false
		}
		g, err := fish.Restore(data)
		return err == nil && len(g.State().History) == 1
	}, time.Second, 5*time.Millisecond)

	store.Delete(h.ID())
	_, ok := store.Get(h.ID())
	require.False(t, ok)

	restored, err := store.GetOrRehydrate(context.Background(), h.ID())
	require.NoError(t, err)
	assert.Equal(t, h.ID(), restored.ID())
	assert.Equal(t, h.Game.Status(), restored.Game.Status())
	assert.Equal(t, h.Game.CurrentTurn(), restored.Game.CurrentTurn())
	assert.Len(t, restored.Game.(*fish.Game).State().History, 1)
	assert.Equal(t, rec.Move.Kind(), restored.Game.(*fish.Game).State().History[0].Move.Kind())
}

func TestStoreRehydrateUnknownGame(t *testing.T) {
	store := NewStore()
	store.Loader = newMemorySnapshots()
	_, err := store.GetOrRehydrate(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, engine.IsRejection(err))
}

func TestCallbreakRolloverTick(t *testing.T) {
	players := make([]models.Player, 4)
	for i := range players {
		players[i] = models.Player{ID: uuid.New(), Name: string(rune('A' + i)), IsBot: true}
	}
	cfg := callbreak.DefaultConfig
	cfg.Deals = 2
	h := New(callbreak.NewGame(players[0], cfg))
	h.BotDelay = time.Millisecond
	h.TickDelay = 5 * time.Millisecond
	mb := newMockBroadcaster()
	h.BroadcastFn = mb.broadcastFn
	h.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	for _, p := range players[1:] {
		require.NoError(t, h.AddPlayer(p))
	}
	require.NoError(t, h.Start())

	// All four seats are bots: the timers alone must carry the game through
	// both deals, including the round rollover tick between them.
	require.Eventually(t, func() bool {
		h.Mu.Lock()
		defer h.Mu.Unlock()
		return h.Game.Status().Terminal()
	}, 10*time.Second, 20*time.Millisecond)

	assert.NotEmpty(t, mb.eventsOfType(EventRoundCompleted))
	assert.NotEmpty(t, mb.eventsOfType(EventGameEnd))
}
