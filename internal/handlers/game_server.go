// internal/handlers/game_server.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardtable/cardtable/internal/host"
)

// GameServer owns the host store and the per-game WebSocket connection
// registry. Broadcast callbacks installed on each host resolve connections
// through the registry, so reconnects swap the underlying socket without
// the host noticing.
type GameServer struct {
	Store  *host.Store
	Logger *logrus.Logger

	mu    sync.Mutex
	conns map[uuid.UUID]map[uuid.UUID]*websocket.Conn // game id -> player id -> conn
}

// NewGameServer builds a server around a host store. The store's Configure
// hook is pointed at the registry so every host, freshly created or
// rehydrated, fans out through the same connections.
func NewGameServer(logger *logrus.Logger, store *host.Store) *GameServer {
	gs := &GameServer{
		Store:  store,
		Logger: logger,
		conns:  make(map[uuid.UUID]map[uuid.UUID]*websocket.Conn),
	}
	prev := store.Configure
	store.Configure = func(h *host.Host) {
		if prev != nil {
			prev(h)
		}
		gs.wireHost(h)
	}
	return gs
}

// wireHost installs the registry-backed broadcast callbacks on a host.
func (gs *GameServer) wireHost(h *host.Host) {
	gameID := h.ID()
	h.BroadcastFn = func(ev host.Event) {
		gs.broadcast(gameID, ev)
	}
	h.BroadcastToPlayerFn = func(playerID uuid.UUID, ev host.Event) {
		gs.sendToPlayer(gameID, playerID, ev)
	}
}

// register binds a player's live connection, replacing any stale one.
func (gs *GameServer) register(gameID, playerID uuid.UUID, c *websocket.Conn) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.conns[gameID] == nil {
		gs.conns[gameID] = make(map[uuid.UUID]*websocket.Conn)
	}
	gs.conns[gameID][playerID] = c
}

// unregister drops a player's connection if it is still the registered one.
func (gs *GameServer) unregister(gameID, playerID uuid.UUID, c *websocket.Conn) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.conns[gameID][playerID] == c {
		delete(gs.conns[gameID], playerID)
		if len(gs.conns[gameID]) == 0 {
			delete(gs.conns, gameID)
		}
	}
}

// broadcast fans an event out to every connection of a game. The host calls
// this while holding its own lock, so the write happens on a goroutine with
// its own timeout.
func (gs *GameServer) broadcast(gameID uuid.UUID, ev host.Event) {
	gs.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(gs.conns[gameID]))
	for _, c := range gs.conns[gameID] {
		targets = append(targets, c)
	}
	gs.mu.Unlock()

	if len(targets) == 0 {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		gs.Logger.WithError(err).WithField("game_id", gameID).Error("failed to marshal broadcast event")
		return
	}
	go func() {
		for _, c := range targets {
			gs.write(c, data)
		}
	}()
}

// sendToPlayer delivers a private event to one seat, if connected.
func (gs *GameServer) sendToPlayer(gameID, playerID uuid.UUID, ev host.Event) {
	gs.mu.Lock()
	c := gs.conns[gameID][playerID]
	gs.mu.Unlock()
	if c == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		gs.Logger.WithError(err).WithField("game_id", gameID).Error("failed to marshal private event")
		return
	}
	go gs.write(c, data)
}

func (gs *GameServer) write(c *websocket.Conn, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, data); err != nil {
		gs.Logger.WithError(err).Warn("failed to write websocket message")
	}
}
