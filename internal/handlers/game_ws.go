// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/host"
	"github.com/cardtable/cardtable/internal/middleware"
	"github.com/cardtable/cardtable/internal/models"
)

// gameMessage is one incoming WebSocket frame. Type selects the action; the
// remaining fields are read per type.
type gameMessage struct {
	Type string `json:"type"`

	// join
	Name string `json:"name,omitempty"`

	// create_teams
	TeamA string `json:"team_a,omitempty"`
	TeamB string `json:"team_b,omitempty"`

	// ask / play_card
	Card models.Card `json:"card,omitempty"`

	// ask
	Target uuid.UUID `json:"target,omitempty"`

	// claim
	Book   models.Book               `json:"book,omitempty"`
	Owners map[models.Card]uuid.UUID `json:"owners,omitempty"`

	// transfer
	To uuid.UUID `json:"to,omitempty"`

	// declare
	Wins int `json:"wins,omitempty"`
}

// GameWSHandler upgrades to WebSocket for one game. It authenticates the
// caller (creating an ephemeral guest when needed), registers the connection
// for fan-out, sends the caller their current view, and then reads game
// messages until the connection closes.
func (gs *GameServer) GameWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/game/ws/")
		if i := strings.Index(idStr, "/"); i >= 0 {
			idStr = idStr[:i]
		}
		gameID, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "invalid game_id in path (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}

		h, err := gs.Store.GetOrRehydrate(r.Context(), gameID)
		if err != nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			gs.Logger.WithError(err).Warn("websocket auth failed")
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			gs.Logger.WithError(err).WithField("game_id", gameID).Warn("websocket accept failed")
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exit")

		if c.Subprotocol() != "game" {
			c.Close(BadSubprotocolError, "client must use the 'game' subprotocol")
			return
		}
		middleware.LogWebSocketConnect(gs.Logger, r.RemoteAddr, r.URL.Path)

		gs.register(gameID, userID, c)
		defer gs.unregister(gameID, userID, c)

		// A seated player reconnecting gets their view immediately.
		if seated(h, userID) {
			h.SyncPlayer(userID)
		}

		readErr := gs.readGameMessages(r.Context(), c, h, userID)
		middleware.LogWebSocketDisconnect(gs.Logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// seated reports whether the user occupies a seat in the hosted game.
func seated(h *host.Host, userID uuid.UUID) bool {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	for _, p := range h.Game.Players() {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// readGameMessages is the per-connection read loop. Moves go through the
// host actor; rejected moves come back privately via the host's fan-out, so
// only transport-level problems are answered here directly.
func (gs *GameServer) readGameMessages(ctx context.Context, c *websocket.Conn, h *host.Host, userID uuid.UUID) error {
	log := gs.Logger.WithFields(logrus.Fields{"game_id": h.ID(), "user_id": userID})
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg gameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Warn("invalid websocket payload")
			sendWsError(c, "invalid JSON payload")
			continue
		}

		switch msg.Type {
		case "join":
			name := msg.Name
			if name == "" {
				name = "Guest"
			}
			if err := h.AddPlayer(models.Player{ID: userID, Name: name}); err != nil {
				sendWsError(c, err.Error())
				continue
			}
			h.SyncPlayer(userID)

		case "create_teams":
			if err := h.CreateTeams(msg.TeamA, msg.TeamB); err != nil {
				sendWsError(c, err.Error())
			}

		case "start":
			if err := h.Start(); err != nil {
				sendWsError(c, err.Error())
			}

		case "sync":
			h.SyncPlayer(userID)

		case "ask":
			gs.submit(log, h, models.Ask{Asker: userID, Target: msg.Target, Card: msg.Card})

		case "claim":
			gs.submit(log, h, models.Claim{Claimer: userID, Book: msg.Book, Owners: msg.Owners})

		case "transfer":
			gs.submit(log, h, models.Transfer{From: userID, To: msg.To})

		case "declare":
			gs.submit(log, h, models.Declare{Player: userID, Wins: msg.Wins})

		case "play_card":
			gs.submit(log, h, models.PlayCard{Player: userID, Card: msg.Card})

		case "ping":
			sendWsMessage(c, map[string]string{"type": "pong"})

		default:
			sendWsError(c, fmt.Sprintf("unknown message type %q", msg.Type))
		}
	}
}

// submit runs a move through the host. Rejections already reached the actor
// privately; anything else is an engine bug and gets logged.
func (gs *GameServer) submit(log *logrus.Entry, h *host.Host, mv models.Move) {
	if _, err := h.Submit(mv); err != nil && !engine.IsRejection(err) {
		log.WithError(err).WithField("kind", mv.Kind()).Error("move failed")
	}
}

// sendWsMessage writes a JSON message with its own timeout, outside any
// host lock.
func sendWsMessage(c *websocket.Conn, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Write(ctx, websocket.MessageText, data)
}

// sendWsError sends a structured error frame to the client.
func sendWsError(c *websocket.Conn, reason string) {
	sendWsMessage(c, map[string]interface{}{
		"type":    "error",
		"message": reason,
	})
}
