// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cardtable/cardtable/internal/callbreak"
	"github.com/cardtable/cardtable/internal/engine"
	"github.com/cardtable/cardtable/internal/fish"
	"github.com/cardtable/cardtable/internal/host"
	"github.com/cardtable/cardtable/internal/models"
)

// createGameRequest configures a new game. Bots names seats filled with
// bots at creation time; remaining seats are joined over WebSocket.
type createGameRequest struct {
	Variant string   `json:"variant"`
	Bots    []string `json:"bots,omitempty"`
	Deals   int      `json:"deals,omitempty"` // callbreak only
}

// CreateGameHandler creates a game of the requested variant with the caller
// seated as creator, registers the host, and returns its id.
func (gs *GameServer) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	creator := models.Player{ID: userID, Name: "Player 1"}
	var g engine.Game
	switch req.Variant {
	case fish.Variant, "":
		g = fish.NewGame(creator, fish.DefaultConfig)
	case callbreak.Variant:
		cfg := callbreak.DefaultConfig
		if req.Deals > 0 {
			cfg.Deals = req.Deals
		}
		g = callbreak.NewGame(creator, cfg)
	default:
		http.Error(w, fmt.Sprintf("unknown variant %q", req.Variant), http.StatusBadRequest)
		return
	}

	h := host.New(g)
	gs.Store.Add(h)

	for i, name := range req.Bots {
		if name == "" {
			name = fmt.Sprintf("Bot %d", i+1)
		}
		bot := models.Player{ID: uuid.New(), Name: name, IsBot: true}
		if err := h.AddPlayer(bot); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	gs.Logger.WithField("game_id", g.ID()).WithField("variant", g.Variant()).Info("game created")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"game_id": g.ID(),
		"variant": g.Variant(),
		"status":  g.Status(),
	})
}

// GameStateHandler returns the caller's redacted view of a game over plain
// HTTP, mainly for polling clients and debugging.
func (gs *GameServer) GameStateHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/game/state/")
	gameID, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	h, err := gs.Store.GetOrRehydrate(r.Context(), gameID)
	if err != nil {
		if engine.IsRejection(err) {
			http.Error(w, "game not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to load game", http.StatusInternalServerError)
		}
		return
	}

	h.Mu.Lock()
	view := h.Game.RedactedState(userID)
	h.Mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}
