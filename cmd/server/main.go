// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/cardtable/cardtable/internal/auth"
	"github.com/cardtable/cardtable/internal/cache"
	"github.com/cardtable/cardtable/internal/database"
	"github.com/cardtable/cardtable/internal/handlers"
	"github.com/cardtable/cardtable/internal/host"
	"github.com/cardtable/cardtable/internal/middleware"
)

func main() {
	logger := logrus.New()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := auth.Init(); err != nil {
		log.Fatalf("auth init failed: %v", err)
	}
	database.ConnectDB()
	if err := cache.ConnectRedis(); err != nil {
		// Without Redis the historian queue is dropped; games still run.
		logger.WithError(err).Warn("redis unavailable, move records will not be queued")
	}

	gameStore := database.GameStore{}
	store := host.NewStore()
	store.Loader = gameStore
	store.Configure = func(h *host.Host) {
		h.Snapshots = gameStore
		h.Results = gameStore
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartJanitor(ctx, 1*time.Minute, 30*time.Minute)

	gs := handlers.NewGameServer(logger, store)

	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.Handle("/user/login", handlers.LoginHandler(logger))
	mux.HandleFunc("/user/claim", handlers.ClaimAccountHandler)

	mux.Handle("/game/create", logged(http.HandlerFunc(gs.CreateGameHandler)))
	mux.Handle("/game/state/", logged(http.HandlerFunc(gs.GameStateHandler)))
	mux.Handle("/game/ws/", logged(gs.GameWSHandler()))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
