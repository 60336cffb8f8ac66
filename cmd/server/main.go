// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/palacegame/palace/internal/cache"
	"github.com/palacegame/palace/internal/database"
	"github.com/palacegame/palace/internal/handlers"
	"github.com/palacegame/palace/internal/middleware"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := database.ConnectDB(); err != nil {
		logger.WithError(err).Warn("Postgres unavailable; game results are not persisted")
	}
	if err := cache.ConnectRedis(); err != nil {
		logger.WithError(err).Warn("Redis unavailable; snapshots and move records are disabled")
	}

	srv := handlers.NewGameServer(logger)

	mux := http.NewServeMux()

	// game endpoints
	mux.Handle("/game/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateGameHandler(srv),
	)))
	mux.Handle("/game/state/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameStateHandler(srv),
	)))
	mux.Handle("/game/rollback", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.RollbackHandler(srv),
	)))

	// game websocket; not behind LogMiddleware, the status recorder
	// would mask the Hijacker the upgrade needs
	mux.Handle("/game/ws/", http.HandlerFunc(
		handlers.GameWSHandler(logger, srv),
	))

	mux.Handle("/health", http.HandlerFunc(handlers.HealthHandler(srv)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
