// internal/handlers/game_server.go
package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/palacegame/palace/internal/engine"
	"github.com/palacegame/palace/internal/server"
)

// retainAfterEnd is how long a finished game stays queryable before the
// store drops it.
const retainAfterEnd = 5 * time.Minute

// GameServer holds the live game store and creates new instances.
type GameServer struct {
	Store  *server.GameStore
	Logger *logrus.Logger
}

func NewGameServer(logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.New()
	}
	return &GameServer{
		Store:  server.NewGameStore(),
		Logger: logger,
	}
}

// SeatRequest names one participant in a game creation request. A nil
// ID means the server mints one (guests and bots).
type SeatRequest struct {
	ID  string `json:"id,omitempty"`
	Bot bool   `json:"bot,omitempty"`
}

// CreateGame builds, registers and starts a game. The first human seat
// hosts. Rule overrides are a decoded JSON map as accepted by
// engine.ParseRules.
func (gs *GameServer) CreateGame(seatReqs []SeatRequest, ruleOverrides map[string]interface{}) (*server.GameInstance, error) {
	seats := make([]engine.Seat, 0, len(seatReqs))
	hostID := uuid.Nil
	for _, sr := range seatReqs {
		id, err := uuid.Parse(sr.ID)
		if err != nil {
			id = uuid.New()
		}
		if hostID == uuid.Nil && !sr.Bot {
			hostID = id
		}
		seats = append(seats, engine.Seat{ID: id, Bot: sr.Bot})
	}
	if hostID == uuid.Nil && len(seats) > 0 {
		hostID = seats[0].ID
	}

	cfg := engine.DefaultConfig(hostID)
	rules, err := engine.ParseRules(ruleOverrides, cfg.Rules)
	if err != nil {
		return nil, err
	}
	cfg.Rules = rules

	gi, err := server.NewGameInstance(seats, cfg, gs.Logger)
	if err != nil {
		return nil, err
	}

	gi.OnGameEnd = func(gameID, winner uuid.UUID) {
		time.AfterFunc(retainAfterEnd, func() {
			gs.Store.DeleteGame(gameID)
		})
	}

	gs.Store.AddGame(gi)
	gi.Start()

	gs.Logger.WithFields(logrus.Fields{
		"game":  gi.ID,
		"seats": len(seats),
		"host":  hostID,
	}).Info("game created")
	return gi, nil
}
