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

	"github.com/palacegame/palace/internal/middleware"
	"github.com/palacegame/palace/internal/models"
	"github.com/palacegame/palace/internal/server"
)

// GameMessage is the structure for incoming WebSocket messages during a
// game. Cards name the played/swapped cards by ID; Timestamp is the
// client's action time and doubles as the rollback target.
type GameMessage struct {
	Type      string        `json:"type"`
	Cards     []MessageCard `json:"cards,omitempty"`
	Timestamp int64         `json:"timestamp,omitempty"`
}

// MessageCard identifies a card by ID only. Clients never dictate
// ranks or suits; the engine resolves IDs against its own state.
type MessageCard struct {
	ID string `json:"id"`
}

// GameWSHandler upgrades the HTTP connection to WebSocket for a
// specific game instance, verifies the player is seated in it,
// registers the connection, and runs the read loop.
//
// Path: /game/ws/{game_id}?player={player_id}. Player identity is
// asserted, not authenticated; access control is a proxy concern.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing game_id in path (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}
		gameID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "Invalid game_id format", http.StatusBadRequest)
			return
		}

		playerID, err := uuid.Parse(r.URL.Query().Get("player"))
		if err != nil {
			http.Error(w, "Missing or invalid player query parameter", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"palace"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "palace" {
			logger.Warnf("Client for game %s connected with invalid subprotocol: %s", gameID, c.Subprotocol())
			c.Close(websocket.StatusCode(BadSubprotocolError), "Client must use the 'palace' subprotocol.")
			return
		}

		gi, ok := gs.Store.GetGame(gameID)
		if !ok {
			logger.Warnf("Player %s connected for unknown game %s. Closing connection.", playerID, gameID)
			c.Close(websocket.StatusCode(GameNotFoundError), "Game not found.")
			return
		}

		// Verify the asserted player is seated in this game.
		gi.Mu.Lock()
		seated := gi.State.Player(playerID) != nil
		gameOver := gi.GameOver
		if gi.BroadcastFn == nil {
			gi.BroadcastFn = createBroadcastFunc(gi, logger)
		}
		if gi.BroadcastToPlayerFn == nil {
			gi.BroadcastToPlayerFn = createBroadcastToPlayerFunc(gi, logger)
		}
		gi.Mu.Unlock()

		if !seated {
			logger.Warnf("Player %s is not seated in game %s. Closing connection.", playerID, gameID)
			c.Close(websocket.StatusCode(InvalidPlayerError), "You are not a player in this game.")
			return
		}
		if gameOver {
			c.Close(websocket.StatusNormalClosure, "Game has already ended.")
			return
		}

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)
		gi.HandleReconnect(playerID, c)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readGameMessages(ctx, c, gi, playerID, logger)

		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
		gi.HandleDisconnect(playerID)
	}
}

// createBroadcastFunc returns a function suitable for
// GameInstance.BroadcastFn. It snapshots the current connections under
// the instance lock, then marshals and writes asynchronously.
func createBroadcastFunc(gi *server.GameInstance, logger *logrus.Logger) func(ev server.GameEvent) {
	return func(ev server.GameEvent) {
		// Called while the instance lock is held: collect targets now,
		// write later off-thread so game logic never blocks on I/O.
		conns := make([]*websocket.Conn, 0, len(gi.Conns))
		for _, conn := range gi.Conns {
			if conn != nil {
				conns = append(conns, conn)
			}
		}

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal broadcast event (%s) for game %s: %v", ev.Type, gi.ID, err)
			return
		}

		go func(targets []*websocket.Conn, data []byte) {
			for _, conn := range targets {
				writeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				err := conn.Write(writeCtx, websocket.MessageText, data)
				cancel()
				if err != nil {
					logger.Warnf("Failed to write broadcast message in game %s: %v", gi.ID, err)
				}
			}
		}(conns, msgBytes)
	}
}

// createBroadcastToPlayerFunc returns a function suitable for
// GameInstance.BroadcastToPlayerFn.
func createBroadcastToPlayerFunc(gi *server.GameInstance, logger *logrus.Logger) func(playerID uuid.UUID, ev server.GameEvent) {
	return func(playerID uuid.UUID, ev server.GameEvent) {
		// Also called while the instance lock is held.
		conn := gi.Conns[playerID]
		if conn == nil {
			return
		}

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal private event (%s) for player %s in game %s: %v", ev.Type, playerID, gi.ID, err)
			return
		}

		go func(c *websocket.Conn, data []byte) {
			writeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := c.Write(writeCtx, websocket.MessageText, data); err != nil {
				logger.Warnf("Failed to write private message to player %s in game %s: %v", playerID, gi.ID, err)
			}
		}(conn, msgBytes)
	}
}

// readGameMessages continuously reads client messages, maps them to
// game actions and routes them into the instance. It exits on
// connection error, closure, or context cancellation.
func readGameMessages(ctx context.Context, c *websocket.Conn, gi *server.GameInstance, playerID uuid.UUID, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for player %s in game %s.", playerID, gi.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for player %s in game %s.", playerID, gi.ID)
			} else {
				logger.Warnf("Error reading from WebSocket for player %s in game %s: %v (Status: %d)", playerID, gi.ID, err, status)
			}
			return
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from player %s in game %s. Ignoring.", msgType, playerID, gi.ID)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON from player %s in game %s: %v. Data: %s", playerID, gi.ID, err, string(data))
			sendWsError(ctx, c, "Invalid JSON format.")
			continue
		}

		logger.Debugf("Received action '%s' from player %s in game %s.", msg.Type, playerID, gi.ID)

		switch msg.Type {
		case "play_cards", "pickup_pile", "swap_cards", "confirm_ready":
			gi.HandleAction(models.GameAction{
				Type:      messageActionType(msg.Type),
				PlayerID:  playerID,
				Cards:     messageCards(msg.Cards),
				Timestamp: msg.Timestamp,
			})

		case "rollback":
			if err := gi.Rollback(playerID, msg.Timestamp); err != nil {
				sendWsError(ctx, c, fmt.Sprintf("Rollback refused: %v", err))
			}

		case "ping":
			logger.Tracef("Received ping from player %s, sending pong.", playerID)
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})

		default:
			logger.Warnf("Unknown action type '%s' from player %s in game %s.", msg.Type, playerID, gi.ID)
			sendWsError(ctx, c, fmt.Sprintf("Unknown action type: %s", msg.Type))
		}

		select {
		case <-ctx.Done():
			logger.Infof("Context canceled after processing message for player %s in game %s.", playerID, gi.ID)
			return
		default:
		}
	}
}

func messageActionType(msgType string) models.ActionType {
	switch msgType {
	case "play_cards":
		return models.ActionPlayCards
	case "pickup_pile":
		return models.ActionPickupPile
	case "swap_cards":
		return models.ActionSwapCards
	default:
		return models.ActionConfirmReady
	}
}

// messageCards converts wire card references to engine card stubs. Only
// the ID carries meaning; the engine looks everything else up itself.
func messageCards(refs []MessageCard) []models.Card {
	out := make([]models.Card, 0, len(refs))
	for _, ref := range refs {
		id, err := uuid.Parse(ref.ID)
		if err != nil {
			continue
		}
		out = append(out, models.Card{ID: id})
	}
	return out
}

// sendWsMessage marshals a message and sends it to the WebSocket client
// with a write timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	if c == nil {
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("Error marshaling WebSocket message: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			logrus.Warnf("Error writing WebSocket message: %v (Status: %d)", err, status)
		}
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(ctx context.Context, c *websocket.Conn, errorMsg string) {
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}
