// internal/handlers/api.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/palacegame/palace/internal/cache"
	"github.com/palacegame/palace/internal/engine"
)

// CreateGameHandler handles POST /game/create.
//
// Request body:
//
//	{
//	  "players": [{"id": "<uuid>", "bot": false}, {"bot": true}],
//	  "rules":   {"jackSkips": false}
//	}
//
// Responds with the game ID and each seat's player ID so clients know
// which identity to present on the WebSocket.
func CreateGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}

		var req struct {
			Players []SeatRequest          `json:"players"`
			Rules   map[string]interface{} `json:"rules,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		gi, err := gs.CreateGame(req.Players, req.Rules)
		if err != nil {
			if errors.Is(err, engine.ErrInvalidPlayerCount) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			gs.Logger.WithError(err).Error("game creation failed")
			writeError(w, http.StatusInternalServerError, "could not create game")
			return
		}

		gi.Mu.Lock()
		seats := make([]map[string]interface{}, 0, len(gi.State.Players))
		for _, p := range gi.State.Players {
			seats = append(seats, map[string]interface{}{
				"id":  p.ID,
				"bot": p.IsBot,
			})
		}
		gi.Mu.Unlock()

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"gameId":  gi.ID,
			"players": seats,
		})
	}
}

// GameStateHandler handles GET /game/state/{game_id}?player={player_id},
// returning the requesting player's redacted view. Spectators (an
// unknown or absent player ID) get the fully redacted public view.
func GameStateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "GET required")
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/game/state/")
		gameID, err := uuid.Parse(strings.TrimSuffix(idStr, "/"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid game_id")
			return
		}

		viewerID, _ := uuid.Parse(r.URL.Query().Get("player"))

		gi, ok := gs.Store.GetGame(gameID)
		if !ok {
			// Recently finished games linger as Redis snapshots after
			// eviction from the live store.
			snapshot, err := cache.LoadSnapshot(r.Context(), gameID)
			if err != nil || snapshot == nil {
				writeError(w, http.StatusNotFound, "game not found")
				return
			}
			writeJSON(w, http.StatusOK, engine.RedactedFor(snapshot, viewerID))
			return
		}

		gi.Mu.Lock()
		view := engine.RedactedFor(gi.State, viewerID)
		gi.Mu.Unlock()

		writeJSON(w, http.StatusOK, view)
	}
}

// RollbackHandler handles POST /game/rollback with body
// {"gameId": "...", "playerId": "...", "timestamp": 1234}. The same
// authorization rules apply as for the WebSocket rollback message.
func RollbackHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}

		var req struct {
			GameID    uuid.UUID `json:"gameId"`
			PlayerID  uuid.UUID `json:"playerId"`
			Timestamp int64     `json:"timestamp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		gi, ok := gs.Store.GetGame(req.GameID)
		if !ok {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}

		if err := gi.Rollback(req.PlayerID, req.Timestamp); err != nil {
			switch {
			case errors.Is(err, engine.ErrRollbackNotAuthorized):
				writeError(w, http.StatusForbidden, err.Error())
			case errors.Is(err, engine.ErrRollbackNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			default:
				writeError(w, http.StatusConflict, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "rolled back"})
	}
}

// HealthHandler reports liveness plus the number of active games.
func HealthHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"activeGames": gs.Store.ActiveCount(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
