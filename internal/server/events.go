package server

// GameEventType is an enum-like type for events broadcast to clients.
type GameEventType string

const (
	EventGameState          GameEventType = "game_state"          // Per-viewer redacted snapshot, sent privately.
	EventPlayerTurn         GameEventType = "player_turn"         // Public notification of whose turn it is.
	EventSpecialEffect      GameEventType = "special_effect"      // Public notification of a triggered effect (burn, reset, ...).
	EventPlayerReconnected  GameEventType = "player_reconnected"  // Public notification a player came back.
	EventPlayerDisconnected GameEventType = "player_disconnected" // Public notification a player dropped.
	EventRollback           GameEventType = "rollback"            // Public notification the state was rolled back.
	EventGameEnd            GameEventType = "game_end"            // Public notification the game is over + results.
	EventError              GameEventType = "error"               // Private rejection of an action.
)

// GameEvent is the wire envelope for everything the server pushes to
// clients. Payload keys are event-specific.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}
