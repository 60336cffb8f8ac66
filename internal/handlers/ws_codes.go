// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used within the game handlers. These
// provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
	InvalidPlayerError  = 3001 // Player ID was missing, malformed, or not seated in the game.
	GameNotFoundError   = 3002 // Target game ID specified in the WS URL does not exist.
)
