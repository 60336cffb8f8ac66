package models

import "github.com/google/uuid"

// ActionType enumerates the inbound actions the engine accepts.
type ActionType string

const (
	ActionPlayCards    ActionType = "PLAY_CARDS"
	ActionPickupPile   ActionType = "PICKUP_PILE"
	ActionSwapCards    ActionType = "SWAP_CARDS"
	ActionConfirmReady ActionType = "CONFIRM_READY"

	// ActionGameEnd is emitted by the server, never accepted from
	// players; it closes out the historian's record for a game.
	ActionGameEnd ActionType = "GAME_END"
)

// GameAction is a single inbound player (or bot, or scheduler-forced)
// action. The transport layer guarantees PlayerID is the genuine sender.
type GameAction struct {
	Type      ActionType `json:"type"`
	PlayerID  uuid.UUID  `json:"playerId"`
	Cards     []Card     `json:"cards,omitempty"`
	Target    uuid.UUID  `json:"target,omitempty"`
	Timestamp int64      `json:"timestamp"`

	// Forced marks an action injected by the turn-timeout scheduler
	// rather than chosen by the player.
	Forced bool `json:"forced,omitempty"`
}

// EffectType enumerates the special-rank effects a play can trigger.
type EffectType string

const (
	EffectBurn        EffectType = "BURN"
	EffectReset       EffectType = "RESET"
	EffectTransparent EffectType = "TRANSPARENT"
	EffectSkip        EffectType = "SKIP"
)

// SpecialEffect records one triggered effect for rendering/broadcast.
type SpecialEffect struct {
	Type      EffectType `json:"type"`
	Timestamp int64      `json:"timestamp"`
}
