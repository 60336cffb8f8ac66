package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// GameRules toggles the optional special-rank behaviors. All default to
// true for a standard game.
type GameRules struct {
	AllowMultiples    bool `json:"allowMultiples"`    // allow playing several cards of one rank together
	BurnOnFour        bool `json:"burnOnFour"`        // four of a kind clears the pile
	TransparentEights bool `json:"transparentEights"` // eights carry the prior threshold through
	JackSkips         bool `json:"jackSkips"`         // each jack skips one player
	TwoReset          bool `json:"twoReset"`          // twos reset the threshold and are always playable
}

// StartingCards sets how many cards each layer receives at the deal.
type StartingCards struct {
	Hand     int `json:"hand"`
	FaceUp   int `json:"faceUp"`
	FaceDown int `json:"faceDown"`
}

// Timeouts carries the collaborator-enforced timers, in seconds. The
// engine itself never blocks on them; an external scheduler injects
// forced actions when they expire.
type Timeouts struct {
	TurnSec      int `json:"turnSec"`
	SwapSec      int `json:"swapSec"`
	ReconnectSec int `json:"reconnectSec"`
}

// GameConfig is immutable for the lifetime of a game.
type GameConfig struct {
	MaxPlayers    int           `json:"maxPlayers"`
	StartingCards StartingCards `json:"startingCards"`
	Timeouts      Timeouts      `json:"timeouts"`
	Rules         GameRules     `json:"rules"`
	HostID        uuid.UUID     `json:"hostId"`
}

// DefaultConfig returns the standard 4-player configuration with a
// 3/3/3 deal and all special rules enabled.
func DefaultConfig(hostID uuid.UUID) GameConfig {
	return GameConfig{
		MaxPlayers:    4,
		StartingCards: StartingCards{Hand: 3, FaceUp: 3, FaceDown: 3},
		Timeouts:      Timeouts{TurnSec: 30, SwapSec: 60, ReconnectSec: 120},
		Rules: GameRules{
			AllowMultiples:    true,
			BurnOnFour:        true,
			TransparentEights: true,
			JackSkips:         true,
			TwoReset:          true,
		},
		HostID: hostID,
	}
}

// Update applies rule overrides from a decoded JSON map. Unknown keys
// are ignored; a key with the wrong type is an error and leaves the
// rules unchanged from that point on.
func (r *GameRules) Update(overrides map[string]interface{}) error {
	assign := func(field *bool, key string) error {
		if val, exists := overrides[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	if err := assign(&r.AllowMultiples, "allowMultiples"); err != nil {
		return err
	}
	if err := assign(&r.BurnOnFour, "burnOnFour"); err != nil {
		return err
	}
	if err := assign(&r.TransparentEights, "transparentEights"); err != nil {
		return err
	}
	if err := assign(&r.JackSkips, "jackSkips"); err != nil {
		return err
	}
	return assign(&r.TwoReset, "twoReset")
}

// ParseRules returns a copy of current with the given overrides applied.
func ParseRules(overrides map[string]interface{}, current GameRules) (GameRules, error) {
	rules := current
	err := rules.Update(overrides)
	return rules, err
}
