package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/palacegame/palace/internal/models"
)

// MaxHistoryLength caps the retained move history. The oldest entry is
// evicted first (plain FIFO, not LRU).
const MaxHistoryLength = 50

// MoveHistoryEntry pairs an action with the full state snapshot taken
// immediately before it was applied.
type MoveHistoryEntry struct {
	Action    models.GameAction `json:"action"`
	Snapshot  *GameState        `json:"previousState"`
	Timestamp int64             `json:"timestamp"`
}

// Record appends one entry and trims to MaxHistoryLength. The snapshot
// is a deep copy with its own history stripped, so entries never nest.
func Record(history []MoveHistoryEntry, prior *GameState, action models.GameAction) []MoveHistoryEntry {
	snap := prior.Clone()
	snap.MoveHistory = nil

	history = append(history, MoveHistoryEntry{
		Action:    action,
		Snapshot:  snap,
		Timestamp: action.Timestamp,
	})
	if len(history) > MaxHistoryLength {
		trimmed := make([]MoveHistoryEntry, MaxHistoryLength)
		copy(trimmed, history[len(history)-MaxHistoryLength:])
		return trimmed
	}
	return history
}

// RollbackTo returns the snapshot recorded immediately before the
// action with the given timestamp. An absent timestamp means the entry
// has aged out of the retained window; callers must treat that as "can
// no longer roll back that far", not as a bug.
func RollbackTo(history []MoveHistoryEntry, timestamp int64) (*GameState, error) {
	for _, entry := range history {
		if entry.Timestamp == timestamp {
			return entry.Snapshot, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrRollbackNotFound, timestamp)
}

// CanRollback is the authorization guard for rollback requests:
// permitted during the SWAP phase (a player undoing their own pending
// swap), for a disconnected player's reconciliation in any phase, and
// for the host. An ordinary connected player mid-PLAY is refused.
func CanRollback(state *GameState, requestingPlayerID uuid.UUID) bool {
	if requestingPlayerID == state.Config.HostID {
		return true
	}
	if p := state.Player(requestingPlayerID); p != nil && !p.Connected {
		return true
	}
	return state.Phase == PhaseSwap
}

// RelevantMoves filters the history down to entries a player is
// entitled to review: their own actions, actions targeting them, and
// the publicly visible plays and pickups.
func RelevantMoves(history []MoveHistoryEntry, playerID uuid.UUID, since int64) []MoveHistoryEntry {
	var out []MoveHistoryEntry
	for _, entry := range history {
		if entry.Timestamp < since {
			continue
		}
		relevant := entry.Action.PlayerID == playerID ||
			entry.Action.Target == playerID ||
			entry.Action.Type == models.ActionPlayCards ||
			entry.Action.Type == models.ActionPickupPile
		if relevant {
			out = append(out, entry)
		}
	}
	return out
}
