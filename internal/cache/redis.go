// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/palacegame/palace/internal/engine"
)

// Rdb is the global Redis client. Connect it once at application
// startup; all helpers are no-ops while it is nil so the server can run
// without Redis in development.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for move records.
var DefaultQueueName = "palace_moves"

// snapshotTTL bounds how long an authoritative game snapshot survives
// after its last write. Finished games are deleted explicitly; this
// catches the abandoned ones.
const snapshotTTL = 24 * time.Hour

// MoveRecord holds the minimal info the historian needs to persist one
// move.
type MoveRecord struct {
	GameID    uuid.UUID   `json:"game_id"`
	MoveIndex int         `json:"move_index"`
	PlayerID  uuid.UUID   `json:"player_id"`
	MoveType  string      `json:"move_type"`
	CardIDs   []uuid.UUID `json:"card_ids,omitempty"`
	Forced    bool        `json:"forced,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

func snapshotKey(gameID uuid.UUID) string {
	return "game:" + gameID.String()
}

// SaveSnapshot writes the full authoritative game state under
// game:{id}. The snapshot includes hidden cards and must never be
// served to clients as-is.
func SaveSnapshot(ctx context.Context, state *engine.GameState) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal game snapshot: %w", err)
	}
	if err := Rdb.Set(ctx, snapshotKey(state.ID), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to SET snapshot for game %s: %w", state.ID, err)
	}
	return nil
}

// LoadSnapshot restores a game state persisted by SaveSnapshot.
func LoadSnapshot(ctx context.Context, gameID uuid.UUID) (*engine.GameState, error) {
	if Rdb == nil {
		return nil, fmt.Errorf("redis is not connected")
	}
	data, err := Rdb.Get(ctx, snapshotKey(gameID)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to GET snapshot for game %s: %w", gameID, err)
	}
	var state engine.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("corrupt snapshot for game %s: %w", gameID, err)
	}
	return &state, nil
}

// DeleteSnapshot drops a finished game's snapshot.
func DeleteSnapshot(ctx context.Context, gameID uuid.UUID) error {
	if Rdb == nil {
		return nil
	}
	return Rdb.Del(ctx, snapshotKey(gameID)).Err()
}

// PublishMove serializes the given record to JSON, then pushes it to
// the historian queue. This does not block the calling logic beyond a
// quick network send.
func PublishMove(ctx context.Context, record MoveRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal MoveRecord: %w", err)
	}

	queueName := getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
