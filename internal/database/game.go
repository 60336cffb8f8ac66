// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/palacegame/palace/internal/engine"
)

// RecordGameResults persists the final outcome of a game: the games row
// flips to completed, one game_results row lands per player, and the
// final state snapshot is stored for replays and dispute resolution.
func RecordGameResults(ctx context.Context, state *engine.GameState) error {
	if DB == nil {
		return nil
	}

	finalState, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal final state: %w", err)
	}

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, status, final_game_state, end_time)
			VALUES ($1, 'completed', $2, NOW())
			ON CONFLICT (id)
			DO UPDATE SET status = 'completed', final_game_state = $2, end_time = NOW()
		`
		if _, e := tx.Exec(ctx, upsertGame, state.ID, finalState); e != nil {
			return e
		}

		for _, p := range state.Players {
			didWin := p.ID == state.Winner
			q := `
				INSERT INTO game_results (game_id, player_id, cards_remaining, did_win, was_bot)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (game_id, player_id)
				DO UPDATE SET cards_remaining = $3, did_win = $4
			`
			if _, e := tx.Exec(ctx, q, state.ID, p.ID, p.CardCount(), didWin, p.IsBot); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}

// UpsertInitialGameState stores the full post-deal state into
// games.initial_game_state so the deal can be reconstructed later.
// Errors are logged, not returned; losing the audit row must not block
// the game from starting.
func UpsertInitialGameState(gameID uuid.UUID, state *engine.GameState) {
	if DB == nil {
		return
	}
	ctx := context.Background()
	dataBytes, err := json.Marshal(state)
	if err != nil {
		log.Printf("failed to marshal initial game state for game %v: %v", gameID, err)
		return
	}
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (id, status, initial_game_state, start_time)
			VALUES ($1, 'in_progress', $2, NOW())
			ON CONFLICT (id)
			DO UPDATE SET initial_game_state = EXCLUDED.initial_game_state, status = 'in_progress'
		`
		_, e := tx.Exec(ctx, q, gameID, dataBytes)
		return e
	})
	if err != nil {
		log.Printf("failed to upsert initial game state for game %v: %v", gameID, err)
	}
}
