package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/palacegame/palace/internal/cache"
	"github.com/palacegame/palace/internal/database"
	"github.com/palacegame/palace/internal/engine"
	"github.com/palacegame/palace/internal/models"
)

// OnGameEndFunc is invoked once when a game reaches GAME_END.
type OnGameEndFunc func(gameID, winner uuid.UUID)

// DefaultBotDelay paces bot moves so human players can follow along.
const DefaultBotDelay = 1500 * time.Millisecond

// GameInstance wraps one engine.GameState with everything the engine
// deliberately leaves outside: the lock, the turn and swap timers, live
// WebSocket connections, bot pacing, persistence and broadcasting.
//
// All exported methods acquire Mu; unexported helpers assume it is held.
// The wrapped state is replaced wholesale on every action and never
// mutated in place, so a pointer read under the lock stays safe to use
// after release.
type GameInstance struct {
	ID uuid.UUID

	Mu    sync.Mutex
	State *engine.GameState

	GameOver bool

	// Conns holds the live connection per player; absent key means offline.
	Conns map[uuid.UUID]*websocket.Conn

	// BroadcastFn sends an event to every connected player. Set by the
	// WebSocket handler once the first client attaches.
	BroadcastFn func(ev GameEvent)

	// BroadcastToPlayerFn sends an event to a single player.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)

	OnGameEnd OnGameEndFunc

	TurnDuration time.Duration
	SwapDuration time.Duration
	BotDelay     time.Duration

	// turnID increments per scheduled turn so stale timer callbacks can
	// recognize themselves and bail out.
	turnID      int
	turnTimer   *time.Timer
	actionIndex int

	logger *logrus.Logger
}

// NewGameInstance deals a new game for the given seats. The instance is
// idle until Start is called.
func NewGameInstance(seats []engine.Seat, cfg engine.GameConfig, logger *logrus.Logger) (*GameInstance, error) {
	state, err := engine.NewGameState(seats, cfg, nil)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &GameInstance{
		ID:           state.ID,
		State:        state,
		Conns:        make(map[uuid.UUID]*websocket.Conn),
		TurnDuration: time.Duration(cfg.Timeouts.TurnSec) * time.Second,
		SwapDuration: time.Duration(cfg.Timeouts.SwapSec) * time.Second,
		BotDelay:     DefaultBotDelay,
		logger:       logger,
	}, nil
}

// HostID returns the hosting player's ID.
func (gi *GameInstance) HostID() uuid.UUID {
	gi.Mu.Lock()
	defer gi.Mu.Unlock()
	return gi.State.Config.HostID
}

// Start persists the initial deal, pushes the first state sync and arms
// the swap-phase deadline.
func (gi *GameInstance) Start() {
	gi.Mu.Lock()
	defer gi.Mu.Unlock()

	gi.logger.WithFields(logrus.Fields{
		"game":    gi.ID,
		"players": len(gi.State.Players),
	}).Info("game started")

	database.UpsertInitialGameState(gi.ID, gi.State)
	gi.persistSnapshot()
	gi.syncAllPlayers()
	gi.scheduleSwapDeadline()
}

// HandleAction applies one player action to the wrapped state.
func (gi *GameInstance) HandleAction(action models.GameAction) {
	gi.Mu.Lock()
	defer gi.Mu.Unlock()
	if gi.GameOver {
		return
	}
	gi.applyAction(action)
}

// applyAction runs the engine, then fans out the consequences: publish,
// persist, sync, effect events, end-of-game, timers and bots.
// Assumes lock is held.
func (gi *GameInstance) applyAction(action models.GameAction) {
	if action.Timestamp == 0 {
		action.Timestamp = time.Now().UnixMilli()
	}

	next, err := engine.ProcessAction(gi.State, action)
	if err != nil {
		gi.logger.WithFields(logrus.Fields{
			"game":   gi.ID,
			"player": action.PlayerID,
			"action": action.Type,
		}).WithError(err).Warn("action rejected")
		gi.fireEventToPlayer(action.PlayerID, GameEvent{
			Type: EventError,
			Payload: map[string]interface{}{
				"action":  action.Type,
				"message": err.Error(),
			},
		})
		return
	}

	if auditErr := engine.VerifyCardConservation(next); auditErr != nil {
		// The engine produced an inconsistent partition. Keep the last
		// good state and halt rather than let the corruption spread.
		gi.GameOver = true
		if gi.turnTimer != nil {
			gi.turnTimer.Stop()
			gi.turnTimer = nil
		}
		gi.logger.WithFields(logrus.Fields{
			"game":   gi.ID,
			"player": action.PlayerID,
			"action": action.Type,
		}).WithError(auditErr).Error("card conservation audit failed, game halted")
		gi.fireEvent(GameEvent{
			Type:    EventError,
			Payload: map[string]interface{}{"message": "internal inconsistency detected, game halted"},
		})
		return
	}

	gi.State = next
	gi.actionIndex++
	gi.publishAction(action)
	gi.persistSnapshot()
	gi.syncAllPlayers()

	if len(next.SpecialEffects) > 0 {
		gi.fireEvent(GameEvent{
			Type: EventSpecialEffect,
			Payload: map[string]interface{}{
				"player":  action.PlayerID,
				"effects": next.SpecialEffects,
			},
		})
	}

	if next.Phase == engine.PhaseRoundEnd {
		gi.endGame()
		return
	}
	if next.Phase == engine.PhasePlay {
		gi.beginTurn()
	}
}

// beginTurn announces the current player and arms their timeout.
// Assumes lock is held.
func (gi *GameInstance) beginTurn() {
	gi.turnID++
	gi.fireEvent(GameEvent{
		Type: EventPlayerTurn,
		Payload: map[string]interface{}{
			"player": gi.State.CurrentPlayer,
			"turn":   gi.turnID,
		},
	})
	gi.scheduleTurnTimer()
	gi.maybeDriveBot()
}

// scheduleTurnTimer arms a forced pile pickup for the current player.
// The callback re-checks turnID so a stale timer cannot punish the
// wrong turn. Assumes lock is held.
func (gi *GameInstance) scheduleTurnTimer() {
	if gi.TurnDuration <= 0 {
		return
	}
	if gi.turnTimer != nil {
		gi.turnTimer.Stop()
	}

	playerID := gi.State.CurrentPlayer
	turnID := gi.turnID
	gi.turnTimer = time.AfterFunc(gi.TurnDuration, func() {
		gi.Mu.Lock()
		defer gi.Mu.Unlock()
		if gi.GameOver || gi.State.Phase != engine.PhasePlay ||
			gi.State.CurrentPlayer != playerID || gi.turnID != turnID {
			return
		}
		gi.logger.WithFields(logrus.Fields{
			"game":   gi.ID,
			"player": playerID,
			"turn":   turnID,
		}).Info("turn timed out, forcing pile pickup")
		gi.applyAction(models.GameAction{
			Type:     models.ActionPickupPile,
			PlayerID: playerID,
			Forced:   true,
		})
	})
}

// scheduleSwapDeadline forces CONFIRM_READY for every straggler when
// the swap window closes. Assumes lock is held.
func (gi *GameInstance) scheduleSwapDeadline() {
	if gi.SwapDuration <= 0 {
		return
	}
	time.AfterFunc(gi.SwapDuration, func() {
		gi.Mu.Lock()
		defer gi.Mu.Unlock()
		if gi.GameOver || gi.State.Phase != engine.PhaseSwap {
			return
		}
		gi.logger.WithField("game", gi.ID).Info("swap window closed, forcing ready")
		for _, p := range gi.State.Players {
			if gi.State.Phase != engine.PhaseSwap {
				break
			}
			if !p.Ready {
				gi.applyAction(models.GameAction{
					Type:     models.ActionConfirmReady,
					PlayerID: p.ID,
					Forced:   true,
				})
			}
		}
	})
}

// maybeDriveBot schedules the bot's move when the turn lands on one.
// The delay keeps the pace human-readable. Assumes lock is held.
func (gi *GameInstance) maybeDriveBot() {
	current := gi.State.Player(gi.State.CurrentPlayer)
	if current == nil || !current.IsBot {
		return
	}

	botID := current.ID
	turnID := gi.turnID
	time.AfterFunc(gi.BotDelay, func() {
		gi.Mu.Lock()
		defer gi.Mu.Unlock()
		if gi.GameOver || gi.State.Phase != engine.PhasePlay ||
			gi.State.CurrentPlayer != botID || gi.turnID != turnID {
			return
		}

		play, err := engine.ChooseBotMove(gi.State, botID)
		if err != nil {
			gi.logger.WithField("game", gi.ID).WithError(err).Error("bot move selection failed")
			return
		}

		action := models.GameAction{Type: models.ActionPickupPile, PlayerID: botID}
		if len(play) > 0 {
			action = models.GameAction{Type: models.ActionPlayCards, PlayerID: botID, Cards: play}
		}
		gi.applyAction(action)
	})
}

// HandleReconnect attaches a connection, marks the player present and
// sends them a private state sync.
func (gi *GameInstance) HandleReconnect(playerID uuid.UUID, conn *websocket.Conn) {
	gi.Mu.Lock()
	defer gi.Mu.Unlock()

	next, err := engine.SetConnected(gi.State, playerID, true)
	if err != nil {
		gi.logger.WithField("game", gi.ID).WithError(err).Warn("reconnect for unknown player")
		return
	}
	gi.State = next
	gi.Conns[playerID] = conn

	gi.fireEvent(GameEvent{
		Type:    EventPlayerReconnected,
		Payload: map[string]interface{}{"player": playerID},
	})
	gi.syncPlayer(playerID)
}

// HandleDisconnect drops the connection and marks the player absent.
// Their turns resolve through the forced-pickup timeout until they
// return.
func (gi *GameInstance) HandleDisconnect(playerID uuid.UUID) {
	gi.Mu.Lock()
	defer gi.Mu.Unlock()

	delete(gi.Conns, playerID)
	if gi.GameOver {
		return
	}

	next, err := engine.SetConnected(gi.State, playerID, false)
	if err != nil {
		return
	}
	gi.State = next

	gi.fireEvent(GameEvent{
		Type:    EventPlayerDisconnected,
		Payload: map[string]interface{}{"player": playerID},
	})
}

// Rollback restores the snapshot taken before the move at the given
// timestamp, subject to the authorization rules.
func (gi *GameInstance) Rollback(playerID uuid.UUID, timestamp int64) error {
	gi.Mu.Lock()
	defer gi.Mu.Unlock()

	if gi.GameOver {
		return engine.ErrPhaseViolation
	}
	if !engine.CanRollback(gi.State, playerID) {
		return engine.ErrRollbackNotAuthorized
	}

	snapshot, err := engine.RollbackTo(gi.State.MoveHistory, timestamp)
	if err != nil {
		return err
	}

	restored := snapshot.Clone()
	// Entries from the rolled-back move onward no longer describe the
	// timeline; keep only what predates the restore point.
	for _, entry := range gi.State.MoveHistory {
		if entry.Timestamp < timestamp {
			restored.MoveHistory = append(restored.MoveHistory, entry)
		}
	}
	gi.State = restored

	gi.logger.WithFields(logrus.Fields{
		"game":      gi.ID,
		"requester": playerID,
		"timestamp": timestamp,
	}).Info("state rolled back")

	gi.persistSnapshot()
	gi.fireEvent(GameEvent{
		Type: EventRollback,
		Payload: map[string]interface{}{
			"requester": playerID,
			"timestamp": timestamp,
		},
	})
	gi.syncAllPlayers()

	if gi.State.Phase == engine.PhasePlay {
		gi.beginTurn()
	}
	return nil
}

// endGame finalizes the round, persists results and notifies everyone.
// Assumes lock is held.
func (gi *GameInstance) endGame() {
	if gi.GameOver {
		return
	}
	gi.GameOver = true
	if gi.turnTimer != nil {
		gi.turnTimer.Stop()
		gi.turnTimer = nil
	}

	final, err := engine.CompleteGame(gi.State)
	if err != nil {
		gi.logger.WithField("game", gi.ID).WithError(err).Error("could not finalize game")
	} else {
		gi.State = final
	}

	winner := gi.State.Winner
	gi.logger.WithFields(logrus.Fields{
		"game":   gi.ID,
		"winner": winner,
	}).Info("game ended")

	gi.publishAction(models.GameAction{
		Type:      models.ActionGameEnd,
		PlayerID:  winner,
		Timestamp: gi.State.Timestamp,
	})

	results := map[string]interface{}{"winner": winner, "players": map[string]int{}}
	counts := results["players"].(map[string]int)
	for _, p := range gi.State.Players {
		counts[p.ID.String()] = p.CardCount()
	}
	gi.fireEvent(GameEvent{Type: EventGameEnd, Payload: results})

	// Persistence runs off the lock path; the final state is immutable.
	finalState := gi.State
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := database.RecordGameResults(ctx, finalState); err != nil {
			logrus.WithField("game", finalState.ID).WithError(err).Error("failed to record game results")
		}
		if err := cache.DeleteSnapshot(ctx, finalState.ID); err != nil {
			logrus.WithField("game", finalState.ID).WithError(err).Warn("failed to drop redis snapshot")
		}
	}()

	if gi.OnGameEnd != nil {
		gi.OnGameEnd(gi.ID, winner)
	}
}

// syncAllPlayers pushes each player their own redacted view of the
// state. Assumes lock is held.
func (gi *GameInstance) syncAllPlayers() {
	for _, p := range gi.State.Players {
		gi.syncPlayer(p.ID)
	}
}

func (gi *GameInstance) syncPlayer(playerID uuid.UUID) {
	gi.fireEventToPlayer(playerID, GameEvent{
		Type: EventGameState,
		Payload: map[string]interface{}{
			"state": engine.RedactedFor(gi.State, playerID),
		},
	})
}

// fireEvent broadcasts to all connected players. Assumes lock is held.
func (gi *GameInstance) fireEvent(ev GameEvent) {
	if gi.BroadcastFn != nil {
		gi.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends to one player. Assumes lock is held.
func (gi *GameInstance) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if gi.BroadcastToPlayerFn != nil {
		gi.BroadcastToPlayerFn(playerID, ev)
	}
}

// persistSnapshot writes the authoritative state to Redis so a crashed
// process can be reconciled. Assumes lock is held; the write itself
// happens off-thread against the immutable state value.
func (gi *GameInstance) persistSnapshot() {
	state := gi.State
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.SaveSnapshot(ctx, state); err != nil {
			logrus.WithField("game", state.ID).WithError(err).Warn("failed to persist snapshot")
		}
	}()
}

// publishAction queues the move for the historian. Assumes lock is held.
func (gi *GameInstance) publishAction(action models.GameAction) {
	cardIDs := make([]uuid.UUID, 0, len(action.Cards))
	for _, c := range action.Cards {
		cardIDs = append(cardIDs, c.ID)
	}
	record := cache.MoveRecord{
		GameID:    gi.ID,
		MoveIndex: gi.actionIndex,
		PlayerID:  action.PlayerID,
		MoveType:  string(action.Type),
		CardIDs:   cardIDs,
		Forced:    action.Forced,
		Timestamp: action.Timestamp,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.PublishMove(ctx, record); err != nil {
			logrus.WithField("game", record.GameID).WithError(err).Warn("failed to publish move record")
		}
	}()
}
