package server

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palacegame/palace/internal/engine"
	"github.com/palacegame/palace/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []GameEvent
	playerEvents map[uuid.UUID][]GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerEvents: make(map[uuid.UUID][]GameEvent),
	}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID uuid.UUID, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) countOfType(t GameEventType) int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	n := 0
	for _, ev := range mb.allEvents {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (mb *mockBroadcaster) lastPlayerEventOfType(playerID uuid.UUID, t GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.playerEvents[playerID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == t {
			return &events[i]
		}
	}
	return nil
}

// setupTestInstance creates a started instance with mock broadcasters
// and all timers disabled; tests re-arm what they need.
func setupTestInstance(t *testing.T, seats []engine.Seat) (*GameInstance, *mockBroadcaster) {
	t.Helper()
	hostID := seats[0].ID
	for _, s := range seats {
		if !s.Bot {
			hostID = s.ID
			break
		}
	}
	gi, err := NewGameInstance(seats, engine.DefaultConfig(hostID), logrus.New())
	require.NoError(t, err)

	mb := newMockBroadcaster()
	gi.BroadcastFn = mb.broadcastFn
	gi.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	gi.TurnDuration = 0
	gi.SwapDuration = 0
	gi.BotDelay = 10 * time.Millisecond
	gi.Start()
	return gi, mb
}

func confirmAll(gi *GameInstance, ids ...uuid.UUID) {
	for _, id := range ids {
		gi.HandleAction(models.GameAction{Type: models.ActionConfirmReady, PlayerID: id})
	}
}

func currentPlayer(gi *GameInstance) uuid.UUID {
	gi.Mu.Lock()
	defer gi.Mu.Unlock()
	return gi.State.CurrentPlayer
}

func TestInstanceSwapToPlayFlow(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gi, mb := setupTestInstance(t, []engine.Seat{{ID: a}, {ID: b}})

	gi.Mu.Lock()
	assert.Equal(t, engine.PhaseSwap, gi.State.Phase)
	gi.Mu.Unlock()

	confirmAll(gi, a, b)

	gi.Mu.Lock()
	assert.Equal(t, engine.PhasePlay, gi.State.Phase)
	gi.Mu.Unlock()

	assert.Equal(t, 1, mb.countOfType(EventPlayerTurn), "entering PLAY announces the first turn")
}

func TestInstanceStateSyncIsRedacted(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gi, mb := setupTestInstance(t, []engine.Seat{{ID: a}, {ID: b}})
	confirmAll(gi, a, b)

	ev := mb.lastPlayerEventOfType(a, EventGameState)
	require.NotNil(t, ev)
	view, ok := ev.Payload["state"].(engine.RedactedState)
	require.True(t, ok)

	for _, p := range view.Players {
		if p.ID == a {
			assert.Len(t, p.Hand, 3, "own hand is visible")
		} else {
			assert.Nil(t, p.Hand, "opponent hands are not")
			assert.Equal(t, 3, p.HandSize)
		}
		assert.Equal(t, 3, p.FaceDownCount)
	}
}

func TestInstanceRejectedActionEmitsError(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gi, mb := setupTestInstance(t, []engine.Seat{{ID: a}, {ID: b}})
	confirmAll(gi, a, b)

	waiting := b
	if currentPlayer(gi) == b {
		waiting = a
	}
	gi.HandleAction(models.GameAction{Type: models.ActionPickupPile, PlayerID: waiting})

	ev := mb.lastPlayerEventOfType(waiting, EventError)
	require.NotNil(t, ev, "acting out of turn earns a private error event")
}

func TestInstanceTurnTimeoutForcesPickup(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gi, _ := setupTestInstance(t, []engine.Seat{{ID: a}, {ID: b}})
	gi.Mu.Lock()
	gi.TurnDuration = 50 * time.Millisecond
	gi.Mu.Unlock()

	confirmAll(gi, a, b)
	first := currentPlayer(gi)

	assert.Eventually(t, func() bool {
		gi.Mu.Lock()
		defer gi.Mu.Unlock()
		return gi.State.Player(first).TimeoutWarnings >= 1
	}, 2*time.Second, 10*time.Millisecond, "idle player is forced to pick up and warned")
}

func TestInstanceBotTakesItsTurn(t *testing.T) {
	bot, human := uuid.New(), uuid.New()
	gi, _ := setupTestInstance(t, []engine.Seat{{ID: bot, Bot: true}, {ID: human}})

	// The bot is pre-ready; the human's confirmation flips to PLAY with
	// the bot to act first.
	confirmAll(gi, human)
	require.Equal(t, bot, currentPlayer(gi))

	assert.Eventually(t, func() bool {
		gi.Mu.Lock()
		defer gi.Mu.Unlock()
		return gi.State.LastAction != nil && gi.State.LastAction.PlayerID == bot
	}, 2*time.Second, 10*time.Millisecond, "the bot moves on its own")
}

func TestInstanceRollback(t *testing.T) {
	host, guest := uuid.New(), uuid.New()
	gi, mb := setupTestInstance(t, []engine.Seat{{ID: host}, {ID: guest}})
	confirmAll(gi, host, guest)

	actor := currentPlayer(gi)
	gi.Mu.Lock()
	card := gi.State.Player(actor).Hand[:1]
	pileBefore := len(gi.State.Pile)
	gi.Mu.Unlock()

	gi.HandleAction(models.GameAction{
		Type:      models.ActionPlayCards,
		PlayerID:  actor,
		Cards:     card,
		Timestamp: 12345,
	})

	gi.Mu.Lock()
	played := len(gi.State.Pile) > pileBefore
	gi.Mu.Unlock()
	require.True(t, played)

	t.Run("guest refused", func(t *testing.T) {
		err := gi.Rollback(guest, 12345)
		assert.ErrorIs(t, err, engine.ErrRollbackNotAuthorized)
	})

	t.Run("unknown timestamp", func(t *testing.T) {
		err := gi.Rollback(host, 99999)
		assert.ErrorIs(t, err, engine.ErrRollbackNotFound)
	})

	t.Run("host restores the snapshot", func(t *testing.T) {
		require.NoError(t, gi.Rollback(host, 12345))

		gi.Mu.Lock()
		defer gi.Mu.Unlock()
		assert.Len(t, gi.State.Pile, pileBefore, "the play is undone")
		assert.Equal(t, actor, gi.State.CurrentPlayer)
		assert.GreaterOrEqual(t, mb.countOfType(EventRollback), 1)
	})
}

func TestInstanceHaltsOnConservationFailure(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gi, mb := setupTestInstance(t, []engine.Seat{{ID: a}, {ID: b}})
	confirmAll(gi, a, b)

	// Smuggle a duplicate card ID into the state so the next audit
	// cannot pass.
	gi.Mu.Lock()
	dupe := gi.State.Player(a).Hand[0]
	gi.State.Player(b).Hand = append(gi.State.Player(b).Hand, dupe)
	before := gi.State
	gi.Mu.Unlock()

	gi.HandleAction(models.GameAction{Type: models.ActionPickupPile, PlayerID: currentPlayer(gi)})

	gi.Mu.Lock()
	assert.True(t, gi.GameOver, "an inconsistent partition halts the game")
	assert.Same(t, before, gi.State, "the corrupt result is never installed")
	gi.Mu.Unlock()
	assert.GreaterOrEqual(t, mb.countOfType(EventError), 1)
}

func TestInstanceDisconnectReconnect(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gi, mb := setupTestInstance(t, []engine.Seat{{ID: a}, {ID: b}})

	gi.HandleDisconnect(b)
	gi.Mu.Lock()
	assert.False(t, gi.State.Player(b).Connected)
	gi.Mu.Unlock()
	assert.Equal(t, 1, mb.countOfType(EventPlayerDisconnected))

	gi.HandleReconnect(b, nil)
	gi.Mu.Lock()
	assert.True(t, gi.State.Player(b).Connected)
	gi.Mu.Unlock()
	assert.Equal(t, 1, mb.countOfType(EventPlayerReconnected))
	assert.NotNil(t, mb.lastPlayerEventOfType(b, EventGameState), "reconnect resyncs the player")
}

func TestInstanceGameEnd(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gi, mb := setupTestInstance(t, []engine.Seat{{ID: a}, {ID: b}})

	var endedGame, endedWinner uuid.UUID
	gi.OnGameEnd = func(gameID, winner uuid.UUID) {
		endedGame = gameID
		endedWinner = winner
	}

	// Hand-craft a one-card-from-victory position. The other 50 cards
	// sit in the burn pile so the full deck stays accounted for.
	deck := engine.NewDeck()
	last, bCard, rest := deck[0], deck[1], deck[2:]
	gi.Mu.Lock()
	gi.State = &engine.GameState{
		ID:    gi.ID,
		Phase: engine.PhasePlay,
		Players: []models.PlayerState{
			{ID: a, Hand: []models.Card{last}, Connected: true, Ready: true},
			{ID: b, Hand: []models.Card{bCard}, Connected: true, Ready: true},
		},
		CurrentPlayer: a,
		NextPlayer:    b,
		Deck:          []models.Card{},
		Pile:          []models.Card{},
		Burned:        rest,
		Config:        engine.DefaultConfig(a),
	}
	gi.Mu.Unlock()

	gi.HandleAction(models.GameAction{Type: models.ActionPlayCards, PlayerID: a, Cards: []models.Card{last}})

	gi.Mu.Lock()
	assert.True(t, gi.GameOver)
	assert.Equal(t, engine.PhaseGameEnd, gi.State.Phase)
	assert.Equal(t, a, gi.State.Winner)
	gi.Mu.Unlock()

	assert.Equal(t, 1, mb.countOfType(EventGameEnd))
	assert.Equal(t, gi.ID, endedGame)
	assert.Equal(t, a, endedWinner)

	// A finished game ignores further actions.
	gi.HandleAction(models.GameAction{Type: models.ActionPickupPile, PlayerID: b})
	gi.Mu.Lock()
	assert.Equal(t, engine.PhaseGameEnd, gi.State.Phase)
	gi.Mu.Unlock()
}
