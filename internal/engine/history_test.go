package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palacegame/palace/internal/models"
)

func TestRecordEvictsOldest(t *testing.T) {
	a := testPlayer(cards(models.RankFive), nil, nil)
	b := testPlayer(cards(models.RankNine), nil, nil)
	st := playState(a, b)

	var history []MoveHistoryEntry
	for i := 1; i <= 60; i++ {
		history = Record(history, st, models.GameAction{
			Type:      models.ActionPlayCards,
			PlayerID:  a.ID,
			Timestamp: int64(i),
		})
	}

	require.Len(t, history, MaxHistoryLength)
	assert.Equal(t, int64(11), history[0].Timestamp, "the oldest ten entries aged out")
	assert.Equal(t, int64(60), history[len(history)-1].Timestamp)
	assert.Nil(t, history[0].Snapshot.MoveHistory, "snapshots carry no nested history")
}

func TestRecordSnapshotIsIndependent(t *testing.T) {
	a := testPlayer(cards(models.RankFive), nil, nil)
	b := testPlayer(cards(models.RankNine), nil, nil)
	st := playState(a, b)

	history := Record(nil, st, models.GameAction{Type: models.ActionPlayCards, PlayerID: a.ID, Timestamp: 1})

	st.Player(a.ID).Hand = nil
	assert.Len(t, history[0].Snapshot.Player(a.ID).Hand, 1, "mutating the live state must not reach the snapshot")
}

func TestRollbackTo(t *testing.T) {
	a := testPlayer(cards(models.RankFive, models.RankNine), nil, nil)
	b := testPlayer(cards(models.RankThree), nil, nil)
	st := playState(a, b)

	next, err := ProcessAction(st, models.GameAction{
		Type:      models.ActionPlayCards,
		PlayerID:  a.ID,
		Cards:     st.Player(a.ID).Hand[:1],
		Timestamp: 100,
	})
	require.NoError(t, err)

	restored, err := RollbackTo(next.MoveHistory, 100)
	require.NoError(t, err)
	assert.Empty(t, restored.Pile, "the snapshot predates the play")
	assert.Len(t, restored.Player(a.ID).Hand, 2)

	_, err = RollbackTo(next.MoveHistory, 9999)
	assert.ErrorIs(t, err, ErrRollbackNotFound)
}

func TestCanRollback(t *testing.T) {
	host := testPlayer(cards(models.RankFive), nil, nil)
	guest := testPlayer(cards(models.RankNine), nil, nil)
	st := playState(host, guest)

	assert.True(t, CanRollback(st, host.ID), "the host may always roll back")
	assert.False(t, CanRollback(st, guest.ID), "a connected guest mid-game may not")

	st.Player(guest.ID).Connected = false
	assert.True(t, CanRollback(st, guest.ID), "disconnection reconciliation is allowed")

	st.Player(guest.ID).Connected = true
	st.Phase = PhaseSwap
	assert.True(t, CanRollback(st, guest.ID), "anyone may undo during the swap phase")
}

func TestRelevantMoves(t *testing.T) {
	a := testPlayer(cards(models.RankFive), nil, nil)
	b := testPlayer(cards(models.RankNine), nil, nil)
	st := playState(a, b)

	history := Record(nil, st, models.GameAction{Type: models.ActionSwapCards, PlayerID: a.ID, Timestamp: 1})
	history = Record(history, st, models.GameAction{Type: models.ActionPlayCards, PlayerID: b.ID, Timestamp: 2})
	history = Record(history, st, models.GameAction{Type: models.ActionConfirmReady, PlayerID: b.ID, Timestamp: 3})

	forA := RelevantMoves(history, a.ID, 0)
	require.Len(t, forA, 2, "own swap plus the public play; another player's ready signal is not theirs to see")
	assert.Equal(t, models.ActionSwapCards, forA[0].Action.Type)
	assert.Equal(t, models.ActionPlayCards, forA[1].Action.Type)

	since := RelevantMoves(history, a.ID, 2)
	require.Len(t, since, 1)
	assert.Equal(t, int64(2), since[0].Timestamp)
}
