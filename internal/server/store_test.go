package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palacegame/palace/internal/engine"
)

func newStoredInstance(t *testing.T) *GameInstance {
	t.Helper()
	seats := []engine.Seat{{ID: uuid.New()}, {ID: uuid.New()}}
	gi, err := NewGameInstance(seats, engine.DefaultConfig(seats[0].ID), logrus.New())
	require.NoError(t, err)
	return gi
}

func TestGameStore(t *testing.T) {
	store := NewGameStore()
	gi := newStoredInstance(t)

	store.AddGame(gi)
	assert.Equal(t, 1, store.ActiveCount())

	got, ok := store.GetGame(gi.ID)
	require.True(t, ok)
	assert.Same(t, gi, got)

	_, ok = store.GetGame(uuid.New())
	assert.False(t, ok)

	store.DeleteGame(gi.ID)
	assert.Equal(t, 0, store.ActiveCount())
	_, ok = store.GetGame(gi.ID)
	assert.False(t, ok)
}

func TestGetGameByHostID(t *testing.T) {
	store := NewGameStore()
	gi := newStoredInstance(t)
	store.AddGame(gi)

	assert.Same(t, gi, store.GetGameByHostID(gi.HostID()))
	assert.Nil(t, store.GetGameByHostID(uuid.New()))
}
