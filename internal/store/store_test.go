package store

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesslink/internal/board"
	"github.com/hailam/chesslink/internal/game"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	bs, err := OpenBadger(t.TempDir(), "games", "users", "users-by-channel")
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })

	return map[string]Store{
		"badger": bs,
		"memory": NewMemory(),
	}
}

func newGameRecord(t *testing.T, id string) *game.Record {
	t.Helper()
	rec, err := game.NewRecord(game.CreateParams{
		GameID:     id,
		Username:   "u1",
		ChannelID:  "c1",
		Setup:      board.StandardSetup,
		Preference: game.PreferWhite,
	}, rand.New(rand.NewSource(1)), time.Unix(5000, 0))
	require.NoError(t, err)
	return rec
}

func TestGameRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.GetGame(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			rec := newGameRecord(t, "g1")
			require.NoError(t, s.PutGame(ctx, rec))
			assert.Equal(t, 1, rec.Version)

			loaded, err := s.GetGame(ctx, "g1")
			require.NoError(t, err)
			assert.Equal(t, "g1", loaded.GameID)
			assert.Equal(t, 1, loaded.Version)
			require.NotNil(t, loaded.WhiteUsername)
			assert.Equal(t, "u1", *loaded.WhiteUsername)
			assert.Equal(t, game.NotStarted, loaded.State.Current().Status.Phase)
		})
	}
}

func TestConditionalPut(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			rec := newGameRecord(t, "g1")
			require.NoError(t, s.PutGame(ctx, rec))

			// A second create of the same game must fail.
			dup := newGameRecord(t, "g1")
			assert.ErrorIs(t, s.PutGame(ctx, dup), ErrVersionMismatch)

			// A stale writer loses to a concurrent update.
			stale, err := s.GetGame(ctx, "g1")
			require.NoError(t, err)
			fresh, err := s.GetGame(ctx, "g1")
			require.NoError(t, err)

			require.NoError(t, s.PutGame(ctx, fresh))
			assert.ErrorIs(t, s.PutGame(ctx, stale), ErrVersionMismatch)
		})
	}
}

func TestUserGameRoundTripAndChannelQuery(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Unix(5000, 0)

			require.NoError(t, s.PutUserGame(ctx, game.NewUserGame("u1", "g1", "c1", now)))
			require.NoError(t, s.PutUserGame(ctx, game.NewUserGame("u1", "g2", "c1", now)))
			require.NoError(t, s.PutUserGame(ctx, game.NewUserGame("u2", "g1", "c2", now)))
			require.NoError(t, s.PutUserGame(ctx, game.NewUserInfo("u1", now)))

			loaded, err := s.GetUserGame(ctx, "u1", game.GameSortKey("g1"))
			require.NoError(t, err)
			assert.Equal(t, "g1", loaded.GameID())

			byChannel, err := s.UserGamesByChannel(ctx, "c1")
			require.NoError(t, err)
			assert.Len(t, byChannel, 2)
			for _, rec := range byChannel {
				assert.Equal(t, "u1", rec.Username)
				assert.True(t, rec.IsGameRecord())
			}
		})
	}
}

func TestChannelQueryAfterRebindAndDisconnect(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Unix(5000, 0)

			require.NoError(t, s.PutUserGame(ctx, game.NewUserGame("u1", "g1", "c1", now)))

			// Rebind to a new channel: the old channel stops matching.
			require.NoError(t, s.PutUserGame(ctx, game.NewUserGame("u1", "g1", "c2", now)))

			old, err := s.UserGamesByChannel(ctx, "c1")
			require.NoError(t, err)
			assert.Empty(t, old)

			current, err := s.UserGamesByChannel(ctx, "c2")
			require.NoError(t, err)
			assert.Len(t, current, 1)

			// Disconnect sentinel drops the binding entirely.
			disconnected := game.Disconnected
			rec := game.NewUserGame("u1", "g1", "c2", now)
			rec.ChannelID = &disconnected
			require.NoError(t, s.PutUserGame(ctx, rec))

			gone, err := s.UserGamesByChannel(ctx, "c2")
			require.NoError(t, err)
			assert.Empty(t, gone)
		})
	}
}

func TestBadgerFallbackScanWithoutIndex(t *testing.T) {
	bs, err := OpenBadger(t.TempDir(), "games", "users", "")
	require.NoError(t, err)
	defer bs.Close()

	ctx := context.Background()
	now := time.Unix(5000, 0)
	require.NoError(t, bs.PutUserGame(ctx, game.NewUserGame("u1", "g1", "c1", now)))
	require.NoError(t, bs.PutUserGame(ctx, game.NewUserGame("u2", "g1", "c2", now)))

	records, err := bs.UserGamesByChannel(ctx, "c2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "u2", records[0].Username)
}
