package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hailam/chesslink/internal/board"
	"github.com/hailam/chesslink/internal/engine"
	"github.com/hailam/chesslink/internal/game"
	"github.com/hailam/chesslink/internal/push"
	"github.com/hailam/chesslink/internal/store"
)

const (
	// maxPutAttempts bounds the read-modify-write retry loop on
	// version conflicts.
	maxPutAttempts = 3

	// Engine difficulty is a small bounded integer handed to the
	// search engine.
	minEngineDifficulty = 1
	maxEngineDifficulty = 10

	// gameIDLength is the length of generated game ids.
	gameIDLength = 4
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Dispatcher maps inbound player actions to core operations. Every
// action is handled independently: the loaded game record is mutated
// in memory and persisted with a single conditional put, retried on
// conflict.
type Dispatcher struct {
	Store  store.Store
	Pusher push.Pusher
	Engine engine.SearchEngine
	Log    *zap.Logger

	// Now and Rand are injectable for tests.
	Now  func() time.Time
	Rand *rand.Rand

	randMu sync.Mutex
}

// New builds a dispatcher with a wall clock and a time-seeded random
// source.
func New(s store.Store, p push.Pusher, se engine.SearchEngine, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		Store:  s,
		Pusher: p,
		Engine: se,
		Log:    log,
		Now:    time.Now,
		Rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Handle decodes one inbound payload from a channel and dispatches it.
// The returned response is the synchronous reply for that channel.
func (d *Dispatcher) Handle(ctx context.Context, channelID string, payload []byte) Response {
	if len(payload) == 0 {
		return badRequest(channelID, "request body is missing")
	}

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return badRequest(channelID, "could not parse the request: "+err.Error())
	}

	action := req.Data
	if action.Kind == "" {
		return badRequest(channelID, "request carries no action")
	}

	if action.Kind == ActionHeartbeat {
		return ok(channelID, nil)
	}

	if channelID == "" {
		return badRequest(channelID, "connection id is missing")
	}

	switch action.Kind {
	case ActionCreateGame:
		return d.handleCreateGame(ctx, channelID, action.CreateGame)
	case ActionJoinGame:
		return d.handleJoinGame(ctx, channelID, action.JoinGame)
	case ActionLeaveGame:
		return d.handleLeaveGame(ctx, channelID, action.LeaveGame)
	case ActionGetGameState:
		return d.handleGetGameState(ctx, channelID, action.GetGameState)
	case ActionMovePiece:
		return d.handleMovePiece(ctx, channelID, action.MovePiece)
	case ActionLoseViaOutOfTime:
		return d.handleLoseViaOutOfTime(ctx, channelID, action.LoseViaOutOfTime)
	case ActionResign:
		return d.handleResign(ctx, channelID, action.Resign)
	case ActionOfferDraw:
		return d.handleOfferDraw(ctx, channelID, action.OfferDraw)
	}
	return badRequest(channelID, "unknown action")
}

// DisconnectChannel marks every seat bound to a dropped channel as
// disconnected and notifies the opposing players. Invoked by the
// transport when a channel closes without a leave-game.
func (d *Dispatcher) DisconnectChannel(ctx context.Context, channelID string) error {
	userGames, err := d.Store.UserGamesByChannel(ctx, channelID)
	if err != nil {
		return err
	}

	for _, userGame := range userGames {
		disconnected := game.Disconnected
		userGame.ChannelID = &disconnected
		if err := d.Store.PutUserGame(ctx, userGame); err != nil {
			return err
		}

		gameID := userGame.GameID()
		err := d.withGame(ctx, channelID, gameID, func(rec *game.Record) error {
			color, bound := rec.ColorOf(channelID)
			if !bound {
				// The seat has already been rebound to a newer channel.
				return errSkipPut
			}
			rec.MarkDisconnected(color)
			return nil
		})
		if err != nil {
			return err
		}

		d.Log.Info("marked user as disconnected",
			zap.String("username", userGame.Username),
			zap.String("gameId", gameID),
			zap.String("channelId", channelID))
	}
	return nil
}

// errSkipPut signals withGame to skip persistence and notification.
var errSkipPut = errors.New("skip put")

// withGame runs a mutation against a freshly loaded game record,
// persists it conditionally and notifies the opposite seat, retrying
// the whole read-modify-write on version conflicts. A missing game is
// quietly skipped; it has been purged under the sweep's feet.
func (d *Dispatcher) withGame(ctx context.Context, channelID, gameID string, mutate func(*game.Record) error) error {
	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		rec, err := d.Store.GetGame(ctx, gameID)
		if err == store.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		err = mutate(rec)
		if err == errSkipPut {
			return nil
		}
		if err != nil {
			return err
		}

		if err := d.Store.PutGame(ctx, rec); err == store.ErrVersionMismatch {
			continue
		} else if err != nil {
			return err
		}
		return d.notifyOpponent(ctx, rec, channelID)
	}
	return store.ErrVersionMismatch
}

// notifyOpponent pushes the updated record to every live seat other
// than the acting channel. A Gone channel is logged and skipped; it
// never fails the action.
func (d *Dispatcher) notifyOpponent(ctx context.Context, rec *game.Record, actingChannel string) error {
	for _, c := range [2]board.Color{board.White, board.Black} {
		ch := rec.SeatChannel(c)
		if ch == nil || *ch == game.Disconnected || *ch == actingChannel {
			continue
		}

		payload := ok(*ch, rec).Encode()
		if err := d.Pusher.Push(ctx, *ch, payload); err != nil {
			if errors.Is(err, push.ErrGone) {
				d.Log.Warn("push target is gone",
					zap.String("gameId", rec.GameID),
					zap.String("channelId", *ch))
				continue
			}
			return err
		}
		d.Log.Info("sent game update",
			zap.String("gameId", rec.GameID),
			zap.String("color", c.String()),
			zap.String("channelId", *ch))
	}
	return nil
}

// generateGameID produces a short alphanumeric id.
func (d *Dispatcher) generateGameID() string {
	d.randMu.Lock()
	defer d.randMu.Unlock()
	id := make([]byte, gameIDLength)
	for i := range id {
		id[i] = idAlphabet[d.Rand.Intn(len(idAlphabet))]
	}
	return string(id)
}

// withRand hands the shared random source to code that needs a few
// draws under the dispatcher's lock.
func (d *Dispatcher) withRand(f func(*rand.Rand)) {
	d.randMu.Lock()
	defer d.randMu.Unlock()
	f(d.Rand)
}
