package api

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/hailam/chesslink/internal/board"
	"github.com/hailam/chesslink/internal/engine"
	"github.com/hailam/chesslink/internal/game"
	"github.com/hailam/chesslink/internal/store"
)

func (d *Dispatcher) handleCreateGame(ctx context.Context, channelID string, act *CreateGameAction) Response {
	username := strings.TrimSpace(act.Username)
	if username == "" {
		return badRequest(channelID, "username must not be empty")
	}

	if diff := act.EngineDifficulty; diff != nil &&
		(*diff < minEngineDifficulty || *diff > maxEngineDifficulty) {
		return badRequest(channelID, fmt.Sprintf(
			"engine difficulty must be between %d and %d", minEngineDifficulty, maxEngineDifficulty))
	}

	gameID := d.generateGameID()
	if act.GameID != nil {
		if gameID = strings.TrimSpace(*act.GameID); gameID == "" {
			return badRequest(channelID, "game id must not be empty")
		}
	}

	setup := board.StandardSetup
	if act.BoardSetup != nil {
		setup = *act.BoardSetup
	}

	var (
		rec *game.Record
		err error
	)
	d.withRand(func(rng *rand.Rand) {
		rec, err = game.NewRecord(game.CreateParams{
			GameID:           gameID,
			Username:         username,
			ChannelID:        channelID,
			Setup:            setup,
			Preference:       act.ColorPreference,
			EngineDifficulty: act.EngineDifficulty,
			SecondsPerPlayer: act.SecondsPerPlayer,
		}, rng, d.Now())
	})
	if err != nil {
		return badRequest(channelID, err.Error())
	}

	if err := d.Store.PutGame(ctx, rec); err == store.ErrVersionMismatch {
		return badRequest(channelID, fmt.Sprintf("a game with ID %q already exists", gameID))
	} else if err != nil {
		d.Log.Error("storing new game", zap.String("gameId", gameID), zap.Error(err))
		return serverError(channelID)
	}

	if err := d.ensureUserRecords(ctx, username, gameID, channelID); err != nil {
		d.Log.Error("storing user records", zap.String("username", username), zap.Error(err))
		return serverError(channelID)
	}

	// When the engine holds White it moves before anyone else acts.
	if d.maybeEngineMove(ctx, rec) {
		if err := d.Store.PutGame(ctx, rec); err != nil {
			d.Log.Error("storing engine move", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}
	}

	d.Log.Info("game created",
		zap.String("gameId", gameID),
		zap.String("username", username),
		zap.Bool("engine", act.EngineDifficulty != nil))

	return ok(channelID, rec, successMessage(fmt.Sprintf("Created game %q", gameID)))
}

func (d *Dispatcher) handleJoinGame(ctx context.Context, channelID string, act *JoinGameAction) Response {
	username := strings.TrimSpace(act.Username)
	gameID := strings.TrimSpace(act.GameID)
	if username == "" || gameID == "" {
		return badRequest(channelID, "username and game id must not be empty")
	}

	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		rec, err := d.Store.GetGame(ctx, gameID)
		if err == store.ErrNotFound {
			return notFound(channelID, fmt.Sprintf(
				"game %q does not exist; create a new game instead", gameID))
		}
		if err != nil {
			d.Log.Error("loading game", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		color, err := rec.Join(username, channelID)
		if err != nil {
			return badRequest(channelID, err.Error())
		}
		rec.StartIfReady(d.Now())

		if err := d.Store.PutGame(ctx, rec); err == store.ErrVersionMismatch {
			continue
		} else if err != nil {
			d.Log.Error("storing game", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		if err := d.ensureUserRecords(ctx, username, gameID, channelID); err != nil {
			d.Log.Error("storing user records", zap.String("username", username), zap.Error(err))
			return serverError(channelID)
		}

		if err := d.notifyOpponent(ctx, rec, channelID); err != nil {
			d.Log.Error("notifying opponent", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		d.Log.Info("player joined game",
			zap.String("gameId", gameID),
			zap.String("username", username),
			zap.String("color", color.String()))

		return ok(channelID, rec, successMessage(fmt.Sprintf("Joined game %q as %s", gameID, color)))
	}
	return serverError(channelID)
}

func (d *Dispatcher) handleLeaveGame(ctx context.Context, channelID string, act *GameIDAction) Response {
	gameID := strings.TrimSpace(act.GameID)
	if gameID == "" {
		return badRequest(channelID, "game id must not be empty")
	}

	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		rec, err := d.Store.GetGame(ctx, gameID)
		if err == store.ErrNotFound {
			return notFound(channelID, fmt.Sprintf("game %q not found", gameID))
		}
		if err != nil {
			d.Log.Error("loading game", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		username, bound := rec.UsernameFor(channelID)
		if !bound {
			return badRequest(channelID, game.ErrNotAParticipant.Error())
		}
		color, _ := rec.ColorOf(channelID)
		rec.MarkDisconnected(color)

		if err := d.Store.PutGame(ctx, rec); err == store.ErrVersionMismatch {
			continue
		} else if err != nil {
			d.Log.Error("storing game", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		if err := d.disconnectUserGame(ctx, username, gameID); err != nil {
			d.Log.Error("storing user record", zap.String("username", username), zap.Error(err))
			return serverError(channelID)
		}

		if err := d.notifyOpponent(ctx, rec, channelID); err != nil {
			d.Log.Error("notifying opponent", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		d.Log.Info("player left game",
			zap.String("gameId", gameID), zap.String("username", username))

		return ok(channelID, nil, infoMessage(fmt.Sprintf("Left game %q", gameID)))
	}
	return serverError(channelID)
}

func (d *Dispatcher) handleGetGameState(ctx context.Context, channelID string, act *GameIDAction) Response {
	gameID := strings.TrimSpace(act.GameID)
	if gameID == "" {
		return badRequest(channelID, "game id must not be empty")
	}

	rec, err := d.Store.GetGame(ctx, gameID)
	if err == store.ErrNotFound {
		return notFound(channelID, fmt.Sprintf("game %q not found", gameID))
	}
	if err != nil {
		d.Log.Error("loading game", zap.String("gameId", gameID), zap.Error(err))
		return serverError(channelID)
	}
	return ok(channelID, rec)
}

func (d *Dispatcher) handleMovePiece(ctx context.Context, channelID string, act *MovePieceAction) Response {
	gameID := strings.TrimSpace(act.GameID)
	if gameID == "" {
		return badRequest(channelID, "game id must not be empty")
	}

	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		rec, err := d.Store.GetGame(ctx, gameID)
		if err == store.ErrNotFound {
			return notFound(channelID, fmt.Sprintf("game %q not found", gameID))
		}
		if err != nil {
			d.Log.Error("loading game", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		if err := rec.CanMove(channelID); err != nil {
			return badRequest(channelID, err.Error())
		}

		color, _ := rec.ColorOf(channelID)
		current := rec.State.Current()
		if err := current.Board.ValidateMove(act.PlayerMove, color); err != nil {
			return badRequest(channelID, err.Error())
		}

		if err := rec.State.MakeMove(act.PlayerMove, d.Now()); err != nil {
			return badRequest(channelID, err.Error())
		}

		if rec.State.Current().Status.Phase == game.Finished {
			if err := d.recordWinners(ctx, rec); err != nil {
				d.Log.Error("recording winners", zap.String("gameId", gameID), zap.Error(err))
				return serverError(channelID)
			}
		} else {
			d.maybeEngineMove(ctx, rec)
			if rec.State.Current().Status.Phase == game.Finished {
				if err := d.recordWinners(ctx, rec); err != nil {
					d.Log.Error("recording winners", zap.String("gameId", gameID), zap.Error(err))
					return serverError(channelID)
				}
			}
		}

		if err := d.Store.PutGame(ctx, rec); err == store.ErrVersionMismatch {
			continue
		} else if err != nil {
			d.Log.Error("storing game", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		if err := d.notifyOpponent(ctx, rec, channelID); err != nil {
			d.Log.Error("notifying opponent", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		d.Log.Info("player made a move",
			zap.String("gameId", gameID),
			zap.String("color", color.String()),
			zap.String("move", act.PlayerMove.String()))

		return ok(channelID, rec)
	}
	return serverError(channelID)
}

func (d *Dispatcher) handleLoseViaOutOfTime(ctx context.Context, channelID string, act *GameIDAction) Response {
	return d.finishGame(ctx, channelID, act.GameID, game.OutOfTime)
}

func (d *Dispatcher) handleResign(ctx context.Context, channelID string, act *GameIDAction) Response {
	return d.finishGame(ctx, channelID, act.GameID, game.Resignation)
}

// finishGame ends a game against the acting player: resignation, or a
// self-reported flag fall.
func (d *Dispatcher) finishGame(ctx context.Context, channelID, rawGameID string, kind game.EndingKind) Response {
	gameID := strings.TrimSpace(rawGameID)
	if gameID == "" {
		return badRequest(channelID, "game id must not be empty")
	}

	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		rec, err := d.Store.GetGame(ctx, gameID)
		if err == store.ErrNotFound {
			return notFound(channelID, fmt.Sprintf("game %q not found", gameID))
		}
		if err != nil {
			d.Log.Error("loading game", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		color, bound := rec.ColorOf(channelID)
		if !bound {
			return badRequest(channelID, game.ErrNotAParticipant.Error())
		}
		if rec.State.Current().Status.Phase == game.Finished {
			return badRequest(channelID, game.ErrGameFinished.Error())
		}

		rec.State.Finish(game.Lost(kind, color))
		if kind == game.OutOfTime && rec.State.Clock != nil {
			rec.State.Clock.Zero(color)
		}

		if err := d.recordWinners(ctx, rec); err != nil {
			d.Log.Error("recording winners", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		if err := d.Store.PutGame(ctx, rec); err == store.ErrVersionMismatch {
			continue
		} else if err != nil {
			d.Log.Error("storing game", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		if err := d.notifyOpponent(ctx, rec, channelID); err != nil {
			d.Log.Error("notifying opponent", zap.String("gameId", gameID), zap.Error(err))
			return serverError(channelID)
		}

		d.Log.Info("game finished",
			zap.String("gameId", gameID),
			zap.String("ending", kind.String()),
			zap.String("loser", color.String()))

		return ok(channelID, rec)
	}
	return serverError(channelID)
}

// handleOfferDraw acknowledges a draw offer without changing state.
func (d *Dispatcher) handleOfferDraw(ctx context.Context, channelID string, act *GameIDAction) Response {
	gameID := strings.TrimSpace(act.GameID)
	if gameID == "" {
		return badRequest(channelID, "game id must not be empty")
	}

	rec, err := d.Store.GetGame(ctx, gameID)
	if err == store.ErrNotFound {
		return notFound(channelID, fmt.Sprintf("game %q not found", gameID))
	}
	if err != nil {
		d.Log.Error("loading game", zap.String("gameId", gameID), zap.Error(err))
		return serverError(channelID)
	}
	if _, bound := rec.ColorOf(channelID); !bound {
		return badRequest(channelID, game.ErrNotAParticipant.Error())
	}

	return ok(channelID, nil, infoMessage("Draw offer acknowledged"))
}

// maybeEngineMove lets the engine answer when it holds the side to
// move. Failures are logged and swallowed; the human's action must not
// fail because the machine had a bad day. Reports whether the record
// changed.
func (d *Dispatcher) maybeEngineMove(ctx context.Context, rec *game.Record) bool {
	engineColor := rec.EngineColor()
	if engineColor == nil || d.Engine == nil {
		return false
	}

	current := rec.State.Current()
	if current.Status.Phase == game.Finished || current.CurrentTurn != *engineColor {
		return false
	}

	fen, err := board.GenerateFEN(current.Board, *engineColor)
	if err != nil {
		d.Log.Warn("engine cannot play this board",
			zap.String("gameId", rec.GameID), zap.Error(err))
		return false
	}

	result, err := d.Engine.Search(ctx, fen, *rec.EngineDifficulty)
	if errors.Is(err, engine.ErrNoMove) {
		return false
	}
	if err != nil {
		d.Log.Error("engine search failed",
			zap.String("gameId", rec.GameID), zap.Error(err))
		return false
	}

	stats := &game.SearchStatistics{
		Depth:    result.Depth,
		Nodes:    result.Nodes,
		QNodes:   result.QNodes,
		TimeMs:   result.TimeMs,
		FromBook: result.FromBook,
	}
	move := board.Move{From: result.From, To: result.To}
	if err := rec.State.ApplyEngineMove(move, stats, d.Now()); err != nil {
		d.Log.Error("applying engine move",
			zap.String("gameId", rec.GameID), zap.Error(err))
		return false
	}

	d.Log.Info("engine moved",
		zap.String("gameId", rec.GameID),
		zap.String("move", move.String()),
		zap.Bool("fromBook", result.FromBook))
	return true
}

// ensureUserRecords writes the user's standalone info record on first
// contact and binds the per-game record to the current channel.
func (d *Dispatcher) ensureUserRecords(ctx context.Context, username, gameID, channelID string) error {
	if _, err := d.Store.GetUserGame(ctx, username, game.UserInfoSortKey); err == store.ErrNotFound {
		if err := d.Store.PutUserGame(ctx, game.NewUserInfo(username, d.Now())); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	userGame, err := d.Store.GetUserGame(ctx, username, game.GameSortKey(gameID))
	switch {
	case err == store.ErrNotFound:
		userGame = game.NewUserGame(username, gameID, channelID, d.Now())
	case err != nil:
		return err
	default:
		ch := channelID
		userGame.ChannelID = &ch
	}
	return d.Store.PutUserGame(ctx, userGame)
}

// disconnectUserGame stamps the disconnect sentinel on the user's
// per-game record.
func (d *Dispatcher) disconnectUserGame(ctx context.Context, username, gameID string) error {
	userGame, err := d.Store.GetUserGame(ctx, username, game.GameSortKey(gameID))
	if err == store.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	disconnected := game.Disconnected
	userGame.ChannelID = &disconnected
	return d.Store.PutUserGame(ctx, userGame)
}

// recordWinners closes both participants' user-game records with the
// winning color once a game finishes decisively.
func (d *Dispatcher) recordWinners(ctx context.Context, rec *game.Record) error {
	winner := rec.Winner()
	if winner == nil {
		return nil
	}

	for _, c := range [2]board.Color{board.White, board.Black} {
		username := rec.SeatUsername(c)
		if username == nil {
			continue
		}
		userGame, err := d.Store.GetUserGame(ctx, *username, game.GameSortKey(rec.GameID))
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return err
		}
		w := *winner
		userGame.Winner = &w
		if err := d.Store.PutUserGame(ctx, userGame); err != nil {
			return err
		}
	}
	return nil
}
