// Package store persists game and user records. The interface mirrors
// a conditional-write key-value table: game puts assert a version so
// concurrent read-modify-write loops detect each other, and user-game
// records are queryable by the channel currently bound to them.
package store

import (
	"context"
	"errors"

	"github.com/hailam/chesslink/internal/game"
)

var (
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("record not found")
	// ErrVersionMismatch is returned when a conditional put loses a
	// race; the caller should reload and retry.
	ErrVersionMismatch = errors.New("record version mismatch")
)

// Store is the durable record store. Implementations must make
// PutGame conditional: a record with version 0 is a create and fails
// if the game already exists, any other version must match the stored
// record's. On success the record's version is advanced in place.
type Store interface {
	GetGame(ctx context.Context, gameID string) (*game.Record, error)
	PutGame(ctx context.Context, rec *game.Record) error

	GetUserGame(ctx context.Context, username, sortKey string) (*game.UserRecord, error)
	PutUserGame(ctx context.Context, rec *game.UserRecord) error

	// UserGamesByChannel returns every per-game user record whose
	// bound channel id matches, supporting the disconnect sweep.
	UserGamesByChannel(ctx context.Context, channelID string) ([]*game.UserRecord, error)

	Close() error
}
