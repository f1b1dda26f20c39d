package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chesslink/internal/game"
)

const keySeparator = "#"

// BadgerStore implements Store on an embedded BadgerDB. Table names
// become key prefixes; the optional channel index maintains one entry
// per (channel, user-game) pair for the disconnect lookup.
type BadgerStore struct {
	db           *badger.DB
	gameTable    string
	userTable    string
	channelIndex string
}

// OpenBadger opens (or creates) the database in dir.
func OpenBadger(dir, gameTable, userTable, channelIndex string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", dir, err)
	}

	return &BadgerStore{
		db:           db,
		gameTable:    gameTable,
		userTable:    userTable,
		channelIndex: channelIndex,
	}, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *BadgerStore) gameKey(gameID string) []byte {
	return []byte(s.gameTable + keySeparator + gameID)
}

func (s *BadgerStore) userKey(username, sortKey string) []byte {
	return []byte(s.userTable + keySeparator + username + keySeparator + sortKey)
}

func (s *BadgerStore) indexKey(channelID, username, sortKey string) []byte {
	return []byte(s.channelIndex + keySeparator + channelID + keySeparator + username + keySeparator + sortKey)
}

// GetGame loads a game record.
func (s *BadgerStore) GetGame(_ context.Context, gameID string) (*game.Record, error) {
	var rec game.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.gameKey(gameID))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutGame writes a game record conditionally on its version and
// advances the version on success.
func (s *BadgerStore) PutGame(_ context.Context, rec *game.Record) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(s.gameKey(rec.GameID))
		switch {
		case err == badger.ErrKeyNotFound:
			if rec.Version != 0 {
				return ErrVersionMismatch
			}
		case err != nil:
			return err
		default:
			var stored struct {
				Version int `json:"version"`
			}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			}); err != nil {
				return err
			}
			if stored.Version != rec.Version {
				return ErrVersionMismatch
			}
		}

		next := *rec
		next.Version = rec.Version + 1
		data, err := json.Marshal(&next)
		if err != nil {
			return err
		}
		return txn.Set(s.gameKey(rec.GameID), data)
	})
	if err != nil {
		return err
	}
	rec.Version++
	return nil
}

// GetUserGame loads a user record by username and sort key.
func (s *BadgerStore) GetUserGame(_ context.Context, username, sortKey string) (*game.UserRecord, error) {
	var rec game.UserRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.userKey(username, sortKey))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutUserGame writes a user record and keeps the channel index in
// step: the previous channel's entry is removed and the new channel
// (when live) gains one.
func (s *BadgerStore) PutUserGame(_ context.Context, rec *game.UserRecord) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if s.channelIndex != "" && rec.IsGameRecord() {
			var previous game.UserRecord
			item, err := txn.Get(s.userKey(rec.Username, rec.SortKey))
			if err == nil {
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &previous)
				}); err != nil {
					return err
				}
				if old := previous.ChannelID; old != nil && *old != game.Disconnected {
					if err := txn.Delete(s.indexKey(*old, rec.Username, rec.SortKey)); err != nil {
						return err
					}
				}
			} else if err != badger.ErrKeyNotFound {
				return err
			}

			if ch := rec.ChannelID; ch != nil && *ch != game.Disconnected {
				if err := txn.Set(s.indexKey(*ch, rec.Username, rec.SortKey), nil); err != nil {
					return err
				}
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(s.userKey(rec.Username, rec.SortKey), data)
	})
}

// UserGamesByChannel returns the per-game user records bound to a
// channel. With an index configured this is a prefix scan over index
// entries; without one it falls back to scanning the user table.
func (s *BadgerStore) UserGamesByChannel(ctx context.Context, channelID string) ([]*game.UserRecord, error) {
	if s.channelIndex == "" {
		return s.scanUserGamesByChannel(ctx, channelID)
	}

	type userKeyPair struct{ username, sortKey string }
	var pairs []userKeyPair

	prefix := []byte(s.channelIndex + keySeparator + channelID + keySeparator)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			suffix := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			parts := strings.SplitN(suffix, keySeparator, 2)
			if len(parts) != 2 {
				continue
			}
			pairs = append(pairs, userKeyPair{username: parts[0], sortKey: parts[1]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var records []*game.UserRecord
	for _, p := range pairs {
		rec, err := s.GetUserGame(ctx, p.username, p.sortKey)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// scanUserGamesByChannel is the index-free fallback.
func (s *BadgerStore) scanUserGamesByChannel(_ context.Context, channelID string) ([]*game.UserRecord, error) {
	var records []*game.UserRecord
	prefix := []byte(s.userTable + keySeparator)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec game.UserRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			if rec.IsGameRecord() && rec.ChannelID != nil && *rec.ChannelID == channelID {
				r := rec
				records = append(records, &r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
