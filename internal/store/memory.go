package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hailam/chesslink/internal/game"
)

// MemoryStore is an in-process Store used by tests and local runs. It
// keeps records as marshaled JSON so callers never share memory with
// the store, and serializes all puts, which satisfies the ordering
// contract trivially.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string][]byte
	users map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		games: make(map[string][]byte),
		users: make(map[string][]byte),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func userMapKey(username, sortKey string) string {
	return username + keySeparator + sortKey
}

// GetGame loads a game record.
func (s *MemoryStore) GetGame(_ context.Context, gameID string) (*game.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.games[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	var rec game.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutGame writes a game record conditionally on its version.
func (s *MemoryStore) PutGame(_ context.Context, rec *game.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.games[rec.GameID]
	if !ok {
		if rec.Version != 0 {
			return ErrVersionMismatch
		}
	} else {
		var stored struct {
			Version int `json:"version"`
		}
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		if stored.Version != rec.Version {
			return ErrVersionMismatch
		}
	}

	rec.Version++
	encoded, err := json.Marshal(rec)
	if err != nil {
		rec.Version--
		return err
	}
	s.games[rec.GameID] = encoded
	return nil
}

// GetUserGame loads a user record.
func (s *MemoryStore) GetUserGame(_ context.Context, username, sortKey string) (*game.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.users[userMapKey(username, sortKey)]
	if !ok {
		return nil, ErrNotFound
	}
	var rec game.UserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutUserGame writes a user record.
func (s *MemoryStore) PutUserGame(_ context.Context, rec *game.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.users[userMapKey(rec.Username, rec.SortKey)] = data
	return nil
}

// UserGamesByChannel scans for per-game records bound to the channel.
func (s *MemoryStore) UserGamesByChannel(_ context.Context, channelID string) ([]*game.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []*game.UserRecord
	for _, data := range s.users {
		var rec game.UserRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		if rec.IsGameRecord() && rec.ChannelID != nil && *rec.ChannelID == channelID {
			r := rec
			records = append(records, &r)
		}
	}
	return records, nil
}
