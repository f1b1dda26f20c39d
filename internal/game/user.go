package game

import (
	"strings"
	"time"
)

// UserInfoSortKey is the sort key of a user's standalone info record.
const UserInfoSortKey = "INFO"

// gameSortKeyPrefix prefixes per-game user record sort keys.
const gameSortKeyPrefix = "GAME-"

// GameSortKey builds the sort key of a per-game user record.
func GameSortKey(gameID string) string {
	return gameSortKeyPrefix + gameID
}

// UserRecord is the durable per-user record: either a standalone info
// record (sort key INFO) or a per-(user,game) record whose channel id
// supports the disconnect lookup and whose winner field closes the
// game for that user.
type UserRecord struct {
	Username  string    `json:"username"`
	SortKey   string    `json:"sk"`
	ChannelID *string   `json:"connectionId,omitempty"`
	Winner    *string   `json:"winner,omitempty"`
	CreatedAt time.Time `json:"created"`
}

// NewUserGame builds a per-game record binding the user's channel.
func NewUserGame(username, gameID, channelID string, now time.Time) *UserRecord {
	ch := channelID
	return &UserRecord{
		Username:  username,
		SortKey:   GameSortKey(gameID),
		ChannelID: &ch,
		CreatedAt: now,
	}
}

// NewUserInfo builds a user's standalone info record.
func NewUserInfo(username string, now time.Time) *UserRecord {
	return &UserRecord{
		Username:  username,
		SortKey:   UserInfoSortKey,
		CreatedAt: now,
	}
}

// GameID extracts the game id from a per-game sort key, or "".
func (u *UserRecord) GameID() string {
	return strings.TrimPrefix(u.SortKey, gameSortKeyPrefix)
}

// IsGameRecord reports whether the record is a per-game record.
func (u *UserRecord) IsGameRecord() bool {
	return strings.HasPrefix(u.SortKey, gameSortKeyPrefix)
}
