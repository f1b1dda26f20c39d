package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/hailam/chesslink/internal/board"
)

// Disconnected is the sentinel channel id stored for a seat whose
// player is known but unreachable. It distinguishes "seat occupied but
// offline" from an absent field, which means the seat is empty.
const Disconnected = "<disconnected>"

// Session gating and seating failures.
var (
	ErrGameFull           = errors.New("game is full")
	ErrGameFinished       = errors.New("the game is already finished")
	ErrOpponentNotPresent = errors.New("your opponent is not connected")
	ErrNotYourTurn        = errors.New("it is not your turn")
	ErrNotAParticipant    = errors.New("you are not a player in this game")
)

// AlreadyConnectedError reports a join attempt from a channel already
// bound to a seat.
type AlreadyConnectedError struct {
	Color board.Color
}

func (e AlreadyConnectedError) Error() string {
	return fmt.Sprintf("you have already joined this game as %s", e.Color)
}

// ColorPreference is the creator's requested seat color.
type ColorPreference uint8

const (
	PreferWhite ColorPreference = iota
	PreferBlack
	PreferRandom
)

// UnmarshalJSON decodes "white", "black" or "random".
func (p *ColorPreference) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "white":
		*p = PreferWhite
	case "black":
		*p = PreferBlack
	case "random":
		*p = PreferRandom
	default:
		return fmt.Errorf("%q is not a valid color preference", s)
	}
	return nil
}

// MarshalJSON encodes the preference name.
func (p ColorPreference) MarshalJSON() ([]byte, error) {
	switch p {
	case PreferWhite:
		return json.Marshal("white")
	case PreferBlack:
		return json.Marshal("black")
	default:
		return json.Marshal("random")
	}
}

// Record is the durable per-game record, keyed by game id. A seat is
// empty when both its username and channel id are absent; an engine
// seat keeps them absent while EngineDifficulty marks the opponent.
type Record struct {
	GameID           string     `json:"gameId"`
	WhiteChannelID   *string    `json:"whiteConnectionId,omitempty"`
	WhiteUsername    *string    `json:"whiteUsername,omitempty"`
	BlackChannelID   *string    `json:"blackConnectionId,omitempty"`
	BlackUsername    *string    `json:"blackUsername,omitempty"`
	EngineDifficulty *int       `json:"engineDifficulty,omitempty"`
	State            *State     `json:"gameState"`
	CreatedAt        time.Time  `json:"created"`

	// Version asserts conditional persistence; the store rejects a
	// put whose version does not match the stored record.
	Version int `json:"version"`
}

// CreateParams carries everything needed to create a game.
type CreateParams struct {
	GameID           string
	Username         string
	ChannelID        string
	Setup            board.Setup
	Preference       ColorPreference
	EngineDifficulty *int
	SecondsPerPlayer *int
}

// NewRecord creates a game record with the requesting user seated
// according to their color preference. A Random preference is resolved
// from the supplied source. Engine games start immediately; otherwise
// the game waits for the second join.
func NewRecord(p CreateParams, rng *rand.Rand, now time.Time) (*Record, error) {
	state, err := NewState(p.GameID, p.Setup, p.SecondsPerPlayer, rng)
	if err != nil {
		return nil, err
	}

	r := &Record{
		GameID:           p.GameID,
		EngineDifficulty: p.EngineDifficulty,
		State:            state,
		CreatedAt:        now,
	}

	color := board.White
	switch p.Preference {
	case PreferBlack:
		color = board.Black
	case PreferRandom:
		if rng.Intn(2) == 1 {
			color = board.Black
		}
	}
	r.seat(color, p.Username, p.ChannelID)

	r.StartIfReady(now)
	return r, nil
}

// seat binds a username and channel to a color.
func (r *Record) seat(c board.Color, username, channelID string) {
	u, ch := username, channelID
	if c == board.White {
		r.WhiteUsername, r.WhiteChannelID = &u, &ch
	} else {
		r.BlackUsername, r.BlackChannelID = &u, &ch
	}
}

// SeatUsername returns the username bound to a color, if any.
func (r *Record) SeatUsername(c board.Color) *string {
	if c == board.White {
		return r.WhiteUsername
	}
	return r.BlackUsername
}

// SeatChannel returns the channel id bound to a color, if any.
func (r *Record) SeatChannel(c board.Color) *string {
	if c == board.White {
		return r.WhiteChannelID
	}
	return r.BlackChannelID
}

// setChannel rebinds a seat's channel id.
func (r *Record) setChannel(c board.Color, channelID string) {
	ch := channelID
	if c == board.White {
		r.WhiteChannelID = &ch
	} else {
		r.BlackChannelID = &ch
	}
}

// SeatLive reports whether a seat has a reachable channel.
func (r *Record) SeatLive(c board.Color) bool {
	ch := r.SeatChannel(c)
	return ch != nil && *ch != Disconnected
}

// ColorOf resolves the seat bound to a channel id.
func (r *Record) ColorOf(channelID string) (board.Color, bool) {
	if ch := r.WhiteChannelID; ch != nil && *ch == channelID {
		return board.White, true
	}
	if ch := r.BlackChannelID; ch != nil && *ch == channelID {
		return board.Black, true
	}
	return board.White, false
}

// ColorOfUser resolves the seat bound to a username.
func (r *Record) ColorOfUser(username string) (board.Color, bool) {
	if u := r.WhiteUsername; u != nil && *u == username {
		return board.White, true
	}
	if u := r.BlackUsername; u != nil && *u == username {
		return board.Black, true
	}
	return board.White, false
}

// UsernameFor returns the username seated on the channel's seat.
func (r *Record) UsernameFor(channelID string) (string, bool) {
	c, ok := r.ColorOf(channelID)
	if !ok {
		return "", false
	}
	u := r.SeatUsername(c)
	if u == nil {
		return "", false
	}
	return *u, true
}

// EngineColor returns the color played by the engine, or nil for
// human-vs-human games. The engine seat is the one with no username
// while a difficulty is set.
func (r *Record) EngineColor() *board.Color {
	if r.EngineDifficulty == nil {
		return nil
	}
	var c board.Color
	switch {
	case r.WhiteUsername == nil && r.BlackUsername != nil:
		c = board.White
	case r.BlackUsername == nil && r.WhiteUsername != nil:
		c = board.Black
	default:
		return nil
	}
	return &c
}

// seatOccupied reports whether a seat is taken by a human or the engine.
func (r *Record) seatOccupied(c board.Color) bool {
	if r.SeatUsername(c) != nil {
		return true
	}
	ec := r.EngineColor()
	return ec != nil && *ec == c
}

// BothSeated reports whether both seats are occupied.
func (r *Record) BothSeated() bool {
	return r.seatOccupied(board.White) && r.seatOccupied(board.Black)
}

// Join seats a user: a returning username reconnects to its seat, a
// new user takes the empty one. The seated color is returned.
func (r *Record) Join(username, channelID string) (board.Color, error) {
	if c, ok := r.ColorOf(channelID); ok {
		return c, AlreadyConnectedError{Color: c}
	}
	if c, ok := r.ColorOfUser(username); ok {
		r.setChannel(c, channelID)
		return c, nil
	}

	for _, c := range [2]board.Color{board.White, board.Black} {
		if !r.seatOccupied(c) {
			r.seat(c, username, channelID)
			return c, nil
		}
	}
	return board.White, ErrGameFull
}

// MarkDisconnected records that a seat's channel has dropped without
// vacating the seat. Phase is untouched; disconnection never ends a
// game.
func (r *Record) MarkDisconnected(c board.Color) {
	r.setChannel(c, Disconnected)
}

// StartIfReady advances a NotStarted game to InProgress once both
// seats are occupied, recording the both-seated timestamp on the
// clock. It reports whether the transition happened.
func (r *Record) StartIfReady(now time.Time) bool {
	if r.State.Current().Status.Phase != NotStarted || !r.BothSeated() {
		return false
	}
	r.State.Start()
	if r.State.Clock != nil {
		seated := now
		r.State.Clock.BothSeatedAt = &seated
	}
	return true
}

// CanMove gates a move request from a channel: the caller must be a
// participant, the game unfinished, the opponent reachable (engine
// seats are always reachable), and it must be the caller's turn.
func (r *Record) CanMove(channelID string) error {
	color, ok := r.ColorOf(channelID)
	if !ok {
		return ErrNotAParticipant
	}

	current := r.State.Current()
	if current.Status.Phase == Finished {
		return ErrGameFinished
	}

	opp := color.Other()
	ec := r.EngineColor()
	engineOpponent := ec != nil && *ec == opp
	if !engineOpponent && !r.SeatLive(opp) {
		return ErrOpponentNotPresent
	}

	if current.CurrentTurn != color {
		return ErrNotYourTurn
	}
	return nil
}

// Winner returns the winning color's name once the game has finished
// with a decisive ending, or nil.
func (r *Record) Winner() *string {
	ending := r.State.Current().Status.Ending
	if ending == nil {
		return nil
	}
	w := ending.Winner()
	if w == nil {
		return nil
	}
	name := w.String()
	return &name
}
