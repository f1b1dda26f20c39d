// Package api receives player actions from the duplex channels,
// drives the game core, and produces the response envelopes that go
// back to the participants.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/hailam/chesslink/internal/board"
	"github.com/hailam/chesslink/internal/game"
)

// Request is the inbound envelope. The route is consumed by the
// transport layer and ignored here.
type Request struct {
	Route string       `json:"route"`
	Data  PlayerAction `json:"data"`
}

// ActionKind discriminates the PlayerAction union.
type ActionKind string

const (
	ActionCreateGame       ActionKind = "create-game"
	ActionJoinGame         ActionKind = "join-game"
	ActionLeaveGame        ActionKind = "leave-game"
	ActionGetGameState     ActionKind = "get-game-state"
	ActionMovePiece        ActionKind = "move-piece"
	ActionHeartbeat        ActionKind = "heartbeat"
	ActionLoseViaOutOfTime ActionKind = "lose-via-out-of-time"
	ActionResign           ActionKind = "resign"
	ActionOfferDraw        ActionKind = "offer-draw"
)

// CreateGameAction creates a new game.
type CreateGameAction struct {
	Username         string               `json:"username"`
	GameID           *string              `json:"gameId,omitempty"`
	BoardSetup       *board.Setup         `json:"boardSetup,omitempty"`
	ColorPreference  game.ColorPreference `json:"colorPreference"`
	EngineDifficulty *int                 `json:"engineDifficulty,omitempty"`
	SecondsPerPlayer *int                 `json:"secondsPerPlayer,omitempty"`
}

// JoinGameAction joins (or rejoins) an existing game.
type JoinGameAction struct {
	Username string `json:"username"`
	GameID   string `json:"gameId"`
}

// GameIDAction addresses an existing game with no other payload.
type GameIDAction struct {
	GameID string `json:"gameId"`
}

// MovePieceAction submits a move.
type MovePieceAction struct {
	GameID     string     `json:"gameId"`
	PlayerMove board.Move `json:"playerMove"`
}

// PlayerAction is the tagged union of everything a player can ask.
// Exactly the variant named by Kind is non-nil.
type PlayerAction struct {
	Kind             ActionKind
	CreateGame       *CreateGameAction
	JoinGame         *JoinGameAction
	LeaveGame        *GameIDAction
	GetGameState     *GameIDAction
	MovePiece        *MovePieceAction
	LoseViaOutOfTime *GameIDAction
	Resign           *GameIDAction
	OfferDraw        *GameIDAction
}

// UnmarshalJSON decodes the externally tagged form: payload-free
// variants as a bare kebab-case string, the rest as a single-key
// object like {"move-piece": {...}}.
func (a *PlayerAction) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if ActionKind(name) != ActionHeartbeat {
			return fmt.Errorf("%q is not a valid player action", name)
		}
		*a = PlayerAction{Kind: ActionHeartbeat}
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("player action must have exactly one variant")
	}

	for name, raw := range tagged {
		kind := ActionKind(name)
		out := PlayerAction{Kind: kind}

		var err error
		switch kind {
		case ActionCreateGame:
			out.CreateGame = &CreateGameAction{}
			err = json.Unmarshal(raw, out.CreateGame)
		case ActionJoinGame:
			out.JoinGame = &JoinGameAction{}
			err = json.Unmarshal(raw, out.JoinGame)
		case ActionLeaveGame:
			out.LeaveGame = &GameIDAction{}
			err = json.Unmarshal(raw, out.LeaveGame)
		case ActionGetGameState:
			out.GetGameState = &GameIDAction{}
			err = json.Unmarshal(raw, out.GetGameState)
		case ActionMovePiece:
			out.MovePiece = &MovePieceAction{}
			err = json.Unmarshal(raw, out.MovePiece)
		case ActionLoseViaOutOfTime:
			out.LoseViaOutOfTime = &GameIDAction{}
			err = json.Unmarshal(raw, out.LoseViaOutOfTime)
		case ActionResign:
			out.Resign = &GameIDAction{}
			err = json.Unmarshal(raw, out.Resign)
		case ActionOfferDraw:
			out.OfferDraw = &GameIDAction{}
			err = json.Unmarshal(raw, out.OfferDraw)
		case ActionHeartbeat:
			// Tolerated in object form with an empty payload.
		default:
			return fmt.Errorf("%q is not a valid player action", name)
		}
		if err != nil {
			return fmt.Errorf("decoding %s action: %w", name, err)
		}
		*a = out
	}
	return nil
}

// MarshalJSON reverses UnmarshalJSON.
func (a PlayerAction) MarshalJSON() ([]byte, error) {
	var payload any
	switch a.Kind {
	case ActionHeartbeat:
		return json.Marshal(string(ActionHeartbeat))
	case ActionCreateGame:
		payload = a.CreateGame
	case ActionJoinGame:
		payload = a.JoinGame
	case ActionLeaveGame:
		payload = a.LeaveGame
	case ActionGetGameState:
		payload = a.GetGameState
	case ActionMovePiece:
		payload = a.MovePiece
	case ActionLoseViaOutOfTime:
		payload = a.LoseViaOutOfTime
	case ActionResign:
		payload = a.Resign
	case ActionOfferDraw:
		payload = a.OfferDraw
	default:
		return nil, fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return json.Marshal(map[string]any{string(a.Kind): payload})
}
