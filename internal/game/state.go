package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/hailam/chesslink/internal/board"
)

// SearchStatistics summarizes an engine search, attached to the
// snapshot produced by the engine's move.
type SearchStatistics struct {
	Depth    int    `json:"depth"`
	Nodes    uint64 `json:"nodes"`
	QNodes   uint64 `json:"qnodes"`
	TimeMs   uint64 `json:"timeMs"`
	FromBook bool   `json:"fromBook"`
}

// Snapshot is a fully describing point-in-time state of a game.
type Snapshot struct {
	Status         Status            `json:"state"`
	CurrentTurn    board.Color       `json:"currentTurn"`
	InCheck        *board.Color      `json:"inCheck,omitempty"`
	Board          *board.Board      `json:"board"`
	CapturedPieces CapturedPieces    `json:"capturedPieces"`
	EngineResult   *SearchStatistics `json:"engineResult,omitempty"`
}

// Clone returns a deep copy of the snapshot with the engine result
// dropped; statistics belong only to the snapshot they were computed
// for.
func (s *Snapshot) Clone() *Snapshot {
	cp := &Snapshot{
		Status:         s.Status,
		CurrentTurn:    s.CurrentTurn,
		Board:          s.Board.Clone(),
		CapturedPieces: s.CapturedPieces.Clone(),
	}
	if s.InCheck != nil {
		c := *s.InCheck
		cp.InCheck = &c
	}
	if s.Status.Ending != nil {
		e := *s.Status.Ending
		cp.Status.Ending = &e
	}
	return cp
}

// State is the full history of a game: an append-only sequence of
// snapshots plus the optional clock. The last snapshot is the current
// state; mutations clone it, adjust the clone and append.
type State struct {
	GameID  string      `json:"gameId"`
	Clock   *Clock      `json:"gameTime,omitempty"`
	History []*Snapshot `json:"history"`
}

// ErrGameOver is returned by MakeMove on a finished game.
var ErrGameOver = errors.New("the game is already finished")

// NewState builds the initial game state: one NotStarted snapshot with
// a fresh board, and a clock if a time control was requested.
func NewState(gameID string, setup board.Setup, secondsPerPlayer *int, rng *rand.Rand) (*State, error) {
	b, err := board.NewBoard(setup, rng)
	if err != nil {
		return nil, err
	}

	s := &State{
		GameID: gameID,
		History: []*Snapshot{{
			Status:      Status{Phase: NotStarted},
			CurrentTurn: board.White,
			Board:       b,
		}},
	}
	if secondsPerPlayer != nil {
		s.Clock = NewClock(*secondsPerPlayer)
	}
	return s, nil
}

// Current returns the latest snapshot.
func (s *State) Current() *Snapshot {
	return s.History[len(s.History)-1]
}

// MakeMove advances the game by one validated move: the clock is
// charged first (an exhausted clock finishes the game without a board
// change), then the move is applied, captures are accounted, and check
// and checkmate are classified before the new snapshot is appended.
func (s *State) MakeMove(m board.Move, now time.Time) error {
	current := s.Current()
	if current.Status.Phase == Finished {
		return ErrGameOver
	}

	next := current.Clone()
	mover := next.CurrentTurn

	if s.Clock != nil {
		if flagged := s.Clock.Decrement(mover, now); flagged {
			next.Status = FinishedStatus(Lost(OutOfTime, mover))
			s.History = append(s.History, next)
			return nil
		}
	}

	if captured := next.Board.ApplyMove(m); captured != nil {
		next.CapturedPieces.Add(mover, *captured)
	}

	checkForMates(next, mover)
	s.History = append(s.History, next)
	return nil
}

// checkForMates classifies the position after a move by the given
// side: check, checkmate, or neither, switching the turn unless the
// game is over.
func checkForMates(next *Snapshot, mover board.Color) {
	opp := mover.Other()
	if next.Board.IsKingInCheck(opp) {
		if !next.Board.HasLegalMove(opp) {
			next.InCheck = &opp
			next.Status = FinishedStatus(Lost(Checkmate, opp))
			return
		}
		next.InCheck = &opp
		next.CurrentTurn = opp
		return
	}
	next.InCheck = nil
	next.CurrentTurn = opp
}

// ApplyEngineMove advances the game by one engine move. The engine is
// not billed for wall-clock time between moves; its clock is instead
// charged the search duration from the attached statistics, rounded
// up to whole seconds with a one-second minimum, saturating at zero.
func (s *State) ApplyEngineMove(m board.Move, stats *SearchStatistics, now time.Time) error {
	current := s.Current()
	if current.Status.Phase == Finished {
		return ErrGameOver
	}

	next := current.Clone()
	mover := next.CurrentTurn

	if captured := next.Board.ApplyMove(m); captured != nil {
		next.CapturedPieces.Add(mover, *captured)
	}

	checkForMates(next, mover)
	next.EngineResult = stats
	s.History = append(s.History, next)

	if s.Clock != nil {
		seconds := 1
		if stats != nil {
			seconds = int((stats.TimeMs + 999) / 1000)
			if seconds < 1 {
				seconds = 1
			}
		}
		s.Clock.DecrementBy(mover, seconds)
		moveAt := now
		s.Clock.LastMoveAt = &moveAt
	}
	return nil
}

// Finish appends a snapshot carrying the given ending. A no-op if the
// game is already finished.
func (s *State) Finish(e Ending) {
	current := s.Current()
	if current.Status.Phase == Finished {
		return
	}
	next := current.Clone()
	next.Status = FinishedStatus(e)
	s.History = append(s.History, next)
}

// Start appends an InProgress snapshot. A no-op unless the game is
// still NotStarted.
func (s *State) Start() {
	current := s.Current()
	if current.Status.Phase != NotStarted {
		return
	}
	next := current.Clone()
	next.Status = Status{Phase: InProgress}
	s.History = append(s.History, next)
}
