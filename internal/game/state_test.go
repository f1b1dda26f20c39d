package game

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesslink/internal/board"
)

func newTestState(t *testing.T, seconds *int) *State {
	t.Helper()
	s, err := NewState("test", board.StandardSetup, seconds, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return s
}

func pos(file, rank int) board.Position {
	return board.Position{Rank: rank, File: file}
}

func mv(fromFile, fromRank, toFile, toRank int) board.Move {
	return board.Move{From: pos(fromFile, fromRank), To: pos(toFile, toRank)}
}

func TestNewStateInitialSnapshot(t *testing.T) {
	s := newTestState(t, nil)

	require.Len(t, s.History, 1)
	current := s.Current()
	assert.Equal(t, NotStarted, current.Status.Phase)
	assert.Equal(t, board.White, current.CurrentTurn)
	assert.Nil(t, current.InCheck)
	assert.Nil(t, s.Clock)
	assert.Empty(t, current.CapturedPieces.White)
}

func TestMakeMoveAppendsHistory(t *testing.T) {
	s := newTestState(t, nil)
	now := time.Now()

	require.NoError(t, s.MakeMove(mv(5, 2, 5, 4), now))
	require.Len(t, s.History, 2)

	// The earlier snapshot is untouched.
	first := s.History[0]
	assert.Equal(t, 0, first.Board.MoveCount)
	assert.NotNil(t, first.Board.At(pos(5, 2)))

	current := s.Current()
	assert.Equal(t, 1, current.Board.MoveCount)
	assert.Equal(t, board.Black, current.CurrentTurn)
}

func TestTurnAlternation(t *testing.T) {
	s := newTestState(t, nil)
	now := time.Now()

	moves := []board.Move{mv(5, 2, 5, 4), mv(5, 7, 5, 5), mv(7, 1, 6, 3)}
	for _, m := range moves {
		require.NoError(t, s.MakeMove(m, now))
	}

	// Adjacent snapshots alternate side to move while unfinished.
	for i := 1; i < len(s.History); i++ {
		prev, cur := s.History[i-1], s.History[i]
		if cur.Status.Phase != Finished {
			assert.Equal(t, prev.CurrentTurn.Other(), cur.CurrentTurn)
		}
	}
}

func TestFoolsMate(t *testing.T) {
	s := newTestState(t, nil)
	now := time.Now()

	for _, m := range []board.Move{
		mv(6, 2, 6, 3),
		mv(5, 7, 5, 5),
		mv(7, 2, 7, 4),
		mv(4, 8, 8, 4),
	} {
		require.NoError(t, s.MakeMove(m, now))
	}

	current := s.Current()
	require.Equal(t, Finished, current.Status.Phase)
	require.NotNil(t, current.Status.Ending)
	assert.Equal(t, Checkmate, current.Status.Ending.Kind)
	require.NotNil(t, current.Status.Ending.Loser)
	assert.Equal(t, board.White, *current.Status.Ending.Loser)
	assert.Equal(t, board.Black, *current.Status.Ending.Winner())
	assert.Empty(t, current.CapturedPieces.White)
	assert.Empty(t, current.CapturedPieces.Black)
}

func TestKingsideCastleScenario(t *testing.T) {
	s := newTestState(t, nil)
	now := time.Now()

	for _, m := range []board.Move{
		mv(5, 2, 5, 4),
		mv(5, 7, 5, 5),
		mv(7, 1, 6, 3),
		mv(7, 8, 6, 6),
		mv(6, 1, 3, 4),
		mv(6, 8, 3, 5),
		mv(5, 1, 8, 1), // castle: king to the rook's square
	} {
		require.NoError(t, s.MakeMove(m, now))
	}

	b := s.Current().Board
	king := b.At(pos(7, 1))
	rook := b.At(pos(6, 1))
	require.NotNil(t, king)
	require.NotNil(t, rook)
	assert.Equal(t, board.King, king.Type)
	assert.Equal(t, board.Rook, rook.Type)
	assert.NotNil(t, king.LastMove)
	assert.NotNil(t, rook.LastMove)
	assert.Nil(t, s.Current().InCheck)
}

func TestEnPassantScenario(t *testing.T) {
	s := newTestState(t, nil)
	now := time.Now()

	// Bring a black pawn to e4, then double-jump d2-d4 beside it.
	for _, m := range []board.Move{
		mv(1, 2, 1, 3),
		mv(5, 7, 5, 5),
		mv(1, 3, 1, 4),
		mv(5, 5, 5, 4),
		mv(4, 2, 4, 4), // the double advance
	} {
		require.NoError(t, s.MakeMove(m, now))
	}

	require.NoError(t, s.MakeMove(mv(5, 4, 4, 3), now))

	current := s.Current()
	assert.Nil(t, current.Board.At(pos(4, 4)), "captured white pawn still on d4")
	capturer := current.Board.At(pos(4, 3))
	require.NotNil(t, capturer)
	assert.Equal(t, board.Pawn, capturer.Type)
	assert.Equal(t, board.Black, capturer.Color)

	require.Len(t, current.CapturedPieces.Black, 1)
	assert.Equal(t, board.Pawn, current.CapturedPieces.Black[0].Type)
	assert.Equal(t, 1, current.CapturedPieces.BlackPoints)
}

func TestCaptureAccounting(t *testing.T) {
	s := newTestState(t, nil)
	now := time.Now()

	for _, m := range []board.Move{
		mv(5, 2, 5, 4),
		mv(4, 7, 4, 5),
		mv(5, 4, 4, 5), // exd5
		mv(4, 8, 4, 5), // Qxd5
	} {
		require.NoError(t, s.MakeMove(m, now))
	}

	current := s.Current()
	assert.Equal(t, 1, current.CapturedPieces.WhitePoints)
	assert.Equal(t, 1, current.CapturedPieces.BlackPoints)
	require.Len(t, current.CapturedPieces.White, 1)
	require.Len(t, current.CapturedPieces.Black, 1)
}

func TestClockDecrementAndFlag(t *testing.T) {
	seconds := 10
	s := newTestState(t, &seconds)
	require.NotNil(t, s.Clock)

	start := time.Unix(1000, 0)
	s.Clock.BothSeatedAt = &start

	// White thinks for 3 seconds.
	require.NoError(t, s.MakeMove(mv(5, 2, 5, 4), start.Add(3*time.Second)))
	assert.Equal(t, 7, s.Clock.WhiteSecondsLeft)
	assert.Equal(t, 10, s.Clock.BlackSecondsLeft)

	// Black burns the whole allowance: flag falls, board untouched.
	require.NoError(t, s.MakeMove(mv(5, 7, 5, 5), start.Add(30*time.Second)))
	current := s.Current()
	require.Equal(t, Finished, current.Status.Phase)
	assert.Equal(t, OutOfTime, current.Status.Ending.Kind)
	assert.Equal(t, board.Black, *current.Status.Ending.Loser)
	assert.Equal(t, 0, s.Clock.BlackSecondsLeft)
	assert.NotNil(t, current.Board.At(pos(5, 7)), "flagged move must not touch the board")
}

func TestClockNeverIncreases(t *testing.T) {
	seconds := 100
	s := newTestState(t, &seconds)
	start := time.Unix(2000, 0)
	s.Clock.BothSeatedAt = &start

	now := start
	prevWhite, prevBlack := 100, 100
	for i, m := range []board.Move{
		mv(5, 2, 5, 4), mv(5, 7, 5, 5), mv(7, 1, 6, 3), mv(2, 8, 3, 6),
	} {
		now = now.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.MakeMove(m, now))
		assert.LessOrEqual(t, s.Clock.WhiteSecondsLeft, prevWhite)
		assert.LessOrEqual(t, s.Clock.BlackSecondsLeft, prevBlack)
		prevWhite, prevBlack = s.Clock.WhiteSecondsLeft, s.Clock.BlackSecondsLeft
	}
}

func TestMakeMoveOnFinishedGame(t *testing.T) {
	s := newTestState(t, nil)
	s.Finish(Lost(Resignation, board.White))
	assert.ErrorIs(t, s.MakeMove(mv(5, 2, 5, 4), time.Now()), ErrGameOver)
}

func TestFinishIsIdempotent(t *testing.T) {
	s := newTestState(t, nil)
	s.Finish(Lost(Resignation, board.White))
	s.Finish(Lost(Resignation, board.Black))

	assert.Len(t, s.History, 2)
	assert.Equal(t, board.White, *s.Current().Status.Ending.Loser)
}

func TestStateJSONRoundTrip(t *testing.T) {
	seconds := 60
	s := newTestState(t, &seconds)
	start := time.Unix(3000, 0).UTC()
	s.Clock.BothSeatedAt = &start
	now := start.Add(time.Second)

	require.NoError(t, s.MakeMove(mv(5, 2, 5, 4), now))
	require.NoError(t, s.MakeMove(mv(4, 7, 4, 5), now.Add(time.Second)))
	require.NoError(t, s.MakeMove(mv(5, 4, 4, 5), now.Add(2*time.Second)))

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var restored State
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, s.GameID, restored.GameID)
	require.Len(t, restored.History, len(s.History))
	assert.Equal(t, s.Clock.WhiteSecondsLeft, restored.Clock.WhiteSecondsLeft)

	cur, restoredCur := s.Current(), restored.Current()
	assert.Equal(t, cur.Status.Phase, restoredCur.Status.Phase)
	assert.Equal(t, cur.CurrentTurn, restoredCur.CurrentTurn)
	assert.Equal(t, cur.Board.MoveCount, restoredCur.Board.MoveCount)
	assert.Equal(t, cur.CapturedPieces.WhitePoints, restoredCur.CapturedPieces.WhitePoints)
	require.Len(t, restoredCur.CapturedPieces.White, 1)
	assert.Equal(t, board.Pawn, restoredCur.CapturedPieces.White[0].Type)
}

func TestStatusJSON(t *testing.T) {
	cases := []struct {
		status Status
		want   string
	}{
		{Status{Phase: NotStarted}, `"not-started"`},
		{Status{Phase: InProgress}, `"in-progress"`},
		{FinishedStatus(Lost(Checkmate, board.White)), `{"finished":{"checkmate":"white"}}`},
		{FinishedStatus(Ending{Kind: Stalemate}), `{"finished":"stalemate"}`},
		{FinishedStatus(Ending{Kind: DrawByMutualAgreement}), `{"finished":"draw-by-mutual-agreement"}`},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.status)
		require.NoError(t, err)
		assert.JSONEq(t, tc.want, string(data))

		var restored Status
		require.NoError(t, json.Unmarshal(data, &restored))
		assert.Equal(t, tc.status.Phase, restored.Phase)
		if tc.status.Ending != nil {
			assert.Equal(t, tc.status.Ending.Kind, restored.Ending.Kind)
		}
	}
}
