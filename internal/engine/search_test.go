package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesslink/internal/board"
)

func TestSearchUsesOpeningBook(t *testing.T) {
	e := NewAlphaBeta()
	res, err := e.Search(context.Background(), board.StartFEN, 3)
	require.NoError(t, err)

	assert.True(t, res.FromBook)
	assert.Equal(t, board.Position{Rank: 2, File: 5}, res.From)
	assert.Equal(t, board.Position{Rank: 4, File: 5}, res.To)
	assert.Zero(t, res.Nodes)
}

func TestSearchFindsMateInOne(t *testing.T) {
	// White: Ra1, Kg6. Black: Kg8. Ra8 is mate.
	e := NewAlphaBeta()
	res, err := e.Search(context.Background(), "6k1/8/6K1/8/8/8/8/R7 w - - 0 1", 3)
	require.NoError(t, err)

	assert.False(t, res.FromBook)
	assert.Equal(t, board.Position{Rank: 1, File: 1}, res.From)
	assert.Equal(t, board.Position{Rank: 8, File: 1}, res.To)
	assert.Equal(t, 3, res.Depth)
	assert.NotZero(t, res.Nodes)
}

func TestSearchPrefersWinningCapture(t *testing.T) {
	// A black queen hangs on d5 with a white pawn on e4 to take it.
	e := NewAlphaBeta()
	res, err := e.Search(context.Background(), "k7/8/8/3q4/4P3/8/8/K7 w - - 0 1", 2)
	require.NoError(t, err)

	assert.Equal(t, board.Position{Rank: 4, File: 5}, res.From)
	assert.Equal(t, board.Position{Rank: 5, File: 4}, res.To)
}

func TestSearchNoLegalMoves(t *testing.T) {
	// Black to move is stalemated in the corner.
	e := NewAlphaBeta()
	_, err := e.Search(context.Background(), "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", 2)
	assert.ErrorIs(t, err, ErrNoMove)
}

func TestSearchRejectsBadFEN(t *testing.T) {
	e := NewAlphaBeta()
	_, err := e.Search(context.Background(), "not a position", 2)
	assert.Error(t, err)
}

func TestDifficultyClamping(t *testing.T) {
	e := NewAlphaBeta()
	res, err := e.Search(context.Background(), "6k1/8/6K1/8/8/8/8/R7 w - - 0 1", 99)
	require.NoError(t, err)
	assert.Equal(t, maxDepth, res.Depth)

	res, err = e.Search(context.Background(), "6k1/8/6K1/8/8/8/8/R7 w - - 0 1", -5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Depth)
}

func TestBookMoveParsing(t *testing.T) {
	m, ok := bookMove("rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR b KQkq d3 0 1")
	require.True(t, ok)
	assert.Equal(t, board.Position{Rank: 7, File: 4}, m.From)
	assert.Equal(t, board.Position{Rank: 5, File: 4}, m.To)

	_, ok = bookMove("8/8/8/8/8/8/8/8 w - - 0 1")
	assert.False(t, ok)
}
