// Package engine provides the machine opponent: a SearchEngine
// contract taking a FEN position descriptor, and a built-in
// alpha-beta searcher implementing it.
package engine

import (
	"context"

	"github.com/hailam/chesslink/internal/board"
)

// SearchResult is the engine's answer: the best move it found plus
// search statistics.
type SearchResult struct {
	From     board.Position
	To       board.Position
	Promote  *board.PieceType
	Depth    int
	Nodes    uint64
	QNodes   uint64
	TimeMs   uint64
	FromBook bool
}

// SearchEngine finds a best move for the side to move in the given
// position. Difficulty is an opaque small integer; larger means
// stronger.
type SearchEngine interface {
	Search(ctx context.Context, fen string, difficulty int) (*SearchResult, error)
}
