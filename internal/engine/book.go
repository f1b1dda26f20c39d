package engine

import (
	"strings"

	"github.com/hailam/chesslink/internal/board"
)

// openingBook maps early positions to a known reply. Keys are the
// first two FEN fields (placement and side to move) so clocks and
// castling noise never miss the lookup. Values are from/to squares.
var openingBook = map[string]string{
	// Starting position: king's pawn.
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w": "e2e4",
	// 1.e4: the open game.
	"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b": "e7e5",
	// 1.d4: the closed reply.
	"rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR b": "d7d5",
	// 1.e4 e5: king's knight.
	"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w": "g1f3",
	// 1.e4 e5 2.Nf3: defend the pawn.
	"rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b": "b8c6",
	// 1.d4 d5: queen's gambit.
	"rnbqkbnr/ppp1pppp/8/3p4/3P4/8/PPP1PPPP/RNBQKBNR w": "c2c4",
}

// bookMove looks up the position in the opening book and parses the
// stored move.
func bookMove(fen string) (board.Move, bool) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return board.Move{}, false
	}

	entry, ok := openingBook[fields[0]+" "+fields[1]]
	if !ok {
		return board.Move{}, false
	}
	return parseSquares(entry)
}

// parseSquares reads a four-character from/to move like "e2e4".
func parseSquares(s string) (board.Move, bool) {
	if len(s) != 4 {
		return board.Move{}, false
	}
	from, ok := parseSquare(s[0:2])
	if !ok {
		return board.Move{}, false
	}
	to, ok := parseSquare(s[2:4])
	if !ok {
		return board.Move{}, false
	}
	return board.Move{From: from, To: to}, true
}

func parseSquare(s string) (board.Position, bool) {
	file := int(s[0]-'a') + 1
	rank := int(s[1]-'0')
	if file < 1 || file > 8 || rank < 1 || rank > 8 {
		return board.Position{}, false
	}
	return board.Position{Rank: rank, File: file}, true
}
