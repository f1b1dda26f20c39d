package engine

import (
	"context"
	"errors"
	"time"

	"github.com/hailam/chesslink/internal/board"
)

const (
	// mateScore is the base score for delivering checkmate; shallower
	// mates score higher so the search prefers the fastest one.
	mateScore = 100000
	// maxDepth caps the main search regardless of difficulty.
	maxDepth = 5
	// quiescenceDepth bounds the capture-only extension.
	quiescenceDepth = 4
)

// ErrNoMove is returned when the side to move has no legal moves.
var ErrNoMove = errors.New("no legal move in position")

// AlphaBeta is the built-in searcher: material and mobility evaluation
// under a fixed-depth negamax with a capture-only quiescence tail.
// Difficulty maps to search depth, clamped to 1..maxDepth.
type AlphaBeta struct{}

// NewAlphaBeta returns the built-in searcher.
func NewAlphaBeta() *AlphaBeta {
	return &AlphaBeta{}
}

// Search implements SearchEngine. The opening book is consulted first;
// a hit returns immediately with FromBook set.
func (e *AlphaBeta) Search(ctx context.Context, fen string, difficulty int) (*SearchResult, error) {
	b, side, err := board.ParseFEN(fen)
	if err != nil {
		return nil, err
	}

	started := time.Now()

	if m, ok := bookMove(fen); ok {
		if pc := b.At(m.From); pc != nil && pc.Color == side && b.ValidateMove(m, side) == nil {
			return &SearchResult{
				From:     m.From,
				To:       m.To,
				TimeMs:   uint64(time.Since(started).Milliseconds()),
				FromBook: true,
			}, nil
		}
	}

	depth := difficulty
	if depth < 1 {
		depth = 1
	}
	if depth > maxDepth {
		depth = maxDepth
	}

	s := &searcher{ctx: ctx}
	best, score, err := s.searchRoot(b, side, depth)
	if err != nil {
		return nil, err
	}
	_ = score

	return &SearchResult{
		From:   best.From,
		To:     best.To,
		Depth:  depth,
		Nodes:  s.nodes,
		QNodes: s.qnodes,
		TimeMs: uint64(time.Since(started).Milliseconds()),
	}, nil
}

type searcher struct {
	ctx    context.Context
	nodes  uint64
	qnodes uint64
}

// searchRoot scores every legal root move and keeps the best.
func (s *searcher) searchRoot(b *board.Board, side board.Color, depth int) (board.Move, int, error) {
	moves := legalMoves(b, side)
	if len(moves) == 0 {
		return board.Move{}, 0, ErrNoMove
	}

	best := moves[0]
	bestScore := -2 * mateScore
	for _, m := range moves {
		if err := s.ctx.Err(); err != nil {
			return best, bestScore, err
		}
		child := b.Clone()
		child.ApplyMove(m)
		score := -s.negamax(child, side.Other(), depth-1, -2*mateScore, -bestScore, 1)
		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	return best, bestScore, nil
}

// negamax is a plain fail-soft alpha-beta.
func (s *searcher) negamax(b *board.Board, side board.Color, depth, alpha, beta, ply int) int {
	s.nodes++

	moves := legalMoves(b, side)
	if len(moves) == 0 {
		if b.IsKingInCheck(side) {
			return -(mateScore - ply)
		}
		return 0
	}

	if depth <= 0 {
		return s.quiescence(b, side, alpha, beta, quiescenceDepth, moves)
	}

	best := -2 * mateScore
	for _, m := range moves {
		child := b.Clone()
		child.ApplyMove(m)
		score := -s.negamax(child, side.Other(), depth-1, -beta, -alpha, ply+1)
		if score > best {
			best = score
		}
		if best > alpha {
			alpha = best
		}
		if alpha >= beta {
			break
		}
	}
	return best
}

// quiescence resolves hanging captures so the evaluation at the
// horizon is not an illusion. Only capture moves are extended.
func (s *searcher) quiescence(b *board.Board, side board.Color, alpha, beta, depth int, moves []board.Move) int {
	standPat := evaluate(b, side)
	if depth <= 0 || standPat >= beta {
		return standPat
	}
	if standPat > alpha {
		alpha = standPat
	}

	for _, m := range moves {
		if !isCapture(b, m) {
			continue
		}
		s.qnodes++
		child := b.Clone()
		child.ApplyMove(m)
		score := -s.quiescence(child, side.Other(), -beta, -alpha, depth-1, legalMoves(child, side.Other()))
		if score >= beta {
			return score
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

// isCapture recognizes a destination occupied by the enemy or a
// diagonal pawn move (en passant lands on an empty square).
func isCapture(b *board.Board, m board.Move) bool {
	if b.At(m.To) != nil {
		return true
	}
	pc := b.At(m.From)
	return pc != nil && pc.Type == board.Pawn && m.From.File != m.To.File
}

// legalMoves generates every move for the side that does not leave its
// own king in check.
func legalMoves(b *board.Board, side board.Color) []board.Move {
	var moves []board.Move
	for _, placed := range b.Pieces(side) {
		for _, to := range placed.Piece.PossibleMoves(b, placed.Pos, false) {
			m := board.Move{From: placed.Pos, To: to}
			trial := b.Clone()
			trial.ApplyMove(m)
			if !trial.IsKingInCheck(side) {
				moves = append(moves, m)
			}
		}
	}
	return moves
}

// evaluate scores the position for the side to move: captured-value
// material balance in centipawns plus a small mobility term.
func evaluate(b *board.Board, side board.Color) int {
	score := 0
	for _, placed := range b.Pieces(side) {
		score += placed.Piece.Type.Points() * 100
		score += len(placed.Piece.PossibleMoves(b, placed.Pos, true)) * 2
	}
	for _, placed := range b.Pieces(side.Other()) {
		score -= placed.Piece.Type.Points() * 100
		score -= len(placed.Piece.PossibleMoves(b, placed.Pos, true)) * 2
	}
	return score
}
