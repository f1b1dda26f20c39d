package board

var (
	kingOffsets = [8][2]int{
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, -1}, {0, 1},
		{1, -1}, {1, 0}, {1, 1},
	}
	knightOffsets = [8][2]int{
		{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2},
		{1, -2}, {1, 2}, {2, -1}, {2, 1},
	}
	bishopDirections = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	rookDirections   = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	queenDirections  = [8][2]int{
		{-1, 0}, {1, 0}, {0, -1}, {0, 1},
		{-1, -1}, {-1, 1}, {1, -1}, {1, 1},
	}
)

// PossibleMoves returns the destination squares the piece could move to
// from the given position, ignoring whether the mover's own king would
// be left in check. With attacksOnly set, castling destinations are
// omitted; check detection relies on this to avoid recursing back into
// itself through king move generation.
func (p *Piece) PossibleMoves(b *Board, from Position, attacksOnly bool) []Position {
	switch p.Type {
	case King:
		moves := b.stepMoves(from, kingOffsets[:], p.Color)
		if !attacksOnly {
			moves = append(moves, b.castleMoves(from, p)...)
		}
		return moves
	case Knight:
		return b.stepMoves(from, knightOffsets[:], p.Color)
	case Bishop:
		return b.slideMoves(from, bishopDirections[:], p.Color)
	case Rook:
		return b.slideMoves(from, rookDirections[:], p.Color)
	case Queen:
		return b.slideMoves(from, queenDirections[:], p.Color)
	case Pawn:
		return b.pawnMoves(from, p)
	}
	return nil
}

// stepMoves generates single-step destinations that are on the board
// and not occupied by a friendly piece.
func (b *Board) stepMoves(from Position, offsets [][2]int, c Color) []Position {
	var moves []Position
	for _, off := range offsets {
		to := from.offset(off[0], off[1])
		if !b.InBounds(to) {
			continue
		}
		if other := b.At(to); other != nil && other.Color == c {
			continue
		}
		moves = append(moves, to)
	}
	return moves
}

// slideMoves walks each direction until blocked. A friendly blocker
// ends the ray; an enemy blocker ends it with its square included.
func (b *Board) slideMoves(from Position, directions [][2]int, c Color) []Position {
	var moves []Position
	for _, dir := range directions {
		to := from
		for {
			to = to.offset(dir[0], dir[1])
			if !b.InBounds(to) {
				break
			}
			if other := b.At(to); other != nil {
				if other.Color != c {
					moves = append(moves, to)
				}
				break
			}
			moves = append(moves, to)
		}
	}
	return moves
}

// pawnMoves generates forward advances, diagonal captures and
// en-passant captures for a pawn.
func (b *Board) pawnMoves(from Position, p *Piece) []Position {
	var moves []Position
	dir := 1
	if p.Color == Black {
		dir = -1
	}

	// Single advance, and the double advance behind it for an
	// unmoved pawn. The double advance requires both squares empty.
	single := from.offset(dir, 0)
	if b.InBounds(single) && b.At(single) == nil {
		moves = append(moves, single)
		if !p.HasMoved() {
			double := from.offset(2*dir, 0)
			if b.InBounds(double) && b.At(double) == nil {
				moves = append(moves, double)
			}
		}
	}

	// Diagonal captures.
	for _, df := range [2]int{-1, 1} {
		to := from.offset(dir, df)
		if !b.InBounds(to) {
			continue
		}
		if target := b.At(to); target != nil && target.Color != p.Color {
			moves = append(moves, to)
		}
	}

	// En passant: only from the capture rank, only against an
	// adjacent enemy pawn whose double advance was the last move.
	if from.Rank == b.enPassantRank(p.Color) {
		for _, df := range [2]int{-1, 1} {
			adjacent := from.offset(0, df)
			target := b.At(adjacent)
			if target == nil || target.Color == p.Color || target.Type != Pawn {
				continue
			}
			if target.LastMove == nil || *target.LastMove != b.MoveCount {
				continue
			}
			to := from.offset(dir, df)
			if b.InBounds(to) && b.At(to) == nil {
				moves = append(moves, to)
			}
		}
	}

	return moves
}

// enPassantRank is the only rank from which a pawn of the given color
// may capture en passant: three ranks short of the far edge for White,
// the fourth rank for Black.
func (b *Board) enPassantRank(c Color) int {
	if c == White {
		return b.Ranks() - 3
	}
	return 4
}

// castleMoves generates castling destinations for the king, encoded as
// the corner rook's square. Requirements: neither the king nor the
// corner rook has moved, the king is not in check, every square
// strictly between them is empty, and the king neither crosses nor
// lands on an attacked square.
func (b *Board) castleMoves(from Position, king *Piece) []Position {
	if king.HasMoved() || b.IsKingInCheck(king.Color) {
		return nil
	}

	var moves []Position
	for _, corner := range [2]int{1, b.Files()} {
		rookPos := Position{Rank: from.Rank, File: corner}
		rook := b.At(rookPos)
		if rook == nil || rook.Type != Rook || rook.Color != king.Color || rook.HasMoved() {
			continue
		}

		dist := corner - from.File
		if dist < 0 {
			dist = -dist
		}
		if dist < 3 {
			continue
		}

		dir := 1
		if corner < from.File {
			dir = -1
		}

		clear := true
		for f := from.File + dir; f != corner; f += dir {
			if b.At(Position{Rank: from.Rank, File: f}) != nil {
				clear = false
				break
			}
		}
		if !clear {
			continue
		}

		kingDest := from.File + 2*dir
		safe := true
		for f := from.File + dir; safe; f += dir {
			if b.wouldKingBeInCheck(from, Position{Rank: from.Rank, File: f}, king.Color) {
				safe = false
			}
			if f == kingDest {
				break
			}
		}
		if safe {
			moves = append(moves, rookPos)
		}
	}
	return moves
}

// wouldKingBeInCheck tests a hypothetical board with the king moved
// from one square to another.
func (b *Board) wouldKingBeInCheck(from, to Position, c Color) bool {
	hypothetical := b.Clone()
	king := hypothetical.At(from)
	hypothetical.Set(from, nil)
	hypothetical.Set(to, king)
	return hypothetical.IsKingInCheck(c)
}
