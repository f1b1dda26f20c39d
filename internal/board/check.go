package board

// IsKingInCheck reports whether the king of the given color is
// attacked by any enemy piece. Castling is excluded from the attack
// sets; a castle can never deliver the attack that matters here and
// including it would recurse back into check detection.
func (b *Board) IsKingInCheck(c Color) bool {
	kingPos, ok := b.KingPosition(c)
	if !ok {
		return false
	}
	for _, placed := range b.Pieces(c.Other()) {
		for _, to := range placed.Piece.PossibleMoves(b, placed.Pos, true) {
			if to == kingPos {
				return true
			}
		}
	}
	return false
}

// HasLegalMove reports whether the given color has at least one move
// that leaves its own king out of check. Used for checkmate detection
// after check has been established.
func (b *Board) HasLegalMove(c Color) bool {
	for _, placed := range b.Pieces(c) {
		for _, to := range placed.Piece.PossibleMoves(b, placed.Pos, false) {
			trial := b.Clone()
			trial.ApplyMove(Move{From: placed.Pos, To: to})
			if !trial.IsKingInCheck(c) {
				return true
			}
		}
	}
	return false
}
