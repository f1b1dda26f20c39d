package board

import "errors"

// Validation failures, one per rejection reason so callers can report
// the specific problem back to the player.
var (
	ErrNotYourPiece    = errors.New("no piece of yours at the origin square")
	ErrOutOfBounds     = errors.New("destination square is off the board")
	ErrIllegalForPiece = errors.New("the piece cannot move to that square")
	ErrSelfCheck       = errors.New("the move would leave your king in check")
)

// ValidateMove checks a candidate move for the given side. A nil
// return guarantees the move is safe to apply.
func (b *Board) ValidateMove(m Move, side Color) error {
	mover := b.At(m.From)
	if mover == nil || mover.Color != side {
		return ErrNotYourPiece
	}
	if !b.InBounds(m.To) {
		return ErrOutOfBounds
	}

	legal := false
	for _, to := range mover.PossibleMoves(b, m.From, false) {
		if to == m.To {
			legal = true
			break
		}
	}
	if !legal {
		return ErrIllegalForPiece
	}

	trial := b.Clone()
	trial.ApplyMove(m)
	if trial.IsKingInCheck(side) {
		return ErrSelfCheck
	}
	return nil
}
