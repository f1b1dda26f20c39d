package board

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// boardWire is the compact JSON form of a board: the squares packed
// two per byte and base64 encoded, a parallel list of per-square move
// stamps, the dimensions, and the move counter. Squares are traversed
// in rank-major order from the top rank down, files left to right.
type boardWire struct {
	Squares   string `json:"squares"`
	LastMoves []*int `json:"lastMoves"`
	Ranks     int    `json:"ranks"`
	Files     int    `json:"files"`
	MoveCount int    `json:"moveCount"`
}

// Pack serializes the squares into 4-bit piece codes, two per byte,
// high nibble first. An odd square count leaves the final low nibble
// empty (0xF).
func (b *Board) Pack() []byte {
	count := b.Ranks() * b.Files()
	out := make([]byte, 0, (count+1)/2)

	nibble := func(idx int) byte {
		pc := b.pieceAtTraversalIndex(idx)
		if pc == nil {
			return EmptySquare
		}
		return EncodePiece(pc)
	}

	for i := 0; i < count; i += 2 {
		hi := nibble(i)
		lo := EmptySquare
		if i+1 < count {
			lo = nibble(i + 1)
		}
		out = append(out, hi<<4|lo)
	}
	return out
}

// PackStamps returns the per-square move stamps in the same traversal
// order as Pack: a value for each stamped piece, nil elsewhere.
func (b *Board) PackStamps() []*int {
	count := b.Ranks() * b.Files()
	out := make([]*int, count)
	for i := 0; i < count; i++ {
		if pc := b.pieceAtTraversalIndex(i); pc != nil && pc.LastMove != nil {
			stamp := *pc.LastMove
			out[i] = &stamp
		}
	}
	return out
}

// pieceAtTraversalIndex maps a wire traversal index (top rank first)
// to the piece on that square.
func (b *Board) pieceAtTraversalIndex(idx int) *Piece {
	rank := b.Ranks() - idx/b.Files()
	file := idx%b.Files() + 1
	return b.Squares[rank-1][file-1]
}

// Unpack rebuilds a board from packed squares, stamps and dimensions.
func Unpack(packed []byte, stamps []*int, ranks, files, moveCount int) (*Board, error) {
	if ranks < 1 || ranks > MaxDimension || files < 1 || files > MaxDimension {
		return nil, fmt.Errorf("board dimensions %dx%d out of range", ranks, files)
	}
	count := ranks * files
	if len(packed) != (count+1)/2 {
		return nil, fmt.Errorf("packed board has %d bytes, want %d", len(packed), (count+1)/2)
	}

	b := newEmptyBoard(ranks, files)
	b.MoveCount = moveCount

	for idx := 0; idx < count; idx++ {
		code := packed[idx/2]
		if idx%2 == 0 {
			code >>= 4
		}
		code &= 0xF
		pc, ok := DecodePiece(code)
		if !ok {
			continue
		}
		if idx < len(stamps) && stamps[idx] != nil {
			stamp := *stamps[idx]
			pc.LastMove = &stamp
		}
		rank := ranks - idx/files
		file := idx%files + 1
		b.Squares[rank-1][file-1] = pc
	}
	return b, nil
}

// MarshalJSON emits the compact wire form.
func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(boardWire{
		Squares:   base64.StdEncoding.EncodeToString(b.Pack()),
		LastMoves: b.PackStamps(),
		Ranks:     b.Ranks(),
		Files:     b.Files(),
		MoveCount: b.MoveCount,
	})
}

// UnmarshalJSON rebuilds a board from the compact wire form.
func (b *Board) UnmarshalJSON(data []byte) error {
	var wire boardWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	packed, err := base64.StdEncoding.DecodeString(wire.Squares)
	if err != nil {
		return fmt.Errorf("decoding board squares: %w", err)
	}
	decoded, err := Unpack(packed, wire.LastMoves, wire.Ranks, wire.Files, wire.MoveCount)
	if err != nil {
		return err
	}
	*b = *decoded
	return nil
}
