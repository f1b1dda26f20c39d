package board

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Color represents the color of a piece or player.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposite color.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// String returns the wire name of the color.
func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// ParseColor converts a wire name back to a Color.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(s) {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	}
	return White, fmt.Errorf("%q is not a valid color", s)
}

// MarshalJSON encodes the color as its lowercase name.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a lowercase color name.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// PieceType represents the type of a chess piece.
// The numeric values double as the wire encoding indices.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

// pieceNames is indexed by PieceType.
var pieceNames = [6]string{"pawn", "knight", "bishop", "rook", "queen", "king"}

// piecePoints holds the capture value of each piece type.
// Kings are never captured, so their value is zero.
var piecePoints = [6]int{1, 3, 3, 5, 9, 0}

// String returns the wire name of the piece type.
func (pt PieceType) String() string {
	if int(pt) >= len(pieceNames) {
		return "unknown"
	}
	return pieceNames[pt]
}

// Points returns the capture value of the piece type.
func (pt PieceType) Points() int {
	if int(pt) >= len(piecePoints) {
		return 0
	}
	return piecePoints[pt]
}

// ParsePieceType converts a wire name back to a PieceType.
func ParsePieceType(s string) (PieceType, error) {
	for i, name := range pieceNames {
		if name == strings.ToLower(s) {
			return PieceType(i), nil
		}
	}
	return Pawn, fmt.Errorf("%q is not a valid piece type", s)
}

// MarshalJSON encodes the piece type as its lowercase name.
func (pt PieceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(pt.String())
}

// UnmarshalJSON decodes a lowercase piece type name.
func (pt *PieceType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePieceType(s)
	if err != nil {
		return err
	}
	*pt = parsed
	return nil
}

// Piece is a single piece on the board. LastMove is the value of the
// board's move counter when the piece last moved, or nil if it has
// never moved. The stamp drives castling eligibility, pawn double
// advances and the en-passant window.
type Piece struct {
	Type     PieceType `json:"pieceType"`
	Color    Color     `json:"color"`
	LastMove *int      `json:"lastGameMove,omitempty"`
}

// NewPiece returns an unmoved piece.
func NewPiece(pt PieceType, c Color) *Piece {
	return &Piece{Type: pt, Color: c}
}

// Clone returns a deep copy of the piece.
func (p *Piece) Clone() *Piece {
	if p == nil {
		return nil
	}
	cp := *p
	if p.LastMove != nil {
		stamp := *p.LastMove
		cp.LastMove = &stamp
	}
	return &cp
}

// HasMoved reports whether the piece carries a move stamp.
func (p *Piece) HasMoved() bool {
	return p.LastMove != nil
}

// EmptySquare is the nibble code for a square with no piece.
const EmptySquare byte = 0xF

// EncodePiece packs a piece into its 4-bit wire code: the piece type
// index, offset by 6 for black.
func EncodePiece(p *Piece) byte {
	code := byte(p.Type)
	if p.Color == Black {
		code += 6
	}
	return code
}

// DecodePiece unpacks a 4-bit wire code. Codes 12-15 have no piece.
func DecodePiece(code byte) (*Piece, bool) {
	if code >= 12 {
		return nil, false
	}
	c := White
	if code >= 6 {
		c = Black
		code -= 6
	}
	return &Piece{Type: PieceType(code), Color: c}, true
}
