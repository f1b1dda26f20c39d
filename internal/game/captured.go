package game

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/hailam/chesslink/internal/board"
)

// CapturedPieces tracks the pieces each side has taken and their point
// totals. The white list holds pieces captured by White.
type CapturedPieces struct {
	White       []board.Piece
	WhitePoints int
	Black       []board.Piece
	BlackPoints int
}

// Add records a capture by the given color.
func (cp *CapturedPieces) Add(capturer board.Color, p board.Piece) {
	if capturer == board.White {
		cp.White = append(cp.White, p)
		cp.WhitePoints += p.Type.Points()
	} else {
		cp.Black = append(cp.Black, p)
		cp.BlackPoints += p.Type.Points()
	}
}

// Clone returns a deep copy.
func (cp CapturedPieces) Clone() CapturedPieces {
	out := cp
	out.White = append([]board.Piece(nil), cp.White...)
	out.Black = append([]board.Piece(nil), cp.Black...)
	return out
}

type capturedWire struct {
	White       string `json:"white"`
	WhitePoints int    `json:"whitePoints"`
	Black       string `json:"black"`
	BlackPoints int    `json:"blackPoints"`
}

func encodeCaptureList(pieces []board.Piece) string {
	bytes := make([]byte, len(pieces))
	for i := range pieces {
		bytes[i] = board.EncodePiece(&pieces[i])
	}
	return base64.StdEncoding.EncodeToString(bytes)
}

func decodeCaptureList(s string) ([]board.Piece, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding capture list: %w", err)
	}
	var pieces []board.Piece
	for _, code := range raw {
		pc, ok := board.DecodePiece(code)
		if !ok {
			return nil, fmt.Errorf("invalid piece code %d in capture list", code)
		}
		pieces = append(pieces, *pc)
	}
	return pieces, nil
}

// MarshalJSON encodes each capture list as a base64 byte stream of
// piece codes alongside the point totals.
func (cp CapturedPieces) MarshalJSON() ([]byte, error) {
	return json.Marshal(capturedWire{
		White:       encodeCaptureList(cp.White),
		WhitePoints: cp.WhitePoints,
		Black:       encodeCaptureList(cp.Black),
		BlackPoints: cp.BlackPoints,
	})
}

// UnmarshalJSON reverses MarshalJSON.
func (cp *CapturedPieces) UnmarshalJSON(data []byte) error {
	var wire capturedWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	white, err := decodeCaptureList(wire.White)
	if err != nil {
		return err
	}
	black, err := decodeCaptureList(wire.Black)
	if err != nil {
		return err
	}
	*cp = CapturedPieces{
		White:       white,
		WhitePoints: wire.WhitePoints,
		Black:       black,
		BlackPoints: wire.BlackPoints,
	}
	return nil
}
