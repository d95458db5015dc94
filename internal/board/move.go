package board

import (
	"errors"
	"fmt"

	"github.com/dylhunn/dragontoothmg"
)

// ErrIllegalMove is returned when a move is not legal in the position it is played in.
var ErrIllegalMove = errors.New("illegal move")

// Move encodes a chess move in 16 bits:
// bits 0-5:   from square (0-63)
// bits 6-11:  to square (0-63)
// bits 12-14: promotion piece type (0=none, 1=Knight, 2=Bishop, 3=Rook, 4=Queen)
//
// Two moves are equal when origin, destination and promotion are equal.
type Move uint16

// NoMove represents an invalid or null move. It encodes a1a1, which can never be
// generated, so it also serves as the inert stand-in for a disabled hint.
const NoMove Move = 0

// NewMove creates a non-promoting move.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

// NewPromotion creates a promotion move.
func NewPromotion(from, to Square, promo PieceType) Move {
	return Move(from) | Move(to)<<6 | Move(promo&7)<<12
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Promotion returns the promotion piece type, or NoPieceType for non-promotions.
func (m Move) Promotion() PieceType {
	promo := PieceType((m >> 12) & 7)
	if promo == 0 {
		return NoPieceType
	}
	return promo
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return (m>>12)&7 != 0
}

// IsUnderpromotion returns true if the move promotes to anything but a queen.
func (m Move) IsUnderpromotion() bool {
	return m.IsPromotion() && m.Promotion() != Queen
}

// String returns the UCI format of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// ParseMove parses a UCI format move string. It does not check legality.
func ParseMove(s string) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("invalid move string: %q", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		return NewPromotion(from, to, promo), nil
	}

	return NewMove(from, to), nil
}

// fromDragonMove converts a dragontoothmg move into our encoding.
func fromDragonMove(dm dragontoothmg.Move) Move {
	from := Square(dm.From())
	to := Square(dm.To())
	promo := fromDragonPiece(dm.Promote())
	if promo == NoPieceType {
		return NewMove(from, to)
	}
	return NewPromotion(from, to, promo)
}

// toDragonMove builds the dragontoothmg encoding (to | from<<6 | promote<<12).
func toDragonMove(m Move) dragontoothmg.Move {
	dm := uint16(m.To()) | uint16(m.From())<<6
	if m.IsPromotion() {
		dm |= uint16(toDragonPiece(m.Promotion())) << 12
	}
	return dragontoothmg.Move(dm)
}
