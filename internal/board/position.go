package board

import (
	"fmt"
	"strings"

	"github.com/dylhunn/dragontoothmg"
)

// Position represents a complete chess position. Piece placement, legality and
// incremental Zobrist hashing are delegated to a dragontoothmg board.
type Position struct {
	b dragontoothmg.Board
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

// Copy creates a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	return &newPos
}

// SideToMove returns the color whose turn it is.
func (p *Position) SideToMove() Color {
	if p.b.Wtomove {
		return White
	}
	return Black
}

func (p *Position) side(c Color) *dragontoothmg.Bitboards {
	if c == White {
		return &p.b.White
	}
	return &p.b.Black
}

// Colors returns the squares occupied by the given side.
func (p *Position) Colors(c Color) Bitboard {
	return Bitboard(p.side(c).All)
}

// Occupied returns all occupied squares.
func (p *Position) Occupied() Bitboard {
	return Bitboard(p.b.White.All | p.b.Black.All)
}

// Pieces returns the squares holding pieces of the given type and color.
func (p *Position) Pieces(c Color, pt PieceType) Bitboard {
	bbs := p.side(c)
	switch pt {
	case Pawn:
		return Bitboard(bbs.Pawns)
	case Knight:
		return Bitboard(bbs.Knights)
	case Bishop:
		return Bitboard(bbs.Bishops)
	case Rook:
		return Bitboard(bbs.Rooks)
	case Queen:
		return Bitboard(bbs.Queens)
	case King:
		return Bitboard(bbs.Kings)
	}
	return Empty
}

// PieceTypeAt returns the type of the piece on sq, or NoPieceType if the square is empty.
func (p *Position) PieceTypeAt(sq Square) PieceType {
	return p.PieceAt(sq).Type()
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.Occupied()&bb == 0 {
		return NoPiece
	}

	c := White
	if p.Colors(Black)&bb != 0 {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces(c, pt)&bb != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.Occupied()&SquareBB(sq) == 0
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	return p.b.OurKingInCheck()
}

// Hash returns the Zobrist hash of the position.
func (p *Position) Hash() uint64 {
	return p.b.Hash()
}

// Material returns the material balance (positive favors white).
func (p *Position) Material() int {
	score := 0
	for pt := Pawn; pt < King; pt++ {
		score += p.Pieces(White, pt).PopCount() * PieceValue[pt]
		score -= p.Pieces(Black, pt).PopCount() * PieceValue[pt]
	}
	return score
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(piece.String() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Side to move: %s\n", p.SideToMove())
	fmt.Fprintf(&sb, "FEN: %s\n", p.ToFEN())
	fmt.Fprintf(&sb, "Hash: %016x\n", p.Hash())
	return sb.String()
}
