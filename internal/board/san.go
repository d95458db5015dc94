package board

import (
	"fmt"
	"strings"
)

// isCastling reports whether m is a king move of two files.
func (p *Position) isCastling(m Move) bool {
	if p.PieceTypeAt(m.From()) != King {
		return false
	}
	d := m.To().File() - m.From().File()
	return d == 2 || d == -2
}

// capturesSAN reports whether m captures, en passant included.
func (p *Position) capturesSAN(m Move) bool {
	if p.PieceTypeAt(m.From()) == Pawn {
		return m.From().File() != m.To().File()
	}
	return p.IsCapture(m)
}

// ToSAN converts a legal move to Standard Algebraic Notation.
func (m Move) ToSAN(pos *Position) string {
	if m == NoMove {
		return "-"
	}

	from := m.From()
	to := m.To()
	pt := pos.PieceTypeAt(from)
	if pt == NoPieceType {
		return m.String() // Fallback to UCI
	}

	var sb strings.Builder
	if pos.isCastling(m) {
		if to > from {
			sb.WriteString("O-O")
		} else {
			sb.WriteString("O-O-O")
		}
	} else {
		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(disambiguation(pos, m, pt))
		}
		if pos.capturesSAN(m) {
			if pt == Pawn {
				sb.WriteByte('a' + byte(from.File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	next := pos.Copy()
	next.MakeMove(m)
	if next.IsCheckmate() {
		sb.WriteByte('#')
	} else if next.InCheck() {
		sb.WriteByte('+')
	}
	return sb.String()
}

// disambiguation returns the origin file, rank or square needed to tell m
// apart from other moves of the same piece type to the same square.
func disambiguation(pos *Position, m Move, pt PieceType) string {
	from := m.From()
	sameFile, sameRank, ambiguous := false, false, false
	for _, other := range pos.LegalMoves() {
		of := other.From()
		if other.To() != m.To() || of == from || pos.PieceTypeAt(of) != pt {
			continue
		}
		ambiguous = true
		sameFile = sameFile || of.File() == from.File()
		sameRank = sameRank || of.Rank() == from.Rank()
	}

	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	default:
		return from.String()
	}
}

// ParseSAN returns the legal move of pos written as s in Standard Algebraic
// Notation. Check marks and annotations are ignored.
func ParseSAN(s string, pos *Position) (Move, error) {
	orig := s
	s = strings.TrimRight(strings.TrimSpace(s), "+#!?")

	if s == "O-O" || s == "0-0" || s == "O-O-O" || s == "0-0-0" {
		rank := 0
		if pos.SideToMove() == Black {
			rank = 7
		}
		to := NewSquare(6, rank)
		if len(s) == 5 {
			to = NewSquare(2, rank)
		}
		m := NewMove(NewSquare(4, rank), to)
		if !pos.IsLegal(m) || !pos.isCastling(m) {
			return NoMove, fmt.Errorf("%w: %s", ErrIllegalMove, orig)
		}
		return m, nil
	}

	promo := NoPieceType
	if idx := strings.IndexByte(s, '='); idx >= 0 {
		if idx+1 >= len(s) {
			return NoMove, fmt.Errorf("invalid SAN: %q", orig)
		}
		switch s[idx+1] {
		case 'N':
			promo = Knight
		case 'B':
			promo = Bishop
		case 'R':
			promo = Rook
		case 'Q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid SAN promotion: %q", orig)
		}
		s = s[:idx]
	}

	isCapture := strings.Contains(s, "x")
	s = strings.ReplaceAll(s, "x", "")

	pt := Pawn
	if len(s) > 0 {
		if i := strings.IndexByte("NBRQK", s[0]); i >= 0 {
			pt = PieceType(i + 1)
			s = s[1:]
		}
	}

	if len(s) < 2 {
		return NoMove, fmt.Errorf("invalid SAN: %q", orig)
	}
	dest, err := ParseSquare(s[len(s)-2:])
	if err != nil {
		return NoMove, fmt.Errorf("invalid SAN %q: %w", orig, err)
	}

	fromFile, fromRank := -1, -1
	for _, c := range s[:len(s)-2] {
		switch {
		case c >= 'a' && c <= 'h':
			fromFile = int(c - 'a')
		case c >= '1' && c <= '8':
			fromRank = int(c - '1')
		default:
			return NoMove, fmt.Errorf("invalid SAN: %q", orig)
		}
	}

	for _, m := range pos.LegalMoves() {
		from := m.From()
		switch {
		case m.To() != dest, pos.PieceTypeAt(from) != pt, m.Promotion() != promo:
			continue
		case fromFile >= 0 && from.File() != fromFile:
			continue
		case fromRank >= 0 && from.Rank() != fromRank:
			continue
		case isCapture && !pos.capturesSAN(m):
			continue
		}
		return m, nil
	}
	return NoMove, fmt.Errorf("%w: %s", ErrIllegalMove, orig)
}

// MovesToSAN converts a line of moves starting at pos to SAN.
func MovesToSAN(pos *Position, moves []Move) []string {
	result := make([]string, len(moves))
	p := pos.Copy()
	for i, m := range moves {
		result[i] = m.ToSAN(p)
		p.MakeMove(m)
	}
	return result
}
