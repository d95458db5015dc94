package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dylhunn/dragontoothmg"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidFEN is returned for FEN strings that do not describe a playable position.
var ErrInvalidFEN = errors.New("invalid FEN")

// ParseFEN parses a FEN string and returns a Position.
// The half-move clock and full-move number may be omitted, as in EPD records.
func ParseFEN(fen string) (pos *Position, err error) {
	parts := strings.Fields(fen)
	if len(parts) != 4 && len(parts) != 6 {
		return nil, fmt.Errorf("%w: need 4 or 6 fields, got %d", ErrInvalidFEN, len(parts))
	}
	if len(parts) == 4 {
		parts = append(parts, "0", "1")
	}

	if err := validatePlacement(parts[0]); err != nil {
		return nil, err
	}
	if parts[1] != "w" && parts[1] != "b" {
		return nil, fmt.Errorf("%w: invalid side to move: %s", ErrInvalidFEN, parts[1])
	}
	if err := validateCastling(parts[2]); err != nil {
		return nil, err
	}
	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil || (sq.Rank() != 2 && sq.Rank() != 5) {
			return nil, fmt.Errorf("%w: invalid en passant square: %s", ErrInvalidFEN, parts[3])
		}
	}
	for _, field := range parts[4:] {
		if n, err := strconv.Atoi(field); err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid move counter: %s", ErrInvalidFEN, field)
		}
	}

	// dragontoothmg panics on input it cannot digest; report it as a parse error.
	defer func() {
		if r := recover(); r != nil {
			pos, err = nil, fmt.Errorf("%w: %v", ErrInvalidFEN, r)
		}
	}()
	return &Position{b: dragontoothmg.ParseFen(strings.Join(parts, " "))}, nil
}

// validatePlacement checks the piece placement field of a FEN string.
func validatePlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: need 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}

	kings := [2]int{}
	for i, rank := range ranks {
		files := 0
		for j := 0; j < len(rank); j++ {
			c := rank[j]
			if c >= '1' && c <= '8' {
				files += int(c - '0')
				continue
			}
			idx := strings.IndexByte("PNBRQKpnbrqk", c)
			if idx < 0 {
				return fmt.Errorf("%w: invalid piece character: %c", ErrInvalidFEN, c)
			}
			piece := Piece(idx)
			if piece.Type() == King {
				kings[piece.Color()]++
			}
			// i == 0 is the 8th rank, i == 7 the 1st
			if piece.Type() == Pawn && (i == 0 || i == 7) {
				return fmt.Errorf("%w: pawn on back rank", ErrInvalidFEN)
			}
			files++
		}
		if files != 8 {
			return fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, 8-i, files)
		}
	}

	if kings[White] != 1 || kings[Black] != 1 {
		return fmt.Errorf("%w: each side needs exactly one king", ErrInvalidFEN)
	}
	return nil
}

func validateCastling(castling string) error {
	if castling == "-" {
		return nil
	}
	for i := 0; i < len(castling); i++ {
		if strings.IndexByte("KQkq", castling[i]) < 0 {
			return fmt.Errorf("%w: invalid castling rights: %s", ErrInvalidFEN, castling)
		}
	}
	return nil
}

// ToFEN returns the FEN representation of the position.
func (p *Position) ToFEN() string {
	return p.b.ToFen()
}
