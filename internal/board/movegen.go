package board

import (
	"fmt"

	"github.com/dylhunn/dragontoothmg"
)

// PieceMoves is the set of legal destinations of one piece, as reported by the
// grouped generator. A pawn destination on the first or last rank stands for
// four promotion moves.
type PieceMoves struct {
	Piece PieceType
	From  Square
	To    Bitboard
}

// Promotion pieces in the order a group iterator yields them.
var promotionOrder = [4]PieceType{Queen, Rook, Bishop, Knight}

// Has reports whether sq is one of the group's destinations.
func (pm PieceMoves) Has(sq Square) bool {
	return pm.To.IsSet(sq)
}

// Contains reports whether m is one of the group's moves. A move onto a
// promotion square must name a promotion piece and any other move must not.
func (pm PieceMoves) Contains(m Move) bool {
	if m.From() != pm.From || !pm.Has(m.To()) {
		return false
	}
	if pm.promotes(m.To()) {
		promo := m.Promotion()
		return promo >= Knight && promo <= Queen
	}
	return !m.IsPromotion()
}

// promotes reports whether moving to sq promotes.
func (pm PieceMoves) promotes(sq Square) bool {
	return pm.Piece == Pawn && PromotionRanks.IsSet(sq)
}

// Iter returns an iterator over the group's moves, lowest destination first.
func (pm PieceMoves) Iter() PieceMovesIter {
	return PieceMovesIter{moves: pm}
}

// PieceMovesIter lazily expands a PieceMoves group into moves.
type PieceMovesIter struct {
	moves PieceMoves
	promo int
}

// Next returns the next move of the group and false once the group is drained.
func (it *PieceMovesIter) Next() (Move, bool) {
	if it.moves.To == 0 {
		return NoMove, false
	}

	from := it.moves.From
	to := it.moves.To.LSB()
	if !it.moves.promotes(to) {
		it.moves.To = it.moves.To.Clear(to)
		return NewMove(from, to), true
	}

	promo := promotionOrder[it.promo]
	it.promo++
	if it.promo == len(promotionOrder) {
		it.promo = 0
		it.moves.To = it.moves.To.Clear(to)
	}
	return NewPromotion(from, to, promo), true
}

// GeneratePieceMoves reports the legal moves of the side to move grouped by origin
// square, in generator order. visit returns false to stop early; the return value
// is false if generation was stopped.
func (p *Position) GeneratePieceMoves(visit func(PieceMoves) bool) bool {
	moves := p.b.GenerateLegalMoves()

	var dests [64]Bitboard
	origins := make([]Square, 0, 16)
	for i := range moves {
		from := Square(moves[i].From())
		if dests[from] == 0 {
			origins = append(origins, from)
		}
		dests[from] = dests[from].Set(Square(moves[i].To()))
	}

	for _, from := range origins {
		pm := PieceMoves{
			Piece: p.PieceTypeAt(from),
			From:  from,
			To:    dests[from],
		}
		if !visit(pm) {
			return false
		}
	}
	return true
}

// LegalMoves returns all legal moves in generator order.
func (p *Position) LegalMoves() []Move {
	moves := p.b.GenerateLegalMoves()
	legal := make([]Move, len(moves))
	for i := range moves {
		legal[i] = fromDragonMove(moves[i])
	}
	return legal
}

// IsLegal returns true if m is a legal move in the position.
func (p *Position) IsLegal(m Move) bool {
	if m == NoMove {
		return false
	}
	moves := p.b.GenerateLegalMoves()
	for i := range moves {
		if fromDragonMove(moves[i]) == m {
			return true
		}
	}
	return false
}

// HasLegalMoves returns true if the side to move has at least one legal move.
func (p *Position) HasLegalMoves() bool {
	return len(p.b.GenerateLegalMoves()) > 0
}

// IsCheckmate returns true if the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// UndoInfo stores information needed to undo a move.
type UndoInfo struct {
	unapply func()
}

// MakeMove plays m, which must be legal in the position. Callers holding a move
// of unknown provenance should check IsLegal first or use Play.
func (p *Position) MakeMove(m Move) UndoInfo {
	return UndoInfo{unapply: p.b.Apply(toDragonMove(m))}
}

// UnmakeMove takes back the move that produced undo.
func (p *Position) UnmakeMove(undo UndoInfo) {
	if undo.unapply != nil {
		undo.unapply()
	}
}

// Play validates and plays m permanently.
func (p *Position) Play(m Move) error {
	if !p.IsLegal(m) {
		return fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	p.b.Apply(toDragonMove(m))
	return nil
}

// Perft counts the number of leaf nodes at the given depth.
func (p *Position) Perft(depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := p.b.GenerateLegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}

	var nodes uint64
	for i := range moves {
		unapply := p.b.Apply(moves[i])
		nodes += p.Perft(depth - 1)
		unapply()
	}
	return nodes
}

// IsCapture reports whether m lands on an occupied square. En passant
// captures land on an empty square and are not included.
func (p *Position) IsCapture(m Move) bool {
	return dragontoothmg.IsCapture(toDragonMove(m), &p.b)
}
