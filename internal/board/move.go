package board

import (
	"strings"

	"github.com/notnil/chess"

	"github.com/hailam/chessmcp/internal/failure"
)

// Move is a legal move bound to the position it was generated from.
type Move struct {
	move *chess.Move
	from *chess.Position
}

// From returns the origin square.
func (m Move) From() Square {
	return m.move.S1()
}

// To returns the destination square.
func (m Move) To() Square {
	return m.move.S2()
}

// UCI returns the move in long algebraic form, e.g. "e2e4" or "e7e8q".
func (m Move) UCI() string {
	return chess.UCINotation{}.Encode(m.from, m.move)
}

// SAN returns the move in Standard Algebraic Notation, e.g. "Nf3" or "O-O".
func (m Move) SAN() string {
	return chess.AlgebraicNotation{}.Encode(m.from, m.move)
}

// String returns the UCI form.
func (m Move) String() string {
	return m.UCI()
}

// IsZero reports whether m is the zero Move.
func (m Move) IsZero() bool {
	return m.move == nil
}

// ParseMove resolves s against pos. Both UCI ("e2e4") and SAN ("e4",
// "exd5", "O-O", "Qxf7#") are accepted. A move that is not in the
// position's legal set fails with failure.IllegalMove.
func ParseMove(pos *Position, s string) (Move, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return Move{}, failure.New(failure.IllegalMove, "empty move")
	}

	legal := pos.LegalMoves()

	uci := strings.ToLower(text)
	for _, m := range legal {
		if m.UCI() == uci {
			return m, nil
		}
	}

	san := normalizeSAN(text)
	for _, m := range legal {
		if normalizeSAN(m.SAN()) == san {
			return m, nil
		}
	}

	return Move{}, failure.New(failure.IllegalMove, "move %q is not legal in %s", s, pos.FEN())
}

// normalizeSAN strips annotation suffixes and maps zero-castling to O-O.
func normalizeSAN(s string) string {
	s = strings.TrimRight(s, "+#!?")
	s = strings.ReplaceAll(s, "0-0-0", "O-O-O")
	s = strings.ReplaceAll(s, "0-0", "O-O")
	return s
}
