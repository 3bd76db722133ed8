// Package board adapts the rules engine to immutable positions and moves.
package board

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// Square is a board square, A1 through H8.
type Square = chess.Square

// NoSquare is returned alongside parse errors.
const NoSquare = chess.NoSquare

// ParseSquare parses a square in algebraic form, e.g. "e4".
func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}
	file := chess.File(s[0] - 'a')
	rank := chess.Rank(s[1] - '1')
	return chess.NewSquare(file, rank), nil
}

// FileIndex returns the square's file, 0 for the a-file.
func FileIndex(sq Square) int {
	return int(sq.File())
}

// RankIndex returns the square's rank, 0 for the first rank.
func RankIndex(sq Square) int {
	return int(sq.Rank())
}
