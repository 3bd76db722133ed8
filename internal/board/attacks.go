package board

import "github.com/notnil/chess"

var (
	knightSteps = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	diagonals   = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	orthogonals = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

// squareAt returns the square at file f, rank r, or false if off the board.
func squareAt(f, r int) (Square, bool) {
	if f < 0 || f > 7 || r < 0 || r > 7 {
		return NoSquare, false
	}
	return chess.NewSquare(chess.File(f), chess.Rank(r)), true
}

// isAttacked reports whether sq is attacked by a piece of color by.
func isAttacked(pieces map[Square]chess.Piece, sq Square, by chess.Color) bool {
	f, r := FileIndex(sq), RankIndex(sq)

	// Pawns attack diagonally forward, so look one rank behind sq.
	dir := -1
	if by == chess.Black {
		dir = 1
	}
	for _, df := range []int{-1, 1} {
		if s, ok := squareAt(f+df, r+dir); ok && pieces[s] == chess.NewPiece(chess.Pawn, by) {
			return true
		}
	}

	for _, st := range knightSteps {
		if s, ok := squareAt(f+st[0], r+st[1]); ok && pieces[s] == chess.NewPiece(chess.Knight, by) {
			return true
		}
	}
	for _, st := range kingSteps {
		if s, ok := squareAt(f+st[0], r+st[1]); ok && pieces[s] == chess.NewPiece(chess.King, by) {
			return true
		}
	}

	if slides(pieces, f, r, diagonals, chess.NewPiece(chess.Bishop, by), chess.NewPiece(chess.Queen, by)) {
		return true
	}
	return slides(pieces, f, r, orthogonals, chess.NewPiece(chess.Rook, by), chess.NewPiece(chess.Queen, by))
}

// slides reports whether the first piece along any ray from (f, r) is one
// of the given sliders.
func slides(pieces map[Square]chess.Piece, f, r int, rays [][2]int, sliders ...chess.Piece) bool {
	for _, ray := range rays {
		for i := 1; ; i++ {
			s, ok := squareAt(f+ray[0]*i, r+ray[1]*i)
			if !ok {
				break
			}
			p, ok := pieces[s]
			if !ok || p == chess.NoPiece {
				continue
			}
			for _, sl := range sliders {
				if p == sl {
					return true
				}
			}
			break
		}
	}
	return false
}
