package board

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"github.com/hailam/chessmcp/internal/failure"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string and returns a Position.
// Malformed input fails with failure.InvalidPosition.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return nil, failure.New(failure.InvalidPosition, "empty FEN")
	}
	// Accept the 4-field EPD form and fill in the move counters.
	if len(fields) == 4 {
		fields = append(fields, "0", "1")
	}
	fen = strings.Join(fields, " ")

	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, failure.Wrap(failure.InvalidPosition, err, "cannot parse FEN %q", fen)
	}
	pos := chess.NewGame(opt).Position()

	if err := validate(pos); err != nil {
		return nil, failure.Wrap(failure.InvalidPosition, err, "invalid FEN %q", fen)
	}

	return &Position{pos: pos}, nil
}

// validate rejects positions that cannot arise in a game: a missing or
// extra king, the side not to move in check, castling rights without the
// king and rook at home, and an impossible en passant square.
func validate(pos *chess.Position) error {
	pieces := pos.Board().SquareMap()

	kings := make(map[chess.Color]Square)
	var white, black int
	for sq, p := range pieces {
		switch p {
		case chess.WhiteKing:
			white++
			kings[chess.White] = sq
		case chess.BlackKing:
			black++
			kings[chess.Black] = sq
		}
	}
	if white != 1 || black != 1 {
		return fmt.Errorf("need exactly one king per side, got %d white and %d black", white, black)
	}

	us := pos.Turn()
	them := us.Other()
	if isAttacked(pieces, kings[them], us) {
		return fmt.Errorf("%s is in check but it is %s to move", them.Name(), us.Name())
	}

	if err := validateCastling(pos.CastleRights(), pieces); err != nil {
		return err
	}
	return validateEnPassant(pos.EnPassantSquare(), us, pieces)
}

var castleHomes = []struct {
	color chess.Color
	side  chess.Side
	king  Square
	rook  Square
}{
	{chess.White, chess.KingSide, chess.E1, chess.H1},
	{chess.White, chess.QueenSide, chess.E1, chess.A1},
	{chess.Black, chess.KingSide, chess.E8, chess.H8},
	{chess.Black, chess.QueenSide, chess.E8, chess.A8},
}

func validateCastling(cr chess.CastleRights, pieces map[Square]chess.Piece) error {
	for _, h := range castleHomes {
		if !cr.CanCastle(h.color, h.side) {
			continue
		}
		if pieces[h.king] != chess.NewPiece(chess.King, h.color) || pieces[h.rook] != chess.NewPiece(chess.Rook, h.color) {
			return fmt.Errorf("castling right %s needs king on %s and rook on %s", castleRightName(h.color, h.side), h.king, h.rook)
		}
	}
	return nil
}

func castleRightName(c chess.Color, side chess.Side) string {
	name := "k"
	if side == chess.QueenSide {
		name = "q"
	}
	if c == chess.White {
		name = strings.ToUpper(name)
	}
	return name
}

// validateEnPassant checks ep lies behind a pawn of the side not to move
// that could have just made a double step.
func validateEnPassant(ep Square, us chess.Color, pieces map[Square]chess.Piece) error {
	if ep == chess.NoSquare {
		return nil
	}
	rank, dir := 5, -1 // white to move: ep on the sixth rank, pawn below it
	if us == chess.Black {
		rank, dir = 2, 1
	}
	if RankIndex(ep) != rank {
		return fmt.Errorf("en passant square %s is impossible with %s to move", ep, us.Name())
	}
	f := FileIndex(ep)
	pawn, _ := squareAt(f, rank+dir)
	origin, _ := squareAt(f, rank-dir)
	if pieces[pawn] != chess.NewPiece(chess.Pawn, us.Other()) {
		return fmt.Errorf("en passant square %s has no pawn in front of it", ep)
	}
	if p, ok := pieces[ep]; ok && p != chess.NoPiece {
		return fmt.Errorf("en passant square %s is occupied", ep)
	}
	if p, ok := pieces[origin]; ok && p != chess.NoPiece {
		return fmt.Errorf("en passant square %s needs %s empty", ep, origin)
	}
	return nil
}
