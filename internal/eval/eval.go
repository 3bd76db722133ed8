// Package eval defines engine evaluations and the side-aware order used to
// rank them.
package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hailam/chessmcp/internal/board"
)

// Kind tags an Evaluation as a centipawn score or a forced-mate distance.
type Kind uint8

const (
	Score Kind = iota // centipawns, positive favors White
	Mate              // moves to mate, positive means White mates
)

func (k Kind) String() string {
	if k == Mate {
		return "mate"
	}
	return "cp"
}

// Textual prefixes. Clients parse these, do not change them.
const (
	scorePrefix = "CP["
	matePrefix  = "Mate["
)

// Evaluation is an engine assessment of one position.
//
// Value is always from White's point of view. Perspective only selects the
// ranking direction and never changes Value.
type Evaluation struct {
	Kind        Kind
	Value       int
	Perspective board.Color
}

// NewScore returns a centipawn evaluation with no perspective.
func NewScore(cp int) Evaluation {
	return Evaluation{Kind: Score, Value: cp}
}

// NewMate returns a mate-distance evaluation with no perspective.
func NewMate(moves int) Evaluation {
	return Evaluation{Kind: Mate, Value: moves}
}

// IsMate reports whether e is a forced-mate evaluation.
func (e Evaluation) IsMate() bool {
	return e.Kind == Mate
}

// WithPerspective returns a copy of e ranked for side c.
func (e Evaluation) WithPerspective(c board.Color) Evaluation {
	e.Perspective = c
	return e
}

// String renders CP[<value>] or Mate[<value>].
func (e Evaluation) String() string {
	if e.Kind == Mate {
		return matePrefix + strconv.Itoa(e.Value) + "]"
	}
	return scorePrefix + strconv.Itoa(e.Value) + "]"
}

// MarshalText implements encoding.TextMarshaler using String.
func (e Evaluation) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using Parse.
func (e *Evaluation) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Parse reads the textual form produced by String. The result has no
// perspective.
func Parse(s string) (Evaluation, error) {
	s = strings.TrimSpace(s)
	var kind Kind
	var body string
	switch {
	case strings.HasPrefix(s, scorePrefix):
		kind, body = Score, s[len(scorePrefix):]
	case strings.HasPrefix(s, matePrefix):
		kind, body = Mate, s[len(matePrefix):]
	default:
		return Evaluation{}, fmt.Errorf("invalid evaluation %q", s)
	}
	if !strings.HasSuffix(body, "]") {
		return Evaluation{}, fmt.Errorf("invalid evaluation %q: missing ]", s)
	}
	v, err := strconv.Atoi(body[:len(body)-1])
	if err != nil {
		return Evaluation{}, fmt.Errorf("invalid evaluation %q: %w", s, err)
	}
	return Evaluation{Kind: kind, Value: v}, nil
}
