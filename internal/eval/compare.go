package eval

import "github.com/hailam/chessmcp/internal/board"

// Compare orders a and b for perspective. It returns a negative number when a
// ranks better than b, zero when they rank equal and a positive number when a
// ranks worse.
//
// Any mate ranks better than any score. Within one kind, White prefers the
// larger score and the smaller mate distance; Black mirrors both. The mate
// rule applies to the signed value as reported, so for White a mate of -3
// ranks above a mate of 5.
func Compare(a, b Evaluation, perspective board.Color) int {
	if a.Kind != b.Kind {
		if a.Kind == Mate {
			return -1
		}
		return 1
	}

	if a.Value == b.Value {
		return 0
	}

	// For White: larger scores first, smaller mate distances first.
	aFirst := a.Value > b.Value
	if a.Kind == Mate {
		aFirst = !aFirst
	}
	if perspective == board.Black {
		aFirst = !aFirst
	}

	if aFirst {
		return -1
	}
	return 1
}

// Better reports whether a ranks strictly better than b for a's perspective.
func Better(a, b Evaluation) bool {
	return Compare(a, b, a.Perspective) < 0
}
