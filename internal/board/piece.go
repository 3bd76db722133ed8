package board

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// Color represents the color of a player. The zero value is NoColor.
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

// Other returns the opposite color.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// String returns the lowercase color name.
func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// ParseColor parses "white", "black", "w" or "b" (case-insensitive).
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return NoColor, fmt.Errorf("invalid color %q: want white or black", s)
}

func colorOf(c chess.Color) Color {
	switch c {
	case chess.White:
		return White
	case chess.Black:
		return Black
	default:
		return NoColor
	}
}

// Chess returns the rules engine's color value.
func (c Color) Chess() chess.Color {
	switch c {
	case White:
		return chess.White
	case Black:
		return chess.Black
	default:
		return chess.NoColor
	}
}
