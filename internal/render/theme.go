package render

import (
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/hailam/chessmcp/internal/failure"
)

// Theme defines the color scheme for the board.
type Theme struct {
	LightSquare color.RGBA
	DarkSquare  color.RGBA
	MarkColor   color.RGBA
	ArrowColor  color.RGBA
}

// DefaultTheme returns the default color theme.
func DefaultTheme() Theme {
	return Theme{
		LightSquare: color.RGBA{240, 217, 181, 255}, // Tan
		DarkSquare:  color.RGBA{181, 136, 99, 255},  // Brown
		MarkColor:   color.RGBA{205, 210, 106, 255}, // Yellow-green
		ArrowColor:  color.RGBA{21, 120, 27, 170},   // Translucent green
	}
}

// ParseColor accepts "#rgb", "#rrggbb", "#rrggbbaa" or an SVG color name.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		return parseHex(hex)
	}
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	return color.RGBA{}, failure.New(failure.InvalidRequest, "unknown color %q", s)
}

func parseHex(hex string) (color.RGBA, error) {
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, failure.New(failure.InvalidRequest, "invalid hex color #%s", hex)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, failure.New(failure.InvalidRequest, "invalid hex color #%s", hex)
	}
	// Hex alpha is straight; color.RGBA is premultiplied.
	c := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return color.RGBAModel.Convert(c).(color.RGBA), nil
}
