package render

import (
	"embed"
	"strings"

	"github.com/notnil/chess"
	"github.com/srwiley/oksvg"

	"github.com/hailam/chessmcp/internal/failure"
)

//go:embed assets/pieces/*.svg
var pieceAssets embed.FS

// pieceIcon parses the Cburnett icon for p. Icons are parsed per draw since
// SetTarget mutates the icon.
func pieceIcon(p chess.Piece) (*oksvg.SvgIcon, error) {
	name := "assets/pieces/" + p.Color().String() + strings.ToUpper(p.Type().String()) + ".svg"
	f, err := pieceAssets.Open(name)
	if err != nil {
		return nil, failure.Wrap(failure.RenderError, err, "piece %s", name)
	}
	defer f.Close()

	icon, err := oksvg.ReadIconStream(f)
	if err != nil {
		return nil, failure.Wrap(failure.RenderError, err, "parse %s", name)
	}
	return icon, nil
}
