// Package render draws board diagrams with optional square marks and move
// arrows.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/notnil/chess"
	chessimage "github.com/notnil/chess/image"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"

	"github.com/hailam/chessmcp/internal/board"
	"github.com/hailam/chessmcp/internal/failure"
)

const (
	// DefaultSize is the default edge length of a rendered board in pixels.
	DefaultSize = 256
	// MinSize is the smallest board that can be rendered.
	MinSize = 16
	// MaxSize bounds the rendered board.
	MaxSize = 2048

	// renderScale supersamples before scaling down for smooth edges.
	renderScale = 3.0
)

// Arrow geometry in squares.
const (
	shaftWidth = 0.18
	headLength = 0.45
	headWidth  = 0.5
)

// Arrow is drawn from the center of one square to the center of another.
type Arrow struct {
	From  board.Square
	To    board.Square
	Color color.Color // theme arrow color if nil
}

// Options controls a rendering.
type Options struct {
	Size        int         // edge length in pixels, DefaultSize if zero
	Perspective board.Color // side shown at the bottom, White if unset
	Arrows      []Arrow
	Marks       []board.Square // highlighted squares in addition to arrow ends
	Theme       *Theme
}

func (o Options) theme() Theme {
	if o.Theme != nil {
		return *o.Theme
	}
	return DefaultTheme()
}

func (o Options) perspective() board.Color {
	if o.Perspective == board.Black {
		return board.Black
	}
	return board.White
}

// ParseArrow builds an arrow from a move in pos. A four character square
// pair such as "e2e4" is taken as is and need not be legal; anything else
// must be a legal move in SAN or UCI form.
func ParseArrow(pos *board.Position, move string, c color.Color) (Arrow, error) {
	if len(move) == 4 {
		from, errFrom := board.ParseSquare(move[:2])
		to, errTo := board.ParseSquare(move[2:])
		if errFrom == nil && errTo == nil {
			return Arrow{From: from, To: to, Color: c}, nil
		}
	}
	m, err := board.ParseMove(pos, move)
	if err != nil {
		return Arrow{}, err
	}
	return Arrow{From: m.From(), To: m.To(), Color: c}, nil
}

// SVG renders the board as an SVG document. Arrows are shown only as marked
// squares.
func SVG(pos *board.Position, opts Options) ([]byte, error) {
	theme := opts.theme()

	var buf bytes.Buffer
	err := chessimage.SVG(&buf, pos.Board(),
		chessimage.SquareColors(theme.LightSquare, theme.DarkSquare),
		chessimage.MarkSquares(theme.MarkColor, opts.marks()...),
		chessimage.Perspective(opts.perspective().Chess()),
	)
	if err != nil {
		return nil, failure.Wrap(failure.RenderError, err, "board svg")
	}
	return buf.Bytes(), nil
}

// Image renders the board with marks and arrows as an RGBA image of
// Size×Size pixels.
func Image(pos *board.Position, opts Options) (*image.RGBA, error) {
	size := opts.Size
	if size == 0 {
		size = DefaultSize
	}
	if size < MinSize || size > MaxSize {
		return nil, failure.New(failure.InvalidRequest, "image size must be between %d and %d, got %d", MinSize, MaxSize, size)
	}

	// Render at higher resolution for better quality when scaled
	renderSize := int(float64(size) * renderScale)
	sq := float64(renderSize) / 8
	theme := opts.theme()
	perspective := opts.perspective()

	hi := image.NewRGBA(image.Rect(0, 0, renderSize, renderSize))
	scanner := rasterx.NewScannerGV(renderSize, renderSize, hi, hi.Bounds())
	filler := rasterx.NewFiller(renderSize, renderSize, scanner)
	dasher := rasterx.NewDasher(renderSize, renderSize, scanner)

	marked := make(map[board.Square]bool)
	for _, m := range opts.marks() {
		marked[m] = true
	}

	pieces := pos.Board().SquareMap()
	for i := 0; i < 64; i++ {
		s := board.Square(i)
		x, y := squareOrigin(s, perspective, sq)

		c := theme.DarkSquare
		if (board.FileIndex(s)+board.RankIndex(s))%2 == 1 {
			c = theme.LightSquare
		}
		fillRect(filler, x, y, sq, c)
		if marked[s] {
			fillRect(filler, x, y, sq, markOverlay(theme.MarkColor))
		}

		p, ok := pieces[s]
		if !ok || p == chess.NoPiece {
			continue
		}
		icon, err := pieceIcon(p)
		if err != nil {
			return nil, err
		}
		icon.SetTarget(x, y, sq, sq)
		icon.Draw(dasher, 1.0)
	}

	for _, a := range opts.Arrows {
		c := a.Color
		if c == nil {
			c = theme.ArrowColor
		}
		drawArrow(filler, a, perspective, sq, c)
	}

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(out, out.Bounds(), hi, hi.Bounds(), draw.Over, nil)
	return out, nil
}

// PNG renders the board and encodes it as PNG.
func PNG(pos *board.Position, opts Options) ([]byte, error) {
	img, err := Image(pos, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, failure.Wrap(failure.RenderError, err, "encode png")
	}
	return buf.Bytes(), nil
}

func (o Options) marks() []board.Square {
	marks := append([]board.Square(nil), o.Marks...)
	for _, a := range o.Arrows {
		marks = append(marks, a.From, a.To)
	}
	return marks
}

// markOverlay returns c at half opacity.
func markOverlay(c color.RGBA) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 128
	return n
}

func fillRect(f *rasterx.Filler, x, y, size float64, c color.Color) {
	f.Clear()
	f.SetColor(c)
	rasterx.AddRect(x, y, x+size, y+size, 0, f)
	f.Draw()
}

// squareOrigin returns the pixel top-left corner of sq when the board is
// seen from perspective.
func squareOrigin(sq board.Square, perspective board.Color, size float64) (x, y float64) {
	col, row := board.FileIndex(sq), 7-board.RankIndex(sq) // rank 1 at bottom
	if perspective == board.Black {
		col, row = 7-col, 7-row
	}
	return float64(col) * size, float64(row) * size
}

// squareCenter returns the pixel center of sq when the board is seen from
// perspective.
func squareCenter(sq board.Square, perspective board.Color, size float64) (x, y float64) {
	x, y = squareOrigin(sq, perspective, size)
	return x + size/2, y + size/2
}

// drawArrow fills a straight arrow polygon between two square centers.
func drawArrow(f *rasterx.Filler, a Arrow, perspective board.Color, sq float64, c color.Color) {
	x0, y0 := squareCenter(a.From, perspective, sq)
	x1, y1 := squareCenter(a.To, perspective, sq)
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length // direction
	nx, ny := -uy, ux              // normal

	head := math.Min(headLength*sq, length)
	bx, by := x1-ux*head, y1-uy*head // base of the head
	sw, hw := shaftWidth*sq/2, headWidth*sq/2

	points := [][2]float64{
		{x0 + nx*sw, y0 + ny*sw},
		{bx + nx*sw, by + ny*sw},
		{bx + nx*hw, by + ny*hw},
		{x1, y1},
		{bx - nx*hw, by - ny*hw},
		{bx - nx*sw, by - ny*sw},
		{x0 - nx*sw, y0 - ny*sw},
	}

	f.Clear()
	f.SetColor(c)
	f.Start(rasterx.ToFixedP(points[0][0], points[0][1]))
	for _, p := range points[1:] {
		f.Line(rasterx.ToFixedP(p[0], p[1]))
	}
	f.Stop(true)
	f.Draw()
}
