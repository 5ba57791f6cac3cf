package render

import (
	"image"
	"image/color"
	"strconv"

	"tile-race-bot/internal/model"
)

var (
	gridBackground = color.RGBA{45, 45, 45, 255}
	gridLine       = color.RGBA{200, 200, 200, 255}
)

// RenderGrid draws an empty planning grid: one box per tile labelled with
// its ID, plus row and column numbers in the gutters.
func (r *Renderer) RenderGrid(tiles map[string]model.Tile, cfg model.BoardConfig) ([]byte, error) {
	l, err := newLayout(tiles, cfg.TileSize)
	if err != nil {
		return nil, err
	}
	w, h := l.size()
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(canvas, canvas.Bounds(), gridBackground)

	for _, id := range sortedIDs(tiles) {
		t := tiles[id]
		cell := l.cell(t.Row, t.Col)
		strokeRect(canvas, cell, 2, gridLine)
		text(canvas, cell.Min.Add(image.Pt(4, 4)), id, l.tile-8, white)
	}

	for i := 0; i < l.cols; i++ {
		label := strconv.Itoa(l.minCol + i)
		x := Gutter + i*(l.tile+Gutter) + (l.tile-textWidth(label))/2
		text(canvas, image.Pt(x, -2), label, 0, white)
	}
	for i := 0; i < l.rows; i++ {
		label := strconv.Itoa(l.minRow + i)
		y := Gutter + i*(l.tile+Gutter) + l.tile/2 - 6
		text(canvas, image.Pt(0, y), label, 0, white)
	}

	return encode(canvas)
}
