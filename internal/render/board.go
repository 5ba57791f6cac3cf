// Package render draws the game board and the planning grid as PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"

	"tile-race-bot/internal/game/board"
	"tile-race-bot/internal/model"
)

// Gutter is the gap in pixels around every tile.
const Gutter = 10

// MaxDimension caps the width and height of a rendered image.
const MaxDimension = 8192

const (
	arrowWidth = 4
	arrowHead  = 14
	maxTokens  = 4
)

// Render errors.
var (
	ErrNoTiles  = errors.New("no tiles to render")
	ErrTooLarge = errors.New("board image too large")
)

var background = color.RGBA{30, 30, 30, 255}

// Renderer draws boards to PNG. Tile pictures and team tokens are looked up
// in AssetsDir; missing files fall back to placeholder shapes.
type Renderer struct {
	AssetsDir string
}

// NewRenderer creates a new Renderer instance.
func NewRenderer(assetsDir string) *Renderer {
	return &Renderer{AssetsDir: assetsDir}
}

// layout maps tile coordinates to pixels. Negative rows and columns are
// shifted so the smallest coordinate lands on the first cell.
type layout struct {
	tile   int
	minRow int
	minCol int
	rows   int
	cols   int
}

func newLayout(tiles map[string]model.Tile, tileSize int) (layout, error) {
	if len(tiles) == 0 {
		return layout{}, ErrNoTiles
	}
	if tileSize <= 0 {
		tileSize = model.DefaultBoardConfig().TileSize
	}

	first := true
	var minR, maxR, minC, maxC int
	for _, t := range tiles {
		if first {
			minR, maxR, minC, maxC = t.Row, t.Row, t.Col, t.Col
			first = false
			continue
		}
		minR, maxR = min(minR, t.Row), max(maxR, t.Row)
		minC, maxC = min(minC, t.Col), max(maxC, t.Col)
	}

	l := layout{tile: tileSize, minRow: minR, minCol: minC, rows: maxR - minR + 1, cols: maxC - minC + 1}
	if w, h := l.size(); w > MaxDimension || h > MaxDimension {
		return layout{}, fmt.Errorf("%dx%d: %w", w, h, ErrTooLarge)
	}
	return l, nil
}

func (l layout) size() (int, int) {
	return l.cols*(l.tile+Gutter) + Gutter, l.rows*(l.tile+Gutter) + Gutter
}

func (l layout) cell(row, col int) image.Rectangle {
	x := Gutter + (col-l.minCol)*(l.tile+Gutter)
	y := Gutter + (row-l.minRow)*(l.tile+Gutter)
	return image.Rect(x, y, x+l.tile, y+l.tile)
}

func (l layout) center(row, col int) image.Point {
	r := l.cell(row, col)
	return image.Pt(r.Min.X+l.tile/2, r.Min.Y+l.tile/2)
}

// Render draws tiles, successor arrows and team tokens and returns PNG bytes.
func (r *Renderer) Render(tiles map[string]model.Tile, cfg model.BoardConfig, teams []model.Team) ([]byte, error) {
	l, err := newLayout(tiles, cfg.TileSize)
	if err != nil {
		return nil, err
	}
	w, h := l.size()
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	r.drawBackground(canvas)

	ids := sortedIDs(tiles)
	for _, id := range ids {
		r.drawTile(canvas, l, tiles[id])
	}

	for _, id := range ids {
		t := tiles[id]
		from := l.center(t.Row, t.Col)
		for _, next := range t.Next {
			n, ok := tiles[next]
			if !ok || next == id {
				continue
			}
			arrowTo(canvas, from, l.center(n.Row, n.Col), arrowWidth, arrowHead, arrow)
		}
	}

	r.drawTokens(canvas, l, tiles, cfg.PlayerSize, teams)

	return encode(canvas)
}

func (r *Renderer) drawBackground(canvas *image.RGBA) {
	if bg := r.loadImage(filepath.Join("backgrounds", "board_bg.png")); bg != nil {
		xdraw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), bg, bg.Bounds(), draw.Src, nil)
		return
	}
	fill(canvas, canvas.Bounds(), background)
}

func (r *Renderer) drawTile(canvas *image.RGBA, l layout, t model.Tile) {
	cell := l.cell(t.Row, t.Col)

	if sprite := r.loadImage(t.Picture); sprite != nil {
		xdraw.CatmullRom.Scale(canvas, cell, sprite, sprite.Bounds(), draw.Over, nil)
	} else {
		strokeRect(canvas, cell, 2, red)
	}
	if t.MustHit {
		strokeRect(canvas, cell.Inset(3), 2, arrow)
	}

	caption := t.DisplayName()
	band := image.Rect(cell.Min.X, cell.Max.Y-16, cell.Max.X, cell.Max.Y)
	fill(canvas, band, shade)
	x := cell.Min.X + max((l.tile-textWidth(caption))/2, 2)
	text(canvas, image.Pt(x, band.Min.Y+1), caption, l.tile-4, white)
}

func (r *Renderer) drawTokens(canvas *image.RGBA, l layout, tiles map[string]model.Tile, playerSize int, teams []model.Team) {
	if playerSize <= 0 {
		playerSize = model.DefaultBoardConfig().PlayerSize
	}
	radius := playerSize / 2

	byTile := make(map[string][]string)
	for _, team := range teams {
		byTile[team.Tile] = append(byTile[team.Tile], team.Name)
	}

	offsets := [maxTokens]image.Point{
		{-radius, -radius}, {radius, -radius},
		{-radius, radius}, {radius, radius},
	}

	for id, names := range byTile {
		t, ok := tiles[id]
		if !ok {
			continue
		}
		sort.Strings(names)
		if len(names) > maxTokens {
			log.Debug().Str("tile", id).Int("teams", len(names)).Msg("Too many tokens on tile, drawing first four")
			names = names[:maxTokens]
		}

		c := l.center(t.Row, t.Col)
		for i, name := range names {
			p := c.Add(offsets[i])
			if tok := r.loadImage(filepath.Join("team_tokens", name+".png")); tok != nil {
				dst := image.Rect(p.X-radius, p.Y-radius, p.X+radius, p.Y+radius)
				xdraw.CatmullRom.Scale(canvas, dst, tok, tok.Bounds(), draw.Over, nil)
				continue
			}
			disc(canvas, p, radius, teamColor(name), white)
		}
	}
}

// loadImage decodes name from the assets directory, or returns nil.
func (r *Renderer) loadImage(name string) image.Image {
	if r.AssetsDir == "" || name == "" {
		return nil
	}
	f, err := os.Open(filepath.Join(r.AssetsDir, name))
	if err != nil {
		return nil
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("Failed to decode image")
		return nil
	}
	return img
}

func sortedIDs(tiles map[string]model.Tile) []string {
	ids := make([]string, 0, len(tiles))
	for id := range tiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return board.CompareIDs(ids[i], ids[j]) < 0
	})
	return ids
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
