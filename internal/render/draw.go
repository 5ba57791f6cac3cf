package render

import (
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	red   = color.RGBA{255, 0, 0, 255}
	arrow = color.RGBA{240, 200, 60, 255}
	shade = color.RGBA{0, 0, 0, 160}
)

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, &image.Uniform{C: c}, image.Point{}, draw.Over)
}

func strokeRect(dst draw.Image, r image.Rectangle, width int, c color.Color) {
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	fill(dst, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), c)
	fill(dst, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// line draws a segment of the given width using Bresenham stepping.
func line(dst draw.Image, p0, p1 image.Point, width int, c color.Color) {
	dx, dy := abs(p1.X-p0.X), -abs(p1.Y-p0.Y)
	sx, sy := sign(p1.X-p0.X), sign(p1.Y-p0.Y)
	e := dx + dy
	half := width / 2
	x, y := p0.X, p0.Y
	for {
		fill(dst, image.Rect(x-half, y-half, x-half+width, y-half+width), c)
		if x == p1.X && y == p1.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// arrowTo draws a line from p0 to p1 with a head at p1.
func arrowTo(dst draw.Image, p0, p1 image.Point, width, head int, c color.Color) {
	line(dst, p0, p1, width, c)

	dx, dy := float64(p1.X-p0.X), float64(p1.Y-p0.Y)
	n := math.Hypot(dx, dy)
	if n == 0 {
		return
	}
	ux, uy := dx/n, dy/n
	h := float64(head)
	back := image.Pt(p1.X-int(ux*h), p1.Y-int(uy*h))
	left := image.Pt(back.X-int(uy*h/2), back.Y+int(ux*h/2))
	right := image.Pt(back.X+int(uy*h/2), back.Y-int(ux*h/2))
	line(dst, left, p1, width, c)
	line(dst, right, p1, width, c)
}

func disc(dst draw.Image, center image.Point, radius int, fillColor, outline color.Color) {
	r2 := radius * radius
	inner := (radius - 2) * (radius - 2)
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			d := x*x + y*y
			switch {
			case d <= inner:
				dst.Set(center.X+x, center.Y+y, fillColor)
			case d <= r2:
				dst.Set(center.X+x, center.Y+y, outline)
			}
		}
	}
}

// text draws s with its top-left corner at p, clipped to maxWidth pixels.
func text(dst draw.Image, p image.Point, s string, maxWidth int, c color.Color) {
	face := basicfont.Face7x13
	if maxWidth > 0 {
		if r := []rune(s); maxWidth/face.Advance < len(r) {
			s = string(r[:maxWidth/face.Advance])
		}
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(p.X, p.Y+face.Ascent),
	}
	d.DrawString(s)
}

// textWidth returns the pixel width of s in the caption face.
func textWidth(s string) int {
	return len([]rune(s)) * basicfont.Face7x13.Advance
}

// teamColor picks a stable mid-brightness colour for a team name.
func teamColor(name string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(name))
	v := h.Sum32()
	return color.RGBA{
		R: uint8(v&0x7F) + 64,
		G: uint8((v>>8)&0x7F) + 64,
		B: uint8((v>>16)&0x7F) + 64,
		A: 255,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
