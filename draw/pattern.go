package draw

import (
	"image"
	"image/color"
)

// Checker is an unbounded checkerboard of Size by Size tiles, for use as a Draw source.
// The tile at the origin has the Off color.
type Checker struct {
	Size    int
	On, Off color.Color
}

func (p Checker) ColorModel() color.Model {
	return color.RGBA64Model
}

func (p Checker) Bounds() image.Rectangle {
	return image.Rectangle{Min: image.Point{X: -1e9, Y: -1e9}, Max: image.Point{X: 1e9, Y: 1e9}}
}

func (p Checker) At(x, y int) color.Color {
	size := p.Size
	if size < 1 {
		size = 1
	}
	if (floorDiv(x, size)+floorDiv(y, size))&1 == 0 {
		return p.Off
	}
	return p.On
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

var _ image.Image = Checker{}
