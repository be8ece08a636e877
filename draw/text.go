package draw

import (
	"image"
	"image/color"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultFace is used by Text when no face is given.
var DefaultFace font.Face = basicfont.Face7x13

// Text draws s with the left end of its baseline at dot and returns the dot after the last glyph.
func Text(dst Image, dot image.Point, face font.Face, s string, c color.Color) image.Point {
	if face == nil {
		face = DefaultFace
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(dot.X, dot.Y),
	}
	d.DrawString(s)
	return image.Pt(d.Dot.X.Round(), d.Dot.Y.Round())
}

// TextBounds returns the bounding box of s drawn with its baseline at dot.
func TextBounds(dot image.Point, face font.Face, s string) image.Rectangle {
	if face == nil {
		face = DefaultFace
	}
	b, _ := font.BoundString(face, s)
	return image.Rect(
		b.Min.X.Floor(), b.Min.Y.Floor(),
		b.Max.X.Ceil(), b.Max.Y.Ceil(),
	).Add(dot)
}

// LoadFace parses a TrueType font and returns a face of size points at 72 DPI, so one point is one pixel.
func LoadFace(ttf []byte, size float64) (font.Face, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
