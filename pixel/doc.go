// Package pixel implements a monochrome color and image library suitable for page addressed LCD displays.
//
// This module provides additional color models, compatible with Go's native [color.Color] and
// [image.Image] / [draw.Image] interfaces.
package pixel
