// Package uc1701 contains a driver for the UltraChip UC1701 128x64 monochrome LCD controller.
//
// The controller is driven over 4-wire SPI with a separate command/data (CD) select line. The
// driver keeps a page-organized framebuffer in memory, which can be drawn on with any
// [image/draw.Image] compatible code (including the [github.com/BeatGlow/uc1701/draw]
// package), and transfers it to the controller with [Dev.Refresh].
//
// The driver does no internal locking; callers sharing a [Dev] between goroutines must
// serialize access themselves.
package uc1701

import (
	"errors"
	"os"

	"github.com/BeatGlow/uc1701/pixel"
)

var debug bool

func init() {
	debug = os.Getenv("UC1701_DEBUG") != ""
}

// Errors
var (
	ErrDCPin            = errors.New("uc1701: command/data (CD) GPIO pin is invalid")
	ErrBusNotConfigured = errors.New("uc1701: bus written before it was configured")
)

// Display is a monochrome pixel display.
type Display interface {
	// Image is the pixel buffer, drawing on it does not update the display until Refresh.
	pixel.Image

	// Close the display driver.
	Close() error

	// Show toggles the display on or off.
	Show(bool) error

	// SetContrast adjusts the contrast level.
	SetContrast(level uint8) error

	// SetInverse toggles inverse display mode.
	SetInverse(bool) error

	// Refresh redraws the display.
	Refresh() error
}

// Interface checks.
var _ Display = (*Dev)(nil)
