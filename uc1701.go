package uc1701

import (
	"fmt"

	"github.com/BeatGlow/uc1701/pixel"
)

// Display geometry.
const (
	Width  = 128
	Height = 64
	Pages  = Height / 8
)

const (
	uc1701SetVLCDResistorRatio  = 0x20
	uc1701SetPowerControl       = 0x28
	uc1701SetScrollLine         = 0x40
	uc1701SetContrast           = 0x81
	uc1701SetSegDirection       = 0xA0
	uc1701SetLCDBiasRatio       = 0xA2
	uc1701SetAllPixelOn         = 0xA4
	uc1701SetInverseDisplay     = 0xA6
	uc1701SetDisplayEnable      = 0xAE
	uc1701SetPageAddr           = 0xB0
	uc1701SetCOMDirection       = 0xC0
	uc1701SystemReset           = 0xE2
	uc1701ResetCursorUpdateMode = 0xEE
	uc1701SetBoosterRatio       = 0xF8
	uc1701SetLowColumn          = 0x00
	uc1701SetHighColumn         = 0x10

	uc1701DefaultContrast = 0x80
)

// Dev is a UC1701 display.
//
// The embedded image is the display buffer: a 128x64 vertical LSB first bitmap, one byte
// per column per 8 pixel page, drawn with any [image/draw.Image] compatible code.
type Dev struct {
	*pixel.MonoVerticalLSBImage
	c Conn
}

// New is a driver for the UltraChip UC1701 LCD controller.
//
// The display is reset and initialized before New returns.
func New(conn Conn) (*Dev, error) {
	d := &Dev{
		MonoVerticalLSBImage: pixel.NewMonoVerticalLSBImage(Width, Height),
		c:                    conn,
	}

	if err := d.init(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Dev) String() string {
	bounds := d.Bounds()
	return fmt.Sprintf("UC1701 LCD %dx%d", bounds.Dx(), bounds.Dy())
}

func (d *Dev) init() (err error) {
	if err = d.c.Reset(); err != nil {
		return
	}

	// power control must precede contrast, cursor update mode must precede display enable
	sequence := [][]byte{
		{uc1701SystemReset},
		{uc1701SetScrollLine | 0x00},   //nolint:staticcheck
		{uc1701SetCOMDirection | 0x08}, // reverse COM scan
		{uc1701SetSegDirection | 0x00}, //nolint:staticcheck
		{uc1701SetAllPixelOn | 0x00},   //nolint:staticcheck
		inverseCommand(false),
		{uc1701SetLCDBiasRatio | 0x00}, // 1/9 bias
		{uc1701SetPowerControl | 0x07}, // booster, regulator and follower on
		{uc1701SetBoosterRatio, 0x00},  // 4x
		{uc1701SetVLCDResistorRatio | 0x03},
		contrastCommand(uc1701DefaultContrast),
		{uc1701ResetCursorUpdateMode},
		showCommand(true),
	}
	sequence = append(sequence, cursorCommands(0, 0)...)

	return d.commands(sequence...)
}

func (d *Dev) command(command byte, data ...byte) error {
	return d.c.Command(command, data...)
}

func (d *Dev) commands(commands ...[]byte) (err error) {
	for _, command := range commands {
		if err = d.c.Command(command[0], command[1:]...); err != nil {
			return
		}
	}
	return
}

// Close the connection. The display is left as is.
func (d *Dev) Close() error {
	return d.c.Close()
}

// Show toggles the display on or off, the display memory is retained while off.
func (d *Dev) Show(show bool) error {
	return d.commands(showCommand(show))
}

// SetContrast sets the contrast level, the controller has 64 levels so the lowest 2 bits
// are discarded.
func (d *Dev) SetContrast(level uint8) error {
	return d.commands(contrastCommand(level))
}

// SetInverse toggles inverse display mode.
func (d *Dev) SetInverse(inverse bool) error {
	return d.commands(inverseCommand(inverse))
}

// SetStartLine sets the display RAM line shown on the first row, which scrolls the
// display vertically. Only the low 6 bits of line are used.
func (d *Dev) SetStartLine(line int) error {
	return d.command(uc1701SetScrollLine | byte(line&0x3f))
}

// SetCursor sets the page and column where the next display data is written.
//
// Page and column are not range checked, the controller registers are 4 bits wide per
// nibble, so page is taken modulo 16 and column modulo 256.
func (d *Dev) SetCursor(page, column int) error {
	return d.commands(cursorCommands(page, column)...)
}

// Refresh sends the display buffer to the display, one transaction per page.
func (d *Dev) Refresh() (err error) {
	for page := 0; page < Pages; page++ {
		if err = d.SetCursor(page, 0); err != nil {
			return
		}
		var (
			off = page * Width
			end = off + Width
		)
		if err = d.c.Data(d.Pix[off:end]...); err != nil {
			return
		}
	}
	return
}

func showCommand(show bool) []byte {
	if show {
		return []byte{uc1701SetDisplayEnable | 0x01}
	}
	return []byte{uc1701SetDisplayEnable}
}

func contrastCommand(level uint8) []byte {
	return []byte{uc1701SetContrast, (level >> 2) & 0x3f}
}

func inverseCommand(inverse bool) []byte {
	if inverse {
		return []byte{uc1701SetInverseDisplay | 0x01}
	}
	return []byte{uc1701SetInverseDisplay}
}

func cursorCommands(page, column int) [][]byte {
	return [][]byte{
		{uc1701SetPageAddr | byte(page&0x0f)},
		{uc1701SetLowColumn | byte(column&0x0f)},
		{uc1701SetHighColumn | byte((column>>4)&0x0f)},
	}
}
