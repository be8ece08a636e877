package uc1701

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/BeatGlow/uc1701/conn"
)

// Bus is a synchronous serial bus.
type Bus interface {
	// Configure sets the clock rate and mode used by subsequent writes.
	Configure(freq physic.Frequency, mode spi.Mode) error

	// Write blocks until all bytes are sent.
	Write(p []byte) error

	// Close releases the bus if it is owned by the driver.
	Close() error
}

// PortBus returns a Bus on a periph.io SPI port.
//
// The port is connected on the first Configure call, later calls must request the same
// clock rate and mode. The caller remains responsible for closing the port.
func PortBus(p spi.Port) Bus {
	return &portBus{port: p}
}

type portBus struct {
	port spi.Port
	conn spi.Conn
	freq physic.Frequency
	mode spi.Mode
}

func (b *portBus) String() string {
	return b.port.String()
}

func (b *portBus) Configure(freq physic.Frequency, mode spi.Mode) error {
	if b.conn != nil {
		if b.freq == freq && b.mode == mode {
			return nil
		}
		return fmt.Errorf("uc1701: %s already connected at %s mode %#x", b.port, b.freq, int(b.mode))
	}

	c, err := b.port.Connect(freq, mode, 8)
	if err != nil {
		return err
	}
	b.conn, b.freq, b.mode = c, freq, mode
	return nil
}

func (b *portBus) Write(p []byte) error {
	if b.conn == nil {
		return ErrBusNotConfigured
	}
	return b.conn.Tx(p, nil)
}

func (b *portBus) Close() error {
	return nil
}

// spidevBus is a Bus on a spidev device opened by the driver.
type spidevBus struct {
	dev *conn.SPI
}

func (b *spidevBus) String() string {
	return b.dev.String()
}

func (b *spidevBus) Configure(freq physic.Frequency, mode spi.Mode) error {
	m := spidevMode(mode)
	if b.dev.Mode() != m {
		if err := b.dev.SetMode(m); err != nil {
			return err
		}
	}
	return b.dev.SetMaxSpeed(spidevSpeed(freq))
}

// spidevMode keeps the clock polarity and phase bits, which share their values with spidev.
func spidevMode(mode spi.Mode) conn.SPIMode {
	return conn.SPIMode(mode & spi.Mode3)
}

// spidevSpeed converts freq to whole hertz, rounding down.
func spidevSpeed(freq physic.Frequency) int {
	return int(freq / physic.Hertz)
}

func (b *spidevBus) Write(p []byte) error {
	_, err := b.dev.Write(p)
	return err
}

func (b *spidevBus) Close() error {
	return b.dev.Close()
}
