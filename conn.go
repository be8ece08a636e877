package uc1701

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/BeatGlow/uc1701/conn"
)

// ResetHold is how long the reset line is held low during a hardware reset.
const ResetHold = 100 * time.Millisecond

// Conn is the connection interface for communicating with hardware.
type Conn interface {
	String() string

	// Close the connection.
	Close() error

	// Reset pulses the reset line, it does nothing if there is no reset line.
	Reset() error

	// Command sends a command byte with optional arguments as one transaction.
	Command(byte, ...byte) error

	// Data sends display data bytes as one transaction.
	Data(...byte) error
}

// SPIConfig describes the SPI bus configuration.
type SPIConfig struct {
	// Bus and Device select the spidev device used by OpenSPI.
	Bus    int
	Device int

	// SpeedHz is the SPI clock rate.
	SpeedHz uint32

	// DataLow drives the CD line low for display data instead of high.
	DataLow bool

	// BatchSize is the maximum number of bytes per bus write.
	BatchSize uint

	// Reset pin (optional).
	Reset gpio.PinOut

	// DC is the command/data select pin.
	DC gpio.PinOut

	// CE is the chip select pin (optional), leave nil if the bus drives chip select.
	CE gpio.PinOut
}

// DefaultSPIConfig are the default configuration values.
var DefaultSPIConfig = SPIConfig{
	Bus:       0,
	Device:    0,
	SpeedHz:   10 * 1024 * 1024,
	BatchSize: 4096,
}

// NewSPI returns a connection on a periph.io SPI port.
func NewSPI(p spi.Port, config *SPIConfig) (Conn, error) {
	config = withDefaults(config)
	if !validPin(config.DC) {
		return nil, ErrDCPin
	}
	return newSPIConn(PortBus(p), config)
}

// OpenSPI opens a connection on the spidev device selected by config.Bus and config.Device.
func OpenSPI(config *SPIConfig) (Conn, error) {
	config = withDefaults(config)
	if !validPin(config.DC) {
		return nil, ErrDCPin
	}

	dev, err := conn.OpenSPI(config.Bus, config.Device)
	if err != nil {
		return nil, err
	}
	if err = dev.SetBitsPerWord(8); err != nil {
		_ = dev.Close()
		return nil, err
	}

	c, err := newSPIConn(&spidevBus{dev: dev}, config)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	return c, nil
}

func withDefaults(config *SPIConfig) *SPIConfig {
	if config == nil {
		config = new(SPIConfig)
		*config = DefaultSPIConfig
		return config
	}

	c := *config
	if c.SpeedHz == 0 {
		c.SpeedHz = DefaultSPIConfig.SpeedHz
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultSPIConfig.BatchSize
	}
	return &c
}

func validPin(pin gpio.PinOut) bool {
	return pin != nil && pin != gpio.INVALID
}

// optionalPin maps gpio.INVALID to nil, so absent lines are always nil.
func optionalPin(pin gpio.PinOut) gpio.PinOut {
	if !validPin(pin) {
		return nil
	}
	return pin
}

type spiConn struct {
	bus       Bus
	freq      physic.Frequency
	mode      spi.Mode
	reset     gpio.PinOut
	dc        gpio.PinOut
	dcLevel   gpio.Level
	dcValid   bool
	cs        gpio.PinOut
	dataLow   bool
	batchSize uint
}

func newSPIConn(bus Bus, config *SPIConfig) (*spiConn, error) {
	c := &spiConn{
		bus:       bus,
		freq:      physic.Frequency(config.SpeedHz) * physic.Hertz,
		mode:      spi.Mode0,
		reset:     optionalPin(config.Reset),
		dc:        optionalPin(config.DC),
		cs:        optionalPin(config.CE),
		dataLow:   config.DataLow,
		batchSize: config.BatchSize,
	}

	if err := c.updateDC(c.commandLevel()); err != nil {
		return nil, fmt.Errorf("uc1701: failed to configure CD pin: %w", err)
	}
	if err := c.updateCS(gpio.High); err != nil {
		return nil, fmt.Errorf("uc1701: failed to configure CS pin: %w", err)
	}
	if c.reset != nil {
		if err := c.reset.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("uc1701: failed to configure RST pin: %w", err)
		}
	}

	return c, nil
}

func (c *spiConn) String() string {
	return fmt.Sprintf("SPI bus %v", c.bus)
}

func (c *spiConn) Close() error {
	return c.bus.Close()
}

func (c *spiConn) Reset() error {
	if c.reset == nil {
		return nil
	}
	if err := c.reset.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(ResetHold)
	return c.reset.Out(gpio.High)
}

func (c *spiConn) commandLevel() gpio.Level {
	return gpio.Level(c.dataLow)
}

func (c *spiConn) dataLevel() gpio.Level {
	return gpio.Level(!c.dataLow)
}

func (c *spiConn) updateDC(level gpio.Level) error {
	if c.dc == nil {
		return nil
	}
	if c.dcValid && c.dcLevel == level {
		return nil
	}
	if err := c.dc.Out(level); err != nil {
		return err
	}
	c.dcLevel, c.dcValid = level, true
	return nil
}

// updateCS drives the active low chip select.
func (c *spiConn) updateCS(level gpio.Level) error {
	if c.cs == nil {
		return nil
	}
	return c.cs.Out(level)
}

func (c *spiConn) Command(cmnd byte, args ...byte) error {
	data := append([]byte{cmnd}, args...)
	if debug {
		log.Printf("uc1701: command % x", data)
	}
	return c.tx(c.commandLevel(), data)
}

func (c *spiConn) Data(data ...byte) error {
	if len(data) == 0 {
		return nil
	}
	if debug {
		log.Printf("uc1701: data %d bytes", len(data))
	}
	return c.tx(c.dataLevel(), data)
}

// tx sends one transaction, CD is settled before chip select is asserted.
func (c *spiConn) tx(level gpio.Level, data []byte) (err error) {
	if err = c.bus.Configure(c.freq, c.mode); err != nil {
		return
	}
	if err = c.updateCS(gpio.High); err != nil {
		return
	}
	if err = c.updateDC(level); err != nil {
		return
	}
	if err = c.updateCS(gpio.Low); err != nil {
		return
	}
	if err = c.writeChunked(data); err != nil {
		// release the bus, the write error takes precedence
		_ = c.updateCS(gpio.High)
		return
	}
	return c.updateCS(gpio.High)
}

func (c *spiConn) writeChunked(data []byte) (err error) {
	if c.batchSize == 0 || len(data) <= int(c.batchSize) {
		return c.bus.Write(data)
	}

	if debug {
		log.Printf("uc1701: write %d bytes of data in %d chunks", len(data), (len(data)+int(c.batchSize)-1)/int(c.batchSize))
	}
	buffer := data
	for len(buffer) > 0 {
		n := len(buffer)
		if n > int(c.batchSize) {
			n = int(c.batchSize)
		}
		if err = c.bus.Write(buffer[:n]); err != nil {
			return
		}
		buffer = buffer[n:]
	}
	return
}
