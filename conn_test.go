package uc1701

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
)

// testLog records bus and pin activity in order.
type testLog struct {
	events []string
}

func (l *testLog) add(format string, args ...interface{}) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

type testPin struct {
	gpiotest.Pin
	log *testLog
	err error
}

func newTestPin(name string, log *testLog) *testPin {
	return &testPin{Pin: gpiotest.Pin{N: name}, log: log}
}

func (p *testPin) Out(l gpio.Level) error {
	if p.err != nil {
		return p.err
	}
	p.log.add("%s=%s", p.N, l)
	return p.Pin.Out(l)
}

type testBus struct {
	log    *testLog
	freq   physic.Frequency
	mode   spi.Mode
	writes [][]byte
	err    error
	closed bool

	// writeErr only fails writes.
	writeErr error
}

func (b *testBus) Configure(freq physic.Frequency, mode spi.Mode) error {
	if b.err != nil {
		return b.err
	}
	b.freq, b.mode = freq, mode
	b.log.add("configure")
	return nil
}

func (b *testBus) Write(p []byte) error {
	if b.err != nil {
		return b.err
	}
	if b.writeErr != nil {
		return b.writeErr
	}
	b.writes = append(b.writes, append([]byte(nil), p...))
	b.log.add("write % x", p)
	return nil
}

func (b *testBus) Close() error {
	b.closed = true
	return nil
}

type testHarness struct {
	log   *testLog
	bus   *testBus
	reset *testPin
	dc    *testPin
	cs    *testPin
}

func newTestHarness() *testHarness {
	log := new(testLog)
	return &testHarness{
		log:   log,
		bus:   &testBus{log: log},
		reset: newTestPin("RST", log),
		dc:    newTestPin("CD", log),
		cs:    newTestPin("CS", log),
	}
}

func (h *testHarness) config() *SPIConfig {
	return withDefaults(&SPIConfig{
		Reset: h.reset,
		DC:    h.dc,
		CE:    h.cs,
	})
}

func (h *testHarness) conn(t *testing.T, config *SPIConfig) *spiConn {
	t.Helper()
	c, err := newSPIConn(h.bus, config)
	if err != nil {
		t.Fatal(err)
	}
	h.log.events = nil
	return c
}

func TestSPIConnLineSetup(t *testing.T) {
	h := newTestHarness()
	if _, err := newSPIConn(h.bus, h.config()); err != nil {
		t.Fatal(err)
	}
	want := []string{"CD=Low", "CS=High", "RST=Low"}
	if !reflect.DeepEqual(h.log.events, want) {
		t.Errorf("expected %q, got %q", want, h.log.events)
	}
}

func TestSPIConnCommand(t *testing.T) {
	h := newTestHarness()
	c := h.conn(t, h.config())

	if err := c.Command(0x81, 0x20); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"configure",
		"CS=High",
		"CS=Low",
		"write 81 20",
		"CS=High",
	}
	if !reflect.DeepEqual(h.log.events, want) {
		t.Errorf("expected %q, got %q", want, h.log.events)
	}
	if h.bus.freq != 10*1024*1024*physic.Hertz {
		t.Errorf("expected bus clock of 10MiHz, got %s", h.bus.freq)
	}
	if h.bus.mode != spi.Mode0 {
		t.Errorf("expected SPI mode 0, got %#x", int(h.bus.mode))
	}
}

func TestSPIConnData(t *testing.T) {
	h := newTestHarness()
	c := h.conn(t, h.config())

	if err := c.Data(0x01, 0x02, 0x03); err != nil {
		t.Fatal(err)
	}
	if err := c.Command(0xaf); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"configure",
		"CS=High",
		"CD=High",
		"CS=Low",
		"write 01 02 03",
		"CS=High",
		"configure",
		"CS=High",
		"CD=Low",
		"CS=Low",
		"write af",
		"CS=High",
	}
	if !reflect.DeepEqual(h.log.events, want) {
		t.Errorf("expected %q, got %q", want, h.log.events)
	}
}

func TestSPIConnDataEmpty(t *testing.T) {
	h := newTestHarness()
	c := h.conn(t, h.config())

	if err := c.Data(); err != nil {
		t.Fatal(err)
	}
	if len(h.log.events) != 0 {
		t.Errorf("expected no bus activity, got %q", h.log.events)
	}
}

func TestSPIConnDataLow(t *testing.T) {
	h := newTestHarness()
	config := h.config()
	config.DataLow = true
	c := h.conn(t, config)

	if err := c.Data(0xff); err != nil {
		t.Fatal(err)
	}
	if v := h.dc.L; v != gpio.Low {
		t.Errorf("expected CD to be low for data, got %s", v)
	}
	if err := c.Command(0xe2); err != nil {
		t.Fatal(err)
	}
	if v := h.dc.L; v != gpio.High {
		t.Errorf("expected CD to be high for commands, got %s", v)
	}
}

func TestSPIConnOptionalLines(t *testing.T) {
	h := newTestHarness()
	c := h.conn(t, withDefaults(&SPIConfig{
		DC: h.dc,
		CE: gpio.INVALID,
	}))

	if c.cs != nil || c.reset != nil {
		t.Fatal("expected absent lines to be nil")
	}
	if err := c.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := c.Command(0xe2); err != nil {
		t.Fatal(err)
	}
	want := []string{"configure", "write e2"}
	if !reflect.DeepEqual(h.log.events, want) {
		t.Errorf("expected %q, got %q", want, h.log.events)
	}
}

func TestSPIConnNoDC(t *testing.T) {
	h := newTestHarness()
	c := h.conn(t, withDefaults(&SPIConfig{CE: h.cs}))

	if err := c.Data(0x55); err != nil {
		t.Fatal(err)
	}
	want := []string{"configure", "CS=High", "CS=Low", "write 55", "CS=High"}
	if !reflect.DeepEqual(h.log.events, want) {
		t.Errorf("expected %q, got %q", want, h.log.events)
	}
}

func TestSPIConnReset(t *testing.T) {
	h := newTestHarness()
	c := h.conn(t, h.config())

	start := time.Now()
	if err := c.Reset(); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < ResetHold {
		t.Errorf("expected reset to be held for at least %s, got %s", ResetHold, elapsed)
	}
	want := []string{"RST=Low", "RST=High"}
	if !reflect.DeepEqual(h.log.events, want) {
		t.Errorf("expected %q, got %q", want, h.log.events)
	}
}

func TestSPIConnChunked(t *testing.T) {
	h := newTestHarness()
	config := h.config()
	config.BatchSize = 4
	c := h.conn(t, config)

	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	if err := c.Data(data...); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"configure",
		"CS=High",
		"CD=High",
		"CS=Low",
		"write 00 01 02 03",
		"write 04 05 06 07",
		"write 08 09",
		"CS=High",
	}
	if !reflect.DeepEqual(h.log.events, want) {
		t.Errorf("expected %q, got %q", want, h.log.events)
	}
	if v := bytes.Join(h.bus.writes, nil); !bytes.Equal(v, data) {
		t.Errorf("expected % x, got % x", data, v)
	}
}

func TestSPIConnErrors(t *testing.T) {
	errBus := errors.New("bus fault")

	t.Run("bus", func(it *testing.T) {
		h := newTestHarness()
		c := h.conn(it, h.config())
		h.bus.err = errBus
		if err := c.Command(0xe2); !errors.Is(err, errBus) {
			it.Errorf("expected %v, got %v", errBus, err)
		}
		if err := c.Data(0x00); !errors.Is(err, errBus) {
			it.Errorf("expected %v, got %v", errBus, err)
		}
	})

	t.Run("pin", func(it *testing.T) {
		h := newTestHarness()
		c := h.conn(it, h.config())
		h.cs.err = errBus
		if err := c.Command(0xe2); !errors.Is(err, errBus) {
			it.Errorf("expected %v, got %v", errBus, err)
		}
		if len(h.bus.writes) != 0 {
			it.Errorf("expected no writes, got %d", len(h.bus.writes))
		}
	})

	t.Run("write", func(it *testing.T) {
		h := newTestHarness()
		c := h.conn(it, h.config())
		h.bus.writeErr = errBus
		if err := c.Data(0x00, 0x01); !errors.Is(err, errBus) {
			it.Errorf("expected %v, got %v", errBus, err)
		}
		want := []string{"configure", "CS=High", "CD=High", "CS=Low", "CS=High"}
		if !reflect.DeepEqual(h.log.events, want) {
			it.Errorf("expected %q, got %q", want, h.log.events)
		}
		if v := h.cs.L; v != gpio.High {
			it.Errorf("expected CS to be released after a failed write, got %s", v)
		}
	})

	t.Run("setup", func(it *testing.T) {
		h := newTestHarness()
		h.dc.err = errBus
		if _, err := newSPIConn(h.bus, h.config()); !errors.Is(err, errBus) {
			it.Errorf("expected %v, got %v", errBus, err)
		}
	})
}

func TestSPIConnClose(t *testing.T) {
	h := newTestHarness()
	c := h.conn(t, h.config())
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if !h.bus.closed {
		t.Error("expected bus to be closed")
	}
}

func TestNewSPI(t *testing.T) {
	log := new(testLog)
	r := &spitest.Record{}
	dc := newTestPin("CD", log)

	c, err := NewSPI(r, &SPIConfig{DC: dc})
	if err != nil {
		t.Fatal(err)
	}
	if err = c.Command(0xf8, 0x00); err != nil {
		t.Fatal(err)
	}
	if err = c.Data(0xaa, 0x55); err != nil {
		t.Fatal(err)
	}

	if l := len(r.Ops); l != 2 {
		t.Fatalf("expected 2 transactions, got %d", l)
	}
	if v := r.Ops[0].W; !bytes.Equal(v, []byte{0xf8, 0x00}) {
		t.Errorf("expected command f8 00, got % x", v)
	}
	if v := r.Ops[1].W; !bytes.Equal(v, []byte{0xaa, 0x55}) {
		t.Errorf("expected data aa 55, got % x", v)
	}
	if v := dc.L; v != gpio.High {
		t.Errorf("expected CD to be high after data, got %s", v)
	}
}

func TestNewSPIInvalidDC(t *testing.T) {
	tests := []struct {
		name string
		dc   gpio.PinOut
	}{
		{"nil", nil},
		{"invalid", gpio.INVALID},
	}
	for _, test := range tests {
		t.Run(test.name, func(it *testing.T) {
			if _, err := NewSPI(&spitest.Record{}, &SPIConfig{DC: test.dc}); err != ErrDCPin {
				it.Errorf("expected %v, got %v", ErrDCPin, err)
			}
			if _, err := OpenSPI(&SPIConfig{DC: test.dc}); err != ErrDCPin {
				it.Errorf("expected %v, got %v", ErrDCPin, err)
			}
		})
	}
	if _, err := NewSPI(&spitest.Record{}, nil); err != ErrDCPin {
		t.Errorf("expected %v with default config, got %v", ErrDCPin, err)
	}
}

func TestOpenSPIMissingDevice(t *testing.T) {
	pin := newTestPin("CD", new(testLog))
	if _, err := OpenSPI(&SPIConfig{Bus: 1 << 10, DC: pin}); err == nil {
		t.Error("expected an error opening a missing spidev device")
	}
}

func TestWithDefaults(t *testing.T) {
	if v := withDefaults(nil); !reflect.DeepEqual(*v, DefaultSPIConfig) {
		t.Errorf("expected default config, got %+v", v)
	}

	config := &SPIConfig{Device: 1}
	v := withDefaults(config)
	if v == config {
		t.Error("expected config to be copied")
	}
	if v.Device != 1 {
		t.Errorf("expected device 1, got %d", v.Device)
	}
	if v.SpeedHz != DefaultSPIConfig.SpeedHz {
		t.Errorf("expected default speed, got %d", v.SpeedHz)
	}
	if v.BatchSize != DefaultSPIConfig.BatchSize {
		t.Errorf("expected default batch size, got %d", v.BatchSize)
	}
}
