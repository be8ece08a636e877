package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/uc1701"
	"github.com/BeatGlow/uc1701/draw"
	"github.com/BeatGlow/uc1701/pixel"
)

func main() {
	spiPortFlag := flag.String("spi", "", "SPI port name (default: first available)")
	spidevFlag := flag.Bool("spidev", false, "Use the raw spidev device instead of periph.io")
	spiBusFlag := flag.Int("spi-bus", uc1701.DefaultSPIConfig.Bus, "spidev bus")
	spiDeviceFlag := flag.Int("spi-dev", uc1701.DefaultSPIConfig.Device, "spidev device")
	speedFlag := flag.Uint("hz", uint(uc1701.DefaultSPIConfig.SpeedHz), "SPI clock rate")
	resetPinFlag := flag.String("reset", "GPIO25", "Reset GPIO pin (empty for none)")
	dcPinFlag := flag.String("dc", "GPIO24", "Command/Data GPIO pin (CD)")
	csPinFlag := flag.String("cs", "", "Chip select GPIO pin (empty if driven by the SPI controller)")
	fontFlag := flag.String("font", "", "TrueType font file for the text demo")
	flag.Parse()

	if _, err := host.Init(); err != nil {
		fatal(err)
	}

	config := &uc1701.SPIConfig{
		Bus:     *spiBusFlag,
		Device:  *spiDeviceFlag,
		SpeedHz: uint32(*speedFlag),
		Reset:   pinByName(*resetPinFlag),
		DC:      pinByName(*dcPinFlag),
		CE:      pinByName(*csPinFlag),
	}

	var (
		conn uc1701.Conn
		err  error
	)
	if *spidevFlag {
		conn, err = uc1701.OpenSPI(config)
	} else {
		port, perr := spireg.Open(*spiPortFlag)
		if perr != nil {
			fatal(perr)
		}
		defer port.Close()
		conn, err = uc1701.NewSPI(port, config)
	}
	if err != nil {
		fatal(err)
	}
	defer conn.Close()
	fmt.Printf("using connection: %s\n", conn)

	output, err := uc1701.New(conn)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("using driver: %s\n", output)

	face := draw.DefaultFace
	if *fontFlag != "" {
		b, err := os.ReadFile(*fontFlag)
		if err != nil {
			fatal(err)
		}
		if face, err = draw.LoadFace(b, 16); err != nil {
			fatal(err)
		}
	}

	// Checkerboard splash
	r := output.Bounds()
	draw.Draw(output, r, draw.Checker{Size: 8, On: pixel.On, Off: pixel.Off}, image.Point{}, draw.Src)
	if err = output.Refresh(); err != nil {
		fatal(err)
	}
	time.Sleep(time.Second)

	// Draw box around edge
	output.Clear()
	draw.Rectangle(output, r, pixel.On)
	draw.Line(output, r.Min, r.Max.Sub(image.Pt(1, 1)), pixel.On)
	draw.Line(output, image.Pt(r.Min.X, r.Max.Y-1), image.Pt(r.Max.X-1, r.Min.Y), pixel.On)
	if err = output.Refresh(); err != nil {
		fatal(err)
	}
	time.Sleep(time.Second)

	output.Clear()
	draw.RoundedRectangle(output, r.Inset(2), 4, pixel.On)
	text := "UC1701"
	tb := draw.TextBounds(image.Point{}, face, text)
	draw.Text(output, image.Pt((r.Dx()-tb.Dx())/2, (r.Dy()+tb.Dy())/2-tb.Max.Y), face, text, pixel.On)
	if err = output.Refresh(); err != nil {
		fatal(err)
	}

	fmt.Println("sweeping contrast...")
	for level := 0; level < 256; level += 4 {
		if err = output.SetContrast(uint8(level)); err != nil {
			fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err = output.SetContrast(0x80); err != nil {
		fatal(err)
	}

	fmt.Println("hit control-c to stop...")
	var (
		inverse bool
		ticker  = time.NewTicker(time.Second)
	)
	defer ticker.Stop()
	for range ticker.C {
		inverse = !inverse
		if err = output.SetInverse(inverse); err != nil {
			fatal(err)
		}
	}
}

func pinByName(name string) gpio.PinOut {
	if name == "" {
		return nil
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		fatal(fmt.Errorf("GPIO pin %s not found", name))
	}
	return pin
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
