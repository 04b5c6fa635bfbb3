// Package adns7550 drives an ADNS-7550 laser motion sensor via its 3-wire
// serial port, bit-banged on GPIO pins.
//
// The ADNS-7550 is an integrated laser mouse sensor. It reports relative
// motion as 12-bit two's complement counts and can dump the 26×26 image it
// tracks features on.
//
// # Sensor Characteristics
//
// - Resolution selectable from 400 to 1600 counts per inch
// - 12-bit signed ΔX/ΔY per motion report
// - Surface quality (SQUAL), shutter and maximum pixel statistics
// - 26×26 pixel frame, 7 bits per pixel
// - Laser power and forced-awake controls, each backed by a complement register
//
// # Hardware Connection
//
// The serial port is half duplex. The sensor drives its data line only while
// it is shifting out a read.
//
//	Sensor Pin → System Pin
//	GND        → GND
//	VDD        → 3.3V
//	NCS        → GPIO (chip select, active low)
//	SCLK       → GPIO (serial clock)
//	MISO       → GPIO input (SDI)
//	MOSI       → GPIO output (SDO)
//
// # Basic Usage
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/devices/v3/adns7550"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		// Initialize periph.io
//		host.Init()
//
//		dev, _ := adns7550.NewBitBang(adns7550.Pins{
//			NCS:  gpioreg.ByName("GPIO8"),
//			SCLK: gpioreg.ByName("GPIO11"),
//			SDI:  gpioreg.ByName("GPIO9"),
//			SDO:  gpioreg.ByName("GPIO10"),
//		}, &adns7550.Opts{Resolution: adns7550.CPI1200})
//		defer dev.Halt()
//
//		rep, _ := dev.Init(context.Background())
//		fmt.Println(rep.State, rep.LinkUp, rep.IdentityOK())
//
//		dx, dy, _ := dev.Motion()
//		fmt.Println(dx, dy)
//	}
//
// # Power-up
//
// Init resets the port, issues the power-up reset, configures the laser and
// the resolution, then waits for the laser-on status bit and checks the
// identity registers. The wait is bounded. By default a link timeout or an
// identity mismatch is logged and reported in InitReport.Warnings; set
// Opts.Strict to make them fatal.
//
// # Motion
//
// Motion reads ΔX, ΔY and their shared upper nibbles as three register reads.
// Sense reads the motion burst registers in one transaction and also returns
// SQUAL, shutter and maximum pixel.
//
// # Frame Capture
//
// ReadPixel stores one pixel per call and reports when the frame is complete:
//
//	buf := make([]byte, dev.PixelCount())
//	for {
//		done, err := dev.ReadPixel(ctx, buf)
//		if errors.Is(err, adns7550.ErrFrameNotStarted) {
//			continue
//		}
//		if err != nil || done {
//			break
//		}
//	}
//
// Frame wraps this into a single call and returns a pixframe.Frame, which
// implements image.Image.
//
// # Timing
//
// Every register access keeps NCS low for the whole transaction. The address
// byte is preceded by a 300µs settle and read data by a 100µs settle. Writes
// clock at roughly 5kHz. Short delays are busy waits, the power-up delays
// sleep.
//
// # Logging
//
// Diagnostics go to Opts.Logger, a *slog.Logger. Register values are logged
// as hex strings.
//
// # Datasheet
//
// For register descriptions and timing, see the Avago ADNS-7550 datasheet.
package adns7550
