package adns7550

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3/cpu"
)

// Serial port timing.
const (
	tAddrSettle  = 300 * time.Microsecond // before the address byte, and between write bytes
	tReadSettle  = 100 * time.Microsecond // address phase to data phase on reads
	tBurstTail   = 100 * time.Microsecond // after the last burst byte
	tClkLowSetup = 70 * time.Microsecond  // SCLK low to SDO change, slow path
	tDataSetup   = 30 * time.Microsecond  // SDO change to SCLK rising edge, slow path
	tClkHigh     = 100 * time.Microsecond // SCLK high after rising edge, slow path
	tResetEdge   = time.Millisecond       // NCS edges of the port reset sequence
)

// Pins binds the four serial port lines.
//
// SDI carries data from the sensor to the host, SDO from the host to the
// sensor.
type Pins struct {
	NCS  gpio.PinOut
	SCLK gpio.PinOut
	SDI  gpio.PinIn
	SDO  gpio.PinOut
}

// Bus is a bit-banged ADNS-7550 serial port.
//
// Every Tx is one register transaction: NCS is pulled low on entry and raised
// again on every exit path. Bus implements conn.Conn in half duplex mode.
type Bus struct {
	mu   sync.Mutex
	pins Pins
	spin func(time.Duration)
}

// NewBus configures the pins and returns an idle serial port.
func NewBus(p Pins) (*Bus, error) {
	if p.NCS == nil || p.SCLK == nil || p.SDI == nil || p.SDO == nil {
		return nil, errors.New("adns7550: all four pins are required")
	}
	b := &Bus{pins: p, spin: cpu.Nanospin}
	if err := p.NCS.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("adns7550: failed to raise NCS: %w", err)
	}
	if err := p.SCLK.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("adns7550: failed to raise SCLK: %w", err)
	}
	if err := p.SDO.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("adns7550: failed to drive SDO: %w", err)
	}
	if err := p.SDI.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("adns7550: failed to set SDI as input: %w", err)
	}
	return b, nil
}

// String implements conn.Conn.
func (b *Bus) String() string {
	return fmt.Sprintf("adns7550.Bus{NCS:%s SCLK:%s SDI:%s SDO:%s}", b.pins.NCS, b.pins.SCLK, b.pins.SDI, b.pins.SDO)
}

// Duplex implements conn.Conn. Only one direction is active at a time.
func (b *Bus) Duplex() conn.Duplex {
	return conn.Half
}

// Tx runs one transaction.
//
// With an empty r it is a write: each byte of w is preceded by the address
// settle delay and clocked out on the slow path. With len(r) == 1 it is a
// register read, and with len(r) > 1 a burst read; both take a single
// address byte in w.
func (b *Bus) Tx(w, r []byte) (err error) {
	if len(w) == 0 {
		return errors.New("adns7550: Tx requires an address byte")
	}
	if len(r) != 0 && len(w) != 1 {
		return errors.New("adns7550: read Tx takes exactly one address byte")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.pins.NCS.Out(gpio.Low); err != nil {
		return fmt.Errorf("adns7550: failed to assert NCS: %w", err)
	}
	defer func() {
		if err2 := b.pins.NCS.Out(gpio.High); err2 != nil && err == nil {
			err = fmt.Errorf("adns7550: failed to release NCS: %w", err2)
		}
	}()

	switch {
	case len(r) == 0:
		for _, v := range w {
			b.spin(tAddrSettle)
			if err := b.shiftOutSlow(v); err != nil {
				return err
			}
		}
		return nil
	case len(r) == 1:
		b.spin(tAddrSettle)
		if err := b.shiftOut(w[0]); err != nil {
			return err
		}
		b.spin(tReadSettle)
		r[0], err = b.shiftIn()
		return err
	default:
		return b.burst(w[0], r)
	}
}

func (b *Bus) burst(addr byte, r []byte) error {
	b.spin(tAddrSettle)
	if err := b.pins.SDO.Out(gpio.Low); err != nil {
		return fmt.Errorf("adns7550: failed to set SDO as output: %w", err)
	}
	if err := b.shiftOut(addr); err != nil {
		return err
	}
	if err := b.pins.SDI.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return fmt.Errorf("adns7550: failed to set SDI as input: %w", err)
	}
	b.spin(tReadSettle)
	for i := range r {
		v, err := b.shiftIn()
		if err != nil {
			return err
		}
		r[i] = v
	}
	b.spin(tBurstTail)
	return nil
}

// ResetPort resynchronizes the chip's serial port by toggling NCS, and
// leaves NCS released.
func (b *Bus) ResetPort() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High, gpio.Low} {
		if err := b.pins.NCS.Out(l); err != nil {
			return fmt.Errorf("adns7550: port reset: %w", err)
		}
		b.spin(tResetEdge)
	}
	if err := b.pins.NCS.Out(gpio.High); err != nil {
		return fmt.Errorf("adns7550: port reset: %w", err)
	}
	return nil
}

// Halt releases the chip and parks the clock high.
//
// Halt implements conn.Resource.
func (b *Bus) Halt() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.pins.NCS.Out(gpio.High); err != nil {
		return fmt.Errorf("adns7550: failed to release NCS: %w", err)
	}
	if err := b.pins.SCLK.Out(gpio.High); err != nil {
		return fmt.Errorf("adns7550: failed to park SCLK: %w", err)
	}
	return nil
}

// shiftOut clocks b out MSB first with no delays. Used for the address
// phase of reads.
func (b *Bus) shiftOut(v byte) error {
	for i := 7; i >= 0; i-- {
		if err := b.pins.SCLK.Out(gpio.Low); err != nil {
			return err
		}
		if err := b.pins.SDO.Out(v&(1<<uint(i)) != 0); err != nil {
			return err
		}
		if err := b.pins.SCLK.Out(gpio.High); err != nil {
			return err
		}
	}
	return nil
}

// shiftOutSlow clocks b out MSB first with the write setup and hold delays.
func (b *Bus) shiftOutSlow(v byte) error {
	for i := 7; i >= 0; i-- {
		if err := b.pins.SCLK.Out(gpio.Low); err != nil {
			return err
		}
		b.spin(tClkLowSetup)
		if err := b.pins.SDO.Out(v&(1<<uint(i)) != 0); err != nil {
			return err
		}
		b.spin(tDataSetup)
		if err := b.pins.SCLK.Out(gpio.High); err != nil {
			return err
		}
		b.spin(tClkHigh)
	}
	return nil
}

// shiftIn samples SDI after each rising edge, MSB first.
func (b *Bus) shiftIn() (byte, error) {
	var v byte
	for i := 7; i >= 0; i-- {
		if err := b.pins.SCLK.Out(gpio.Low); err != nil {
			return 0, err
		}
		if err := b.pins.SCLK.Out(gpio.High); err != nil {
			return 0, err
		}
		if b.pins.SDI.Read() == gpio.High {
			v |= 1 << uint(i)
		}
	}
	return v, nil
}

var _ conn.Conn = &Bus{}
var _ conn.Resource = &Bus{}
