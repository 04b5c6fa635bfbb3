package adns7550

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3/cpu"
)

// Opts is the configuration for the ADNS-7550 sensor.
type Opts struct {
	// Resolution of the motion report (default: CPI800 when left zero)
	Resolution Resolution

	// Strict makes Init fail on a link timeout or an identity mismatch.
	// By default both are logged and reported in InitReport.Warnings.
	Strict bool

	// Logger receives diagnostic output (optional, nil discards)
	Logger *slog.Logger
}

// DefaultOpts is used when New is called with nil options.
var DefaultOpts = Opts{
	Resolution: CPI800,
}

// MotionSample is the result of one burst read.
type MotionSample struct {
	Motion       byte  // raw motion register
	DX, DY       int16 // displacement since the last read, in counts
	SQUAL        byte  // surface quality
	ShutterUpper byte
	ShutterLower byte
	MaximumPixel byte
}

// Moving reports whether motion occurred since the last report.
func (m MotionSample) Moving() bool {
	return m.Motion&motionMOT != 0
}

// Shutter returns the 16-bit shutter value.
func (m MotionSample) Shutter() uint16 {
	return uint16(m.ShutterUpper)<<8 | uint16(m.ShutterLower)
}

// Dev is a handle to an ADNS-7550 sensor.
type Dev struct {
	mu     sync.Mutex
	c      conn.Conn
	opts   Opts
	logger *slog.Logger
	sleep  func(time.Duration)
	spin   func(time.Duration)

	// cursor is the index of the next pixel of the frame being read.
	cursor int
	halted bool
}

// portResetter is implemented by transports that can run the NCS reset
// sequence.
type portResetter interface {
	ResetPort() error
}

// New returns a handle to a sensor reachable through c.
//
// The sensor is not initialized; call Init before polling. opts can be nil to
// use DefaultOpts.
func New(c conn.Conn, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Resolution > CPI1600 {
		return nil, fmt.Errorf("adns7550: invalid resolution %d", opts.Resolution)
	}
	if c.Duplex() == conn.Full {
		return nil, fmt.Errorf("adns7550: %s is full duplex, the sensor port is half duplex", c)
	}
	d := &Dev{
		c:      c,
		opts:   *opts,
		logger: opts.Logger,
		sleep:  time.Sleep,
		spin:   cpu.Nanospin,
	}
	if d.opts.Resolution == 0 {
		d.opts.Resolution = CPI800
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	return d, nil
}

// NewBitBang configures p as a bit-banged serial port and returns a handle to
// the sensor behind it.
func NewBitBang(p Pins, opts *Opts) (*Dev, error) {
	b, err := NewBus(p)
	if err != nil {
		return nil, err
	}
	return New(b, opts)
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("adns7550.Dev{%s}", d.c)
}

// Halt releases the serial port. Further calls return ErrHalted.
//
// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.halted = true
	if r, ok := d.c.(conn.Resource); ok {
		return r.Halt()
	}
	return nil
}

// Type returns the sensor family code used by the motion consumers.
func (d *Dev) Type() int {
	return 2
}

// PixelCount returns the number of pixels in one frame.
func (d *Dev) PixelCount() int {
	return PixelCount
}

// Motion returns the displacement accumulated since the last read.
func (d *Dev) Motion() (dx, dy int16, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return 0, 0, ErrHalted
	}
	x, err := d.readReg(regDeltaX)
	if err != nil {
		return 0, 0, err
	}
	y, err := d.readReg(regDeltaY)
	if err != nil {
		return 0, 0, err
	}
	xy, err := d.readReg(regDeltaXY)
	if err != nil {
		return 0, 0, err
	}
	dx, dy = decodeDelta(x, y, xy)
	return dx, dy, nil
}

// SurfaceQuality returns SQUAL, a measure of the number of features visible
// to the sensor.
func (d *Dev) SurfaceQuality() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return 0, ErrHalted
	}
	return d.readReg(regSQUAL)
}

// IsMoving reports whether motion occurred since the last motion report.
func (d *Dev) IsMoving() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return false, ErrHalted
	}
	m, err := d.readReg(regMotion)
	if err != nil {
		return false, err
	}
	return m&motionMOT != 0, nil
}

// Sense reads the motion burst registers in a single transaction.
func (d *Dev) Sense() (MotionSample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return MotionSample{}, ErrHalted
	}
	return d.readBurst()
}

// SetWakeMode forces the sensor to stay awake when enabled, or lets it enter
// its power saving modes again when disabled.
func (d *Dev) SetWakeMode(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return ErrHalted
	}
	if enabled {
		return d.writeShadowed(regLaserCtrl0, regLaserCtrl1, laserCtrl0Awake)
	}
	if err := d.writeShadowed(regLaserCtrl0, regLaserCtrl1, laserCtrl0Sleep); err != nil {
		return err
	}
	d.spin(time.Millisecond)
	return nil
}

// AdjustLaserCurrent adds delta to the laser power register and returns the
// resulting laser current.
//
// delta is in raw register steps. The register wraps at 8 bits.
func (d *Dev) AdjustLaserCurrent(delta int) (physic.ElectricCurrent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return 0, ErrHalted
	}
	raw, err := d.readReg(regLaserPowerCfg0)
	if err != nil {
		return 0, err
	}
	v := byte(int(raw) + delta)
	if err := d.writeShadowed(regLaserPowerCfg0, regLaserPowerCfg1, v); err != nil {
		return 0, err
	}
	d.debug("laser:adjust", hexAttr("from", raw), hexAttr("to", v))
	return LaserCurrent(v), nil
}

// LaserCurrent converts a laser power register value to the laser drive
// current, using the linear fit over the default 2-5mA range.
func LaserCurrent(raw byte) physic.ElectricCurrent {
	mA := (0.3359 + 0.0026*float64(raw)) * 5
	return physic.ElectricCurrent(mA * float64(physic.MilliAmpere))
}

// decodeDelta rebuilds the 12-bit two's complement deltas. ΔXY holds the
// upper nibble of X in its high nibble and of Y in its low nibble.
func decodeDelta(x, y, xy byte) (dx, dy int16) {
	return sext12(uint16(xy>>4)<<8 | uint16(x)), sext12(uint16(xy&0x0F)<<8 | uint16(y))
}

func sext12(v uint16) int16 {
	return int16(v<<4) >> 4
}

// readReg reads one register.
func (d *Dev) readReg(r reg) (byte, error) {
	var buf [1]byte
	if err := d.c.Tx([]byte{byte(r) & addrMask}, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// writeReg writes one register. The write flag is set on the address byte.
func (d *Dev) writeReg(r reg, v byte) error {
	return d.c.Tx([]byte{byte(r)&addrMask | writeFlag, v}, nil)
}

// writeShadowed writes v to r and its complement to the shadow register the
// chip checks r against.
func (d *Dev) writeShadowed(r, shadow reg, v byte) error {
	if err := d.writeReg(r, v); err != nil {
		return err
	}
	return d.writeReg(shadow, ^v)
}

// readBurst reads motion, the deltas, SQUAL, shutter and maximum pixel in
// one transaction.
func (d *Dev) readBurst() (MotionSample, error) {
	var buf [8]byte
	if err := d.c.Tx([]byte{byte(regMotionBurst) & addrMask}, buf[:]); err != nil {
		return MotionSample{}, err
	}
	m := MotionSample{
		Motion:       buf[0],
		SQUAL:        buf[4],
		ShutterUpper: buf[5],
		ShutterLower: buf[6],
		MaximumPixel: buf[7],
	}
	m.DX, m.DY = decodeDelta(buf[1], buf[2], buf[3])
	return m, nil
}
