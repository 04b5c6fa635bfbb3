package adns7550

// reg is a 7-bit register address. Bit 7 of the transmitted byte carries the
// transfer direction and is set by the register access layer only.
type reg byte

// Register map.
const (
	regProductID         reg = 0x00
	regRevisionID        reg = 0x01
	regMotion            reg = 0x02
	regDeltaX            reg = 0x03
	regDeltaY            reg = 0x04
	regDeltaXY           reg = 0x05 // X high nibble, Y low nibble
	regSQUAL             reg = 0x06
	regConfiguration2    reg = 0x12
	regLaserCtrl0        reg = 0x1A
	regLaserPowerCfg0    reg = 0x1C
	regLaserPowerCfg1    reg = 0x1D // complement of regLaserPowerCfg0
	regLaserCtrl1        reg = 0x1F // complement of regLaserCtrl0
	regConfig22          reg = 0x22
	regObservation       reg = 0x2E
	regPixelDummy        reg = 0x34
	regPixelData         reg = 0x35
	regPowerUpReset      reg = 0x3A
	regConfig3C          reg = 0x3C
	regConfig3D          reg = 0x3D
	regInverseRevisionID reg = 0x3E
	regInverseProductID  reg = 0x3F
	regMotionBurst       reg = 0x42
)

const (
	writeFlag = 0x80
	addrMask  = 0x7F
)

// Motion register bits.
const (
	motionMOT        = 0x80 // motion since last report
	motionPixelValid = 0x40
	motionPixelFirst = 0x20 // start-of-frame
	motionLaserOn    = 0x08
)

// Observation bits 0-3 are set by the chip once it is running.
const observationRunning = 0x0F

// Documented identity values.
const (
	ProductID         = 0x32
	InverseProductID  = 0xCD
	RevisionID        = 0x03
	InverseRevisionID = 0xFC
)

const (
	powerUpResetValue = 0x5A
	laserCtrl0Init    = 0x40
	laserPowerInit    = 0x5F
	pixelDummyValue   = 0x23

	// Forced awake on / off values for LASER_CTRL0.
	laserCtrl0Awake = 0xCA
	laserCtrl0Sleep = 0xC0

	// Configuration2 without the resolution field (bits 6:5).
	configuration2Base = 0x06
	resolutionShift    = 5
)

// PixelCount is the number of pixels in one frame (26x26).
const PixelCount = 676

// FrameSize is the width and height of a frame in pixels.
const FrameSize = 26

// Resolution selects the counts-per-inch of the motion report. The zero
// value selects CPI800.
type Resolution uint8

const (
	CPI400 Resolution = iota + 1
	CPI800
	CPI1200
	CPI1600
)

func (r Resolution) String() string {
	switch r {
	case CPI400:
		return "400cpi"
	case CPI800:
		return "800cpi"
	case CPI1200:
		return "1200cpi"
	case CPI1600:
		return "1600cpi"
	case 0:
		return "default"
	default:
		return "invalid"
	}
}

// configuration2 returns the Configuration2 register value selecting r.
func (r Resolution) configuration2() byte {
	if r == 0 {
		r = CPI800
	}
	return configuration2Base | byte(r-1)&0x03<<resolutionShift
}
