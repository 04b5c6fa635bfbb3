package adns7550

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// State is a step of the power-up sequence.
type State uint8

const (
	StateReset State = iota
	StatePowerUpWrite
	StateObservationWait
	StateConfigWrite
	StatePreReadProbe
	StateLaserConfig
	StateResolutionConfig
	StateLinkPoll
	StateIdentityVerify
	StateReady
)

var stateNames = [...]string{
	StateReset:            "Reset",
	StatePowerUpWrite:     "PowerUpWrite",
	StateObservationWait:  "ObservationWait",
	StateConfigWrite:      "ConfigWrite",
	StatePreReadProbe:     "PreReadProbe",
	StateLaserConfig:      "LaserConfig",
	StateResolutionConfig: "ResolutionConfig",
	StateLinkPoll:         "LinkPoll",
	StateIdentityVerify:   "IdentityVerify",
	StateReady:            "Ready",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Power-up timing.
const (
	tPowerUpStart  = 100 * time.Microsecond
	tPowerUpSettle = 25 * time.Millisecond
	tFrame         = 1350 * time.Microsecond
	tObservation   = 200 * time.Millisecond
	tLinkPoll      = 50 * time.Microsecond
)

// linkPollRetries bounds the number of extra motion register polls while
// waiting for the laser to come up. The Arduino library this sequence comes
// from checks its counter after the reads and so does one more pair (22);
// here the cap is checked before reading.
const linkPollRetries = 21

// InitReport describes the outcome of Init.
type InitReport struct {
	// State is the last state reached, StateReady on success.
	State State

	// Observation is the observation register read back after one frame.
	Observation byte

	// Probe holds the motion, ΔX, ΔY and ΔXY bytes of the dummy read.
	Probe [4]byte

	// LinkUp is set when the laser-on bit was seen during the link poll.
	LinkUp bool

	// LinkPolls is the number of extra motion register polls needed.
	LinkPolls int

	Product         byte
	InverseProduct  byte
	Revision        byte
	InverseRevision byte

	// Warnings holds the non-fatal failures in tolerant mode.
	Warnings []error
}

// IdentityOK reports whether the identity registers hold the documented
// values.
func (r *InitReport) IdentityOK() bool {
	return r.Product == ProductID && r.InverseProduct == InverseProductID &&
		r.Revision == RevisionID && r.InverseRevision == InverseRevisionID
}

// Init runs the power-up sequence and leaves the sensor ready to be polled.
//
// A link timeout or an identity mismatch is returned as an error when
// Opts.Strict is set. Otherwise it is logged, appended to the report's
// Warnings, and the sequence continues. Transport errors and ctx
// cancellation always abort.
func (d *Dev) Init(ctx context.Context) (*InitReport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return nil, ErrHalted
	}
	rep := &InitReport{}
	err := d.init(ctx, rep)
	if err != nil {
		d.logerr("init:failed", slog.String("state", rep.State.String()), slog.String("err", err.Error()))
		return rep, err
	}
	return rep, nil
}

func (d *Dev) init(ctx context.Context, rep *InitReport) error {
	steps := []func(context.Context, *InitReport) error{
		StateReset:            d.initReset,
		StatePowerUpWrite:     d.initPowerUp,
		StateObservationWait:  d.initObservation,
		StateConfigWrite:      d.initConfig,
		StatePreReadProbe:     d.initProbe,
		StateLaserConfig:      d.initLaser,
		StateResolutionConfig: d.initResolution,
		StateLinkPoll:         d.initLinkPoll,
		StateIdentityVerify:   d.initIdentity,
	}
	for i, step := range steps {
		rep.State = State(i)
		if err := ctx.Err(); err != nil {
			return err
		}
		d.debug("init:state", slog.String("state", rep.State.String()))
		if err := step(ctx, rep); err != nil {
			if !d.tolerate(err) {
				return err
			}
			d.warn("init:continuing", slog.String("state", rep.State.String()), slog.String("err", err.Error()))
			rep.Warnings = append(rep.Warnings, err)
		}
	}
	rep.State = StateReady
	d.cursor = 0
	d.info("init:ready", slog.Int("warnings", len(rep.Warnings)), slog.String("resolution", d.opts.Resolution.String()))
	return nil
}

// tolerate reports whether err may be skipped under the configured policy.
func (d *Dev) tolerate(err error) bool {
	if d.opts.Strict {
		return false
	}
	return errors.Is(err, ErrLinkTimeout) || errors.Is(err, ErrIdentityMismatch)
}

func (d *Dev) initReset(context.Context, *InitReport) error {
	d.spin(tPowerUpStart)
	if r, ok := d.c.(portResetter); ok {
		return r.ResetPort()
	}
	return nil
}

func (d *Dev) initPowerUp(context.Context, *InitReport) error {
	if err := d.writeReg(regPowerUpReset, powerUpResetValue); err != nil {
		return err
	}
	d.sleep(tPowerUpSettle)
	return nil
}

func (d *Dev) initObservation(_ context.Context, rep *InitReport) error {
	d.sleep(tFrame)
	if err := d.writeReg(regObservation, 0x00); err != nil {
		return err
	}
	d.sleep(tObservation)
	obs, err := d.readReg(regObservation)
	if err != nil {
		return err
	}
	rep.Observation = obs
	if obs&observationRunning != observationRunning {
		// Advisory only: some parts never set all four bits.
		d.warn("init:observation incomplete", hexAttr("observation", obs))
	}
	return nil
}

func (d *Dev) initConfig(context.Context, *InitReport) error {
	seq := []struct {
		r reg
		v byte
	}{
		{regConfig3C, 0x27},
		{regConfig22, 0x10},
		{regConfig3C, 0x22},
		{regConfig3D, 0x32},
	}
	for _, w := range seq {
		if err := d.writeReg(w.r, w.v); err != nil {
			return err
		}
	}
	return nil
}

// initProbe reads the motion registers once regardless of the motion state.
func (d *Dev) initProbe(_ context.Context, rep *InitReport) error {
	for i, r := range []reg{regMotion, regDeltaX, regDeltaY, regDeltaXY} {
		v, err := d.readReg(r)
		if err != nil {
			return err
		}
		rep.Probe[i] = v
	}
	d.debug("init:probe", hexAttr("motion", rep.Probe[0]), hexAttr("dx", rep.Probe[1]), hexAttr("dy", rep.Probe[2]), hexAttr("dxy", rep.Probe[3]))
	return nil
}

func (d *Dev) initLaser(context.Context, *InitReport) error {
	if err := d.writeShadowed(regLaserCtrl0, regLaserCtrl1, laserCtrl0Init); err != nil {
		return err
	}
	if err := d.writeShadowed(regLaserPowerCfg0, regLaserPowerCfg1, laserPowerInit); err != nil {
		return err
	}
	pid, err := d.readReg(regProductID)
	if err != nil {
		return err
	}
	d.debug("init:product", hexAttr("product", pid))
	return d.writeReg(regPixelDummy, pixelDummyValue)
}

func (d *Dev) initResolution(context.Context, *InitReport) error {
	return d.writeReg(regConfiguration2, d.opts.Resolution.configuration2())
}

// initLinkPoll waits for the laser-on bit. It gives up after linkPollRetries
// extra polls rather than hanging on an unresponsive chip.
func (d *Dev) initLinkPoll(ctx context.Context, rep *InitReport) error {
	mot, err := d.readReg(regMotion)
	if err != nil {
		return err
	}
	for mot&motionLaserOn == 0 {
		if rep.LinkPolls >= linkPollRetries {
			d.spin(tLinkPoll)
			return fmt.Errorf("%w after %d polls (motion 0x%02X)", ErrLinkTimeout, rep.LinkPolls, mot)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		pid, err := d.readReg(regProductID)
		if err != nil {
			return err
		}
		if mot, err = d.readReg(regMotion); err != nil {
			return err
		}
		rep.LinkPolls++
		d.debug("init:link", hexAttr("product", pid), hexAttr("motion", mot))
		d.spin(tLinkPoll)
	}
	d.spin(tLinkPoll)
	rep.LinkUp = true
	return nil
}

func (d *Dev) initIdentity(_ context.Context, rep *InitReport) error {
	for _, f := range []struct {
		r   reg
		dst *byte
	}{
		{regRevisionID, &rep.Revision},
		{regInverseRevisionID, &rep.InverseRevision},
		{regProductID, &rep.Product},
		{regInverseProductID, &rep.InverseProduct},
	} {
		v, err := d.readReg(f.r)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	mot, err := d.readReg(regMotion)
	if err != nil {
		return err
	}
	d.debug("init:identity",
		hexAttr("product", rep.Product), hexAttr("inverse_product", rep.InverseProduct),
		hexAttr("revision", rep.Revision), hexAttr("inverse_revision", rep.InverseRevision),
		hexAttr("motion", mot))
	if !rep.IdentityOK() {
		return &IdentityError{
			Product:         rep.Product,
			InverseProduct:  rep.InverseProduct,
			Revision:        rep.Revision,
			InverseRevision: rep.InverseRevision,
		}
	}
	return nil
}
