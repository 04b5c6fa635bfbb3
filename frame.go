package adns7550

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"periph.io/x/devices/v3/adns7550/pixframe"
)

// tFrameStart separates the pixel pointer reset from the start-of-frame
// check.
const tFrameStart = 10 * time.Microsecond

// ReadPixel reads the next pixel of the current frame into buf.
//
// Pixels are stored at buf[i] in readout order. The device keeps the frame
// cursor between calls. Each successful call stores exactly one pixel, and
// complete is true when the last pixel of the frame was stored and the
// cursor wrapped back to 0.
//
// When a new frame is due, the pixel pointer is reset first. If the chip
// does not flag the first pixel, ErrFrameNotStarted is returned with the
// cursor left at 0 and the call can simply be retried.
//
// The wait for a valid pixel is unbounded on the chip side, so ctx is checked
// on every poll.
func (d *Dev) ReadPixel(ctx context.Context, buf []byte) (complete bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return false, ErrHalted
	}
	if len(buf) < PixelCount {
		return false, errors.New("adns7550: invalid buffer size")
	}
	return d.readPixel(ctx, buf)
}

func (d *Dev) readPixel(ctx context.Context, buf []byte) (bool, error) {
	if d.cursor == 0 {
		if err := d.writeReg(regPixelData, 0x00); err != nil {
			return false, err
		}
		d.spin(tFrameStart)
		m, err := d.readReg(regMotion)
		if err != nil {
			return false, err
		}
		if m&motionPixelFirst == 0 {
			d.debug("frame:not started", hexAttr("motion", m))
			return false, ErrFrameNotStarted
		}
	}
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		m, err := d.readReg(regMotion)
		if err != nil {
			return false, err
		}
		if m&motionPixelValid != 0 {
			break
		}
	}
	p, err := d.readReg(regPixelData)
	if err != nil {
		return false, err
	}
	buf[d.cursor] = p
	d.cursor++
	if d.cursor == PixelCount {
		d.cursor = 0
		d.debug("frame:complete")
		return true, nil
	}
	return false, nil
}

// ReadFrame reads pixels until a frame is complete.
//
// A frame already in progress is finished rather than restarted; call
// ResetFrame first to discard it. A missing start-of-frame marker is retried
// until ctx is done.
func (d *Dev) ReadFrame(ctx context.Context, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return ErrHalted
	}
	if len(buf) < PixelCount {
		return errors.New("adns7550: invalid buffer size")
	}
	return d.readFrame(ctx, buf)
}

func (d *Dev) readFrame(ctx context.Context, buf []byte) error {
	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := d.readPixel(ctx, buf)
		switch {
		case errors.Is(err, ErrFrameNotStarted):
			retries++
			continue
		case err != nil:
			return err
		case done:
			if retries > 0 {
				d.debug("frame:start retried", slog.Int("retries", retries))
			}
			return nil
		}
	}
}

// Frame reads one complete frame and returns it as an image. A frame in
// progress is discarded first.
func (d *Dev) Frame(ctx context.Context) (*pixframe.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return nil, ErrHalted
	}
	d.cursor = 0
	f := pixframe.New()
	if err := d.readFrame(ctx, f.Pix); err != nil {
		return nil, err
	}
	return f, nil
}

// ResetFrame discards the frame in progress. The next ReadPixel starts a new
// frame.
func (d *Dev) ResetFrame() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = 0
}

// FrameCursor returns the index of the next pixel to be read.
func (d *Dev) FrameCursor() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}
