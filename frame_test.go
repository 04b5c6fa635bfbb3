package adns7550

import (
	"context"
	"errors"
	"testing"
	"time"
)

// pixelChip returns a chip that always flags the first and a valid pixel and
// serves pixel i as byte(i).
func pixelChip() *fakeChip {
	f := &fakeChip{queue: map[byte][]byte{}}
	f.regs[regMotion] = motionPixelFirst | motionPixelValid
	next := 0
	f.onRead = func(addr byte) {
		if addr == byte(regPixelData) {
			f.regs[regPixelData] = byte(next)
			next++
		}
	}
	return f
}

// frameStarts counts the pixel pointer resets.
func frameStarts(f *fakeChip) int {
	return f.count(0x80|byte(regPixelData), 0x00)
}

func TestReadPixelFullFrame(t *testing.T) {
	f := pixelChip()
	d, clk := newTestDev(t, f, nil)
	buf := make([]byte, PixelCount)
	ctx := context.Background()

	for i := 0; i < PixelCount; i++ {
		if got := d.FrameCursor(); got != i {
			t.Fatalf("FrameCursor() = %d before call %d", got, i)
		}
		complete, err := d.ReadPixel(ctx, buf)
		if err != nil {
			t.Fatalf("ReadPixel() call %d error = %v", i, err)
		}
		if want := i == PixelCount-1; complete != want {
			t.Fatalf("ReadPixel() call %d complete = %v, want %v", i, complete, want)
		}
	}
	for i, v := range buf {
		if v != byte(i) {
			t.Fatalf("buf[%d] = %d, want %d", i, v, byte(i))
		}
	}
	if got := d.FrameCursor(); got != 0 {
		t.Errorf("FrameCursor() = %d after a full frame, want 0", got)
	}
	if got := frameStarts(f); got != 1 {
		t.Errorf("%d frame starts, want 1", got)
	}
	if n := len(clk.spins); n != 1 || clk.spins[0] != 10*time.Microsecond {
		t.Errorf("spins = %v, want [10µs]", clk.spins)
	}

	// The next call starts a new frame.
	if _, err := d.ReadPixel(ctx, buf); err != nil {
		t.Fatal(err)
	}
	if got := frameStarts(f); got != 2 {
		t.Errorf("%d frame starts, want 2", got)
	}
	if got := d.FrameCursor(); got != 1 {
		t.Errorf("FrameCursor() = %d, want 1", got)
	}
}

func TestReadPixelNotStarted(t *testing.T) {
	f := pixelChip()
	f.regs[regMotion] = motionPixelValid
	d, _ := newTestDev(t, f, nil)
	complete, err := d.ReadPixel(context.Background(), make([]byte, PixelCount))
	if !errors.Is(err, ErrFrameNotStarted) {
		t.Fatalf("ReadPixel() error = %v, want ErrFrameNotStarted", err)
	}
	if complete {
		t.Error("complete = true, want false")
	}
	if got := d.FrameCursor(); got != 0 {
		t.Errorf("FrameCursor() = %d, want 0", got)
	}
	if got := f.count(byte(regPixelData)); got != 0 {
		t.Errorf("pixel register read %d times, want 0", got)
	}
}

func TestReadPixelWaitsForValid(t *testing.T) {
	f := pixelChip()
	// start-of-frame check, then two polls without a valid pixel
	f.queue[byte(regMotion)] = []byte{0x20, 0x20, 0x20, 0x60}
	d, _ := newTestDev(t, f, nil)
	buf := make([]byte, PixelCount)
	if _, err := d.ReadPixel(context.Background(), buf); err != nil {
		t.Fatal(err)
	}
	if got := f.count(byte(regMotion)); got != 4 {
		t.Errorf("motion register read %d times, want 4", got)
	}
	if got := f.count(byte(regPixelData)); got != 1 {
		t.Errorf("pixel register read %d times, want 1", got)
	}
}

func TestReadPixelCanceled(t *testing.T) {
	f := pixelChip()
	f.regs[regMotion] = motionPixelFirst
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	polls := 0
	f.onRead = func(addr byte) {
		if addr == byte(regMotion) {
			polls++
			if polls == 5 {
				cancel()
			}
		}
	}
	d, _ := newTestDev(t, f, nil)
	_, err := d.ReadPixel(ctx, make([]byte, PixelCount))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ReadPixel() error = %v, want context.Canceled", err)
	}
	if polls != 5 {
		t.Errorf("%d polls, want 5", polls)
	}
	if got := d.FrameCursor(); got != 0 {
		t.Errorf("FrameCursor() = %d, want 0", got)
	}
}

func TestReadPixelBufferSize(t *testing.T) {
	f := pixelChip()
	d, _ := newTestDev(t, f, nil)
	if _, err := d.ReadPixel(context.Background(), make([]byte, PixelCount-1)); err == nil {
		t.Error("ReadPixel() should reject a short buffer")
	}
	if err := d.ReadFrame(context.Background(), nil); err == nil {
		t.Error("ReadFrame() should reject a short buffer")
	}
	if len(f.ops) != 0 {
		t.Errorf("%d transactions, want 0", len(f.ops))
	}
}

func TestReadFrameRetriesStart(t *testing.T) {
	f := pixelChip()
	f.queue[byte(regMotion)] = []byte{0x00, 0x00}
	d, _ := newTestDev(t, f, nil)
	buf := make([]byte, PixelCount)
	if err := d.ReadFrame(context.Background(), buf); err != nil {
		t.Fatal(err)
	}
	if got := frameStarts(f); got != 3 {
		t.Errorf("%d frame starts, want 3", got)
	}
	last := PixelCount - 1
	if buf[last] != byte(last) {
		t.Errorf("last pixel = %d, want %d", buf[last], byte(last))
	}
}

func TestReadFrameCanceledWithoutStart(t *testing.T) {
	f := pixelChip()
	f.regs[regMotion] = 0x00
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tries := 0
	f.onRead = func(addr byte) {
		if addr == byte(regMotion) {
			if tries++; tries == 3 {
				cancel()
			}
		}
	}
	d, _ := newTestDev(t, f, nil)
	if err := d.ReadFrame(ctx, make([]byte, PixelCount)); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadFrame() error = %v, want context.Canceled", err)
	}
}

func TestReadFrameFinishesPartialFrame(t *testing.T) {
	f := pixelChip()
	d, _ := newTestDev(t, f, nil)
	buf := make([]byte, PixelCount)
	for i := 0; i < 5; i++ {
		if _, err := d.ReadPixel(context.Background(), buf); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.ReadFrame(context.Background(), buf); err != nil {
		t.Fatal(err)
	}
	if got := frameStarts(f); got != 1 {
		t.Errorf("%d frame starts, want 1", got)
	}
	if got := f.count(byte(regPixelData)); got != PixelCount {
		t.Errorf("pixel register read %d times, want %d", got, PixelCount)
	}
}

func TestResetFrame(t *testing.T) {
	f := pixelChip()
	d, _ := newTestDev(t, f, nil)
	buf := make([]byte, PixelCount)
	for i := 0; i < 5; i++ {
		if _, err := d.ReadPixel(context.Background(), buf); err != nil {
			t.Fatal(err)
		}
	}
	d.ResetFrame()
	if got := d.FrameCursor(); got != 0 {
		t.Errorf("FrameCursor() = %d after ResetFrame, want 0", got)
	}
	if _, err := d.ReadPixel(context.Background(), buf); err != nil {
		t.Fatal(err)
	}
	if got := frameStarts(f); got != 2 {
		t.Errorf("%d frame starts, want 2", got)
	}
}

func TestFrame(t *testing.T) {
	f := pixelChip()
	d, _ := newTestDev(t, f, nil)
	img, err := d.Frame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		x, y int
		want uint8
	}{
		{0, 0, 0},
		{1, 0, 1},
		{0, 1, 26},
		// pixel 200 is 0xC8, bit 7 is not intensity
		{18, 7, 0x48},
	}
	for _, tt := range tests {
		if got := img.Gray7At(tt.x, tt.y).Y; got != tt.want {
			t.Errorf("Gray7At(%d, %d).Y = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestFrameDiscardsPartialFrame(t *testing.T) {
	f := pixelChip()
	d, _ := newTestDev(t, f, nil)
	buf := make([]byte, PixelCount)
	for i := 0; i < 100; i++ {
		if _, err := d.ReadPixel(context.Background(), buf); err != nil {
			t.Fatal(err)
		}
	}
	img, err := d.Frame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// pixelChip keeps counting, so the new frame starts at pixel value 100.
	for i, v := range img.Pix {
		if want := byte(100 + i); v != want {
			t.Fatalf("Pix[%d] = %d, want %d", i, v, want)
		}
	}
	if got := frameStarts(f); got != 2 {
		t.Errorf("%d frame starts, want 2", got)
	}
	if got := d.FrameCursor(); got != 0 {
		t.Errorf("FrameCursor() = %d, want 0", got)
	}
}

func TestFrameOverBitBangedPort(t *testing.T) {
	d, s := newSimDev(t, nil)
	s.regs[regMotion] = motionPixelFirst | motionPixelValid
	s.onWrite = func(addr, v byte) {
		if addr == byte(regPixelData) {
			s.regs[regPixelData] = 0x3C
		}
	}
	img, err := d.Frame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	lo, hi, _ := img.Stats()
	if lo != 0x3C || hi != 0x3C {
		t.Errorf("Stats() lo, hi = 0x%02X, 0x%02X, want 0x3C", lo, hi)
	}
	if s.strayClks != 0 {
		t.Errorf("%d clock edges with NCS high", s.strayClks)
	}
}
