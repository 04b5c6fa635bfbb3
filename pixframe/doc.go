// Package pixframe provides an image view of an ADNS-7550 pixel frame.
//
// The sensor grabs a 26x26 image of the surface under it for every motion
// report. The driver reads it back one byte per pixel; the lower 7 bits are
// the intensity.
//
// Memory layout for the first row:
//
//	Pixels: 0    1    2   ...  25
//	Pix:    [0]  [1]  [2] ...  [25]
//
// This package provides:
//
// - Gray7: A color type representing 7-bit intensity (0-127)
// - Gray7Model: A color model for converting standard Go colors to Gray7
// - Frame: An image.Image over the raw frame buffer
//
// Example usage:
//
//	f, err := dev.Frame(ctx)
//	if err != nil {
//		return err
//	}
//	lo, hi, mean := f.Stats()
//	fmt.Printf("%d..%d mean %.1f\n", lo, hi, mean)
//	png.Encode(w, f.Gray())
package pixframe
