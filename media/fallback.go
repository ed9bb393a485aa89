package media

import (
	"image"
	"image/color"
	"math"

	css "github.com/mazznoer/csscolorparser"
)

// Fallback gradient shown when no video is available.
const (
	FallbackSize  = 512
	FallbackStart = "#2a2a2a"
	FallbackEnd   = "#1a1a1a"
)

// Fallback renders a FallbackSize square with a linear gradient from the
// top-left (FallbackStart) to the bottom-right (FallbackEnd) corner.
func Fallback() *image.RGBA {
	return DiagonalGradient(FallbackSize, FallbackStart, FallbackEnd)
}

// DiagonalGradient renders a size×size top-left to bottom-right gradient
// between two CSS colors. Unparseable colors render black.
func DiagonalGradient(size int, from, to string) *image.RGBA {
	a, _ := css.Parse(from)
	b, _ := css.Parse(to)
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	span := float64(2 * size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			// projection of the pixel centre onto the diagonal
			t := (float64(x) + 0.5 + float64(y) + 0.5) / span
			img.SetRGBA(x, y, color.RGBA{
				R: lerp8(a.R, b.R, t),
				G: lerp8(a.G, b.G, t),
				B: lerp8(a.B, b.B, t),
				A: lerp8(a.A, b.A, t),
			})
		}
	}
	return img
}

func lerp8(a, b, t float64) uint8 {
	return uint8(math.Round(255 * (a + (b-a)*t)))
}
