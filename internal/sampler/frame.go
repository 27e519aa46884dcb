package sampler

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"

	"golang.org/x/image/draw"
)

func decodeJPEG(data []byte) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return img, nil
}

// isDegenerate reports whether every pixel has the same luminance, which
// covers both all-black frames and solid-color frames.
func isDegenerate(img image.Image) bool {
	bounds := img.Bounds()
	if bounds.Empty() {
		return true
	}

	first := luminance(img.At(bounds.Min.X, bounds.Min.Y))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if luminance(img.At(x, y)) != first {
				return false
			}
		}
	}
	return true
}

func luminance(c interface{ RGBA() (r, g, b, a uint32) }) uint32 {
	r, g, b, _ := c.RGBA()
	// Integer BT.601 luma on 16-bit channels.
	return (299*r + 587*g + 114*b) / 1000
}

// resizeToWidth scales proportionally so the result is exactly targetWidth
// wide; the height is rounded to the nearest integer.
func resizeToWidth(img image.Image, targetWidth int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w == targetWidth || w == 0 {
		return img
	}

	targetHeight := int(math.Round(float64(h) * float64(targetWidth) / float64(w)))
	if targetHeight < 1 {
		targetHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}
