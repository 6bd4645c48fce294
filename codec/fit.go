package codec

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// FitBox returns the dimensions of a width×height image scaled to fit inside
// a box×box square with its aspect ratio preserved. Images already inside the
// box are returned unchanged; they are never enlarged.
//
// This is a pure function with no side effects.
func FitBox(width, height, box int) (int, int) {
	if width <= 0 || height <= 0 || box <= 0 {
		return 0, 0
	}
	if width <= box && height <= box {
		return width, height
	}

	scale := float64(box) / float64(max(width, height))
	newWidth := int(math.Round(float64(width) * scale))
	newHeight := int(math.Round(float64(height) * scale))
	return max(newWidth, 1), max(newHeight, 1)
}

// ResizeToFit scales img into a box×box square, preserving aspect ratio,
// using Catmull-Rom resampling. The source is returned as-is when it already
// fits.
func ResizeToFit(img image.Image, box int) image.Image {
	bounds := img.Bounds()
	width, height := FitBox(bounds.Dx(), bounds.Dy(), box)
	if width == bounds.Dx() && height == bounds.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

// flattenOnWhite composites img onto an opaque white background for
// encoders that cannot store alpha.
func flattenOnWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}
