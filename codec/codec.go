// Package codec is the image capability used by the variant pipeline: read an
// image's intrinsic dimensions, and transcode it into a box-fitted rendition
// in a given format.
//
// The pipeline only sees the Codec interface so tests can substitute a fake
// that reports fixed dimensions and records transcodes. FileCodec is the real
// implementation backed by pure-Go decoders and encoders.
package codec

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Image decoding errors
var (
	ErrEmptyImage        = errors.New("codec: empty image")
	ErrInvalidDimensions = errors.New("codec: invalid dimensions")
)

// Encoder settings. Quality is fixed; only size and format are configurable.
const (
	jpegQuality = 82
	webpQuality = 80
	avifQuality = 60
	avifSpeed   = 8
)

// Codec is the opaque image capability.
type Codec interface {
	// Dimensions reports the intrinsic width and height of the image at path.
	Dimensions(path string) (width, height int, err error)

	// Transcode decodes src, resizes it to fit inside a box×box square with
	// its aspect ratio preserved, encodes it as format and writes it to dst.
	// dst is replaced atomically.
	Transcode(src string, box int, format Format, dst string) error
}

type encodeFunc func(w io.Writer, img image.Image) error

// FileCodec implements Codec for files on the local filesystem.
type FileCodec struct {
	encoders map[Format]encodeFunc
}

// NewFileCodec returns a FileCodec with an encoder for every supported Format.
func NewFileCodec() *FileCodec {
	encoders := map[Format]encodeFunc{
		FormatJPG:  encodeJPEG,
		FormatJPEG: encodeJPEG,
		FormatPNG: func(w io.Writer, img image.Image) error {
			return png.Encode(w, img)
		},
		FormatGIF: func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, &gif.Options{NumColors: 256})
		},
		FormatWebP: func(w io.Writer, img image.Image) error {
			return webp.Encode(w, img, webp.Options{Quality: webpQuality})
		},
		FormatAVIF: func(w io.Writer, img image.Image) error {
			return avif.Encode(w, img, avif.Options{Quality: avifQuality, QualityAlpha: avifQuality, Speed: avifSpeed})
		},
		FormatTIFF: encodeTIFF,
		FormatTIF:  encodeTIFF,
		FormatBMP: func(w io.Writer, img image.Image) error {
			return bmp.Encode(w, img)
		},
	}
	return &FileCodec{encoders: encoders}
}

// Dimensions implements Codec. Only the image header is decoded.
func (c *FileCodec) Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode header of %s: %w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%w: %s is %dx%d", ErrInvalidDimensions, path, cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

// Transcode implements Codec. EXIF orientation is applied before resizing.
func (c *FileCodec) Transcode(src string, box int, format Format, dst string) error {
	encode, ok := c.encoders[format]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if box <= 0 {
		return fmt.Errorf("%w: box %d", ErrInvalidDimensions, box)
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyImage, src)
	}

	resized := ResizeToFit(img, box)
	return WriteFileAtomic(dst, 0644, func(w io.Writer) error {
		if err := encode(w, resized); err != nil {
			return fmt.Errorf("encode %s: %w", format.Name(), err)
		}
		return nil
	})
}

func encodeJPEG(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, flattenOnWhite(img), &jpeg.Options{Quality: jpegQuality})
}

func encodeTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}
