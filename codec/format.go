package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for a file type no encoder handles.
var ErrUnsupportedFormat = errors.New("codec: unsupported format")

// Format is an output file type written as a dotted, lower-case extension.
// It is used verbatim as the variant file suffix.
type Format string

// Supported output formats.
const (
	FormatAVIF Format = ".avif"
	FormatWebP Format = ".webp"
	FormatJPG  Format = ".jpg"
	FormatJPEG Format = ".jpeg"
	FormatPNG  Format = ".png"
	FormatGIF  Format = ".gif"
	FormatTIFF Format = ".tiff"
	FormatTIF  Format = ".tif"
	FormatBMP  Format = ".bmp"
)

var mimeTypes = map[Format]string{
	FormatAVIF: "image/avif",
	FormatWebP: "image/webp",
	FormatJPG:  "image/jpeg",
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatGIF:  "image/gif",
	FormatTIFF: "image/tiff",
	FormatTIF:  "image/tiff",
	FormatBMP:  "image/bmp",
}

// ParseFormat validates a configured file type. The leading dot is optional
// and case is ignored: "WEBP", "webp" and ".webp" all yield FormatWebP.
func ParseFormat(s string) (Format, error) {
	ext := strings.ToLower(strings.TrimSpace(s))
	if ext == "" {
		return "", fmt.Errorf("%w: empty file type", ErrUnsupportedFormat)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f := Format(ext)
	if _, ok := mimeTypes[f]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// ParseFormats parses every entry of list, keeping order.
func ParseFormats(list []string) ([]Format, error) {
	out := make([]Format, 0, len(list))
	for _, s := range list {
		f, err := ParseFormat(s)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// MIMEType returns the media type announced in <source type="...">.
func (f Format) MIMEType() string {
	if m, ok := mimeTypes[f]; ok {
		return m
	}
	return "image/" + f.Name()
}

// Name returns the extension without its dot.
func (f Format) Name() string {
	return strings.TrimPrefix(string(f), ".")
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return string(f)
}
