package codec

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 200})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestFitBox(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		box           int
		wantW, wantH  int
	}{
		{"landscape downscale", 2000, 1000, 480, 480, 240},
		{"portrait downscale", 1000, 2000, 480, 240, 480},
		{"square downscale", 1000, 1000, 240, 240, 240},
		{"already fits", 200, 100, 480, 200, 100},
		{"exact fit", 480, 300, 480, 480, 300},
		{"rounds to nearest", 1000, 333, 480, 480, 160},
		{"extreme aspect keeps one pixel", 10000, 1, 100, 100, 1},
		{"zero box", 100, 100, 0, 0, 0},
		{"zero width", 0, 100, 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitBox(tt.width, tt.height, tt.box)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("FitBox(%d, %d, %d) = %dx%d, want %dx%d",
					tt.width, tt.height, tt.box, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{".webp", FormatWebP, false},
		{"webp", FormatWebP, false},
		{"AVIF", FormatAVIF, false},
		{" .JPG ", FormatJPG, false},
		{".jpeg", FormatJPEG, false},
		{".heic", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormat(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormats_StopsAtFirstInvalid(t *testing.T) {
	if _, err := ParseFormats([]string{".webp", ".nope"}); err == nil {
		t.Error("expected error for invalid entry")
	}
	got, err := ParseFormats([]string{"avif", ".webp", ".jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Format{FormatAVIF, FormatWebP, FormatJPG}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseFormats()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFormat_MIMEType(t *testing.T) {
	tests := map[Format]string{
		FormatAVIF: "image/avif",
		FormatWebP: "image/webp",
		FormatJPG:  "image/jpeg",
		FormatJPEG: "image/jpeg",
		FormatPNG:  "image/png",
		FormatTIF:  "image/tiff",
	}
	for f, want := range tests {
		if got := f.MIMEType(); got != want {
			t.Errorf("%s.MIMEType() = %q, want %q", f, got, want)
		}
	}
	if got := FormatWebP.Name(); got != "webp" {
		t.Errorf("Name() = %q, want webp", got)
	}
}

func TestFileCodec_Dimensions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeTestPNG(t, src, 64, 32)

	w, h, err := NewFileCodec().Dimensions(src)
	if err != nil {
		t.Fatalf("Dimensions() error: %v", err)
	}
	if w != 64 || h != 32 {
		t.Errorf("Dimensions() = %dx%d, want 64x32", w, h)
	}
}

func TestFileCodec_DimensionsErrors(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCodec()

	if _, _, err := c.Dimensions(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}

	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Dimensions(garbage); err == nil {
		t.Error("expected error for undecodable file")
	}
}

func TestFileCodec_Transcode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeTestPNG(t, src, 100, 50)
	c := NewFileCodec()

	tests := []struct {
		format Format
		box    int
		wantW  int
		wantH  int
	}{
		{FormatJPG, 40, 40, 20},
		{FormatPNG, 40, 40, 20},
		{FormatGIF, 20, 20, 10},
		{FormatBMP, 200, 100, 50},
		{FormatTIFF, 50, 50, 25},
	}

	for _, tt := range tests {
		t.Run(tt.format.Name(), func(t *testing.T) {
			dst := filepath.Join(dir, "out-"+tt.format.Name()+string(tt.format))
			if err := c.Transcode(src, tt.box, tt.format, dst); err != nil {
				t.Fatalf("Transcode() error: %v", err)
			}
			w, h, err := c.Dimensions(dst)
			if err != nil {
				t.Fatalf("Dimensions(output) error: %v", err)
			}
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("output = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFileCodec_TranscodeUnsupported(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeTestPNG(t, src, 10, 10)

	err := NewFileCodec().Transcode(src, 10, Format(".heic"), filepath.Join(dir, "out.heic"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Transcode() error = %v, want ErrUnsupportedFormat", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.heic")); !os.IsNotExist(statErr) {
		t.Error("no output should be written for an unsupported format")
	}
}

func TestWriteFileAtomic_RemovesTempOnError(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.bin")
	boom := errors.New("boom")

	err := WriteFileAtomic(dst, 0644, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WriteFileAtomic() error = %v, want boom", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected empty dir after failed write, found %d entries", len(entries))
	}
}

func TestWriteFileAtomic_Replaces(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(dst, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	err := WriteFileAtomic(dst, 0644, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	})
	if err != nil {
		t.Fatalf("WriteFileAtomic() error: %v", err)
	}
	data, _ := os.ReadFile(dst)
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}
