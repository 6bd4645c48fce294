package variants

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"imgresponsiver/codec"
)

type transcodeCall struct {
	src    string
	box    int
	format codec.Format
	dst    string
}

// fakeCodec reports fixed dimensions and writes a small placeholder file
// for every transcode. Calls whose dst is in failOn return an error
// without writing.
type fakeCodec struct {
	mu     sync.Mutex
	width  int
	height int
	dims   map[string][2]int
	failOn map[string]bool
	calls  []transcodeCall
}

func newFakeCodec(width, height int) *fakeCodec {
	return &fakeCodec{
		width:  width,
		height: height,
		dims:   map[string][2]int{},
		failOn: map[string]bool{},
	}
}

func (f *fakeCodec) Dimensions(path string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.dims[path]; ok {
		if d[0] == 0 {
			return 0, 0, errors.New("undecodable")
		}
		return d[0], d[1], nil
	}
	return f.width, f.height, nil
}

func (f *fakeCodec) Transcode(src string, box int, format codec.Format, dst string) error {
	f.mu.Lock()
	f.calls = append(f.calls, transcodeCall{src: src, box: box, format: format, dst: dst})
	fail := f.failOn[dst]
	f.mu.Unlock()

	if fail {
		return errors.New("encoder exploded")
	}
	return os.WriteFile(dst, []byte(fmt.Sprintf("%s@%d", format, box)), 0644)
}

func (f *fakeCodec) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
