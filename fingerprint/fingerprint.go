// Package fingerprint derives the content address used to name image variants
// and to correlate HTML references with the variants generated for them.
//
// A Fingerprint is a pure function of a normalized path string. It never
// depends on file contents, so the image pass and the HTML pass agree as long
// as both normalize the same path and use the same Hasher.
package fingerprint

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/zeebo/blake3"
)

// Fingerprint is a non-negative integer naming every variant of one source image.
type Fingerprint uint64

// String returns the decimal form used as the variant file stem.
func (f Fingerprint) String() string {
	return strconv.FormatUint(uint64(f), 10)
}

// Algorithm names accepted by ForAlgorithm.
const (
	AlgorithmString31 = "string31"
	AlgorithmBlake3   = "blake3"
)

// Hasher turns a normalized path into a Fingerprint.
type Hasher interface {
	// Sum hashes s as-is. Callers normalize first (see Normalize).
	Sum(s string) Fingerprint
	// Name returns the algorithm name.
	Name() string
}

// String31 is the default 32-bit polynomial hash (h = 31*h + c) over UTF-16
// code units with two's-complement wrap-around, reported as an absolute value.
type String31 struct{}

// Sum implements Hasher. The empty string hashes to 0.
func (String31) Sum(s string) Fingerprint {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(unit)
	}
	if h < 0 {
		return Fingerprint(-int64(h))
	}
	return Fingerprint(h)
}

// Name implements Hasher.
func (String31) Name() string { return AlgorithmString31 }

// Blake3 uses the first 8 bytes of the BLAKE3-256 digest. It trades the short
// file names of String31 for a negligible collision rate.
type Blake3 struct{}

// Sum implements Hasher. The empty string hashes to 0.
func (Blake3) Sum(s string) Fingerprint {
	if s == "" {
		return 0
	}
	digest := blake3.Sum256([]byte(s))
	return Fingerprint(binary.BigEndian.Uint64(digest[:8]))
}

// Name implements Hasher.
func (Blake3) Name() string { return AlgorithmBlake3 }

// ForAlgorithm returns the Hasher registered under name. An empty name selects
// the default String31 algorithm.
func ForAlgorithm(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AlgorithmString31:
		return String31{}, nil
	case AlgorithmBlake3:
		return Blake3{}, nil
	default:
		return nil, fmt.Errorf("fingerprint: unknown algorithm %q", name)
	}
}

// Normalize converts path separators to '/' and prefixes "./" when the path
// does not already start with it. The empty path stays empty so that it keeps
// hashing to the zero Fingerprint.
//
// This is a pure function with no side effects.
func Normalize(path string) string {
	if path == "" {
		return ""
	}
	p := strings.ReplaceAll(path, `\`, "/")
	if !strings.HasPrefix(p, "./") {
		p = "./" + p
	}
	return p
}

// Hash hashes s with the default algorithm without normalizing it.
func Hash(s string) Fingerprint {
	return String31{}.Sum(s)
}

// Of returns the default Fingerprint of a source path.
func Of(path string) Fingerprint {
	return Hash(Normalize(path))
}

// OfWith returns the Fingerprint of a source path under h.
func OfWith(h Hasher, path string) Fingerprint {
	return h.Sum(Normalize(path))
}
