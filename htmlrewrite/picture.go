// Package htmlrewrite replaces image references in HTML documents with
// <picture> blocks listing the generated variants, and restores them.
//
// Documents are handled as text. References are located with a regular
// expression and substituted by byte offset; no DOM is built.
package htmlrewrite

import (
	"path/filepath"
	"strconv"
	"strings"

	"imgresponsiver/codec"
)

// BuildPicture returns a <picture> block for the variants of key: one
// <source> per format in the given order, each listing every size as
// "{relativeDir}/{key}-{size}{format} {size}w" joined by ", ", followed by
// fallbackTag verbatim. A size listed more than once appears once, since a
// srcset may not repeat a width descriptor. A format with no sizes gets no
// <source>, so empty sizes or formats yield <picture>{fallbackTag}</picture>.
//
// This is a pure function with no side effects.
func BuildPicture(key, fallbackTag string, formats []codec.Format, sizes []int, relativeDir string) string {
	sizes = uniqueSizes(sizes)

	var b strings.Builder
	b.WriteString("<picture>")
	if len(sizes) > 0 {
		for _, format := range formats {
			b.WriteString(`<source type="`)
			b.WriteString(format.MIMEType())
			b.WriteString(`" srcset="`)
			for i, size := range sizes {
				if i > 0 {
					b.WriteString(", ")
				}
				s := strconv.Itoa(size)
				b.WriteString(relativeDir)
				b.WriteString("/")
				b.WriteString(key)
				b.WriteString("-")
				b.WriteString(s)
				b.WriteString(format.String())
				b.WriteString(" ")
				b.WriteString(s)
				b.WriteString("w")
			}
			b.WriteString(`">`)
		}
	}
	b.WriteString(fallbackTag)
	b.WriteString("</picture>")
	return b.String()
}

// uniqueSizes drops repeated sizes, keeping the first occurrence.
func uniqueSizes(sizes []int) []int {
	seen := make(map[int]bool, len(sizes))
	out := make([]int, 0, len(sizes))
	for _, size := range sizes {
		if seen[size] {
			continue
		}
		seen[size] = true
		out = append(out, size)
	}
	return out
}

// RelativeDir returns the path from htmlDir to variantDir with forward
// slashes and a "./" prefix, e.g. "./../images". The same directory yields ".".
func RelativeDir(htmlDir, variantDir string) string {
	rel, err := relPath(htmlDir, variantDir)
	if err != nil {
		return filepath.ToSlash(variantDir)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "./") {
		return rel
	}
	return "./" + rel
}

func relPath(from, to string) (string, error) {
	if rel, err := filepath.Rel(from, to); err == nil {
		return rel, nil
	}
	absFrom, err := filepath.Abs(from)
	if err != nil {
		return "", err
	}
	absTo, err := filepath.Abs(to)
	if err != nil {
		return "", err
	}
	return filepath.Rel(absFrom, absTo)
}
