package variants

import (
	"fmt"

	"imgresponsiver/codec"
)

// CapSizes limits requested sizes to an image whose larger dimension is
// maxDim. Sizes no greater than maxDim are kept in their original order, and
// maxDim itself is appended once when it is smaller than the largest request,
// so the image's full resolution is always offered. Upscaled variants are
// never requested.
//
//	CapSizes([]int{300, 500, 1000}, 800)  // [300 500 800]
//	CapSizes([]int{800, 1000, 1200}, 900) // [800 900]
//	CapSizes([]int{300, 500, 700}, 1200)  // [300 500 700]
//
// This is a pure function with no side effects.
func CapSizes(requested []int, maxDim int) []int {
	if len(requested) == 0 {
		return []int{}
	}

	largest := requested[0]
	capped := make([]int, 0, len(requested)+1)
	for _, size := range requested {
		largest = max(largest, size)
		if size <= maxDim {
			capped = append(capped, size)
		}
	}
	if maxDim < largest {
		capped = append(capped, maxDim)
	}
	return capped
}

// CapSizesFor reads the dimensions of the image at path and caps requested
// against the larger of the two.
func CapSizesFor(c codec.Codec, path string, requested []int) ([]int, error) {
	width, height, err := c.Dimensions(path)
	if err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	return CapSizes(requested, max(width, height)), nil
}
