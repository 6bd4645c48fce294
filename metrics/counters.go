package metrics

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	ImagesProcessed   int64
	VariantsGenerated int64
	VariantsSkipped   int64
	BytesWritten      int64
	HTMLRewritten     int64
	HTMLUnchanged     int64
	HTMLRestored      int64
	Failures          int64
	Elapsed           time.Duration
}

// Counters is a thread-safe Recorder shared by every goroutine of a run.
//
// Usage:
//
//	c := NewCounters(time.Now())
//	c.VariantGenerated(4096)
//	snap := c.Snapshot()
type Counters struct {
	mu sync.Mutex

	imagesProcessed   int64
	variantsGenerated int64
	variantsSkipped   int64
	bytesWritten      int64
	htmlRewritten     int64
	htmlUnchanged     int64
	htmlRestored      int64
	failures          int64

	startTime time.Time
	now       func() time.Time
}

// NewCounters creates Counters whose elapsed time is measured from startTime.
func NewCounters(startTime time.Time) *Counters {
	return &Counters{startTime: startTime, now: time.Now}
}

// ImageProcessed counts a source image whose variants are all present.
func (c *Counters) ImageProcessed() {
	c.mu.Lock()
	c.imagesProcessed++
	c.mu.Unlock()
}

// VariantGenerated counts a newly written variant of the given size in bytes.
func (c *Counters) VariantGenerated(bytes int64) {
	c.mu.Lock()
	c.variantsGenerated++
	c.bytesWritten += bytes
	c.mu.Unlock()
}

// VariantSkipped counts a variant that already existed.
func (c *Counters) VariantSkipped() {
	c.mu.Lock()
	c.variantsSkipped++
	c.mu.Unlock()
}

// HTMLRewritten counts a document visited by the rewriter.
func (c *Counters) HTMLRewritten(changed bool) {
	c.mu.Lock()
	if changed {
		c.htmlRewritten++
	} else {
		c.htmlUnchanged++
	}
	c.mu.Unlock()
}

// HTMLRestored counts a document visited by the restorer.
func (c *Counters) HTMLRestored(changed bool) {
	c.mu.Lock()
	if changed {
		c.htmlRestored++
	} else {
		c.htmlUnchanged++
	}
	c.mu.Unlock()
}

// Failure counts a failed variant or document.
func (c *Counters) Failure() {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()
}

// Snapshot returns a copy of the current values.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ImagesProcessed:   c.imagesProcessed,
		VariantsGenerated: c.variantsGenerated,
		VariantsSkipped:   c.variantsSkipped,
		BytesWritten:      c.bytesWritten,
		HTMLRewritten:     c.htmlRewritten,
		HTMLUnchanged:     c.htmlUnchanged,
		HTMLRestored:      c.htmlRestored,
		Failures:          c.failures,
		Elapsed:           c.now().Sub(c.startTime),
	}
}
