// Package metrics counts the work done by a run: images processed,
// variants generated or skipped, bytes written and HTML documents touched.
package metrics

// Recorder receives events from the variant and HTML phases. Counters is the
// standard implementation; a nil Recorder is never passed around, callers
// use Discard instead.
type Recorder interface {
	ImageProcessed()
	VariantGenerated(bytes int64)
	VariantSkipped()
	HTMLRewritten(changed bool)
	HTMLRestored(changed bool)
	Failure()
}

// Discard is a Recorder that drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) ImageProcessed()        {}
func (discard) VariantGenerated(int64) {}
func (discard) VariantSkipped()        {}
func (discard) HTMLRewritten(bool)     {}
func (discard) HTMLRestored(bool)      {}
func (discard) Failure()               {}
