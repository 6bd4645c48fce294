package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCounters_Snapshot(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewCounters(start)
	c.now = func() time.Time { return start.Add(1500 * time.Millisecond) }

	c.ImageProcessed()
	c.VariantGenerated(100)
	c.VariantGenerated(250)
	c.VariantSkipped()
	c.HTMLRewritten(true)
	c.HTMLRewritten(false)
	c.HTMLRestored(true)
	c.Failure()

	got := c.Snapshot()
	want := Snapshot{
		ImagesProcessed:   1,
		VariantsGenerated: 2,
		VariantsSkipped:   1,
		BytesWritten:      350,
		HTMLRewritten:     1,
		HTMLUnchanged:     1,
		HTMLRestored:      1,
		Failures:          1,
		Elapsed:           1500 * time.Millisecond,
	}
	if got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestCounters_ConcurrentAccess(t *testing.T) {
	c := NewCounters(time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.VariantGenerated(2)
				c.VariantSkipped()
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.VariantsGenerated != 5000 {
		t.Errorf("VariantsGenerated = %d, want 5000", snap.VariantsGenerated)
	}
	if snap.BytesWritten != 10000 {
		t.Errorf("BytesWritten = %d, want 10000", snap.BytesWritten)
	}
	if snap.VariantsSkipped != 5000 {
		t.Errorf("VariantsSkipped = %d, want 5000", snap.VariantsSkipped)
	}
}

func TestDiscard(t *testing.T) {
	var r Recorder = Discard
	r.ImageProcessed()
	r.VariantGenerated(10)
	r.VariantSkipped()
	r.HTMLRewritten(true)
	r.HTMLRestored(false)
	r.Failure()

	var _ Recorder = (*Counters)(nil)
}
