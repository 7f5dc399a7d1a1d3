package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerLifecycle(t *testing.T) {
	t.Parallel()

	started := time.Unix(1700000000, 0).UTC()
	tr := NewTracker(started)

	tr.CategoryStarted("posuda")
	tr.PageFetched("posuda")
	tr.PageFetched("posuda")
	tr.RecordsExtracted("posuda", 48)
	tr.CategoryFinished("posuda", "completed")

	snap := tr.Snapshot()
	assert.Equal(t, started, snap.StartedAt)
	require.Len(t, snap.Categories, 1)
	assert.Equal(t, CategorySnapshot{
		Slug:    "posuda",
		Pages:   2,
		Records: 48,
		Status:  "completed",
	}, snap.Categories[0])
}

func TestTrackerIgnoresUnknownSlug(t *testing.T) {
	t.Parallel()

	tr := NewTracker(time.Now())
	tr.PageFetched("never-started")
	tr.RecordsExtracted("never-started", 3)
	tr.CategoryFinished("never-started", "failed")

	assert.Empty(t, tr.Snapshot().Categories)
}

func TestTrackerSnapshotSorted(t *testing.T) {
	t.Parallel()

	tr := NewTracker(time.Now())
	for _, slug := range []string{"zzz", "aaa", "mmm"} {
		tr.CategoryStarted(slug)
	}

	snap := tr.Snapshot()
	require.Len(t, snap.Categories, 3)
	assert.Equal(t, "aaa", snap.Categories[0].Slug)
	assert.Equal(t, "mmm", snap.Categories[1].Slug)
	assert.Equal(t, "zzz", snap.Categories[2].Slug)
}

func TestTrackerSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	tr := NewTracker(time.Now())
	tr.CategoryStarted("posuda")

	snap := tr.Snapshot()
	snap.Categories[0].Pages = 99

	assert.Zero(t, tr.Snapshot().Categories[0].Pages)
}

func TestTrackerNilReceiver(t *testing.T) {
	t.Parallel()

	var tr *Tracker
	tr.CategoryStarted("posuda")
	tr.PageFetched("posuda")
	tr.RecordsExtracted("posuda", 1)
	tr.CategoryFinished("posuda", "completed")
	assert.Empty(t, tr.Snapshot().Categories)
}

func TestTrackerConcurrent(t *testing.T) {
	t.Parallel()

	tr := NewTracker(time.Now())
	tr.CategoryStarted("posuda")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.PageFetched("posuda")
				_ = tr.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, tr.Snapshot().Categories[0].Pages)
}
