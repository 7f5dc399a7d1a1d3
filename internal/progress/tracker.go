// Package progress tracks live per-category crawl counters for the
// observability endpoint and the end-of-run summary.
package progress

import (
	"sort"
	"sync"
	"time"
)

// CategorySnapshot is a point-in-time view of one category walk.
type CategorySnapshot struct {
	Slug    string `json:"slug"`
	Pages   int    `json:"pages"`
	Records int    `json:"records"`
	Status  string `json:"status"`
}

// Snapshot is a point-in-time view of the whole run.
type Snapshot struct {
	StartedAt  time.Time          `json:"started_at"`
	Categories []CategorySnapshot `json:"categories"`
}

// Tracker accumulates per-category counters. All methods are safe for
// concurrent use and safe on a nil receiver, so callers can leave tracking
// unwired.
type Tracker struct {
	mu         sync.Mutex
	startedAt  time.Time
	categories map[string]*CategorySnapshot
}

// NewTracker builds an empty tracker stamped with the run start time.
func NewTracker(now time.Time) *Tracker {
	return &Tracker{
		startedAt:  now,
		categories: make(map[string]*CategorySnapshot),
	}
}

// CategoryStarted registers a category walk as running.
func (t *Tracker) CategoryStarted(slug string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.categories[slug] = &CategorySnapshot{Slug: slug, Status: "running"}
}

// PageFetched increments the page counter for a category.
func (t *Tracker) PageFetched(slug string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.categories[slug]; ok {
		c.Pages++
	}
}

// RecordsExtracted updates the accepted-record total for a category.
func (t *Tracker) RecordsExtracted(slug string, total int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.categories[slug]; ok {
		c.Records = total
	}
}

// CategoryFinished records the terminal status of a category walk.
func (t *Tracker) CategoryFinished(slug string, status string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.categories[slug]; ok {
		c.Status = status
	}
}

// Snapshot returns a copy of the current state, categories sorted by slug.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := Snapshot{
		StartedAt:  t.startedAt,
		Categories: make([]CategorySnapshot, 0, len(t.categories)),
	}
	for _, c := range t.categories {
		snap.Categories = append(snap.Categories, *c)
	}
	sort.Slice(snap.Categories, func(i, j int) bool {
		return snap.Categories[i].Slug < snap.Categories[j].Slug
	})
	return snap
}
