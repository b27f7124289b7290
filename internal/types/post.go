package types

import "time"

// Post is a single feed entry discovered within the run's time window.
// Posts are immutable once created by the discoverer.
type Post struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	PublishedAt    time.Time `json:"published_at"`
	ContentPreview string    `json:"content_preview,omitempty"`
	// ReactionCountDeclared is the count shown on the post's social bar.
	// Zero means the post showed no reactions; -1 means no count was found,
	// which is not the same thing.
	ReactionCountDeclared int `json:"reaction_count_declared"`
}

// TimeWindow bounds post discovery to a publication interval.
type TimeWindow struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

// LastDays returns a window covering the last n days ending at now.
func LastDays(n int, now time.Time) TimeWindow {
	return TimeWindow{
		Since: now.AddDate(0, 0, -n),
		Until: now,
	}
}

// Contains reports whether t falls inside the window (inclusive bounds).
func (w TimeWindow) Contains(t time.Time) bool {
	if t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && t.After(w.Until) {
		return false
	}
	return true
}
