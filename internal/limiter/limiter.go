// Package limiter implements the sliding-window-with-lazy-reset counter used
// for anti-farm caps. The same primitive backs per-action rate limiting and
// the higher-level interaction cooldowns collaborating services apply.
package limiter

import (
	"sync"
	"time"
)

// Window is one counter: count of accepted actions since windowStart.
type Window struct {
	Count       int
	WindowStart time.Time
}

// Expired reports whether the window has lapsed as of now.
func (w Window) Expired(windowLen time.Duration, now time.Time) bool {
	return now.Sub(w.WindowStart) > windowLen
}

// Limiter keys windows by an opaque string (player|region|kind). Safe for
// concurrent use, though the engine serializes callers anyway.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]Window
}

func New() *Limiter {
	return &Limiter{windows: make(map[string]Window)}
}

// Allow checks the window for key and, when under the cap, records the
// action. An expired window counts as empty and is restarted on acceptance.
// limit <= 0 means unlimited (still counted, for audit).
func (l *Limiter) Allow(key string, limit int, windowLen time.Duration, now time.Time) (Window, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || w.Expired(windowLen, now) {
		w = Window{Count: 0, WindowStart: now}
	}
	if limit > 0 && w.Count >= limit {
		return w, false
	}
	w.Count++
	l.windows[key] = w
	return w, true
}

// Peek returns the current window for key without mutating it.
func (l *Limiter) Peek(key string) (Window, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	return w, ok
}

// Reset drops every window; called when a new round initializes.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]Window)
}
