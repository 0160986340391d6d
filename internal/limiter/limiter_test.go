package limiter

import (
	"testing"
	"time"
)

func TestAllowUnderCap(t *testing.T) {
	l := New()
	now := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		if _, ok := l.Allow("p|A2|block_break", 5, time.Second, now.Add(time.Duration(i)*100*time.Millisecond)); !ok {
			t.Fatalf("action %d should be allowed", i+1)
		}
	}
	if _, ok := l.Allow("p|A2|block_break", 5, time.Second, now.Add(500*time.Millisecond)); ok {
		t.Fatalf("6th action inside the window should be rejected")
	}
}

func TestWindowLazyReset(t *testing.T) {
	l := New()
	now := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		l.Allow("k", 5, time.Second, now)
	}
	if _, ok := l.Allow("k", 5, time.Second, now); ok {
		t.Fatalf("should be capped inside the window")
	}

	// Same 6th action after the window elapses is accepted with a fresh window.
	later := now.Add(1100 * time.Millisecond)
	w, ok := l.Allow("k", 5, time.Second, later)
	if !ok {
		t.Fatalf("action after window elapsed should be accepted")
	}
	if w.Count != 1 || !w.WindowStart.Equal(later) {
		t.Fatalf("expected fresh window, got count=%d start=%v", w.Count, w.WindowStart)
	}
}

func TestZeroCapIsUnlimited(t *testing.T) {
	l := New()
	now := time.Unix(1000, 0)

	for i := 0; i < 100; i++ {
		if _, ok := l.Allow("k", 0, time.Second, now); !ok {
			t.Fatalf("cap 0 should never reject (iteration %d)", i)
		}
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()
	now := time.Unix(1000, 0)

	l.Allow("a", 1, time.Second, now)
	if _, ok := l.Allow("a", 1, time.Second, now); ok {
		t.Fatalf("key a should be capped")
	}
	if _, ok := l.Allow("b", 1, time.Second, now); !ok {
		t.Fatalf("key b should be untouched by key a")
	}
}

func TestReset(t *testing.T) {
	l := New()
	now := time.Unix(1000, 0)

	l.Allow("a", 1, time.Second, now)
	l.Reset()
	if _, ok := l.Allow("a", 1, time.Second, now); !ok {
		t.Fatalf("reset should clear windows")
	}
}
