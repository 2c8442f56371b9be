package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	l := NewLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("acct-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("acct-1") {
		t.Fatalf("fourth request should be limited")
	}
	// Other accounts have their own bucket
	if !l.Allow("acct-2") {
		t.Fatalf("independent account should be allowed")
	}
}

func TestAllowUnauthenticatedNotLimited(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		if !l.Allow("") {
			t.Fatalf("empty account id must not be limited")
		}
	}
}

func TestAllowStrictSeparateBucket(t *testing.T) {
	l := NewLimiter(100, time.Minute)
	defer l.Stop()

	if !l.AllowStrict("acct-1", 1, time.Minute) {
		t.Fatalf("first strict request should pass")
	}
	if l.AllowStrict("acct-1", 1, time.Minute) {
		t.Fatalf("second strict request should be limited")
	}
	// The regular bucket is unaffected
	if !l.Allow("acct-1") {
		t.Fatalf("regular limit must be independent of strict limit")
	}
}

func TestWindowSlides(t *testing.T) {
	l := NewLimiter(1, 50*time.Millisecond)
	defer l.Stop()

	if !l.Allow("acct-1") {
		t.Fatalf("first request should pass")
	}
	if l.Allow("acct-1") {
		t.Fatalf("second request inside window should be limited")
	}
	time.Sleep(60 * time.Millisecond)
	if !l.Allow("acct-1") {
		t.Fatalf("request after window should pass")
	}
}
