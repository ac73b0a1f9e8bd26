package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(1, 3)
	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("request %d within burst was rejected", i)
		}
	}
	if l.Allow() {
		t.Fatal("request beyond burst was allowed")
	}
}

func TestTokensRefill(t *testing.T) {
	l := New(100, 1)
	if !l.Allow() {
		t.Fatal("first request rejected")
	}
	if l.Allow() {
		t.Fatal("bucket should be empty")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.Allow() {
		t.Fatal("bucket did not refill")
	}
}

func TestBurstFloor(t *testing.T) {
	l := New(1, 0)
	if !l.Allow() {
		t.Fatal("a limiter must always admit at least one request")
	}
}
