package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	l := New(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("k") || !l.Allow("k") {
		t.Fatal("first two attempts should pass")
	}
	if l.Allow("k") {
		t.Fatal("third attempt should be refused")
	}
	if !l.Allow("other") {
		t.Fatal("keys are independent")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("k") {
		t.Fatal("window should have expired")
	}

	l.Reset("k")
	if !l.Allow("k") || !l.Allow("k") {
		t.Fatal("reset should clear the counter")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/login", nil)
	r.RemoteAddr = "10.0.0.5:5555"
	if got := ClientIP(r); got != "10.0.0.5" {
		t.Errorf("RemoteAddr: got %q", got)
	}

	r.Header.Set("X-Real-IP", "192.168.1.1")
	if got := ClientIP(r); got != "192.168.1.1" {
		t.Errorf("X-Real-IP: got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(r); got != "203.0.113.7" {
		t.Errorf("X-Forwarded-For: got %q", got)
	}
}

func TestLoginLimiter(t *testing.T) {
	ll := NewLoginLimiter()
	r := httptest.NewRequest("POST", "/login", nil)

	for i := 0; i < 5; i++ {
		if ok, _ := ll.Check(r, "a@farm.ma"); !ok {
			t.Fatalf("attempt %d refused", i+1)
		}
	}
	if ok, reason := ll.Check(r, "A@farm.ma"); ok || reason == "" {
		t.Fatal("sixth attempt for the same email should be refused")
	}
	ll.ResetEmail("a@farm.ma")
	if ok, _ := ll.Check(r, "a@farm.ma"); !ok {
		t.Fatal("reset email should allow again")
	}
}
