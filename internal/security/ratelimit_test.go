package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !rl.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow(ctx, "1.2.3.4") {
		t.Fatal("fourth request should be limited")
	}
	if !rl.Allow(ctx, "5.6.7.8") {
		t.Fatal("other key should have its own window")
	}

	now = now.Add(time.Minute)
	if !rl.Allow(ctx, "1.2.3.4") {
		t.Fatal("allowance should reset after the window")
	}
}

func TestRateLimiterWindowIsFixed(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	if !rl.Allow(ctx, "k") {
		t.Fatal("first request should be allowed")
	}
	now = start.Add(50 * time.Second)
	if !rl.Allow(ctx, "k") {
		t.Fatal("second request should be allowed")
	}
	now = start.Add(55 * time.Second)
	if rl.Allow(ctx, "k") {
		t.Fatal("third request in the window should be limited")
	}

	// The window is anchored at the first request, so the request at 50s
	// does not keep the key limited past start+1m.
	now = start.Add(time.Minute)
	for i := 0; i < 2; i++ {
		if !rl.Allow(ctx, "k") {
			t.Fatalf("request %d in the new window should be allowed", i+1)
		}
	}
	if rl.Allow(ctx, "k") {
		t.Fatal("new window should hold the same allowance")
	}
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow(context.Background(), "old")

	now = now.Add(3 * time.Minute)
	rl.prune()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if _, ok := rl.visitors["old"]; ok {
		t.Error("stale visitor should have been pruned")
	}
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	logger, hook := test.NewNullLogger()
	rl := NewRedisRateLimiter(client, 1, time.Minute, logger)

	if !rl.Allow(context.Background(), "1.2.3.4") {
		t.Fatal("unreachable redis should not block requests")
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning to be logged, got %+v", entry)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remote     string
		trustProxy bool
		want       string
	}{
		{"trusted forwarded chain uses proxy hop", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.1.1.1:1234", true, "10.0.0.2"},
		{"trusted trailing comma", map[string]string{"X-Forwarded-For": "10.0.0.7, "}, "1.1.1.1:1234", true, "10.0.0.7"},
		{"trusted real ip", map[string]string{"X-Real-IP": "10.0.0.3"}, "1.1.1.1:1234", true, "10.0.0.3"},
		{"untrusted forwarded ignored", map[string]string{"X-Forwarded-For": "10.0.0.1"}, "1.1.1.1:1234", false, "1.1.1.1"},
		{"untrusted real ip ignored", map[string]string{"X-Real-IP": "10.0.0.3"}, "1.1.1.1:1234", false, "1.1.1.1"},
		{"remote addr", nil, "192.168.1.5:5555", false, "192.168.1.5"},
		{"remote addr without port", nil, "192.168.1.6", false, "192.168.1.6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
