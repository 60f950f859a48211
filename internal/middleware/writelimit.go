// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// clientWindow holds the write timestamps of one client inside the window.
type clientWindow struct {
	mu     sync.Mutex
	writes []time.Time
}

// WriteLimiter caps how many mutating requests a single client may send per
// window. Every tree mutation takes the table lock, so one noisy client can
// otherwise starve everybody else into busy errors. Reads pass untouched.
type WriteLimiter struct {
	mu      sync.RWMutex
	clients map[string]*clientWindow
	limit   int
	window  time.Duration
	now     func() time.Time
	stopCh  chan struct{}
}

// NewWriteLimiter creates a limiter allowing limit writes per window and
// starts a goroutine that forgets idle clients. Call Stop when done.
func NewWriteLimiter(limit int, window time.Duration) *WriteLimiter {
	wl := &WriteLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				wl.cleanup()
			case <-wl.stopCh:
				return
			}
		}
	}()

	return wl
}

// Stop terminates the cleanup goroutine.
func (wl *WriteLimiter) Stop() {
	close(wl.stopCh)
}

func (wl *WriteLimiter) client(key string) *clientWindow {
	wl.mu.RLock()
	cw, ok := wl.clients[key]
	wl.mu.RUnlock()
	if ok {
		return cw
	}

	wl.mu.Lock()
	defer wl.mu.Unlock()
	if cw, ok = wl.clients[key]; !ok {
		cw = &clientWindow{}
		wl.clients[key] = cw
	}
	return cw
}

// allow reports whether key may write now. When it may not, it also returns
// how long until the oldest write leaves the window.
func (wl *WriteLimiter) allow(key string) (bool, time.Duration) {
	cw := wl.client(key)
	now := wl.now()
	cutoff := now.Add(-wl.window)

	cw.mu.Lock()
	defer cw.mu.Unlock()

	kept := cw.writes[:0]
	for _, ts := range cw.writes {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	cw.writes = kept

	if len(cw.writes) >= wl.limit {
		return false, cw.writes[0].Sub(cutoff)
	}
	cw.writes = append(cw.writes, now)
	return true, 0
}

// cleanup forgets clients with no write inside the window.
func (wl *WriteLimiter) cleanup() {
	cutoff := wl.now().Add(-wl.window)

	wl.mu.Lock()
	defer wl.mu.Unlock()

	for key, cw := range wl.clients {
		cw.mu.Lock()
		idle := len(cw.writes) == 0 || !cw.writes[len(cw.writes)-1].After(cutoff)
		cw.mu.Unlock()
		if idle {
			delete(wl.clients, key)
		}
	}
}

// Middleware rejects mutating requests over the limit with 429 and a
// Retry-After header in whole seconds.
func (wl *WriteLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isWrite(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		ok, wait := wl.allow(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many writes, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// clientIP extracts the client's IP address, checking X-Forwarded-For
// and X-Real-IP headers for proxied requests.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
