package service

import (
	"sync"
	"time"
)

// SendRateLimiter acota cuantos mensajes puede enviar un usuario por ventana.
type SendRateLimiter interface {
	Allow(key string) bool
}

type sendRateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewSendRateLimiter crea un rate limiter en memoria de ventana deslizante.
func NewSendRateLimiter(window time.Duration, max int) SendRateLimiter {
	return newSendRateLimiter(window, max, func() time.Time { return time.Now().UTC() })
}

func newSendRateLimiter(window time.Duration, max int, now func() time.Time) *sendRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &sendRateLimiter{
		window:    window,
		max:       max,
		hits:      make(map[string][]time.Time),
		lastSweep: now(),
		now:       now,
	}
}

func (l *sendRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	kept := pruneHits(l.hits[key], cutoff)
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

// sweep borra las claves sin envios dentro de la ventana.
func (l *sendRateLimiter) sweep(cutoff time.Time) {
	for key, entries := range l.hits {
		kept := pruneHits(entries, cutoff)
		if len(kept) == 0 {
			delete(l.hits, key)
			continue
		}
		l.hits[key] = kept
	}
}

func pruneHits(entries []time.Time, cutoff time.Time) []time.Time {
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
