package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter: mismo fixed window que RedisLimiter pero in-process.
// Para despliegues sin Redis (cache.kind=memory). No sirve para múltiples
// réplicas detrás de un balanceador: cada proceso cuenta por su cuenta.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	hits  int64
}

// NewMemoryLimiter crea un limiter in-process.
func NewMemoryLimiter(max int, windowDur time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		Max:     int64(max),
		Window:  windowDur,
		windows: make(map[string]*window),
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || w.start.Before(winStart) {
		w = &window{start: winStart}
		l.windows[key] = w
		// Limpieza oportunista de ventanas viejas de otras keys.
		if len(l.windows) > 1024 {
			for k, old := range l.windows {
				if old.start.Before(winStart) {
					delete(l.windows, k)
				}
			}
		}
	}
	w.hits++

	allowed := w.hits <= l.Max
	remaining := l.Max - w.hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: w.hits,
		WindowTTL:   l.Window - now.Sub(winStart),
	}
	if !allowed {
		res.RetryAfter = res.WindowTTL
	}
	return res, nil
}
