package usecase

import (
	"sync"
	"time"

	"prism-connector/infrastructure/logger"
)

// RenewalScheduler arms one timer per persona for periodic credential
// renewal. It is owned by the application lifecycle: constructed in main,
// stopped on shutdown, and injected wherever needed. Registering a persona
// that already has a timer replaces it.
type RenewalScheduler struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	interval time.Duration
	renew    func(personaID string)
	stopped  bool
}

func NewRenewalScheduler(interval time.Duration, renew func(personaID string)) *RenewalScheduler {
	return &RenewalScheduler{
		timers:   make(map[string]*time.Timer),
		interval: interval,
		renew:    renew,
	}
}

func (r *RenewalScheduler) Register(personaID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	if t, ok := r.timers[personaID]; ok {
		t.Stop()
	}
	r.timers[personaID] = time.AfterFunc(r.interval, func() { r.fire(personaID) })
	logger.GetLogger().
		WithField("persona_id", personaID).
		WithField("interval", r.interval.String()).
		Info("Renewal registered")
}

func (r *RenewalScheduler) Unregister(personaID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[personaID]; ok {
		t.Stop()
		delete(r.timers, personaID)
	}
}

func (r *RenewalScheduler) Registered(personaID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[personaID]
	return ok
}

func (r *RenewalScheduler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}

func (r *RenewalScheduler) fire(personaID string) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.GetLogger().WithField("panic", rec).Error("Renewal panic recovered")
		}
		// Re-arm regardless of outcome so one bad cycle never ends renewal.
		r.mu.Lock()
		if !r.stopped {
			if _, ok := r.timers[personaID]; ok {
				r.timers[personaID] = time.AfterFunc(r.interval, func() { r.fire(personaID) })
			}
		}
		r.mu.Unlock()
	}()
	r.renew(personaID)
}
