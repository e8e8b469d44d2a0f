// Package poller runs one shared refresh loop per resource key. Views that
// need a fresh value take a lease with Watch; the loop keeps polling while
// any lease is alive and stops on its own once the last one lapses.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	applog "apotek/internal/log"
)

var ErrUnknownKey = errors.New("poller: no fetcher registered for key")

type FetchFunc func(ctx context.Context) (any, error)

type loop struct {
	until   time.Time
	ready   chan struct{}
	value   any
	err     error
	fetched time.Time
}

type Manager struct {
	interval time.Duration
	lease    time.Duration

	mu       sync.Mutex
	fetchers map[string]FetchFunc
	loops    map[string]*loop

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New polls every interval; a Watch keeps its loop alive for lease.
func New(interval, lease time.Duration) *Manager {
	if lease < interval {
		lease = 3 * interval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		interval: interval,
		lease:    lease,
		fetchers: map[string]FetchFunc{},
		loops:    map[string]*loop{},
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *Manager) Register(key string, fn FetchFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchers[key] = fn
}

// Watch extends the lease on key and returns the latest value. The first
// watcher of an idle key fetches synchronously and starts the loop; later
// watchers share it.
func (m *Manager) Watch(ctx context.Context, key string) (any, error) {
	m.mu.Lock()
	fn, ok := m.fetchers[key]
	if !ok {
		m.mu.Unlock()
		return nil, ErrUnknownKey
	}
	if err := m.ctx.Err(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	l, running := m.loops[key]
	if !running {
		l = &loop{ready: make(chan struct{})}
		m.loops[key] = l
	}
	l.until = time.Now().Add(m.lease)
	m.mu.Unlock()

	if !running {
		m.fetch(key, l, fn)
		close(l.ready)
		m.wg.Add(1)
		go m.run(key, l, fn)
	}

	select {
	case <-l.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return l.value, l.err
}

// Latest returns the last fetched value without taking a lease.
func (m *Manager) Latest(key string) (any, time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loops[key]
	if !ok || l.fetched.IsZero() {
		return nil, time.Time{}, false
	}
	return l.value, l.fetched, true
}

func (m *Manager) Running(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loops[key]
	return ok
}

// Stop ends every loop and waits for them.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) run(key string, l *loop, fn FetchFunc) {
	defer m.wg.Done()
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-m.ctx.Done():
			m.drop(key, l)
			return
		case now := <-t.C:
			m.mu.Lock()
			expired := now.After(l.until)
			if expired {
				delete(m.loops, key)
			}
			m.mu.Unlock()
			if expired {
				applog.Bg("poller_idle", nil, map[string]any{"key": key})
				return
			}
			m.fetch(key, l, fn)
		}
	}
}

// fetch keeps the previous value when a refresh fails.
func (m *Manager) fetch(key string, l *loop, fn FetchFunc) {
	ctx, cancel := context.WithTimeout(m.ctx, m.interval)
	defer cancel()
	v, err := fn(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		applog.Bg("poller_fetch", err, map[string]any{"key": key})
		if l.fetched.IsZero() {
			l.err = err
		}
		return
	}
	l.value, l.err, l.fetched = v, nil, time.Now()
}

func (m *Manager) drop(key string, l *loop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loops[key] == l {
		delete(m.loops, key)
	}
}
