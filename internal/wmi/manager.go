// Package wmi serializes access to the blocking native inventory
// collector. The collector runs on one dedicated OS thread that owns the
// COM initialization; handlers reach it through a wake signal and a
// broadcast of the produced value.
package wmi

import (
	"log"
	"runtime"
	"sync"
)

// Manager is the shared handle to the collector thread. It is safe for
// concurrent use; all callers of Fetch observe the next produced value.
type Manager struct {
	notify chan struct{}

	mu      sync.Mutex
	waiters []chan fetchResult
}

type fetchResult struct {
	value any
	err   error
}

// Start spawns the collector thread and returns its handle.
func Start() *Manager {
	m := &Manager{notify: make(chan struct{}, 1)}
	go m.run()
	return m
}

// run owns the collector for the life of the process. COM requires the
// initializing thread to stay fixed, hence the lock.
func (m *Manager) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	c, err := newCollector()
	if err != nil {
		log.Printf("[wmi] collector init: %v", err)
	} else {
		defer c.close()
	}

	for range m.notify {
		var res fetchResult
		if c == nil {
			res.err = err
		} else {
			res.value, res.err = c.collect()
		}

		m.mu.Lock()
		waiters := m.waiters
		m.waiters = nil
		m.mu.Unlock()

		for _, w := range waiters {
			w <- res
		}
	}
}

// Fetch asks the collector for a fresh inventory and waits for it.
// Concurrent calls coalesce: the capacity-1 notify channel remembers at
// most one pending wake, and every registered waiter receives the value
// of the collection that serves it.
func (m *Manager) Fetch() (any, error) {
	ch := make(chan fetchResult, 1)
	m.mu.Lock()
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}

	res := <-ch
	return res.value, res.err
}
