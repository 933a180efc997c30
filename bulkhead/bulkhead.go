// Copyright 2025 Cygnus Wealth
// This file is part of the evm-access-core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

// Package bulkhead implements the bounded-concurrency, bounded-FIFO-queue
// isolation primitive from spec §4.4.
package bulkhead

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cygnus-wealth/evm-access-core/errs"
	"github.com/cygnus-wealth/evm-access-core/internal/clock"
	"github.com/cygnus-wealth/evm-access-core/log"
)

// Op is the operation submitted to a Bulkhead.
type Op func() (interface{}, error)

// Config holds the §6 bulkhead.* options.
type Config struct {
	MaxConcurrent int
	MaxQueue      int
	QueueTimeout  time.Duration
}

// DefaultConfig returns the §6 defaults.
func DefaultConfig() Config {
	return Config{MaxConcurrent: 10, MaxQueue: 50, QueueTimeout: 5 * time.Second}
}

type result struct {
	val interface{}
	err error
}

type task struct {
	op       Op
	resultCh chan result
	timer    clock.Timer
	started  bool
}

// Bulkhead bounds concurrent execution to MaxConcurrent with a FIFO
// overflow queue bounded by MaxQueue.
type Bulkhead struct {
	name  string
	cfg   Config
	clock clock.Clock
	log   log.Logger

	mu     sync.Mutex
	active int
	queue  list.List // of *task

	totalExecuted int64
	totalRejected int64
	totalTimedOut int64
}

// New creates a Bulkhead identified by name.
func New(name string, cfg Config) *Bulkhead {
	return NewWithClock(name, cfg, clock.Real{})
}

// NewWithClock is New with an injectable clock for tests.
func NewWithClock(name string, cfg Config, c clock.Clock) *Bulkhead {
	if cfg.MaxConcurrent <= 0 && cfg.MaxQueue <= 0 {
		cfg = DefaultConfig()
	}
	return &Bulkhead{name: name, cfg: cfg, clock: c, log: log.New("component", "bulkhead", "name", name)}
}

// Execute runs op immediately if a slot is free, queues it (FIFO) if not
// and the queue has room, or rejects with BulkheadFull.
func (b *Bulkhead) Execute(op Op) (interface{}, error) {
	b.mu.Lock()
	if b.active < b.cfg.MaxConcurrent {
		b.active++
		b.mu.Unlock()
		val, err := op()
		atomic.AddInt64(&b.totalExecuted, 1)
		go b.drainAndRelease()
		return val, err
	}

	if b.queue.Len() >= b.cfg.MaxQueue {
		b.mu.Unlock()
		atomic.AddInt64(&b.totalRejected, 1)
		return nil, errs.New(errs.BulkheadFull, "bulkhead "+b.name+" queue is full")
	}

	t := &task{op: op, resultCh: make(chan result, 1)}
	t.timer = b.clock.NewTimer(b.cfg.QueueTimeout)
	elem := b.queue.PushBack(t)
	b.mu.Unlock()

	select {
	case r := <-t.resultCh:
		t.timer.Stop()
		return r.val, r.err
	case <-t.timer.C():
		b.mu.Lock()
		if !t.started {
			b.queue.Remove(elem)
			b.mu.Unlock()
			atomic.AddInt64(&b.totalTimedOut, 1)
			b.log.Debug("bulkhead waiter timed out", "name", b.name)
			return nil, errs.New(errs.BulkheadQueueTimeout, "bulkhead "+b.name+" queue wait exceeded "+b.cfg.QueueTimeout.String())
		}
		b.mu.Unlock()
		// Dequeued for execution right as the timer fired; the result is
		// still coming.
		r := <-t.resultCh
		return r.val, r.err
	}
}

// drainAndRelease is called by a goroutine that has just finished an
// active op and still holds its slot. It hands the slot to the oldest
// queued waiter (FIFO), looping until the queue empties, then releases
// the slot.
func (b *Bulkhead) drainAndRelease() {
	for {
		b.mu.Lock()
		front := b.queue.Front()
		if front == nil {
			b.active--
			b.mu.Unlock()
			return
		}
		t := front.Value.(*task)
		b.queue.Remove(front)
		t.timer.Stop()
		t.started = true
		b.mu.Unlock()

		val, err := t.op()
		atomic.AddInt64(&b.totalExecuted, 1)
		t.resultCh <- result{val, err}
	}
}

// ClearQueue rejects every currently queued waiter with a queue-cleared
// error and empties the queue.
func (b *Bulkhead) ClearQueue() {
	b.mu.Lock()
	var waiters []*task
	for e := b.queue.Front(); e != nil; e = e.Next() {
		waiters = append(waiters, e.Value.(*task))
	}
	b.queue.Init()
	b.mu.Unlock()

	for _, t := range waiters {
		t.timer.Stop()
		t.resultCh <- result{nil, errs.New(errs.BulkheadQueueTimeout, "bulkhead "+b.name+" queue cleared")}
	}
}

// Stats is a point-in-time snapshot.
type Stats struct {
	Name          string
	ActiveCount   int
	QueuedCount   int
	LoadPercent   int
	TotalExecuted int64
	TotalRejected int64
	TotalTimedOut int64
}

// Stats reports current load and lifetime counters.
func (b *Bulkhead) Stats() Stats {
	b.mu.Lock()
	active := b.active
	queued := b.queue.Len()
	b.mu.Unlock()

	total := b.cfg.MaxConcurrent + b.cfg.MaxQueue
	load := 0
	if total > 0 {
		load = 100 * (active + queued) / total
	}
	return Stats{
		Name:          b.name,
		ActiveCount:   active,
		QueuedCount:   queued,
		LoadPercent:   load,
		TotalExecuted: atomic.LoadInt64(&b.totalExecuted),
		TotalRejected: atomic.LoadInt64(&b.totalRejected),
		TotalTimedOut: atomic.LoadInt64(&b.totalTimedOut),
	}
}
