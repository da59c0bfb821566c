package storage

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/logging"
	"github.com/ValentinKolb/sVS/lib/storage/util"
	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Defaults and Metrics
// --------------------------------------------------------------------------

const (
	// DefaultQuiescence is the debounce window: a flush fires once no new
	// document arrived for this long.
	DefaultQuiescence = 500 * time.Millisecond

	// DefaultMaxDelay bounds how long continuous mutation can defer a
	// flush. Measured from the first deferred schedule.
	DefaultMaxDelay = 5 * time.Second
)

var (
	metricFlushTotal      = metrics.NewCounter("svs_flush_total")
	metricFlushSuppressed = metrics.NewCounter("svs_flush_suppressed_total")
	metricFlushErrors     = metrics.NewCounter("svs_flush_errors_total")
)

// WriteFunc performs the actual durable write of one document. Engines
// provide this to the Flusher; implementations must be atomic (a crash mid
// write must never leave a half written document behind) and must wrap I/O
// failures in *StorageUnavailableError.
type WriteFunc func(name string, doc PersistedDocument) error

// --------------------------------------------------------------------------
// Flusher
// --------------------------------------------------------------------------

// pendingFlush is the latest not-yet-written document of one store
type pendingFlush struct {
	doc     PersistedDocument
	firstAt time.Time
}

// Flusher implements the debounced, coalesced write discipline shared by all
// backend engines. Every engine owns one Flusher and hands it a WriteFunc;
// the Flusher runs a single daemon goroutine that drains a deadline heap and
// serializes all writes of the engine.
//
// Suppression: a document structurally equal to the last flushed one for the
// same store is dropped, and any pending flush for that store is cancelled
// (the store mutated back to its durable state before the window expired).
//
// Thread-safety: all methods are safe for concurrent use.
type Flusher struct {
	mu          sync.Mutex
	cond        *sync.Cond
	deadlines   *util.DeadlineHeap
	pending     map[string]*pendingFlush
	inflight    map[string]bool
	lastFlushed map[string]PersistedDocument

	write    WriteFunc
	quiet    time.Duration
	maxDelay time.Duration

	wake   chan struct{}
	done   chan struct{}
	closed bool
	wg     sync.WaitGroup

	logger logging.ILogger
}

// NewFlusher creates a Flusher around the given WriteFunc and starts its
// daemon. Non-positive durations fall back to the defaults; a max delay
// shorter than the quiescence window is raised to it.
func NewFlusher(write WriteFunc, quiescence, maxDelay time.Duration) *Flusher {
	if quiescence <= 0 {
		quiescence = DefaultQuiescence
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	if maxDelay < quiescence {
		maxDelay = quiescence
	}

	f := &Flusher{
		deadlines:   util.NewDeadlineHeap(),
		pending:     make(map[string]*pendingFlush),
		inflight:    make(map[string]bool),
		lastFlushed: make(map[string]PersistedDocument),
		write:       write,
		quiet:       quiescence,
		maxDelay:    maxDelay,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		logger:      logging.GetLogger("storage"),
	}
	f.cond = sync.NewCond(&f.mu)
	heap.Init(f.deadlines)

	f.wg.Add(1)
	go f.run()

	return f
}

// Schedule records doc as the pending durable state of the named store. The
// document must not be modified by the caller afterwards.
func (f *Flusher) Schedule(name string, doc PersistedDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}

	if last, ok := f.lastFlushed[name]; ok && last.Version == doc.Version && document.Equal(last.Data, doc.Data) {
		// The store is back at its durable state, nothing to write. A
		// pending flush for an intermediate state is obsolete as well.
		if _, exists := f.pending[name]; exists {
			delete(f.pending, name)
			f.deadlines.Cancel(name)
		}
		metricFlushSuppressed.Inc()
		return
	}

	now := time.Now()
	if p, exists := f.pending[name]; exists {
		p.doc = doc
		deadline := now.Add(f.quiet)
		if latest := p.firstAt.Add(f.maxDelay); deadline.After(latest) {
			deadline = latest
		}
		f.deadlines.Schedule(name, deadline.UnixNano())
	} else {
		f.pending[name] = &pendingFlush{doc: doc, firstAt: now}
		f.deadlines.Schedule(name, now.Add(f.quiet).UnixNano())
	}

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// FlushNow cancels the pending debounce for the named store and writes
// synchronously. Returns nil when nothing is pending.
func (f *Flusher) FlushNow(name string) error {
	f.mu.Lock()
	for f.inflight[name] {
		f.cond.Wait()
	}
	p, exists := f.pending[name]
	if !exists {
		f.mu.Unlock()
		return nil
	}
	delete(f.pending, name)
	f.deadlines.Cancel(name)
	f.inflight[name] = true
	doc := p.doc
	f.mu.Unlock()

	err := f.write(name, doc)

	f.mu.Lock()
	delete(f.inflight, name)
	if err != nil {
		metricFlushErrors.Inc()
	} else {
		metricFlushTotal.Inc()
		f.lastFlushed[name] = doc
	}
	f.cond.Broadcast()
	f.mu.Unlock()

	return err
}

// Pending reports whether a write for the named store is scheduled or
// currently running.
func (f *Flusher) Pending(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, scheduled := f.pending[name]
	return scheduled || f.inflight[name]
}

// SeedLastFlushed primes the suppression state after a load: a store whose
// durable document already matches its in-memory model must not rewrite the
// file on the first identity mutation.
func (f *Flusher) SeedLastFlushed(name string, doc PersistedDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFlushed[name] = doc
}

// Close stops the daemon and flushes everything still pending synchronously.
func (f *Flusher) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	close(f.done)
	f.wg.Wait()

	f.mu.Lock()
	names := make([]string, 0, len(f.pending))
	for name := range f.pending {
		names = append(names, name)
	}
	f.mu.Unlock()

	var errs []error
	for _, name := range names {
		if err := f.FlushNow(name); err != nil {
			f.logger.Errorf("final flush of store %q failed: %v", name, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Daemon
// --------------------------------------------------------------------------

// run drains the deadline heap. All debounced writes of the engine happen on
// this goroutine; FlushNow and Close coordinate with it via the inflight set.
func (f *Flusher) run() {
	defer f.wg.Done()

	for {
		f.mu.Lock()
		_, deadline, ok := f.deadlines.PeekDue()
		if !ok {
			f.mu.Unlock()
			select {
			case <-f.wake:
				continue
			case <-f.done:
				return
			}
		}

		now := time.Now().UnixNano()
		if deadline > now {
			f.mu.Unlock()
			timer := time.NewTimer(time.Duration(deadline - now))
			select {
			case <-f.wake:
				timer.Stop()
			case <-timer.C:
			case <-f.done:
				timer.Stop()
				return
			}
			continue
		}

		name, ok := f.deadlines.PopDue(now)
		if !ok {
			f.mu.Unlock()
			continue
		}
		p := f.pending[name]
		delete(f.pending, name)
		f.inflight[name] = true
		doc := p.doc
		f.mu.Unlock()

		err := f.write(name, doc)

		f.mu.Lock()
		delete(f.inflight, name)
		if err != nil {
			metricFlushErrors.Inc()
			f.logger.Errorf("flush of store %q failed, retrying in %v: %v", name, f.quiet, err)
			if _, exists := f.pending[name]; !exists {
				// retry with the failed document unless a newer one arrived
				f.pending[name] = &pendingFlush{doc: doc, firstAt: time.Now()}
				f.deadlines.Schedule(name, time.Now().Add(f.quiet).UnixNano())
			}
		} else {
			metricFlushTotal.Inc()
			f.lastFlushed[name] = doc
		}
		f.cond.Broadcast()
		f.mu.Unlock()
	}
}
