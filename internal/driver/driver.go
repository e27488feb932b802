// Package driver runs catalogue actions on a single worker goroutine and
// hands their completions back to the owner goroutine.
//
// Only Submit may be called from any goroutine. Dispatch, Run, Do, Subscribe
// and the cache lookups belong to the owner goroutine, which is also the only
// one that ever runs callbacks and listeners.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/justyntemme/tscat/internal/debug"
	"github.com/justyntemme/tscat/internal/entity"
	"github.com/justyntemme/tscat/internal/store"
)

var (
	ErrUnknownUUID     = errors.New("uuid not in entity cache")
	ErrWrongKind       = errors.New("entity has the wrong kind")
	ErrShutdownTimeout = errors.New("driver worker did not stop in time")
	ErrStopped         = errors.New("driver is stopped")
	ErrActionPanicked  = errors.New("action panicked")
	ErrResubmitted     = errors.New("action submitted twice")
)

// Priority selects the notification tier of a listener. Prioritized
// listeners run before general ones for every completion.
type Priority int

const (
	General Priority = iota
	Prioritized
)

// Listener receives every completed action.
type Listener func(a Action)

type subscriber struct {
	id       int
	priority Priority
	fn       Listener
}

// Subscription is returned by Subscribe.
type Subscription struct {
	d  *Driver
	id int
}

// Unsubscribe removes the listener. Safe to call from inside a listener.
func (s Subscription) Unsubscribe() {
	if s.d == nil {
		return
	}
	subs := s.d.subscribers[:0:0]
	for _, sub := range s.d.subscribers {
		if sub.id != s.id {
			subs = append(subs, sub)
		}
	}
	s.d.subscribers = subs
}

type Option func(*Driver)

// WithTrace installs a hook called on the worker goroutine right before each
// action executes.
func WithTrace(fn func(a Action)) Option {
	return func(d *Driver) { d.trace = fn }
}

type Driver struct {
	store *store.Store
	trace func(Action)

	ctx    context.Context
	cancel context.CancelFunc

	// Submission queue, shared with the worker.
	mu       sync.Mutex
	queue    []Action
	seq      uint64
	started  bool
	stopping bool
	wake     chan struct{}

	// Completion queue, shared with the worker.
	doneMu    sync.Mutex
	completed []Action
	notify    chan struct{}

	workerDone chan struct{}

	// Owner goroutine only.
	cache       *cache
	subscribers []subscriber
	nextSubID   int
}

func New(s *store.Store, opts ...Option) *Driver {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Driver{
		store:      s,
		ctx:        ctx,
		cancel:     cancel,
		wake:       make(chan struct{}, 1),
		notify:     make(chan struct{}, 1),
		workerDone: make(chan struct{}),
		cache:      newCache(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker goroutine. Actions submitted earlier wait in the
// queue until then.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopping {
		return
	}
	d.started = true
	go d.worker()
	debug.Log(debug.DRIVER, "Worker started")
}

// Submit queues an action and returns immediately.
func (d *Driver) Submit(a Action) {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		log.Printf("Driver: %s submitted after stop, dropped", a)
		return
	}
	b := a.base()
	if b.seq != 0 {
		d.mu.Unlock()
		panic(fmt.Errorf("%w: %s #%d", ErrResubmitted, a, b.seq))
	}
	d.seq++
	b.seq = d.seq
	d.queue = append(d.queue, a)
	d.mu.Unlock()

	debug.Log(debug.DRIVER, "Submitted %s #%d", a, b.seq)
	signal(d.wake)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (d *Driver) worker() {
	defer close(d.workerDone)
	for {
		a, ok := d.next()
		if !ok {
			debug.Log(debug.DRIVER, "Worker exiting")
			return
		}
		d.run(a)

		d.doneMu.Lock()
		d.completed = append(d.completed, a)
		d.doneMu.Unlock()
		signal(d.notify)
	}
}

// next blocks until an action is queued or the driver stops.
func (d *Driver) next() (Action, bool) {
	for {
		d.mu.Lock()
		if d.stopping {
			d.mu.Unlock()
			return nil, false
		}
		if len(d.queue) > 0 {
			a := d.queue[0]
			d.queue[0] = nil
			d.queue = d.queue[1:]
			d.mu.Unlock()
			return a, true
		}
		d.mu.Unlock()

		select {
		case <-d.wake:
		case <-d.ctx.Done():
			return nil, false
		}
	}
}

func (d *Driver) run(a Action) {
	b := a.base()
	defer func() {
		if r := recover(); r != nil {
			b.err = fmt.Errorf("%w: %s: %v", ErrActionPanicked, a, r)
			log.Printf("Driver Error: %v", b.err)
		}
		b.done.Store(true)
	}()

	if d.trace != nil {
		d.trace(a)
	}
	start := time.Now()
	if err := a.execute(d.ctx, d.store); err != nil {
		b.err = err
		log.Printf("Driver Error: %s #%d: %v", a, b.seq, err)
	}
	debug.Log(debug.DRIVER, "Executed %s #%d in %s", a, b.seq, time.Since(start))
}

// Completions is signalled whenever completed actions wait for Dispatch.
func (d *Driver) Completions() <-chan struct{} { return d.notify }

// Dispatch delivers every pending completion and returns how many there were.
// For each action, in submission order: the cache is updated, the callback
// runs, then prioritized listeners, then general listeners.
func (d *Driver) Dispatch() int {
	d.doneMu.Lock()
	pending := d.completed
	d.completed = nil
	d.doneMu.Unlock()

	for _, a := range pending {
		d.deliver(a)
	}
	return len(pending)
}

func (d *Driver) deliver(a Action) {
	b := a.base()
	b.delivered = true
	if b.err == nil {
		a.Accept(d.cache)
	}
	if b.Callback != nil {
		b.Callback(a)
	}

	subs := make([]subscriber, len(d.subscribers))
	copy(subs, d.subscribers)
	for _, tier := range []Priority{Prioritized, General} {
		for _, sub := range subs {
			if sub.priority == tier {
				sub.fn(a)
			}
		}
	}
}

// Run dispatches completions until ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.notify:
			d.Dispatch()
		}
	}
}

// Do submits a and dispatches completions on the calling goroutine until a
// has completed. It is the one blocking entry point, meant for command line
// use; everything else goes through Submit and callbacks.
func (d *Driver) Do(ctx context.Context, a Action) error {
	d.Submit(a)
	if a.base().seq == 0 {
		return ErrStopped
	}
	for !a.base().delivered {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.notify:
			d.Dispatch()
		}
	}
	return a.Err()
}

// Subscribe registers a listener for every completed action.
func (d *Driver) Subscribe(fn Listener, priority Priority) Subscription {
	d.nextSubID++
	d.subscribers = append(d.subscribers, subscriber{id: d.nextSubID, priority: priority, fn: fn})
	return Subscription{d: d, id: d.nextSubID}
}

// EntityFromUUID returns a copy of the cached entity. An unknown uuid is a
// caller bug and panics with ErrUnknownUUID.
func (d *Driver) EntityFromUUID(uuid string) entity.Entity {
	e, ok := d.Lookup(uuid)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrUnknownUUID, uuid))
	}
	return e
}

// EventFromUUID is EntityFromUUID restricted to events.
func (d *Driver) EventFromUUID(uuid string) *entity.Event {
	e, ok := d.EntityFromUUID(uuid).(*entity.Event)
	if !ok {
		panic(fmt.Errorf("%w: %s is not an event", ErrWrongKind, uuid))
	}
	return e
}

// CatalogueFromUUID is EntityFromUUID restricted to catalogues.
func (d *Driver) CatalogueFromUUID(uuid string) *entity.Catalogue {
	c, ok := d.EntityFromUUID(uuid).(*entity.Catalogue)
	if !ok {
		panic(fmt.Errorf("%w: %s is not a catalogue", ErrWrongKind, uuid))
	}
	return c
}

// Lookup is the non-panicking cache read.
func (d *Driver) Lookup(uuid string) (entity.Entity, bool) {
	e, ok := d.cache.entities[uuid]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Stop refuses further submissions, drops queued actions and waits up to
// timeout for the running action. When the worker does not finish in time its
// context is cancelled and ErrShutdownTimeout returned; the store should then
// be closed by the caller to release the worker.
func (d *Driver) Stop(timeout time.Duration) error {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return nil
	}
	d.stopping = true
	dropped := len(d.queue)
	d.queue = nil
	started := d.started
	d.mu.Unlock()

	if dropped > 0 {
		log.Printf("Driver: dropped %d queued actions on stop", dropped)
	}
	if !started {
		d.cancel()
		return nil
	}
	signal(d.wake)

	select {
	case <-d.workerDone:
		d.cancel()
		debug.Log(debug.DRIVER, "Worker stopped")
		return nil
	case <-time.After(timeout):
		d.cancel()
		return ErrShutdownTimeout
	}
}
