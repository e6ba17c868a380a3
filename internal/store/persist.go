package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/kv"
	applog "fintrack/internal/log"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusSkipped means a newer revision of the key was already written.
	StatusSkipped Status = "skipped"
)

// PersistEvent reports the outcome of one background write (or delete) of a collection.
type PersistEvent struct {
	Key      string    `json:"key"`
	Revision uint64    `json:"revision"`
	Status   Status    `json:"status"`
	Err      error     `json:"-"`
	At       time.Time `json:"timestamp"`
}

// Error returns the failure message, or "" for non-failed events.
func (e PersistEvent) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// EventSink forwards persist events outside the process.
type EventSink interface {
	PublishPersistEvent(ctx context.Context, ev PersistEvent) error
}

const sinkTimeout = 5 * time.Second

// keyState serializes writes to one key and remembers the newest written revision.
type keyState struct {
	mu      sync.Mutex
	written uint64
}

type persister struct {
	backend kv.Store
	timeout time.Duration
	now     func() time.Time
	plog    *slog.Logger

	revMu     sync.Mutex
	revisions map[string]uint64
	keys      map[string]*keyState

	wg sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]chan PersistEvent
	nextSub int
	sinks   []EventSink

	failMu   sync.Mutex
	failures []PersistEvent
	maxFail  int
}

func newPersister(backend kv.Store, timeout time.Duration, maxFail int, now func() time.Time, logger *slog.Logger) *persister {
	return &persister{
		backend:   backend,
		timeout:   timeout,
		now:       now,
		plog:      logger,
		revisions: make(map[string]uint64),
		keys:      make(map[string]*keyState),
		subs:      make(map[int]chan PersistEvent),
		maxFail:   maxFail,
	}
}

// nextRevision must be called while the store lock is held so revision
// order matches mutation order.
func (p *persister) nextRevision(key string) uint64 {
	p.revMu.Lock()
	defer p.revMu.Unlock()
	p.revisions[key]++
	return p.revisions[key]
}

func (p *persister) stateFor(key string) *keyState {
	p.revMu.Lock()
	defer p.revMu.Unlock()
	ks, ok := p.keys[key]
	if !ok {
		ks = &keyState{}
		p.keys[key] = ks
	}
	return ks
}

// schedule encodes value and writes it in the background. Caller holds the
// store lock, so value is a consistent snapshot.
func (p *persister) schedule(key string, value any) uint64 {
	rev := p.nextRevision(key)
	payload, err := json.Marshal(value)
	if err != nil {
		// Collections are plain data; this only fires on a programming error.
		p.emit(PersistEvent{Key: key, Revision: rev, Status: StatusFailed, Err: fmt.Errorf("encode %s: %w", key, err), At: p.now()})
		return rev
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.write(key, rev, payload)
	}()
	return rev
}

func (p *persister) write(key string, rev uint64, payload json.RawMessage) {
	ks := p.stateFor(key)
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if rev <= ks.written {
		p.emit(PersistEvent{Key: key, Revision: rev, Status: StatusSkipped, At: p.now()})
		return
	}

	ctx, cancel := p.writeContext()
	start := time.Now()
	err := p.backend.Set(ctx, key, payload)
	cancel()

	fields := applog.NewFields().WithPersist(key, rev).WithOperation(applog.OpPersist)
	if err != nil {
		p.plog.Error("Persist failed", append(fields.WithError(err).ToSlice(), applog.FieldDuration, time.Since(start))...)
		p.emit(PersistEvent{Key: key, Revision: rev, Status: StatusFailed, Err: err, At: p.now()})
		return
	}
	ks.written = rev
	p.plog.Debug("Persist succeeded", append(fields.ToSlice(), "bytes", len(payload), applog.FieldDuration, time.Since(start))...)
	p.emit(PersistEvent{Key: key, Revision: rev, Status: StatusSucceeded, At: p.now()})
}

// remove deletes key synchronously, ordered with pending writes of the same key.
func (p *persister) remove(ctx context.Context, key string, rev uint64) error {
	ks := p.stateFor(key)
	ks.mu.Lock()
	defer ks.mu.Unlock()

	fields := applog.NewFields().WithPersist(key, rev).WithOperation(applog.OpReset)
	if err := p.backend.Delete(ctx, key); err != nil {
		p.plog.ErrorContext(ctx, "Reset failed", fields.WithError(err).ToSlice()...)
		p.emit(PersistEvent{Key: key, Revision: rev, Status: StatusFailed, Err: err, At: p.now()})
		return fmt.Errorf("reset %s: %w", key, err)
	}
	ks.written = rev
	p.plog.InfoContext(ctx, "Collection reset", fields.ToSlice()...)
	p.emit(PersistEvent{Key: key, Revision: rev, Status: StatusSucceeded, At: p.now()})
	return nil
}

func (p *persister) writeContext() (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(context.Background(), p.timeout)
	}
	return context.WithCancel(context.Background())
}

// emit is called with the key lock held, so events of one key arrive in
// write order.
func (p *persister) emit(ev PersistEvent) {
	p.recordFailure(ev)

	p.subMu.Lock()
	for id, ch := range p.subs {
		select {
		case ch <- ev:
		default:
			p.plog.Warn("Dropped persist event for slow subscriber", "subscriber", id, applog.FieldKey, ev.Key, applog.FieldRevision, ev.Revision)
		}
	}
	sinks := append([]EventSink(nil), p.sinks...)
	p.subMu.Unlock()

	for _, sink := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := sink.PublishPersistEvent(ctx, ev); err != nil {
			p.plog.Warn("Failed to publish persist event", applog.FieldKey, ev.Key, applog.FieldRevision, ev.Revision, applog.FieldError, err)
		}
		cancel()
	}
}

// recordFailure keeps failed events until a later revision of the same key succeeds.
func (p *persister) recordFailure(ev PersistEvent) {
	p.failMu.Lock()
	defer p.failMu.Unlock()
	switch ev.Status {
	case StatusFailed:
		p.failures = append(p.failures, ev)
		if over := len(p.failures) - p.maxFail; over > 0 {
			p.failures = p.failures[over:]
		}
	case StatusSucceeded:
		kept := p.failures[:0]
		for _, f := range p.failures {
			if f.Key != ev.Key || f.Revision > ev.Revision {
				kept = append(kept, f)
			}
		}
		p.failures = kept
	}
}

// Failures returns recent failed persists not yet superseded by a successful write.
func (p *persister) Failures() []PersistEvent {
	p.failMu.Lock()
	defer p.failMu.Unlock()
	return append([]PersistEvent(nil), p.failures...)
}

// Subscribe returns a channel receiving every persist event. Sends never
// block; a full channel drops the event. cancel closes the channel.
func (p *persister) Subscribe(buffer int) (<-chan PersistEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan PersistEvent, buffer)

	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.subMu.Lock()
			if _, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(ch)
			}
			p.subMu.Unlock()
		})
	}
	return ch, cancel
}

// AddSink registers an outbound transport for persist events.
func (p *persister) AddSink(sink EventSink) {
	if sink == nil {
		return
	}
	p.subMu.Lock()
	p.sinks = append(p.sinks, sink)
	p.subMu.Unlock()
}

// Wait blocks until every scheduled persist has finished or ctx is done.
func (p *persister) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *persister) closeSubscribers() {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}
