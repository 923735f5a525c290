package auth

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/francescomari/portier/pkg/observability"
)

// Entry is one handler registration inside a snapshot.
type Entry struct {
	ID      string
	Handler Handler
	Rule    PathRule

	seq uint64
}

// Snapshot is an immutable view of the registry, pre-sorted by path
// specificity. In-flight requests capture one snapshot and use it for
// the whole request, so concurrent registrations never produce a
// partial view.
type Snapshot struct {
	entries    []Entry
	processors []PostProcessor
}

// Processors returns the registered post-processors in insertion order.
func (s *Snapshot) Processors() []PostProcessor {
	return s.processors
}

// Registry tracks credential-extraction handlers and post-processors.
// Reads are lock-free through published snapshots; registrations
// rebuild the snapshot under a mutex and publish it atomically.
type Registry struct {
	mu         sync.Mutex
	handlers   map[string]*registration
	processors []processorEntry
	seq        uint64
	snapshot   atomic.Pointer[Snapshot]
}

type registration struct {
	handler Handler
	rules   []PathRule
	seq     uint64
}

type processorEntry struct {
	id        string
	processor PostProcessor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]*registration)}
	r.snapshot.Store(&Snapshot{})
	return r
}

// Register adds a handler under a stable id. Registering the same id
// again replaces the previous handler atomically and keeps the original
// registration position for specificity ties. A handler with no rules
// applies to every path.
func (r *Registry) Register(id string, h Handler, rules ...PathRule) {
	if len(rules) == 0 {
		rules = []PathRule{{Prefix: "/"}}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.seq
	if prev, ok := r.handlers[id]; ok {
		seq = prev.seq
	} else {
		r.seq++
	}
	r.handlers[id] = &registration{handler: h, rules: rules, seq: seq}

	r.publish()
}

// Unregister removes the handler with the given id. Unknown ids are
// ignored. Requests that captured an earlier snapshot keep seeing the
// handler until they finish.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[id]; !ok {
		return
	}
	delete(r.handlers, id)

	r.publish()
}

// RegisterPostProcessor appends a post-processor. Post-processors run
// in registration order; registering the same id again replaces the
// processor in its original position.
func (r *Registry) RegisterPostProcessor(id string, p PostProcessor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.processors {
		if r.processors[i].id == id {
			r.processors[i].processor = p
			r.publish()
			return
		}
	}
	r.processors = append(r.processors, processorEntry{id: id, processor: p})

	r.publish()
}

// UnregisterPostProcessor removes the post-processor with the given id.
func (r *Registry) UnregisterPostProcessor(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.processors {
		if r.processors[i].id == id {
			r.processors = append(r.processors[:i], r.processors[i+1:]...)
			r.publish()
			return
		}
	}
}

// Snapshot returns the current registry view.
func (r *Registry) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// publish rebuilds the sorted snapshot and swaps it in.
// Callers must hold mu.
func (r *Registry) publish() {
	snap := &Snapshot{}

	for id, reg := range r.handlers {
		for _, rule := range reg.rules {
			snap.entries = append(snap.entries, Entry{
				ID:      id,
				Handler: reg.handler,
				Rule:    rule,
				seq:     reg.seq,
			})
		}
	}

	// Longest prefix first; host-qualified rules rank above path-only
	// rules of equal length; remaining ties keep registration order.
	sort.SliceStable(snap.entries, func(i, j int) bool {
		a, b := snap.entries[i].Rule, snap.entries[j].Rule
		if len(a.Prefix) != len(b.Prefix) {
			return len(a.Prefix) > len(b.Prefix)
		}
		if (a.HostPort != "") != (b.HostPort != "") {
			return a.HostPort != ""
		}
		return snap.entries[i].seq < snap.entries[j].seq
	})

	if len(r.processors) > 0 {
		snap.processors = make([]PostProcessor, len(r.processors))
		for i, pe := range r.processors {
			snap.processors[i] = pe.processor
		}
	}

	r.snapshot.Store(snap)
	observability.RegisteredHandlers.Set(float64(len(r.handlers)))
}
