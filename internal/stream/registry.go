package stream

import (
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/pkg/metrics"
)

// ErrUnknownObserver is returned when subscribing a handle that was never
// registered or has already disconnected.
var ErrUnknownObserver = errors.New("unknown observer handle")

// KeySpace separates the two independent subscription key spaces.
type KeySpace string

const (
	SpaceMerchant KeySpace = "merchant"
	SpacePayment  KeySpace = "payment"
)

// Key is a subscription key: a merchant id or a payment id.
type Key struct {
	Space KeySpace
	ID    string
}

// MerchantKey builds a merchant-scoped subscription key.
func MerchantKey(id string) Key { return Key{Space: SpaceMerchant, ID: id} }

// PaymentKey builds a payment-scoped subscription key.
func PaymentKey(id string) Key { return Key{Space: SpacePayment, ID: id} }

// ObserverID is an opaque handle for one live subscriber connection,
// independent of transport.
type ObserverID uint64

// Observer is the delivery sink behind a handle. Deliver must not block;
// a sink that cannot accept the event returns an error and the broadcaster
// moves on.
type Observer interface {
	Deliver(event domain.Event) error
}

const numShards = 16

type shard struct {
	mu      sync.RWMutex
	members map[Key]map[ObserverID]Observer
}

type observerEntry struct {
	sink Observer
	keys map[Key]struct{}
}

// Registry is the bidirectional index between subscription keys and live
// observer handles. Key→member maps are sharded so fan-out reads on
// unrelated keys do not contend; mutations additionally serialize on the
// observer index mutex, which keeps subscribe/disconnect atomic across both
// key spaces. Lock order is always observer index, then shard.
type Registry struct {
	nextID atomic.Uint64

	mu    sync.Mutex
	byObs map[ObserverID]*observerEntry

	shards [numShards]shard
}

// NewRegistry creates an empty registry. One instance is constructed at
// process start and owned by the wiring layer, not ambient global state.
func NewRegistry() *Registry {
	r := &Registry{byObs: make(map[ObserverID]*observerEntry)}
	for i := range r.shards {
		r.shards[i].members = make(map[Key]map[ObserverID]Observer)
	}
	return r
}

func (r *Registry) shardFor(key Key) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.Space))
	h.Write([]byte{0})
	h.Write([]byte(key.ID))
	return &r.shards[h.Sum32()%numShards]
}

// Register allocates a handle for a connected observer.
func (r *Registry) Register(sink Observer) ObserverID {
	id := ObserverID(r.nextID.Add(1))

	r.mu.Lock()
	r.byObs[id] = &observerEntry{sink: sink, keys: make(map[Key]struct{})}
	r.mu.Unlock()

	metrics.ConnectedObservers.Inc()
	return id
}

// Subscribe adds the observer to the given key's member set.
func (r *Registry) Subscribe(id ObserverID, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byObs[id]
	if !ok {
		return ErrUnknownObserver
	}
	entry.keys[key] = struct{}{}

	s := r.shardFor(key)
	s.mu.Lock()
	set, ok := s.members[key]
	if !ok {
		set = make(map[ObserverID]Observer)
		s.members[key] = set
	}
	set[id] = entry.sink
	s.mu.Unlock()

	return nil
}

// Unsubscribe removes the observer from the given key's member set. A key
// left with zero members is removed entirely.
func (r *Registry) Unsubscribe(id ObserverID, key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byObs[id]
	if !ok {
		return
	}
	delete(entry.keys, key)
	r.removeMember(id, key)
}

// OnDisconnect tears the observer down: it is removed from every member set
// in both key spaces in time proportional to its own subscriptions, and its
// handle becomes invalid.
func (r *Registry) OnDisconnect(id ObserverID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byObs[id]
	if !ok {
		return
	}
	for key := range entry.keys {
		r.removeMember(id, key)
	}
	delete(r.byObs, id)

	metrics.ConnectedObservers.Dec()
}

// removeMember deletes one membership. Caller holds r.mu.
func (r *Registry) removeMember(id ObserverID, key Key) {
	s := r.shardFor(key)
	s.mu.Lock()
	if set, ok := s.members[key]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(s.members, key)
		}
	}
	s.mu.Unlock()
}

// MembersOf returns a snapshot of the key's member set. The returned map is
// owned by the caller.
func (r *Registry) MembersOf(key Key) map[ObserverID]Observer {
	out := make(map[ObserverID]Observer)
	r.collect(key, out)
	return out
}

// collect merges the key's members into dst. Used by the broadcaster to
// build the deduplicated union across keys without extra allocations.
func (r *Registry) collect(key Key, dst map[ObserverID]Observer) {
	s := r.shardFor(key)
	s.mu.RLock()
	for id, sink := range s.members[key] {
		dst[id] = sink
	}
	s.mu.RUnlock()
}
