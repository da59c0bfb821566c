package memory

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/sVS/lib/storage"
	"github.com/ValentinKolb/sVS/lib/storage/util"
)

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

const defaultNumShards = 16

// Options configures the memory backend during initialization
type Options struct {
	NumShards  int           // Number of shards (0 = default)
	Quiescence time.Duration // Debounce window (0 = storage default)
	MaxDelay   time.Duration // Upper bound for deferred flushes (0 = storage default)
}

// DefaultOptions returns the default memory backend options
func DefaultOptions() *Options {
	return &Options{
		NumShards: defaultNumShards,
	}
}

// --------------------------------------------------------------------------
// Backend
// --------------------------------------------------------------------------

// shard holds the serialized documents of a subset of stores
type shard struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// backend implements storage.IBackend without durability. Documents live as
// serialized JSON in sharded maps, which keeps the engine behaviorally
// identical to the durable ones (full marshal round trip per flush) while
// staying process local.
type backend struct {
	numShards int
	seed      uint64
	shards    []*shard
	flusher   *storage.Flusher

	mu     sync.Mutex
	closed bool
}

// New creates a memory backend with the specified options (optional).
//
// Thread-safety: This function is not thread-safe and should only be called
// once during initialization.
func New(opts *Options) (storage.IBackend, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = defaultNumShards
	}

	shards := make([]*shard, numShards)
	for i := 0; i < numShards; i++ {
		shards[i] = &shard{docs: make(map[string][]byte)}
	}

	b := &backend{
		numShards: numShards,
		seed:      util.GenerateSeed(),
		shards:    shards,
	}
	b.flusher = storage.NewFlusher(b.writeDocument, opts.Quiescence, opts.MaxDelay)
	return b, nil
}

// shardFor selects the shard responsible for a store name
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (b *backend) shardFor(name string) *shard {
	return b.shards[uint64(util.HashName(name, b.seed))%uint64(b.numShards)]
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage/interface.go)
// --------------------------------------------------------------------------

func (b *backend) Load(spec storage.LoadSpec) (storage.PersistedDocument, error) {
	if err := storage.ValidateName(spec.Name); err != nil {
		return storage.Fallback(spec), err
	}

	s := b.shardFor(spec.Name)
	s.mu.RLock()
	raw, found := s.docs[spec.Name]
	s.mu.RUnlock()

	doc, migrated, err := storage.Materialize(spec, raw, found)
	if err == nil && found {
		if migrated {
			b.flusher.Schedule(spec.Name, doc)
		} else {
			b.flusher.SeedLastFlushed(spec.Name, doc)
		}
	}
	return doc, err
}

func (b *backend) ScheduleFlush(name string, doc storage.PersistedDocument) {
	b.flusher.Schedule(name, doc)
}

func (b *backend) FlushNow(name string) error {
	return b.flusher.FlushNow(name)
}

func (b *backend) Pending(name string) bool {
	return b.flusher.Pending(name)
}

func (b *backend) Info() storage.BackendInfo {
	count := 0
	for _, s := range b.shards {
		s.mu.RLock()
		count += len(s.docs)
		s.mu.RUnlock()
	}
	return storage.BackendInfo{
		Engine: storage.ImplMemory,
		Stores: count,
		Metadata: map[string]any{
			"shards": b.numShards,
		},
	}
}

func (b *backend) Close() error {
	err := b.flusher.Close()
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return err
}

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

// writeDocument serializes and stores one document in its shard
func (b *backend) writeDocument(name string, doc storage.PersistedDocument) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return &storage.StorageUnavailableError{Op: "flush", Name: name, Err: fmt.Errorf("backend closed")}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return &storage.StorageUnavailableError{Op: "flush", Name: name, Err: err}
	}

	s := b.shardFor(name)
	s.mu.Lock()
	s.docs[name] = data
	s.mu.Unlock()
	return nil
}
