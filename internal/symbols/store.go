package symbols

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"tickerchat-go/internal/monitoring"
	"tickerchat-go/internal/storage"
)

// DocumentName is the storage document holding the persisted snapshot, a
// flat JSON array of identifier strings.
const DocumentName = "symbols"

const (
	DefaultCapacity = 500
	DefaultLowWater = 10
)

// Store is a bounded, deduplicated FIFO of discovered identifiers with
// round-robin retrieval. Reads are non-destructive; the only way an entry
// leaves the store is FIFO eviction when a new entry arrives at capacity.
type Store struct {
	backend  storage.Backend
	capacity int
	lowWater int

	mu      sync.Mutex
	entries []string
	present map[string]struct{}
	cursor  int
}

// New creates a store. Load must be called before the store is used so the
// persisted snapshot is in place; construction alone performs no I/O.
func New(backend storage.Backend, capacity, lowWater int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if lowWater < 0 || lowWater >= capacity {
		lowWater = DefaultLowWater
	}
	return &Store{
		backend:  backend,
		capacity: capacity,
		lowWater: lowWater,
		present:  make(map[string]struct{}),
	}
}

// Load restores the persisted snapshot. A missing document is fine (fresh
// start); a malformed one is an error the caller must treat as fatal
// configuration state.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.GetDocument(ctx, DocumentName)
	if err != nil {
		if storage.IsNotFound(err) {
			log.Debug("no persisted symbol snapshot, starting empty")
			return nil
		}
		return fmt.Errorf("read symbol document: %w", err)
	}

	var loaded []string
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse symbol document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
	s.present = make(map[string]struct{}, len(loaded))
	for _, id := range loaded {
		if id == "" {
			continue
		}
		if _, dup := s.present[id]; dup {
			continue
		}
		if len(s.entries) == s.capacity {
			break
		}
		s.entries = append(s.entries, id)
		s.present[id] = struct{}{}
	}
	s.cursor = 0
	monitoring.SymbolStoreSize.Set(float64(len(s.entries)))

	log.WithField("count", len(s.entries)).Info("symbol store loaded")
	return nil
}

// Add inserts the identifiers that are not already present, evicting the
// oldest stored entry whenever the store is at capacity. The snapshot is
// persisted once at the end iff at least one identifier was actually added;
// a batch of pure duplicates writes nothing. Returns the number added.
func (s *Store) Add(ctx context.Context, ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := s.present[id]; dup {
			continue
		}
		if len(s.entries) == s.capacity {
			s.evictOldestLocked()
		}
		s.entries = append(s.entries, id)
		s.present[id] = struct{}{}
		added++
	}

	if added == 0 {
		return 0
	}
	monitoring.SymbolStoreSize.Set(float64(len(s.entries)))

	if err := s.persistLocked(ctx); err != nil {
		// In-memory state stays authoritative; the next effective addition
		// retries the write.
		log.WithError(err).Warn("failed to persist symbol store")
	}
	return added
}

// Next returns the identifier at the cursor and advances it, wrapping past
// the end. The second return is false when the store is empty. Absent
// mid-pass additions, a full pass over N entries visits each exactly once.
func (s *Store) Next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return "", false
	}
	if s.cursor >= len(s.entries) {
		s.cursor = 0
	}
	id := s.entries[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.entries)
	return id, true
}

// Size returns the current number of stored identifiers.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// LowWater returns the refill threshold.
func (s *Store) LowWater() int {
	return s.lowWater
}

// Capacity returns the maximum number of stored identifiers.
func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) evictOldestLocked() {
	oldest := s.entries[0]
	s.entries = s.entries[1:]
	delete(s.present, oldest)
	// Keep the cursor pointing at the same logical entry after the shift.
	if s.cursor > 0 {
		s.cursor--
	}
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("marshal symbol snapshot: %w", err)
	}
	return s.backend.SetDocument(ctx, DocumentName, data)
}
