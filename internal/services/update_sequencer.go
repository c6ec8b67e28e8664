package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// UpdateWindow is how long a stale high-water mark is honored before an
// out-of-order sequence number is accepted anyway. It keeps a restarted or
// stalled sender from being locked out by its own old traffic.
const UpdateWindow = 60 * time.Second

const sequencerShards = 32

type sequenceEntry struct {
	sequence uint32
	seenAt   time.Time
}

type sequencerShard struct {
	mu      sync.Mutex
	entries map[uuid.UUID]sequenceEntry
}

// UpdateSequencer decides whether a possibly-reordered state update should be
// applied to an entity. It is the hottest shared structure in the process, so
// entries are spread over sharded locks: the check-then-update for one entity
// is atomic, while updates to different entities rarely contend.
type UpdateSequencer struct {
	shards [sequencerShards]*sequencerShard
}

// NewUpdateSequencer creates an empty sequencer.
func NewUpdateSequencer() *UpdateSequencer {
	s := &UpdateSequencer{}
	for i := range s.shards {
		s.shards[i] = &sequencerShard{entries: make(map[uuid.UUID]sequenceEntry)}
	}
	return s
}

func (s *UpdateSequencer) shard(entityID uuid.UUID) *sequencerShard {
	return s.shards[int(entityID[0])%sequencerShards]
}

// Accept reports whether an update carrying incomingSeq for entityID should
// be applied, updating the entity's high-water mark when it is. The signed
// 32-bit difference makes the comparison wraparound-correct: a sequence that
// wrapped past zero but is ahead by less than half the counter space still
// counts as newer. Rejected updates leave the entry untouched.
func (s *UpdateSequencer) Accept(entityID uuid.UUID, incomingSeq uint32, now time.Time) bool {
	sh := s.shard(entityID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	entry, exists := sh.entries[entityID]
	if exists {
		ahead := int32(incomingSeq-entry.sequence) > 0
		expired := now.Sub(entry.seenAt) > UpdateWindow
		if !ahead && !expired {
			return false
		}
	}

	sh.entries[entityID] = sequenceEntry{sequence: incomingSeq, seenAt: now}
	return true
}

// Tracked returns the number of entities currently tracked.
func (s *UpdateSequencer) Tracked() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}
	return total
}

// SweepOlderThan removes entries not touched for at least age and returns how
// many were dropped. Stale entries are otherwise only superseded lazily, so
// this runs from a periodic job purely to bound memory; it never changes an
// Accept decision, since anything old enough to sweep would be accepted via
// the window escape anyway.
func (s *UpdateSequencer) SweepOlderThan(age time.Duration, now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, entry := range sh.entries {
			if now.Sub(entry.seenAt) >= age {
				delete(sh.entries, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
