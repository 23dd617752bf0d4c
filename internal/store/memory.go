package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type pendingRefresh struct {
	id          uuid.UUID
	requestedAt time.Time
}

// MemoryStore is a concurrency-safe in-memory weather state store. It owns
// the view model, the loading flag and the sequencing of overlapping
// refreshes.
type MemoryStore struct {
	mu sync.RWMutex

	state   weather.ViewModel
	policy  weather.RefreshPolicy
	lastSeq uint64
	pending map[uint64]pendingRefresh

	history []weather.RefreshRecord

	// retention configuration
	maxHistory int           // max number of refresh records
	maxAge     time.Duration // optional max age for refresh records
}

// NewMemoryStore creates a store holding initial. An empty policy means
// weather.PolicyLatest. If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(initial weather.ViewModel, policy weather.RefreshPolicy, maxHistory int, maxAge time.Duration) *MemoryStore {
	if policy == "" {
		policy = weather.PolicyLatest
	}
	return &MemoryStore{
		state:      initial,
		policy:     policy,
		pending:    make(map[uint64]pendingRefresh),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// BeginRefresh issues the next sequence token and marks the state as loading.
func (s *MemoryStore) BeginRefresh(id uuid.UUID, at time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeq++
	seq := s.lastSeq
	s.pending[seq] = pendingRefresh{id: id, requestedAt: at}
	s.state.IsLoading = true
	return seq
}

// Settle records the refresh identified by seq and, unless the policy
// discards it as stale, replaces the state with the result of fn.
func (s *MemoryStore) Settle(seq uint64, at time.Time, fn weather.SettleFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[seq]
	if !ok {
		return false
	}
	delete(s.pending, seq)

	rec := weather.RefreshRecord{
		ID:          p.id.String(),
		Seq:         seq,
		RequestedAt: p.requestedAt,
		SettledAt:   at,
	}

	if s.policy == weather.PolicyLatest && seq != s.lastSeq {
		rec.Outcome = weather.OutcomeStale
		s.record(rec, at)
		return false
	}

	next, outcome, errs := fn(s.state)
	rec.Outcome = outcome
	for _, err := range errs {
		rec.Errors = append(rec.Errors, err.Error())
	}

	next.IsLoading = s.loading()
	s.state = next
	s.record(rec, at)
	return true
}

// loading reports whether the displayed state is still expected to change.
// Callers must hold s.mu.
func (s *MemoryStore) loading() bool {
	if s.policy == weather.PolicyLatest {
		_, ok := s.pending[s.lastSeq]
		return ok
	}
	return len(s.pending) > 0
}

// State returns a copy of the current view model.
func (s *MemoryStore) State() weather.ViewModel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vm := s.state
	vm.Missing = append([]string(nil), s.state.Missing...)
	return vm
}

// History returns settled refreshes, oldest first.
func (s *MemoryStore) History() []weather.RefreshRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.RefreshRecord, len(s.history))
	copy(out, s.history)
	return out
}

// record appends rec and enforces retention. Callers must hold s.mu.
func (s *MemoryStore) record(rec weather.RefreshRecord, now time.Time) {
	s.history = append(s.history, rec)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		over := len(s.history) - s.maxHistory
		s.history = append([]weather.RefreshRecord(nil), s.history[over:]...)
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := now.Add(-s.maxAge)
		i := 0
		for ; i < len(s.history); i++ {
			if !s.history[i].SettledAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.history = append([]weather.RefreshRecord(nil), s.history[i:]...)
		}
	}
}

var _ weather.Store = (*MemoryStore)(nil)
