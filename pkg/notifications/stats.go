package notifications

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// StatKey identifies a statistics counter.
type StatKey struct {
	Degree int64     `json:"degree"`
	Course int64     `json:"course"`
	Event  EventType `json:"event"`
}

// StatCounter counts notified events and digest emails for a scope.
type StatCounter struct {
	StatKey
	NumEvents int64 `json:"num_events"`
	NumMails  int64 `json:"num_mails"`
}

// StatsFilter restricts a statistics query. Zero values do not constrain.
type StatsFilter struct {
	Degree int64
	Course int64
}

func (f StatsFilter) match(k StatKey) bool {
	return (f.Degree <= 0 || k.Degree == f.Degree) && (f.Course <= 0 || k.Course == f.Course)
}

// StatsStore keeps running notification statistics.
type StatsStore interface {
	// AddStats increments the counters by the given deltas.
	AddStats(ctx context.Context, deltas ...StatCounter) error

	// Stats returns the counters matching f ordered by key.
	Stats(ctx context.Context, f StatsFilter) ([]StatCounter, error)
}

// MemoryStatsStore is an in-memory StatsStore.
type MemoryStatsStore struct {
	counters map[StatKey]StatCounter
	mu       sync.Mutex
}

// NewMemoryStatsStore creates an empty in-memory statistics store.
func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{counters: make(map[StatKey]StatCounter)}
}

func (s *MemoryStatsStore) AddStats(ctx context.Context, deltas ...StatCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range deltas {
		c := s.counters[d.StatKey]
		c.StatKey = d.StatKey
		c.NumEvents += d.NumEvents
		c.NumMails += d.NumMails
		s.counters[d.StatKey] = c
	}
	return nil
}

func (s *MemoryStatsStore) Stats(ctx context.Context, f StatsFilter) ([]StatCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StatCounter, 0, len(s.counters))
	for k, c := range s.counters {
		if f.match(k) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b StatCounter) int { return CompareStatKeys(a.StatKey, b.StatKey) })
	return out, nil
}

// CompareStatKeys orders keys by degree, course and event type.
func CompareStatKeys(a, b StatKey) int {
	return cmp.Or(
		cmp.Compare(a.Degree, b.Degree),
		cmp.Compare(a.Course, b.Course),
		cmp.Compare(a.Event, b.Event),
	)
}

// TallyStats groups a sent batch by scope and event type. Each group counts
// its notifications as events and the email that carried them as one mail.
func TallyStats(batch []Notification) []StatCounter {
	idx := make(map[StatKey]int)
	var out []StatCounter
	for _, n := range batch {
		k := StatKey{Degree: n.Location.Degree, Course: n.Location.Course, Event: n.Event}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, StatCounter{StatKey: k, NumMails: 1})
		}
		out[i].NumEvents++
	}
	return out
}
