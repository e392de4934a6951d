package kvstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

type entry struct {
	val     []byte
	expires time.Time
}

type zmember struct {
	score  float64
	member []byte
}

type memoryStore struct {
	mu      sync.Mutex
	kv      map[string]entry
	zsets   map[string][]zmember
	subs    map[string][]chan []byte
}

func newMemoryStore() Store {
	return &memoryStore{
		kv:    make(map[string]entry),
		zsets: make(map[string][]zmember),
		subs:  make(map[string][]chan []byte),
	}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.kv[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(s.kv, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	s.kv[key] = entry{val: val, expires: expires}
	return nil
}

func (s *memoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	return nil
}

func (s *memoryStore) ZAdd(_ context.Context, key string, score float64, member []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.zsets[key]
	set = append(set, zmember{score: score, member: member})
	sort.Slice(set, func(i, j int) bool { return set[i].score < set[j].score })
	s.zsets[key] = set
	return nil
}

func (s *memoryStore) ZRangeByScore(_ context.Context, key string, min, max float64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out [][]byte
	for _, m := range s.zsets[key] {
		if m.score >= min && m.score <= max {
			out = append(out, m.member)
		}
	}
	return out, nil
}

func (s *memoryStore) ZRemRangeByScore(_ context.Context, key string, min, max float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.zsets[key]
	kept := set[:0]
	for _, m := range set {
		if m.score < min || m.score > max {
			kept = append(kept, m)
		}
	}
	s.zsets[key] = kept
	return nil
}

func (s *memoryStore) Publish(_ context.Context, channel string, payload []byte) error {
	s.mu.Lock()
	subs := append([]chan []byte(nil), s.subs[channel]...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- payload:
		default:
			// Slow subscriber - drop rather than block the publisher.
		}
	}
	return nil
}

func (s *memoryStore) Subscribe(_ context.Context, channel string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 64)

	s.mu.Lock()
	s.subs[channel] = append(s.subs[channel], ch)
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[channel]
		for i, c := range subs {
			if c == ch {
				s.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}

	return ch, unsubscribe, nil
}
