package repository

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/guessconv/internal/domain/model"
	"github.com/okian/guessconv/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// One treap per Order. In-order traversal yields the leaderboard from best
// to worst, and subtree sizes give O(log n) expected rank lookups.

type node struct {
	entry model.LeaderboardEntry
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, o Order, e model.LeaderboardEntry, prio uint64) *node {
	if n == nil {
		return &node{entry: e, prio: prio, size: 1}
	}
	if o.Less(e, n.entry) {
		n.left = insert(n.left, o, e, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, o, e, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, o Order, e model.LeaderboardEntry) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.entry.Username == e.Username:
		// Rotate the higher priority child up until n is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, o, e)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, o, e)
		}
	case o.Less(e, n.entry):
		n.left = deleteNode(n.left, o, e)
	default:
		n.right = deleteNode(n.right, o, e)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]model.LeaderboardEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.entry)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// position returns the 1-based in-order position of e.
func position(n *node, o Order, e model.LeaderboardEntry) int {
	before := 0
	for n != nil {
		switch {
		case n.entry.Username == e.Username:
			return before + nsize(n.left) + 1
		case o.Less(e, n.entry):
			n = n.left
		default:
			before += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// MemoryStore keeps the leaderboard in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	roots map[Order]*node
	byKey map[string]model.LeaderboardEntry
	set   settings
}

// NewMemoryStore constructs an empty treap store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		roots: make(map[Order]*node, len(Orders)),
		byKey: make(map[string]model.LeaderboardEntry),
		set:   applyOptions(opts),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, username string) (model.LeaderboardEntry, error) {
	defer observe("get", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byKey[username]
	if !ok {
		return model.LeaderboardEntry{}, ErrNotFound
	}
	return e, nil
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, e model.LeaderboardEntry) (model.LeaderboardEntry, error) {
	defer observe("insert", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[e.Username]; ok {
		return model.LeaderboardEntry{}, ErrConflict
	}
	e.ID = s.set.newID()
	e.LastUpdated = s.set.now()
	s.put(e)
	metrics.UpdateTotalPlayers(len(s.byKey))
	return e, nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, e model.LeaderboardEntry) (model.LeaderboardEntry, error) {
	defer observe("update", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byKey[e.Username]
	if !ok {
		return model.LeaderboardEntry{}, ErrNotFound
	}
	for _, o := range Orders {
		s.roots[o] = deleteNode(s.roots[o], o, old)
	}
	e.ID = old.ID
	e.LastUpdated = s.set.now()
	s.put(e)
	return e, nil
}

// must be called with s.mu held
func (s *MemoryStore) put(e model.LeaderboardEntry) {
	s.byKey[e.Username] = e
	prio := rand.Uint64()
	for _, o := range Orders {
		s.roots[o] = insert(s.roots[o], o, e, prio)
	}
}

// TopN implements Store.
func (s *MemoryStore) TopN(_ context.Context, order Order, n int) ([]model.LeaderboardEntry, error) {
	defer observe("top_n", time.Now())
	if err := checkLimit(n); err != nil {
		return nil, err
	}
	if _, err := ParseOrder(string(order)); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LeaderboardEntry, 0, min(n, len(s.byKey)))
	collectTopN(s.roots[order], n, &out)
	return out, nil
}

// Rank implements Store.
func (s *MemoryStore) Rank(_ context.Context, order Order, username string) (int, model.LeaderboardEntry, error) {
	defer observe("rank", time.Now())
	if _, err := ParseOrder(string(order)); err != nil {
		return 0, model.LeaderboardEntry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byKey[username]
	if !ok {
		return 0, model.LeaderboardEntry{}, ErrNotFound
	}
	return position(s.roots[order], order, e), e, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey), nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots = make(map[Order]*node, len(Orders))
	s.byKey = make(map[string]model.LeaderboardEntry)
	metrics.UpdateTotalPlayers(0)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
