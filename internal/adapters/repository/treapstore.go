package repository

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/okian/squadrank/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: rating DESC, then athleteID ASC (deterministic).
// "less" means ranks earlier, so in-order traversal produces the board
// from best to worst. Priorities are a hash of the athlete id, which keeps
// the tree balanced in expectation even when ratings arrive sorted.

// ratingScale controls fixed-point scaling from float64.
const ratingScale = 1_000_000_000 // 9 decimal places

type ratingFP int64

func toFixedPoint(x float64) ratingFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := x * ratingScale
	if scaled >= float64(math.MaxInt64) {
		return ratingFP(math.MaxInt64)
	}
	if scaled <= float64(math.MinInt64) {
		return ratingFP(math.MinInt64)
	}
	return ratingFP(math.Round(scaled))
}

func toFloat(x ratingFP) float64 {
	return float64(x) / ratingScale
}

// record stores the fixed-point rating plus metadata for an athlete.
type record struct {
	rating  ratingFP
	name    string
	team    string
	matches int
}

// treap node
type node struct {
	id     string
	rating ratingFP
	prio   uint64
	left   *node
	right  *node
	size   int
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

// less returns true if (aRating, aID) should appear before (bRating, bID).
func less(aRating ratingFP, aID string, bRating ratingFP, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func idPriority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func insert(n *node, id string, rating ratingFP) *node {
	if n == nil {
		return &node{id: id, rating: rating, prio: idPriority(id), size: 1}
	}
	if less(rating, id, n.rating, n.id) {
		n.left = insert(n.left, id, rating)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rating)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, rating ratingFP) *node {
	if n == nil {
		return nil
	}
	if rating == n.rating && id == n.id {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, rating)
		}
	} else if less(rating, id, n.rating, n.id) {
		n.left = deleteNode(n.left, id, rating)
	} else {
		n.right = deleteNode(n.right, id, rating)
	}
	fix(n)
	return n
}

// countHigher returns the number of athletes rated strictly above rating.
func countHigher(n *node, rating ratingFP) int {
	count := 0
	for n != nil {
		if n.rating > rating {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit entries in board order.
func collectTopN(n *node, limit int, records map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, records, out)
	if len(*out) < limit {
		if rec, ok := records[n.id]; ok {
			*out = append(*out, rec.entry(n.id))
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, records, out)
	}
}

func (r record) entry(id string) Entry {
	return Entry{AthleteID: id, Name: r.name, Team: r.team, Rating: toFloat(r.rating), Matches: r.matches}
}

// TreapStore is an in-memory rating board safe for concurrent use.
type TreapStore struct {
	mu         sync.RWMutex
	root       *node
	byID       map[string]record
	minMatches int
}

// NewTreapStore constructs a rating board with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert implements Store.Upsert with O(log n) expected time.
func (s *TreapStore) Upsert(ctx context.Context, e Entry) (bool, error) {
	id := strings.TrimSpace(e.AthleteID)
	if id == "" {
		metrics.RecordErrorByComponent("repository", "empty_id")
		return false, ErrEmptyID
	}
	if e.Matches < s.minMatches {
		return false, nil
	}

	next := record{rating: toFixedPoint(e.Rating), name: e.Name, team: e.Team, matches: e.Matches}

	s.mu.Lock()
	old, existed := s.byID[id]
	if existed && old == next {
		s.mu.Unlock()
		return false, nil
	}
	if existed && old.rating != next.rating {
		s.root = deleteNode(s.root, id, old.rating)
	}
	s.byID[id] = next
	if !existed || old.rating != next.rating {
		s.root = insert(s.root, id, next.rating)
	}
	count := len(s.byID)
	s.mu.Unlock()

	metrics.RecordBoardUpdate()
	if !existed {
		metrics.UpdateBoardAthletes(count)
	}
	return true, nil
}

// Rank returns the competition rank ("1224" style) of an athlete in O(log n).
func (s *TreapStore) Rank(ctx context.Context, athleteID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordBoardQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[strings.TrimSpace(athleteID)]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	e := rec.entry(strings.TrimSpace(athleteID))
	e.Rank = countHigher(s.root, rec.rating) + 1
	return e, nil
}

// TopN returns the top N entries ordered by rating desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordBoardQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, s.byID, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of athletes on the board.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// assignRanksWithTies assigns competition ranks to a board prefix.
// Equal ratings share a rank and the next distinct rating skips ahead.
func assignRanksWithTies(entries []Entry) {
	for i := range entries {
		if i > 0 && entries[i].Rating == entries[i-1].Rating {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}
