package elo

import "sort"

// State holds the current rating of every athlete seen so far. It is owned by
// the caller and passed explicitly into each step.
type State struct {
	ratings map[string]float64
	start   float64
}

// NewState returns an empty State whose unseen athletes rate start.
func NewState(start float64) *State {
	return &State{ratings: make(map[string]float64), start: start}
}

// Get returns the athlete's rating, or the starting rating if unseen.
// It never inserts.
func (s *State) Get(id string) float64 {
	if r, ok := s.ratings[id]; ok {
		return r
	}
	return s.start
}

// Set stores the athlete's rating.
func (s *State) Set(id string, r float64) {
	s.ratings[id] = r
}

// Has reports whether the athlete has a stored rating.
func (s *State) Has(id string) bool {
	_, ok := s.ratings[id]
	return ok
}

// Len is the number of athletes with a stored rating.
func (s *State) Len() int { return len(s.ratings) }

// IDs returns the rated athletes in ascending id order.
func (s *State) IDs() []string {
	ids := make([]string, 0, len(s.ratings))
	for id := range s.ratings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
