package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMinMatches keeps athletes with fewer processed matches off the board.
func WithMinMatches(n int) Option {
	return func(s *TreapStore) {
		if n >= 0 {
			s.minMatches = n
		}
	}
}
