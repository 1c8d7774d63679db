package dedupe

// Option configures the in-memory guard.
type Option func(*memoryGuard)

// WithMaxSize bounds how many pairs are remembered. Zero or less means no
// bound.
func WithMaxSize(maxSize int) Option {
	return func(g *memoryGuard) {
		g.maxSize = maxSize
	}
}
