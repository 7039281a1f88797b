package cache

// Keyer generates cache keys for the cacheable operations.
type Keyer interface {
	// GraphKey generates a key for a stored graph, keyed by content hash.
	GraphKey(graphHash string) string

	// MatchKey generates a key for a set of match results.
	MatchKey(graphHash, patternHash string, opts MatchKeyOpts) string
}

// MatchKeyOpts captures the inputs beyond the two graphs that influence
// the result of a matching call.
type MatchKeyOpts struct {
	// TypingHash is the hash of the typing constraints, empty when the
	// search was unconstrained.
	TypingHash string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// GraphKey generates a key for a stored graph.
func (k *DefaultKeyer) GraphKey(graphHash string) string {
	return hashKey("graph", graphHash)
}

// MatchKey generates a key for a set of match results.
func (k *DefaultKeyer) MatchKey(graphHash, patternHash string, opts MatchKeyOpts) string {
	return hashKey("match", graphHash, patternHash, opts.TypingHash)
}

// ScopedKeyer wraps a Keyer with a prefix, isolating cache namespaces when
// several hierarchies share one backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// GraphKey generates a prefixed key for a stored graph.
func (k *ScopedKeyer) GraphKey(graphHash string) string {
	return k.prefix + k.inner.GraphKey(graphHash)
}

// MatchKey generates a prefixed key for a set of match results.
func (k *ScopedKeyer) MatchKey(graphHash, patternHash string, opts MatchKeyOpts) string {
	return k.prefix + k.inner.MatchKey(graphHash, patternHash, opts)
}
