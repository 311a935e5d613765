// Package arena implements the bump allocator that owns every Column
// produced during one proof's first/final round evaluation, per spec.md's
// Design Notes §9 ("global RNG / arena singletons -> explicit bump arena
// passed as a parameter"). There is no process-wide arena state; one Arena
// is created per Prove/Verify call and discarded when it returns.
package arena

// Arena owns a set of allocations for the lifetime of a single proof. It is
// not safe for concurrent use by multiple proofs; each Prove/Verify call
// must create its own.
type Arena struct {
	columns []any
	freed   bool
}

// New creates an empty arena.
func New() *Arena {
	return &Arena{}
}

// Put registers v (typically a materialized Column) as owned by the arena
// and returns it unchanged, so call sites can write
// `col := arena.Put(a, computeColumn(...))`.
func Put[T any](a *Arena, v T) T {
	if a.freed {
		panic("arena: use after Release")
	}
	a.columns = append(a.columns, v)
	return v
}

// Release drops every reference the arena holds, allowing the garbage
// collector to reclaim them. Calling Put after Release panics.
func (a *Arena) Release() {
	a.columns = nil
	a.freed = true
}

// Len reports how many values the arena currently owns, for tests.
func (a *Arena) Len() int { return len(a.columns) }
