package pep2html

import (
	"runtime"
	"sync"

	"github.com/alnah/go-pep2html/internal/markup"
	"github.com/alnah/go-pep2html/internal/render"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps the automatic size; explicit worker counts are not
	// clamped.
	MaxPoolSize = 32
)

// engine pairs a body parser with an HTML renderer. Neither is safe for
// concurrent use, so each engine serves one document at a time.
type engine struct {
	markup   *markup.Engine
	renderer *render.Renderer
}

// newEngine creates a parser/renderer pair.
func newEngine() *engine {
	return &engine{
		markup:   markup.New(),
		renderer: render.New(),
	}
}

// enginePool manages a fixed set of engines for parallel document builds.
// Engines are created lazily on first acquire.
type enginePool struct {
	size    int
	sem     chan *engine
	mu      sync.Mutex
	created int
}

// newEnginePool creates a pool with capacity for n engines.
func newEnginePool(n int) *enginePool {
	if n < 1 {
		n = 1
	}

	return &enginePool{
		size: n,
		sem:  make(chan *engine, n),
	}
}

// acquire gets an engine from the pool, creating one if needed.
// Blocks if all engines are in use.
func (p *enginePool) acquire() *engine {
	// Try to get an existing engine (non-blocking)
	select {
	case eng := <-p.sem:
		return eng
	default:
	}

	// Check if we can create a new engine
	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		// Create new engine outside the lock
		return newEngine()
	}
	p.mu.Unlock()

	// All engines created, wait for one to be released
	return <-p.sem
}

// release returns an engine to the pool.
func (p *enginePool) release(eng *engine) {
	p.sem <- eng
}

// Size returns the pool capacity.
func (p *enginePool) Size() int {
	return p.size
}

// ResolvePoolSize determines the worker count for a build.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolvePoolSize(workers int) int {
	// Explicit value takes priority
	if workers > 0 {
		return workers
	}

	// Auto-calculate from GOMAXPROCS (adjusted by automaxprocs for containers)
	n := runtime.GOMAXPROCS(0)

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
