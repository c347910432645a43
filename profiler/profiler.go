package profiler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"regexp"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"callScope/resolver"
	"callScope/stats"
)

// DefaultMaxDepth bounds namespace traversal when no other depth is configured.
const DefaultMaxDepth = 10

var (
	// ErrInvalidDepth is returned for a negative maximum depth.
	ErrInvalidDepth = errors.New("invalid max depth")

	// ErrNoRoot is returned by New when no root scope is given.
	ErrNoRoot = errors.New("root scope is required")
)

// Option configures a Profiler.
type Option func(*Profiler)

// WithMaxDepth sets the traversal depth used by Start.
func WithMaxDepth(depth int) Option {
	return func(p *Profiler) { p.maxDepth = depth }
}

// WithClock replaces time.Now as the source of timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) { p.now = now }
}

// WithLogger sets the logger for install and restore events.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithOutput sets where Report writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Profiler) { p.output = w }
}

// WithExclude skips every path whose canonical text matches re, together
// with everything below it.
func WithExclude(re *regexp.Regexp) Option {
	return func(p *Profiler) { p.exclude = re }
}

// Profiler instruments the functions reachable from its targets and owns all
// counters, the call stacks and the call graph they feed.
type Profiler struct {
	root     any
	targets  []resolver.Path
	maxDepth int
	now      func() time.Time
	logger   *zap.Logger
	output   io.Writer
	exclude  *regexp.Regexp

	mu      sync.Mutex
	entries map[string]*entry
	order   []*entry           // Registration order
	stacks  map[int64][]*entry // Active invocations per goroutine, innermost last
	graph   callGraph
	since   time.Time
}

// entry is the wrapper record of one instrumented path.
type entry struct {
	key         string
	path        resolver.Path
	constructor bool // Slot is the New func of a resolver.Constructor
	original    any
	fn          reflect.Value
	replacement any
	installed   bool
	symbol      stats.Symbol

	count int64
	total time.Duration
	self  time.Duration
}

// New creates a Profiler for the given target paths, resolved against root
// when Start is called.
func New(root any, targets []string, opts ...Option) (*Profiler, error) {
	if root == nil {
		return nil, ErrNoRoot
	}

	p := &Profiler{
		root:     root,
		maxDepth: DefaultMaxDepth,
		now:      time.Now,
		logger:   zap.NewNop(),
		output:   os.Stdout,
		entries:  make(map[string]*entry),
		stacks:   make(map[int64][]*entry),
		graph:    make(callGraph),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxDepth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, p.maxDepth)
	}

	for _, target := range targets {
		path, err := resolver.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("parsing target: %w", err)
		}
		p.targets = append(p.targets, path)
	}

	return p, nil
}

// Start wraps every target using the configured maximum depth.
// Targets that fail to resolve are reported in the returned error; the
// remaining targets are still wrapped. Paths wrapped by an earlier Start and
// still installed are left as they are.
func (p *Profiler) Start() error {
	p.mu.Lock()
	depth := p.maxDepth
	p.mu.Unlock()

	return p.StartWithDepth(depth)
}

// StartWithDepth overrides the maximum depth, then behaves like Start.
func (p *Profiler) StartWithDepth(maxDepth int) error {
	if maxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, maxDepth)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.maxDepth = maxDepth
	if p.since.IsZero() {
		p.since = p.now()
	}

	var errs error
	for _, target := range p.targets {
		if err := p.wrap(target, 0); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("wrapping %s: %w", target, err))
		}
	}

	p.logger.Info("Instrumentation started",
		zap.Int("targets", len(p.targets)),
		zap.Int("installed", p.installed()),
		zap.Int("maxDepth", maxDepth))

	return errs
}

// Stop restores the original functions. A slot is restored only if it still
// holds the replacement installed by this profiler; otherwise it is skipped.
// Counters are kept, and Start may be called again.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs error
	restored, skipped := 0, 0
	for _, e := range p.order {
		if !e.installed {
			continue
		}

		slot, err := p.slot(e)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("restoring %s: %w", e.key, err))
			continue
		}

		e.installed = false
		if !resolver.Same(slot.Value, e.replacement) {
			p.logger.Debug("Slot changed since install, not restoring", zap.String("path", e.key))
			skipped++
			continue
		}
		if err := slot.Set(e.original); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("restoring %s: %w", e.key, err))
			continue
		}
		restored++
	}

	p.logger.Info("Instrumentation stopped",
		zap.Int("restored", restored),
		zap.Int("skipped", skipped))

	return errs
}

// slot re-resolves the location an entry was installed at.
func (p *Profiler) slot(e *entry) (*resolver.Binding, error) {
	b, err := resolver.Resolve(p.root, e.path)
	if err != nil {
		return nil, err
	}
	if ctor, ok := b.Value.(*resolver.Constructor); ok && e.constructor {
		return resolver.Lookup(ctor, resolver.MemberNew)
	}
	return b, nil
}

// installed counts entries whose replacement is currently in place.
func (p *Profiler) installed() int {
	n := 0
	for _, e := range p.order {
		if e.installed {
			n++
		}
	}
	return n
}
