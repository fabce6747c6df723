package feed

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jims1001/activityfeed/config"
	"github.com/jims1001/activityfeed/errs"
	"github.com/jims1001/activityfeed/internal/obs"
	"github.com/jims1001/activityfeed/provider"
)

// Registry holds every feed defined in one process, keyed by name. It is
// the generalized replacement for the source language's implicit
// module-level feed table: define() registers a feed once, and every
// later Feed()/For() call resolves against the same registered instance.
type Registry struct {
	mu     sync.RWMutex
	feeds  map[string]*Feed
	logger *zap.Logger
}

// RegistryOption configures a Registry at construction time.
type RegistryOption func(*Registry)

// WithLogger overrides the registry's logger.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry builds an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{feeds: make(map[string]*Feed), logger: obs.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Define registers a new feed named name, backed by p, configured by
// opts. Redefining an already-registered name is a ConfigError, matching
// spec.md §3's "feed names are unique per process" invariant.
func (r *Registry) Define(name string, p provider.Provider, opts map[string]any) (*Feed, error) {
	cfg, err := config.Decode(opts)
	if err != nil {
		return nil, err
	}
	return r.register(name, p, cfg)
}

// DefineWithOptions registers a new feed the same way Define does, but
// from an ordered key/value list that can detect duplicate keys (see
// config.DecodeOptions).
func (r *Registry) DefineWithOptions(name string, p provider.Provider, raw []config.Option) (*Feed, error) {
	cfg, err := config.DecodeOptions(raw)
	if err != nil {
		return nil, err
	}
	return r.register(name, p, cfg)
}

func (r *Registry) register(name string, p provider.Provider, cfg config.FeedConfig) (*Feed, error) {
	if name == "" {
		return nil, errs.Argumentf("feed name must not be empty")
	}
	if p == nil {
		return nil, errs.Argumentf("feed %q: provider must not be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.feeds[name]; exists {
		return nil, errs.Configf("feed %q is already defined", name)
	}
	f := newFeed(name, cfg, p)
	r.feeds[name] = f
	r.logger.Info("feed defined", zap.String("feed", name), zap.String("namespace", cfg.Namespace))
	return f, nil
}

// Feed looks up a previously defined feed by name.
func (r *Registry) Feed(name string) (*Feed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.feeds[name]
	if !ok {
		return nil, errs.New(errs.NotFound, "feed "+name+" is not defined")
	}
	return f, nil
}

// Feeds returns every registered feed name, sorted, for introspection.
func (r *Registry) Feeds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.feeds))
	for name := range r.feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the resolved configuration of a registered feed.
func (r *Registry) Describe(name string) (config.FeedConfig, error) {
	f, err := r.Feed(name)
	if err != nil {
		return config.FeedConfig{}, err
	}
	return f.Config(), nil
}
