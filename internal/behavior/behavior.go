// Package behavior holds the stock chain behaviors and builds them by
// the names used in table configuration.
package behavior

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/tablekit/internal/chain"
	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/table"
)

// ErrUnknownBehavior is returned by Build for unregistered names.
var ErrUnknownBehavior = errors.New("unknown behavior")

// Deps are the shared resources behaviors are built from. Stores and
// the publisher are optional; a behavior that needs a missing one fails
// to build.
type Deps struct {
	Cache     core.KVStore
	CacheTTL  time.Duration
	Archive   core.KVStore
	Publisher core.ChangePublisher
	Limiter   *rate.Limiter

	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() func() time.Time {
	if d.Now != nil {
		return d.Now
	}
	return time.Now
}

// BuildFunc creates one behavior from deps.
type BuildFunc func(deps Deps) (chain.Behavior, error)

var (
	builders      = make(map[string]BuildFunc)
	buildersMutex sync.RWMutex
)

// Register binds a behavior name to its builder. Panics on an empty
// name or a duplicate.
func Register(name string, build BuildFunc) {
	if name == "" {
		panic("behavior name cannot be empty")
	}
	if build == nil {
		panic("behavior builder cannot be nil")
	}

	buildersMutex.Lock()
	defer buildersMutex.Unlock()
	if _, exists := builders[name]; exists {
		panic(fmt.Sprintf("behavior %q is already registered", name))
	}
	builders[name] = build
}

// Names lists registered behavior names in sorted order.
func Names() []string {
	buildersMutex.RLock()
	defer buildersMutex.RUnlock()
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the named behaviors in order.
func Build(names []string, deps Deps) ([]chain.Behavior, error) {
	out := make([]chain.Behavior, 0, len(names))
	for _, name := range names {
		buildersMutex.RLock()
		build, ok := builders[name]
		buildersMutex.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBehavior, name)
		}

		b, err := build(deps)
		if err != nil {
			return nil, fmt.Errorf("failed to build behavior %s: %w", name, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// rowKey is "<table>:<id>", or "" when the record carries no id.
func rowKey(tableName string, data core.Record) string {
	id, ok := data[table.IDField]
	if !ok || id == nil {
		return ""
	}
	return fmt.Sprintf("%s:%v", tableName, id)
}

func init() {
	Register(TimestampableName, func(deps Deps) (chain.Behavior, error) {
		return NewTimestampable(deps.now()), nil
	})
	Register(PersistedName, func(Deps) (chain.Behavior, error) {
		return Persisted{}, nil
	})
	Register(CacheableName, func(deps Deps) (chain.Behavior, error) {
		if deps.Cache == nil {
			return nil, fmt.Errorf("no cache store configured")
		}
		return NewCacheable(deps.Cache, deps.CacheTTL), nil
	})
	Register(ArchivableName, func(deps Deps) (chain.Behavior, error) {
		if deps.Archive == nil {
			return nil, fmt.Errorf("no archive store configured")
		}
		return NewArchivable(deps.Archive, deps.now()), nil
	})
	Register(AuditableName, func(deps Deps) (chain.Behavior, error) {
		if deps.Publisher == nil {
			return nil, fmt.Errorf("no audit publisher configured")
		}
		return NewAuditable(deps.Publisher, deps.now()), nil
	})
	Register(ThrottledName, func(deps Deps) (chain.Behavior, error) {
		if deps.Limiter == nil {
			return nil, fmt.Errorf("no throttle rate configured")
		}
		return NewThrottled(deps.Limiter), nil
	})
}
