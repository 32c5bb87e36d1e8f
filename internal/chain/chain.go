// Package chain runs ordered behaviors around table operations.
//
// A behavior is any value with a Name. It takes part in an event by
// implementing the matching interface (BeforeInserter, AfterSelecter, ...);
// the chain skips behaviors that do not. Funcs adapts optional function
// fields into a behavior.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/rzpsarthak13/tablekit/internal/core"
)

// Event names a point in a table operation.
type Event string

const (
	BeforeSelect Event = "before.select"
	AfterSelect  Event = "after.select"
	BeforeInsert Event = "before.insert"
	AfterInsert  Event = "after.insert"
	BeforeUpdate Event = "before.update"
	AfterUpdate  Event = "after.update"
	BeforeDelete Event = "before.delete"
	AfterDelete  Event = "after.delete"
)

// ErrUnknownEvent is returned by Run for event names outside the list above.
var ErrUnknownEvent = errors.New("unknown chain event")

// Subject is the row an operation acts on.
type Subject interface {
	IsNew() bool
	SetNew(bool)
}

// Context is the mutable state passed through one operation. Behaviors
// change its fields but never replace it.
type Context struct {
	// Table is the physical table name.
	Table string

	// Query is the statement the table will execute. Before hooks may replace it.
	Query core.Query

	// Data is the subject row's data for writes, or the single record for
	// a row select. It is the row's own map.
	Data core.Record

	// Rows holds every record of a rowset select.
	Rows []core.Record

	// Fields lists the external name of every table column on selects, so
	// behaviors can tell a full row from a narrow projection.
	Fields []string

	// Result is set once the adapter has executed the query.
	Result *core.Result

	// Subject is the row being written. Nil for selects.
	Subject Subject
}

// Behavior is the base contract every chain member satisfies.
type Behavior interface {
	Name() string
}

type BeforeSelecter interface {
	BeforeSelect(ctx context.Context, c *Context) error
}

type AfterSelecter interface {
	AfterSelect(ctx context.Context, c *Context) error
}

type BeforeInserter interface {
	BeforeInsert(ctx context.Context, c *Context) error
}

type AfterInserter interface {
	AfterInsert(ctx context.Context, c *Context) error
}

type BeforeUpdater interface {
	BeforeUpdate(ctx context.Context, c *Context) error
}

type AfterUpdater interface {
	AfterUpdate(ctx context.Context, c *Context) error
}

type BeforeDeleter interface {
	BeforeDelete(ctx context.Context, c *Context) error
}

type AfterDeleter interface {
	AfterDelete(ctx context.Context, c *Context) error
}

type handler func(ctx context.Context, c *Context) error

// lookup returns b's handler for event, or nil when b does not take part.
func lookup(b Behavior, event Event) (handler, bool) {
	if f, ok := b.(funcsBehavior); ok {
		return f.handlerFor(event)
	}
	switch event {
	case BeforeSelect:
		if h, ok := b.(BeforeSelecter); ok {
			return h.BeforeSelect, true
		}
	case AfterSelect:
		if h, ok := b.(AfterSelecter); ok {
			return h.AfterSelect, true
		}
	case BeforeInsert:
		if h, ok := b.(BeforeInserter); ok {
			return h.BeforeInsert, true
		}
	case AfterInsert:
		if h, ok := b.(AfterInserter); ok {
			return h.AfterInsert, true
		}
	case BeforeUpdate:
		if h, ok := b.(BeforeUpdater); ok {
			return h.BeforeUpdate, true
		}
	case AfterUpdate:
		if h, ok := b.(AfterUpdater); ok {
			return h.AfterUpdate, true
		}
	case BeforeDelete:
		if h, ok := b.(BeforeDeleter); ok {
			return h.BeforeDelete, true
		}
	case AfterDelete:
		if h, ok := b.(AfterDeleter); ok {
			return h.AfterDelete, true
		}
	}
	return nil, false
}

func knownEvent(e Event) bool {
	switch e {
	case BeforeSelect, AfterSelect, BeforeInsert, AfterInsert,
		BeforeUpdate, AfterUpdate, BeforeDelete, AfterDelete:
		return true
	}
	return false
}

// Chain is an ordered list of behaviors.
type Chain struct {
	mu        sync.RWMutex
	behaviors []Behavior
}

// New creates a chain holding behaviors in the given order.
func New(behaviors ...Behavior) *Chain {
	c := &Chain{behaviors: make([]Behavior, 0, len(behaviors))}
	for _, b := range behaviors {
		c.Add(b)
	}
	return c
}

// Add appends b. Behaviors run in the order they were added.
func (ch *Chain) Add(b Behavior) {
	if b == nil {
		return
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.behaviors = append(ch.behaviors, b)
}

// Remove drops every behavior with the given name.
func (ch *Chain) Remove(name string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	kept := ch.behaviors[:0]
	for _, b := range ch.behaviors {
		if b.Name() != name {
			kept = append(kept, b)
		}
	}
	ch.behaviors = kept
}

// Len returns the number of behaviors.
func (ch *Chain) Len() int {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return len(ch.behaviors)
}

// Names lists behavior names in run order.
func (ch *Chain) Names() []string {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	names := make([]string, len(ch.behaviors))
	for i, b := range ch.behaviors {
		names[i] = b.Name()
	}
	return names
}

// Run calls every behavior that handles event, in order, with the same
// context. The first error stops the run; earlier mutations are kept.
func (ch *Chain) Run(ctx context.Context, event Event, c *Context) (*Context, error) {
	if !knownEvent(event) {
		return c, fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}

	ch.mu.RLock()
	behaviors := make([]Behavior, len(ch.behaviors))
	copy(behaviors, ch.behaviors)
	ch.mu.RUnlock()

	for _, b := range behaviors {
		h, ok := lookup(b, event)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return c, err
		}
		if err := h(ctx, c); err != nil {
			log.Printf("[CHAIN] ERROR: Behavior %s failed on %s for %s: %v", b.Name(), event, c.Table, err)
			return c, fmt.Errorf("behavior %s failed on %s: %w", b.Name(), event, err)
		}
	}
	return c, nil
}
