package chain

import "context"

// HandlerFunc is the signature of every event handler.
type HandlerFunc func(ctx context.Context, c *Context) error

// Funcs is a behavior built from optional handlers. Nil fields do not
// take part in the chain.
type Funcs struct {
	BehaviorName string

	BeforeSelectFunc HandlerFunc
	AfterSelectFunc  HandlerFunc
	BeforeInsertFunc HandlerFunc
	AfterInsertFunc  HandlerFunc
	BeforeUpdateFunc HandlerFunc
	AfterUpdateFunc  HandlerFunc
	BeforeDeleteFunc HandlerFunc
	AfterDeleteFunc  HandlerFunc
}

func (f Funcs) Name() string { return f.BehaviorName }

func (f Funcs) handlerFor(event Event) (handler, bool) {
	var fn HandlerFunc
	switch event {
	case BeforeSelect:
		fn = f.BeforeSelectFunc
	case AfterSelect:
		fn = f.AfterSelectFunc
	case BeforeInsert:
		fn = f.BeforeInsertFunc
	case AfterInsert:
		fn = f.AfterInsertFunc
	case BeforeUpdate:
		fn = f.BeforeUpdateFunc
	case AfterUpdate:
		fn = f.AfterUpdateFunc
	case BeforeDelete:
		fn = f.BeforeDeleteFunc
	case AfterDelete:
		fn = f.AfterDeleteFunc
	}
	if fn == nil {
		return nil, false
	}
	return handler(fn), true
}

type funcsBehavior interface {
	handlerFor(event Event) (handler, bool)
}
