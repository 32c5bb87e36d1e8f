package behavior

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/tablekit/internal/chain"
	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/table"
)

const (
	AuditableName = "auditable"
	ThrottledName = "throttled"
)

// Auditable publishes a change event after every successful write.
type Auditable struct {
	publisher core.ChangePublisher
	now       func() time.Time
}

func NewAuditable(publisher core.ChangePublisher, now func() time.Time) *Auditable {
	return &Auditable{publisher: publisher, now: now}
}

func (b *Auditable) Name() string { return AuditableName }

func (b *Auditable) AfterInsert(ctx context.Context, c *chain.Context) error {
	return b.publish(ctx, core.OperationInsert, c)
}

func (b *Auditable) AfterUpdate(ctx context.Context, c *chain.Context) error {
	return b.publish(ctx, core.OperationUpdate, c)
}

func (b *Auditable) AfterDelete(ctx context.Context, c *chain.Context) error {
	return b.publish(ctx, core.OperationDelete, c)
}

func (b *Auditable) publish(ctx context.Context, op core.ChangeOperation, c *chain.Context) error {
	return b.publisher.Publish(ctx, &core.ChangeEvent{
		Table:     c.Table,
		Operation: op,
		Key:       c.Data[table.IDField],
		Data:      c.Data.Clone(),
		Timestamp: b.now().UTC(),
	})
}

// Throttled waits on a shared rate limiter before every operation.
type Throttled struct {
	limiter *rate.Limiter
}

func NewThrottled(limiter *rate.Limiter) *Throttled {
	return &Throttled{limiter: limiter}
}

func (b *Throttled) Name() string { return ThrottledName }

func (b *Throttled) BeforeSelect(ctx context.Context, _ *chain.Context) error {
	return b.limiter.Wait(ctx)
}

func (b *Throttled) BeforeInsert(ctx context.Context, _ *chain.Context) error {
	return b.limiter.Wait(ctx)
}

func (b *Throttled) BeforeUpdate(ctx context.Context, _ *chain.Context) error {
	return b.limiter.Wait(ctx)
}

func (b *Throttled) BeforeDelete(ctx context.Context, _ *chain.Context) error {
	return b.limiter.Wait(ctx)
}
