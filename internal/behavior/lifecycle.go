package behavior

import (
	"context"
	"time"

	"github.com/rzpsarthak13/tablekit/internal/chain"
)

const (
	TimestampableName = "timestampable"
	PersistedName     = "persisted"

	CreatedField  = "created_on"
	ModifiedField = "modified_on"
)

// Timestampable stamps creation and modification times on writes.
// Fields the row already sets on insert are left alone.
type Timestampable struct {
	CreatedField  string
	ModifiedField string
	Now           func() time.Time
}

func NewTimestampable(now func() time.Time) *Timestampable {
	return &Timestampable{CreatedField: CreatedField, ModifiedField: ModifiedField, Now: now}
}

func (t *Timestampable) Name() string { return TimestampableName }

func (t *Timestampable) BeforeInsert(_ context.Context, c *chain.Context) error {
	now := t.Now().UTC()
	if c.Data[t.CreatedField] == nil {
		c.Data[t.CreatedField] = now
	}
	if c.Data[t.ModifiedField] == nil {
		c.Data[t.ModifiedField] = now
	}
	return nil
}

func (t *Timestampable) BeforeUpdate(_ context.Context, c *chain.Context) error {
	c.Data[t.ModifiedField] = t.Now().UTC()
	return nil
}

// Persisted marks a row as stored once its insert succeeds, so the next
// Save updates it.
type Persisted struct{}

func (Persisted) Name() string { return PersistedName }

func (Persisted) AfterInsert(_ context.Context, c *chain.Context) error {
	if c.Subject != nil {
		c.Subject.SetNew(false)
	}
	return nil
}
