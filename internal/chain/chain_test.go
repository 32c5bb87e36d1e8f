package chain

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/rzpsarthak13/tablekit/internal/core"
)

// recorder implements only the insert events.
type recorder struct {
	name string
	log  *[]string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) BeforeInsert(ctx context.Context, c *Context) error {
	*r.log = append(*r.log, r.name+":before.insert")
	c.Data["seen_by"] = r.name
	return nil
}

func (r *recorder) AfterInsert(ctx context.Context, c *Context) error {
	*r.log = append(*r.log, r.name+":after.insert")
	return nil
}

func TestChainRunsInRegistrationOrder(t *testing.T) {
	var log []string
	ch := New(&recorder{name: "a", log: &log}, &recorder{name: "b", log: &log})

	c := &Context{Table: "users", Data: core.Record{}}
	got, err := ch.Run(context.Background(), BeforeInsert, c)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != c {
		t.Fatal("Run() must return the same context instance")
	}
	if len(log) != 2 || log[0] != "a:before.insert" || log[1] != "b:before.insert" {
		t.Errorf("log = %v", log)
	}
	if c.Data["seen_by"] != "b" {
		t.Errorf("seen_by = %v, want b", c.Data["seen_by"])
	}
}

func TestChainSkipsBehaviorsWithoutHandler(t *testing.T) {
	var log []string
	ch := New(&recorder{name: "a", log: &log})

	if _, err := ch.Run(context.Background(), BeforeDelete, &Context{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(log) != 0 {
		t.Errorf("recorder should not run for before.delete, log = %v", log)
	}
}

func TestChainStopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	var ran []string

	ch := New(
		Funcs{BehaviorName: "first", BeforeUpdateFunc: func(ctx context.Context, c *Context) error {
			ran = append(ran, "first")
			c.Table = "mutated"
			return nil
		}},
		Funcs{BehaviorName: "failing", BeforeUpdateFunc: func(ctx context.Context, c *Context) error {
			ran = append(ran, "failing")
			return boom
		}},
		Funcs{BehaviorName: "never", BeforeUpdateFunc: func(ctx context.Context, c *Context) error {
			ran = append(ran, "never")
			return nil
		}},
	)

	var logged bytes.Buffer
	log.SetOutput(&logged)
	defer log.SetOutput(os.Stderr)

	c := &Context{Table: "users"}
	_, err := ch.Run(context.Background(), BeforeUpdate, c)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if !strings.Contains(logged.String(), "[CHAIN] ERROR: Behavior failing failed on before.update for mutated") {
		t.Errorf("failure not logged: %q", logged.String())
	}
	if len(ran) != 2 {
		t.Errorf("ran = %v, want [first failing]", ran)
	}
	if c.Table != "mutated" {
		t.Error("mutations made before the failure must be kept")
	}
}

func TestChainFuncsNilFieldsAreSkipped(t *testing.T) {
	called := false
	ch := New(Funcs{BehaviorName: "partial", AfterSelectFunc: func(ctx context.Context, c *Context) error {
		called = true
		return nil
	}})

	if _, err := ch.Run(context.Background(), BeforeSelect, &Context{}); err != nil {
		t.Fatalf("Run(before.select) error = %v", err)
	}
	if called {
		t.Fatal("after.select handler ran for before.select")
	}
	if _, err := ch.Run(context.Background(), AfterSelect, &Context{}); err != nil {
		t.Fatalf("Run(after.select) error = %v", err)
	}
	if !called {
		t.Error("after.select handler did not run")
	}
}

func TestChainUnknownEvent(t *testing.T) {
	_, err := New().Run(context.Background(), Event("before.truncate"), &Context{})
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Run() error = %v, want ErrUnknownEvent", err)
	}
}

func TestChainCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var log []string
	_, err := New(&recorder{name: "a", log: &log}).Run(ctx, AfterInsert, &Context{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestChainAddRemoveNames(t *testing.T) {
	ch := New()
	ch.Add(Funcs{BehaviorName: "x"})
	ch.Add(nil)
	ch.Add(Funcs{BehaviorName: "y"})
	ch.Add(Funcs{BehaviorName: "x"})
	ch.Remove("x")

	if ch.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", ch.Len())
	}
	if names := ch.Names(); names[0] != "y" {
		t.Errorf("Names() = %v, want [y]", names)
	}
}
