package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStore() *DocumentStore {
	return New(NewMemoryBackend(), NewLocalNotifier(), zerolog.Nop())
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	if _, err := s.Get(ctx, "alice-example-com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	user := map[string]interface{}{"firstName": "Alice", "lastName": "Smith"}
	if err := s.Set(ctx, "alice-example-com", user); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := s.Set(ctx, "alice-example-com/conversations", []interface{}{map[string]interface{}{"id": "c1"}}); err != nil {
		t.Fatalf("Set nested error: %v", err)
	}

	got, err := s.Get(ctx, "alice-example-com")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	want := map[string]interface{}{
		"firstName":     "Alice",
		"lastName":      "Smith",
		"conversations": []interface{}{map[string]interface{}{"id": "c1"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tree %#v", got)
	}
}

func TestMemoryValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	list := []interface{}{"a"}
	if err := s.Set(ctx, "node/list", list); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	list[0] = "mutated"

	got, _ := s.Get(ctx, "node/list")
	got.([]interface{})[0] = "mutated again"

	again, _ := s.Get(ctx, "node/list")
	if !reflect.DeepEqual(again, []interface{}{"a"}) {
		t.Fatalf("stored value leaked: %#v", again)
	}
}

func TestSetNilRemoves(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_ = s.Set(ctx, "root/a", "x")
	_ = s.Set(ctx, "root/b", "y")
	if err := s.Set(ctx, "root/a", nil); err != nil {
		t.Fatalf("Set nil error: %v", err)
	}
	if _, err := s.Get(ctx, "root/a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if v, _ := s.Get(ctx, "root/b"); v != "y" {
		t.Fatalf("sibling removed: %v", v)
	}
}

func TestSetReplacesScalarIntermediate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_ = s.Set(ctx, "root/a", "scalar")
	if err := s.Set(ctx, "root/a/b", true); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if v, err := s.Get(ctx, "root/a/b"); err != nil || v != true {
		t.Fatalf("unexpected value %v err %v", v, err)
	}
}

func TestInvalidPaths(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for _, p := range []string{"", "/", "a//b", "a.b", "a/#"} {
		if err := s.Set(ctx, p, "x"); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath for %q, got %v", p, err)
		}
	}
}

func TestSubscribeDeliversChangesUntilCancel(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	snaps := make(chan Snapshot, 10)
	sub, err := s.Subscribe(ctx, "conv/messages", func(snap Snapshot) {
		snaps <- snap
	})
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	first := receive(t, snaps)
	if first.Exists {
		t.Fatalf("expected absent initial snapshot, got %#v", first)
	}

	if err := s.Set(ctx, "conv/messages", []interface{}{"m1"}); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	second := receive(t, snaps)
	if !second.Exists || !reflect.DeepEqual(second.Value, []interface{}{"m1"}) {
		t.Fatalf("unexpected snapshot %#v", second)
	}

	// A sibling write under the same root does not redeliver an unchanged value.
	_ = s.Set(ctx, "conv/other", "x")
	_ = s.Set(ctx, "conv/messages", []interface{}{"m1", "m2"})
	third := receive(t, snaps)
	if !reflect.DeepEqual(third.Value, []interface{}{"m1", "m2"}) {
		t.Fatalf("unexpected snapshot %#v", third)
	}

	sub.Cancel()
	_ = s.Set(ctx, "conv/messages", []interface{}{"m1", "m2", "m3"})
	select {
	case snap := <-snaps:
		t.Fatalf("delivery after cancel: %#v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestStore()

	sub, err := s.Subscribe(ctx, "root", func(Snapshot) {})
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop")
	}
	sub.Cancel()
}

func TestLocalNotifierCoalesces(t *testing.T) {
	ctx := context.Background()
	n := NewLocalNotifier()
	ch, stop, err := n.Listen(ctx, "root")
	if err != nil {
		t.Fatalf("Listen error: %v", err)
	}
	defer stop()

	for i := 0; i < 5; i++ {
		_ = n.Publish(ctx, "root")
	}
	_ = n.Publish(ctx, "elsewhere")

	<-ch
	select {
	case <-ch:
		t.Fatal("expected a single pending signal")
	default:
	}

	stop()
	_ = n.Publish(ctx, "root")
	select {
	case <-ch:
		t.Fatal("signal after stop")
	default:
	}
}

func TestRoots(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_ = s.Set(ctx, "users", []interface{}{})
	_ = s.Set(ctx, "bob-example-com", map[string]interface{}{"firstName": "Bob"})

	roots, err := s.Roots(ctx)
	if err != nil {
		t.Fatalf("Roots error: %v", err)
	}
	if !reflect.DeepEqual(roots, []string{"bob-example-com", "users"}) {
		t.Fatalf("unexpected roots %v", roots)
	}
}

func TestDocumentPath(t *testing.T) {
	expr, names := documentPath([]string{"conversations"})
	if expr != "#doc.#p0" {
		t.Fatalf("unexpected expression %s", expr)
	}
	if names["#doc"] != "doc" || names["#p0"] != "conversations" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestRedisChannel(t *testing.T) {
	if got := RedisChannel("conversation_m1"); got != "chat:node:conversation_m1" {
		t.Fatalf("unexpected channel %s", got)
	}
}

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}
