// Package store is the hierarchical document store the chat protocol is
// persisted in. Nodes are addressed by slash separated paths; values are
// untyped trees of maps, lists, strings, bools and numbers. There is no
// append and no transaction spanning two paths.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound    = errors.New("store: node not found")
	ErrMalformed   = errors.New("store: malformed node")
	ErrInvalidPath = errors.New("store: invalid path")
)

// Snapshot is the value of a node at the time a change was observed.
// Exists is false when the node is absent.
type Snapshot struct {
	Path   string
	Value  interface{}
	Exists bool
}

type Store interface {
	Get(ctx context.Context, path string) (interface{}, error)
	Set(ctx context.Context, path string, value interface{}) error
	Subscribe(ctx context.Context, path string, fn func(Snapshot)) (*Subscription, error)
}

// Backend persists node values. Get returns ErrNotFound for absent nodes.
// A Set with a nil value removes the node.
type Backend interface {
	Get(ctx context.Context, path string) (interface{}, error)
	Set(ctx context.Context, path string, value interface{}) error
}

// RootLister is implemented by backends that can enumerate top level nodes.
type RootLister interface {
	Roots(ctx context.Context) ([]string, error)
}

// Notifier fans out change signals per root segment.
type Notifier interface {
	Publish(ctx context.Context, root string) error
	Listen(ctx context.Context, root string) (<-chan struct{}, func(), error)
}

var _ Store = (*DocumentStore)(nil)

type DocumentStore struct {
	backend  Backend
	notifier Notifier
	logger   zerolog.Logger
}

func New(backend Backend, notifier Notifier, logger zerolog.Logger) *DocumentStore {
	if notifier == nil {
		notifier = NewLocalNotifier()
	}
	return &DocumentStore{
		backend:  backend,
		notifier: notifier,
		logger:   logger.With().Str("component", "store").Logger(),
	}
}

func (s *DocumentStore) Get(ctx context.Context, path string) (interface{}, error) {
	if _, err := SplitPath(path); err != nil {
		return nil, err
	}
	return s.backend.Get(ctx, path)
}

func (s *DocumentStore) Set(ctx context.Context, path string, value interface{}) error {
	segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, path, value); err != nil {
		return err
	}
	if err := s.notifier.Publish(ctx, segments[0]); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("change notification failed")
	}
	return nil
}

// Roots lists the top level nodes when the backend supports it.
func (s *DocumentStore) Roots(ctx context.Context) ([]string, error) {
	lister, ok := s.backend.(RootLister)
	if !ok {
		return nil, errors.New("store: backend cannot list roots")
	}
	return lister.Roots(ctx)
}

// Subscribe delivers the current value of path and then a fresh value after
// every change under the same root segment. Unchanged values are not
// redelivered. fn is called from a single goroutine.
func (s *DocumentStore) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (*Subscription, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	signals, stop, err := s.notifier.Listen(ctx, segments[0])
	if err != nil {
		cancel()
		return nil, fmt.Errorf("listen %s: %w", segments[0], err)
	}

	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		defer stop()

		var last *Snapshot
		deliver := func() {
			snap, err := s.snapshot(ctx, path)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error().Err(err).Str("path", path).Msg("subscription read failed")
				}
				return
			}
			if last != nil && last.Exists == snap.Exists && reflect.DeepEqual(last.Value, snap.Value) {
				return
			}
			last = &snap
			fn(snap)
		}

		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				deliver()
			}
		}
	}()

	return sub, nil
}

func (s *DocumentStore) snapshot(ctx context.Context, path string) (Snapshot, error) {
	value, err := s.backend.Get(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return Snapshot{Path: path}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Path: path, Value: value, Exists: true}, nil
}

// Subscription is a live observation of one path.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel stops delivery and waits for the delivering goroutine to exit.
// It must not be called from inside the subscription callback.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func SplitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	segments := strings.Split(trimmed, "/")
	for _, seg := range segments {
		if seg == "" || strings.ContainsAny(seg, ".#$[]") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// Normalize converts value into the canonical tree representation shared
// by every backend: map[string]interface{}, []interface{}, string, bool,
// float64 and nil. The result shares no memory with value.
func Normalize(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}
