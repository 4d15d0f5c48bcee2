package store

import (
	"context"
	"sync"
)

// LocalNotifier signals listeners within one process.
type LocalNotifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[string]map[int]chan struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[string]map[int]chan struct{})}
}

func (n *LocalNotifier) Publish(ctx context.Context, root string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.listeners[root] {
		signal(ch)
	}
	return nil
}

func (n *LocalNotifier) Listen(ctx context.Context, root string) (<-chan struct{}, func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan struct{}, 1)
	if n.listeners[root] == nil {
		n.listeners[root] = make(map[int]chan struct{})
	}
	n.listeners[root][id] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners[root], id)
			if len(n.listeners[root]) == 0 {
				delete(n.listeners, root)
			}
		})
	}
	return ch, stop, nil
}

// signal coalesces pending notifications into one.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
