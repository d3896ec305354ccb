package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured notification channels keyed by name.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Notifier
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Notifier)}
}

// Register adds n. Names are unique; a second channel of the same type is
// rejected.
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[n.Name()]; dup {
		return fmt.Errorf("notifier: duplicate channel %q", n.Name())
	}
	r.byName[n.Name()] = n
	return nil
}

func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	n, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("notifier: no channel %q", name)
	}
	return n, nil
}

// GetAll returns the channels ordered by name.
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	all := make([]Notifier, 0, len(r.byName))
	for _, n := range r.byName {
		all = append(all, n)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// NotifyAll delivers msg on every channel concurrently so one slow channel
// does not hold up the rest. The result maps channel name to its failure
// and is empty when every send succeeded.
func (r *Registry) NotifyAll(ctx context.Context, msg Message) map[string]error {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs = make(map[string]error)
	)
	for _, n := range r.GetAll() {
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			if err := n.Send(ctx, msg); err != nil {
				mu.Lock()
				errs[n.Name()] = err
				mu.Unlock()
			}
		}(n)
	}
	wg.Wait()
	return errs
}
