package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// MultiPersister saves to every backend concurrently and loads from the first
// backend that has a snapshot, in the order given
type MultiPersister struct {
	backends []Persister
}

// NewMultiPersister creates a fan-out persister
func NewMultiPersister(backends ...Persister) *MultiPersister {
	return &MultiPersister{backends: backends}
}

// Name implements Persister
func (m *MultiPersister) Name() string {
	names := make([]string, len(m.backends))
	for i, b := range m.backends {
		names[i] = b.Name()
	}
	return strings.Join(names, "+")
}

// Backends returns the wrapped persisters
func (m *MultiPersister) Backends() []Persister {
	return m.backends
}

// Save writes to all backends. Every backend is attempted even after one fails.
func (m *MultiPersister) Save(ctx context.Context, data []byte) error {
	errs := make([]error, len(m.backends))

	var g errgroup.Group
	for i, b := range m.backends {
		g.Go(func() error {
			if err := b.Save(ctx, data); err != nil {
				errs[i] = fmt.Errorf("%s: %w", b.Name(), err)
				return errs[i]
			}
			return nil
		})
	}
	// Wait reports only the first failure; errs carries all of them.
	if err := g.Wait(); err != nil {
		return errors.Join(errs...)
	}
	return nil
}

// Load returns the first snapshot found. ErrNotFound is returned only when no
// backend has a snapshot and none failed.
func (m *MultiPersister) Load(ctx context.Context) ([]byte, error) {
	var errs []error
	for _, b := range m.backends {
		data, err := b.Load(ctx)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, ErrNotFound
}
