// Package persistence moves exported monitoring log snapshots in and out of
// external storage. Backends implement Persister; wrappers add metrics, circuit
// breaking and fan-out.
package persistence

import (
	"context"
	"errors"

	"github.com/ajitpratap0/riskmonitor/internal/metrics"
)

// ErrNotFound is returned by Load when the backend holds no snapshot
var ErrNotFound = errors.New("snapshot not found")

// Persister stores one exported monitoring log snapshot
type Persister interface {
	// Name identifies the backend in logs and metric labels
	Name() string
	Save(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, error)
}

type instrumented struct {
	Persister
}

// WithMetrics records every Save and Load against the persistence collectors.
// A not-found Load counts as a success.
func WithMetrics(p Persister) Persister {
	return instrumented{Persister: p}
}

func (i instrumented) Save(ctx context.Context, data []byte) error {
	err := i.Persister.Save(ctx, data)
	metrics.RecordPersistence(i.Name(), metrics.OperationSave, err)
	return err
}

func (i instrumented) Load(ctx context.Context) ([]byte, error) {
	data, err := i.Persister.Load(ctx)
	recorded := err
	if errors.Is(err, ErrNotFound) {
		recorded = nil
	}
	metrics.RecordPersistence(i.Name(), metrics.OperationLoad, recorded)
	return data, err
}
