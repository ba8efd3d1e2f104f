// Package sink writes classified layers to the spatial store. Every write
// replaces the whole layer.
package sink

import (
	"context"
	"sync"

	"github.com/EmpoweredVote/geoharvest/internal/models"
)

// Sink replaces the contents of a named layer with rows.
type Sink interface {
	Replace(ctx context.Context, layer string, rows []*models.GeoRow) error
}

// MemorySink keeps the last rows written per layer. It is safe for
// concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	layers map[string][]*models.GeoRow
	writes int
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{layers: make(map[string][]*models.GeoRow)}
}

func (m *MemorySink) Replace(ctx context.Context, layer string, rows []*models.GeoRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]*models.GeoRow, len(rows))
	copy(cp, rows)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.layers[layer] = cp
	m.writes++
	return nil
}

// Layer returns the rows last written to layer and whether it was written.
func (m *MemorySink) Layer(layer string) ([]*models.GeoRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.layers[layer]
	return rows, ok
}

// Writes returns the number of Replace calls that succeeded.
func (m *MemorySink) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
