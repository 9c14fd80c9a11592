package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/pkg/logger"
)

// DepartmentLister loads the full department list
type DepartmentLister interface {
	ListDepartments(ctx context.Context) ([]domain.Department, error)
}

// Cache holds the process-wide graph and rebuilds it lazily after
// Invalidate.
type Cache struct {
	mu     sync.RWMutex
	source DepartmentLister
	graph  *Graph
}

// NewCache creates a graph cache backed by source
func NewCache(source DepartmentLister) *Cache {
	return &Cache{source: source}
}

// Graph returns the cached graph, loading it if needed
func (c *Cache) Graph(ctx context.Context) (*Graph, error) {
	c.mu.RLock()
	g := c.graph
	c.mu.RUnlock()
	if g != nil {
		return g, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.graph != nil {
		return c.graph, nil
	}

	departments, err := c.source.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load departments: %w", err)
	}
	g, err = Build(departments)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("Department tree is inconsistent")
		return nil, err
	}

	logger.Debug(ctx).Int("departments", g.Len()).Msg("Department graph loaded")
	c.graph = g
	return g, nil
}

// Invalidate drops the cached graph
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.graph = nil
	c.mu.Unlock()
}
