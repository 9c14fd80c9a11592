package graph

import (
	"sort"

	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/pkg/apperr"
)

// IDSet is a set of department ids
type IDSet map[uint]struct{}

// NewIDSet builds a set from ids
func NewIDSet(ids ...uint) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set
func (s IDSet) Contains(id uint) bool {
	_, ok := s[id]
	return ok
}

// Intersects reports whether any of ids is in the set
func (s IDSet) Intersects(ids []uint) bool {
	for _, id := range ids {
		if s.Contains(id) {
			return true
		}
	}
	return false
}

// Slice returns the ids in ascending order
func (s IDSet) Slice() []uint {
	out := make([]uint, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type node struct {
	parentID *uint
	active   bool
}

// Graph is an immutable snapshot of the department forest with the
// descendant closure of every node precomputed.
type Graph struct {
	nodes       map[uint]node
	children    map[uint][]uint
	descendants map[uint]IDSet
}

// Build validates the departments and computes their closures. A parent
// reference to a missing department or a cycle fails with a structural error.
func Build(departments []domain.Department) (*Graph, error) {
	g := &Graph{
		nodes:       make(map[uint]node, len(departments)),
		children:    make(map[uint][]uint),
		descendants: make(map[uint]IDSet, len(departments)),
	}

	for _, d := range departments {
		g.nodes[d.ID] = node{parentID: d.ParentID, active: d.Active}
	}

	for id, n := range g.nodes {
		if n.parentID == nil {
			continue
		}
		if _, ok := g.nodes[*n.parentID]; !ok {
			return nil, apperr.Structural("department %d references missing parent %d", id, *n.parentID)
		}
		g.children[*n.parentID] = append(g.children[*n.parentID], id)
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	for id := range g.nodes {
		g.closure(id)
	}
	return g, nil
}

// checkAcyclic walks every parent chain. A chain that revisits a node on the
// current walk is a cycle; nodes already proven to reach a root are skipped.
func (g *Graph) checkAcyclic() error {
	rooted := make(map[uint]bool, len(g.nodes))
	for start := range g.nodes {
		onPath := make(map[uint]bool)
		var path []uint
		id := start
		for {
			if rooted[id] {
				break
			}
			if onPath[id] {
				return apperr.Structural("department tree contains a cycle through department %d", id)
			}
			onPath[id] = true
			path = append(path, id)

			parent := g.nodes[id].parentID
			if parent == nil {
				break
			}
			id = *parent
		}
		for _, p := range path {
			rooted[p] = true
		}
	}
	return nil
}

// closure computes the inclusive descendant set of id. Callers guarantee the
// graph is acyclic.
func (g *Graph) closure(id uint) IDSet {
	if set, ok := g.descendants[id]; ok {
		return set
	}
	set := NewIDSet(id)
	for _, child := range g.children[id] {
		for d := range g.closure(child) {
			set[d] = struct{}{}
		}
	}
	g.descendants[id] = set
	return set
}

// Has reports whether the department exists
func (g *Graph) Has(id uint) bool {
	_, ok := g.nodes[id]
	return ok
}

// IsActive reports whether the department exists and is active
func (g *Graph) IsActive(id uint) bool {
	n, ok := g.nodes[id]
	return ok && n.active
}

// Descendants returns the department and all departments below it. Unknown
// ids yield an empty set.
func (g *Graph) Descendants(id uint) IDSet {
	set, ok := g.descendants[id]
	if !ok {
		return IDSet{}
	}
	out := make(IDSet, len(set))
	for d := range set {
		out[d] = struct{}{}
	}
	return out
}

// Closure returns the union of the descendants of every id.
func (g *Graph) Closure(ids []uint) IDSet {
	out := IDSet{}
	for _, id := range ids {
		for d := range g.descendants[id] {
			out[d] = struct{}{}
		}
	}
	return out
}

// WouldCreateCycle reports whether making parentID the parent of id would
// close a loop.
func (g *Graph) WouldCreateCycle(id uint, parentID *uint) bool {
	if parentID == nil {
		return false
	}
	return g.descendants[id].Contains(*parentID)
}

// Len returns the number of departments
func (g *Graph) Len() int {
	return len(g.nodes)
}
