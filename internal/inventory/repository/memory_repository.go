package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
)

// MemoryRepository keeps the inventory in a database.MemoryDB. Row locks are
// implied by the store's serialized transactions.
type MemoryRepository struct {
	db        *database.MemoryDB
	parts     *database.Table[domain.Part]
	movements *database.Table[domain.StockMovement]
}

// NewMemoryRepository creates an in-memory repository
func NewMemoryRepository(db *database.MemoryDB) *MemoryRepository {
	return &MemoryRepository{
		db:        db,
		parts:     database.NewTable[domain.Part](db),
		movements: database.NewTable[domain.StockMovement](db),
	}
}

func clonePart(p domain.Part) *domain.Part {
	p.DepartmentIDs = append([]uint(nil), p.DepartmentIDs...)
	return &p
}

func (r *MemoryRepository) CreatePart(ctx context.Context, part *domain.Part) error {
	return r.db.Run(ctx, func() error {
		for _, existing := range r.parts.All() {
			if strings.EqualFold(existing.PartNumber, part.PartNumber) {
				return apperr.Validation("duplicate part number %q", part.PartNumber)
			}
		}
		now := time.Now()
		part.ID = r.parts.NextID()
		part.CreatedAt, part.UpdatedAt = now, now
		part.DepartmentIDs = dedupe(part.DepartmentIDs)
		r.parts.Put(part.ID, *clonePart(*part))
		return nil
	})
}

func (r *MemoryRepository) FindPart(ctx context.Context, id uint) (*domain.Part, error) {
	var out *domain.Part
	err := r.db.Run(ctx, func() error {
		p, ok := r.parts.Get(id)
		if !ok {
			return apperr.NotFound("part", id)
		}
		out = clonePart(p)
		return nil
	})
	return out, err
}

func (r *MemoryRepository) LockPart(ctx context.Context, id uint) (*domain.Part, error) {
	return r.FindPart(ctx, id)
}

func (r *MemoryRepository) ListParts(ctx context.Context, filter domain.PartFilter) ([]domain.Part, error) {
	var out []domain.Part
	err := r.db.Run(ctx, func() error {
		acl := make(map[uint]struct{}, len(filter.DepartmentIDs))
		for _, id := range filter.DepartmentIDs {
			acl[id] = struct{}{}
		}
		search := strings.ToLower(filter.Search)

		rows := r.parts.Filter(func(p domain.Part) bool {
			if search != "" &&
				!strings.Contains(strings.ToLower(p.PartNumber), search) &&
				!strings.Contains(strings.ToLower(p.Name), search) {
				return false
			}
			if filter.All || p.CreatedByID == filter.CreatorID {
				return true
			}
			for _, id := range p.DepartmentIDs {
				if _, ok := acl[id]; ok {
					return true
				}
			}
			return false
		})
		sort.Slice(rows, func(i, j int) bool { return rows[i].PartNumber < rows[j].PartNumber })

		rows = paginate(rows, filter.Limit, filter.Offset)
		out = make([]domain.Part, 0, len(rows))
		for _, p := range rows {
			out = append(out, *clonePart(p))
		}
		return nil
	})
	return out, err
}

func (r *MemoryRepository) UpdatePart(ctx context.Context, part *domain.Part) error {
	return r.db.Run(ctx, func() error {
		stored, ok := r.parts.Get(part.ID)
		if !ok {
			return apperr.NotFound("part", part.ID)
		}
		updated := *clonePart(*part)
		updated.CurrentQuantity = stored.CurrentQuantity
		updated.DepartmentIDs = stored.DepartmentIDs
		updated.CreatedAt = stored.CreatedAt
		updated.UpdatedAt = time.Now()
		r.parts.Put(part.ID, updated)
		return nil
	})
}

func (r *MemoryRepository) UpdateQuantity(ctx context.Context, partID uint, quantity decimal.Decimal) error {
	return r.db.Run(ctx, func() error {
		stored, ok := r.parts.Get(partID)
		if !ok {
			return apperr.NotFound("part", partID)
		}
		stored.CurrentQuantity = quantity
		stored.UpdatedAt = time.Now()
		r.parts.Put(partID, stored)
		return nil
	})
}

func (r *MemoryRepository) SetPartDepartments(ctx context.Context, partID uint, departmentIDs []uint) error {
	return r.db.Run(ctx, func() error {
		stored, ok := r.parts.Get(partID)
		if !ok {
			return apperr.NotFound("part", partID)
		}
		stored.DepartmentIDs = dedupe(departmentIDs)
		r.parts.Put(partID, stored)
		return nil
	})
}

func (r *MemoryRepository) ListPartIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.Run(ctx, func() error {
		for _, p := range r.parts.All() {
			ids = append(ids, p.ID)
		}
		return nil
	})
	return ids, err
}

func (r *MemoryRepository) AppendMovement(ctx context.Context, movement *domain.StockMovement) error {
	return r.db.Run(ctx, func() error {
		if movement.ReversesMovementID != nil {
			for _, m := range r.movements.All() {
				if m.ReversesMovementID != nil && *m.ReversesMovementID == *movement.ReversesMovementID {
					return apperr.Conflict("movement %d has already been reversed", *movement.ReversesMovementID)
				}
			}
		}
		movement.ID = r.movements.NextID()
		movement.CreatedAt = time.Now()
		r.movements.Put(movement.ID, *movement)
		return nil
	})
}

func (r *MemoryRepository) FindMovement(ctx context.Context, id uint) (*domain.StockMovement, error) {
	var out *domain.StockMovement
	err := r.db.Run(ctx, func() error {
		m, ok := r.movements.Get(id)
		if !ok {
			return apperr.NotFound("stock movement", id)
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *MemoryRepository) FindReversal(ctx context.Context, id uint) (*domain.StockMovement, error) {
	var out *domain.StockMovement
	err := r.db.Run(ctx, func() error {
		for _, m := range r.movements.All() {
			if m.ReversesMovementID != nil && *m.ReversesMovementID == id {
				m := m
				out = &m
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *MemoryRepository) ListMovements(ctx context.Context, partID uint) ([]domain.StockMovement, error) {
	var out []domain.StockMovement
	err := r.db.Run(ctx, func() error {
		out = r.movements.Filter(func(m domain.StockMovement) bool { return m.PartID == partID })
		domain.SortForReplay(out)
		return nil
	})
	return out, err
}

func (r *MemoryRepository) LastMovement(ctx context.Context, partID uint) (*domain.StockMovement, error) {
	movements, err := r.ListMovements(ctx, partID)
	if err != nil || len(movements) == 0 {
		return nil, err
	}
	last := movements[len(movements)-1]
	return &last, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
