package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tpm-platform/allocation-engine/internal/domain"
)

// ResolvedEntity is a business entity selected for distribution
type ResolvedEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EntityResolver turns a dimension into the ordered set of entities to distribute across
type EntityResolver struct {
	directory domain.ReferenceDirectory
}

// NewEntityResolver creates a new EntityResolver
func NewEntityResolver(directory domain.ReferenceDirectory) *EntityResolver {
	return &EntityResolver{directory: directory}
}

// Resolve returns the active entities of a dimension, deduplicated by ID and ordered by
// name. An empty result is an error: distributing across nothing is a caller mistake.
func (r *EntityResolver) Resolve(ctx context.Context, tenantID int32, dimension domain.Dimension) ([]ResolvedEntity, error) {
	if !dimension.IsValid() {
		return nil, domain.ErrInvalidDimension
	}

	entities, err := r.directory.ListEntities(ctx, tenantID, dimension)
	if err != nil {
		return nil, fmt.Errorf("list %s entities: %w", dimension, err)
	}

	seen := make(map[string]struct{}, len(entities))
	result := make([]ResolvedEntity, 0, len(entities))
	for _, e := range entities {
		if e == nil || e.ID == "" || e.Status == domain.EntityStatusInactive {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		result = append(result, ResolvedEntity{ID: e.ID, Name: strings.TrimSpace(e.Name)})
	}

	if len(result) == 0 {
		return nil, domain.ErrNoEntitiesFound
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}
