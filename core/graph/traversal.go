package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/auditcore/evidencer/model"
)

// GraphStore defines the store operations traversal needs. All lookups
// are tenant-scoped by the implementation.
type GraphStore interface {
	GetEntity(ctx context.Context, tenantID string, id uuid.UUID) (*model.Entity, error)
	GetEdgesFromEntity(ctx context.Context, tenantID string, entityID uuid.UUID, relations []model.RelationType) ([]*model.Edge, error)
}

// TraversalResult contains an entity, the edge it was reached through and
// its hop distance from the anchor.
type TraversalResult struct {
	Entity   *model.Entity
	Via      *model.Edge // nil for the anchor itself
	Distance int
	Path     []uuid.UUID // Path from anchor to this entity
}

// BFS performs breadth-first expansion from an anchor entity up to
// maxHops edges, filtered by relation and node type.
func BFS(ctx context.Context, store GraphStore, tenantID string, anchorID uuid.UUID, maxHops int, relations []model.RelationType, nodeTypes []string) ([]*TraversalResult, error) {
	anchor, err := store.GetEntity(ctx, tenantID, anchorID)
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{anchorID: true}
	queue := []TraversalResult{{
		Entity:   anchor,
		Distance: 0,
		Path:     []uuid.UUID{anchorID},
	}}

	var results []*TraversalResult

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		// Stop if we've reached max hops
		if current.Distance >= maxHops {
			continue
		}

		edges, err := store.GetEdgesFromEntity(ctx, tenantID, current.Entity.ID, relations)
		if err != nil {
			return nil, err
		}

		for _, edge := range edges {
			// Determine target based on edge direction
			targetID := edge.TargetEntityID
			if targetID == current.Entity.ID {
				if !edge.Bidirectional {
					continue
				}
				targetID = edge.SourceEntityID
			}

			// Skip if already visited
			if visited[targetID] {
				continue
			}

			target, err := store.GetEntity(ctx, tenantID, targetID)
			if err != nil {
				continue // Skip if entity not found
			}

			if !nodeTypeAllowed(target.Type, nodeTypes) {
				continue
			}

			visited[targetID] = true

			// Create new path
			newPath := make([]uuid.UUID, len(current.Path))
			copy(newPath, current.Path)
			newPath = append(newPath, targetID)

			queue = append(queue, TraversalResult{
				Entity:   target,
				Via:      edge,
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results, nil
}

func nodeTypeAllowed(entityType string, nodeTypes []string) bool {
	if len(nodeTypes) == 0 {
		return true
	}
	for _, t := range nodeTypes {
		if t == entityType {
			return true
		}
	}
	return false
}
