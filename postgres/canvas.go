package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/canvasflow"
)

// SaveCanvas persists a full canvas (nodes + edges) in one transaction with
// replace semantics: existing rows for the canvas ID are deleted first.
// Nodes/edges without IDs get auto-generated UUIDs. Returns the canvas with
// all IDs filled in.
func (s *PGStore) SaveCanvas(ctx context.Context, c *canvasflow.CanvasData) (*canvasflow.CanvasData, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for i := range c.Nodes {
		if c.Nodes[i].ID == "" {
			c.Nodes[i].ID = uuid.NewString()
		}
	}
	for i := range c.Edges {
		if c.Edges[i].ID == "" {
			c.Edges[i].ID = uuid.NewString()
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("canvasflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM canvas_edges WHERE canvas_id = $1`, c.ID); err != nil {
		return nil, fmt.Errorf("canvasflow: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM canvas_nodes WHERE canvas_id = $1`, c.ID); err != nil {
		return nil, fmt.Errorf("canvasflow: delete nodes: %w", err)
	}

	for _, n := range c.Nodes {
		data, err := json.Marshal(n.Data)
		if err != nil {
			return nil, fmt.Errorf("canvasflow: marshal node %s: %w", n.ID, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO canvas_nodes (id, canvas_id, node_type, data) VALUES ($1, $2, $3, $4)`,
			n.ID, c.ID, string(n.Type), data,
		); err != nil {
			return nil, fmt.Errorf("canvasflow: insert node %s: %w", n.ID, err)
		}
	}

	for _, e := range c.Edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO canvas_edges (id, canvas_id, source, target) VALUES ($1, $2, $3, $4)`,
			e.ID, c.ID, e.Source, e.Target,
		); err != nil {
			return nil, fmt.Errorf("canvasflow: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("canvasflow: commit: %w", err)
	}

	return c, nil
}

// GetCanvas retrieves a full canvas (nodes + edges) by its ID.
// Returns nil, nil if no nodes exist for the canvasID.
func (s *PGStore) GetCanvas(ctx context.Context, canvasID string) (*canvasflow.CanvasData, error) {
	c := &canvasflow.CanvasData{ID: canvasID}

	rows, err := s.db.Query(ctx,
		`SELECT id, node_type, data FROM canvas_nodes WHERE canvas_id = $1 ORDER BY created_at`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("canvasflow: query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n canvasflow.CanvasNode
		var nodeType string
		var data []byte
		if err := rows.Scan(&n.ID, &nodeType, &data); err != nil {
			return nil, fmt.Errorf("canvasflow: scan node: %w", err)
		}
		n.Type = canvasflow.NodeType(nodeType)
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("canvasflow: unmarshal node %s: %w", n.ID, err)
		}
		c.Nodes = append(c.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canvasflow: rows nodes: %w", err)
	}

	if len(c.Nodes) == 0 {
		return nil, nil
	}

	rows, err = s.db.Query(ctx,
		`SELECT id, source, target FROM canvas_edges WHERE canvas_id = $1 ORDER BY created_at`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("canvasflow: query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e canvasflow.CanvasEdge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target); err != nil {
			return nil, fmt.Errorf("canvasflow: scan edge: %w", err)
		}
		c.Edges = append(c.Edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canvasflow: rows edges: %w", err)
	}

	return c, nil
}

// DeleteCanvas removes all nodes and edges for a canvasID.
// No error if the canvasID doesn't exist.
func (s *PGStore) DeleteCanvas(ctx context.Context, canvasID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("canvasflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM canvas_edges WHERE canvas_id = $1`, canvasID); err != nil {
		return fmt.Errorf("canvasflow: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM canvas_nodes WHERE canvas_id = $1`, canvasID); err != nil {
		return fmt.Errorf("canvasflow: delete nodes: %w", err)
	}

	return tx.Commit(ctx)
}
