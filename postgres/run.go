package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/canvasflow"
)

// SaveRun persists a run and its execution rows in one transaction.
// If run.ID is empty, a UUID is auto-generated. Returns the run with IDs
// filled in.
func (s *PGStore) SaveRun(ctx context.Context, run *canvasflow.Run) (*canvasflow.Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	startNodes, err := json.Marshal(run.StartNodes)
	if err != nil {
		return nil, fmt.Errorf("canvasflow: marshal start nodes: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("canvasflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO workflow_runs (id, canvas_id, mode, start_nodes) VALUES ($1, $2, $3, $4)`,
		run.ID, run.CanvasID, string(run.Mode), startNodes,
	); err != nil {
		return nil, fmt.Errorf("canvasflow: insert run: %w", err)
	}

	for _, e := range run.Executions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO workflow_node_executions
			 (id, run_id, node_id, node_type, entity_id, title, status, parent_node_ids, child_node_ids, original_query, processed_query)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			uuid.NewString(), run.ID, e.NodeID, e.NodeType, e.EntityID, e.Title,
			e.Status, e.ParentNodeIDs, e.ChildNodeIDs, e.OriginalQuery, e.ProcessedQuery,
		); err != nil {
			return nil, fmt.Errorf("canvasflow: insert execution %s: %w", e.NodeID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("canvasflow: commit: %w", err)
	}

	return run, nil
}

// GetRun fetches a run without its execution rows.
// Returns ErrRunNotFound if the run doesn't exist.
func (s *PGStore) GetRun(ctx context.Context, runID string) (*canvasflow.Run, error) {
	run := &canvasflow.Run{ID: runID}
	var mode string
	var startNodes []byte

	err := s.db.QueryRow(ctx,
		`SELECT canvas_id, mode, start_nodes FROM workflow_runs WHERE id = $1`, runID,
	).Scan(&run.CanvasID, &mode, &startNodes)
	if err != nil {
		if isNoRows(err) {
			return nil, canvasflow.ErrRunNotFound
		}
		return nil, fmt.Errorf("canvasflow: get run: %w", err)
	}

	run.Mode = canvasflow.Mode(mode)
	if err := json.Unmarshal(startNodes, &run.StartNodes); err != nil {
		return nil, fmt.Errorf("canvasflow: unmarshal start nodes: %w", err)
	}
	return run, nil
}

// ListExecutions returns the stored execution rows for a run in insertion
// order. Callers wanting dependency order re-sort with
// canvasflow.SortStoredExecutions. Returns an empty slice if none found.
func (s *PGStore) ListExecutions(ctx context.Context, runID string) ([]canvasflow.StoredExecution, error) {
	rows, err := s.db.Query(ctx,
		`SELECT node_id, node_type, entity_id, title, status, parent_node_ids, child_node_ids, original_query, processed_query
		 FROM workflow_node_executions WHERE run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("canvasflow: list executions: %w", err)
	}
	defer rows.Close()

	executions := []canvasflow.StoredExecution{}
	for rows.Next() {
		var e canvasflow.StoredExecution
		if err := rows.Scan(&e.NodeID, &e.NodeType, &e.EntityID, &e.Title, &e.Status,
			&e.ParentNodeIDs, &e.ChildNodeIDs, &e.OriginalQuery, &e.ProcessedQuery); err != nil {
			return nil, fmt.Errorf("canvasflow: scan execution: %w", err)
		}
		executions = append(executions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canvasflow: rows executions: %w", err)
	}

	return executions, nil
}

// DeleteRun removes a run; execution rows are cascade-deleted by the DB.
// No error if the run doesn't exist.
func (s *PGStore) DeleteRun(ctx context.Context, runID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM workflow_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("canvasflow: delete run: %w", err)
	}
	return nil
}
