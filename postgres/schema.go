package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS canvas_nodes (
    id         TEXT PRIMARY KEY,
    canvas_id  TEXT NOT NULL,
    node_type  TEXT NOT NULL,
    data       JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS canvas_edges (
    id         TEXT PRIMARY KEY,
    canvas_id  TEXT NOT NULL,
    source     TEXT NOT NULL REFERENCES canvas_nodes(id) ON DELETE CASCADE,
    target     TEXT NOT NULL REFERENCES canvas_nodes(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS workflow_runs (
    id          TEXT PRIMARY KEY,
    canvas_id   TEXT NOT NULL,
    mode        TEXT NOT NULL,
    start_nodes JSONB NOT NULL DEFAULT '[]',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS workflow_node_executions (
    id              TEXT PRIMARY KEY,
    run_id          TEXT NOT NULL REFERENCES workflow_runs(id) ON DELETE CASCADE,
    node_id         TEXT NOT NULL,
    node_type       TEXT NOT NULL,
    entity_id       TEXT NOT NULL DEFAULT '',
    title           TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    parent_node_ids TEXT NOT NULL DEFAULT '[]',
    child_node_ids  TEXT NOT NULL DEFAULT '[]',
    original_query  TEXT NOT NULL DEFAULT '',
    processed_query TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_canvas_nodes_canvas_id ON canvas_nodes(canvas_id);
CREATE INDEX IF NOT EXISTS idx_canvas_edges_canvas_id ON canvas_edges(canvas_id);
CREATE INDEX IF NOT EXISTS idx_workflow_runs_canvas   ON workflow_runs(canvas_id);
CREATE INDEX IF NOT EXISTS idx_executions_run_id      ON workflow_node_executions(run_id);
`

// CreateSchema creates the canvas and run tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops all canvasflow tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS workflow_node_executions, workflow_runs, canvas_edges, canvas_nodes CASCADE;`)
	return err
}
