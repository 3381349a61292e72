package canvasflow

import (
	"context"
	"errors"
)

var (
	ErrEmptyCanvas    = errors.New("canvasflow: canvas has no nodes")
	ErrCanvasNotFound = errors.New("canvasflow: canvas not found")
	ErrRunNotFound    = errors.New("canvasflow: run not found")
)

// StoredExecution is the persisted, flattened form of a WorkflowNode.
// ParentNodeIDs and ChildNodeIDs are JSON-encoded string arrays — the
// on-disk/on-wire representation consumed back by SortStoredExecutions.
type StoredExecution struct {
	NodeID         string `json:"nodeId"`
	NodeType       string `json:"nodeType"`
	EntityID       string `json:"entityId"`
	Title          string `json:"title,omitempty"`
	Status         string `json:"status"`
	ParentNodeIDs  string `json:"parentNodeIds"`
	ChildNodeIDs   string `json:"childNodeIds"`
	OriginalQuery  string `json:"originalQuery,omitempty"`
	ProcessedQuery string `json:"processedQuery,omitempty"`
}

// NewStoredExecution flattens an execution record for persistence.
func NewStoredExecution(w WorkflowNode) StoredExecution {
	return StoredExecution{
		NodeID:         w.NodeID,
		NodeType:       string(w.NodeType),
		EntityID:       w.EntityID,
		Title:          w.Title,
		Status:         string(w.Status),
		ParentNodeIDs:  encodeIDList(w.ParentNodeIDs),
		ChildNodeIDs:   encodeIDList(w.ChildNodeIDs),
		OriginalQuery:  w.OriginalQuery,
		ProcessedQuery: w.ProcessedQuery,
	}
}

// Run is one persisted planning pass over a canvas.
type Run struct {
	ID         string            `json:"id"`
	CanvasID   string            `json:"canvasId"`
	Mode       Mode              `json:"mode"`
	StartNodes []string          `json:"startNodes"`
	Executions []StoredExecution `json:"executions,omitempty"`
}

// Store defines the contract for persisting canvases and prepared runs.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Canvases
	SaveCanvas(ctx context.Context, c *CanvasData) (*CanvasData, error)
	GetCanvas(ctx context.Context, canvasID string) (*CanvasData, error)
	DeleteCanvas(ctx context.Context, canvasID string) error

	// Runs
	SaveRun(ctx context.Context, run *Run) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListExecutions(ctx context.Context, runID string) ([]StoredExecution, error)
	DeleteRun(ctx context.Context, runID string) error
}
