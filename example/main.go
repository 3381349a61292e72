package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/canvasflow"
	"github.com/meikuraledutech/canvasflow/postgres"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// Wire up the postgres implementation behind the Store interface.
	var store canvasflow.Store = postgres.New(pool)

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Author a canvas: start → research → (summary, translation) ────
	canvas := &canvasflow.CanvasData{
		ID: "demo-canvas",
		Nodes: []canvasflow.CanvasNode{
			{ID: "n-start", Type: canvasflow.NodeTypeStart, Data: canvasflow.NodeData{
				EntityID: "e-start", Title: "Start",
			}},
			{ID: "n-research", Type: canvasflow.NodeTypeSkillResponse, Data: canvasflow.NodeData{
				EntityID: "e-research", Title: "Research",
				Skill: &canvasflow.SkillMetadata{
					Query: "Research {{topic}} using {{brief}}",
				},
			}},
			{ID: "n-summary", Type: canvasflow.NodeTypeDocument, Data: canvasflow.NodeData{
				EntityID: "e-summary", Title: "Summary",
			}},
			{ID: "n-translation", Type: canvasflow.NodeTypeSkillResponse, Data: canvasflow.NodeData{
				EntityID: "e-translation", Title: "Translation",
				Skill: &canvasflow.SkillMetadata{
					Query: "Translate the research into {{language}}",
				},
			}},
		},
		Edges: []canvasflow.CanvasEdge{
			{Source: "n-start", Target: "n-research"},
			{Source: "n-research", Target: "n-summary"},
			{Source: "n-research", Target: "n-translation"},
		},
	}

	if _, err := store.SaveCanvas(ctx, canvas); err != nil {
		log.Fatalf("save canvas: %v", err)
	}
	fmt.Println("canvas saved")

	// ── Prepare an execution plan (resume mode, scoped to research) ───
	variables := []canvasflow.WorkflowVariable{
		{Name: "topic", VariableType: canvasflow.VariableTypeString,
			Value: []canvasflow.VariableValue{{Type: "text", Text: "tidal energy"}}},
		{Name: "language", VariableType: canvasflow.VariableTypeString,
			Value: []canvasflow.VariableValue{{Type: "text", Text: "French"}}},
		{Name: "brief", VariableType: canvasflow.VariableTypeResource,
			Value: []canvasflow.VariableValue{{Type: "resource",
				Resource: &canvasflow.ResourceValue{EntityID: "res-brief", Name: "brief.pdf", FileType: "pdf"}}}},
	}

	plan, err := canvasflow.PrepareNodeExecutions(canvasflow.PlanRequest{
		Canvas:     *canvas,
		Variables:  variables,
		StartNodes: []string{"n-research"},
		Mode:       canvasflow.ModeUpdate,
	})
	if err != nil {
		log.Fatalf("prepare: %v", err)
	}

	ordered := canvasflow.Order(plan.NodeExecutions)
	fmt.Println("\nexecution plan (dependency order):")
	printJSON(ordered)

	// ── Persist the run and read it back in execution order ───────────
	run := &canvasflow.Run{
		CanvasID:   canvas.ID,
		Mode:       canvasflow.ModeUpdate,
		StartNodes: plan.StartNodes,
	}
	for _, e := range ordered {
		run.Executions = append(run.Executions, canvasflow.NewStoredExecution(e))
	}
	if _, err := store.SaveRun(ctx, run); err != nil {
		log.Fatalf("save run: %v", err)
	}
	fmt.Printf("\nrun saved: %s\n", run.ID)

	stored, err := store.ListExecutions(ctx, run.ID)
	if err != nil {
		log.Fatalf("list executions: %v", err)
	}
	fmt.Println("\nstored executions re-sorted into execution order:")
	printJSON(canvasflow.SortStoredExecutions(stored))

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteRun(ctx, run.ID); err != nil {
		log.Fatalf("delete run: %v", err)
	}
	if err := store.DeleteCanvas(ctx, canvas.ID); err != nil {
		log.Fatalf("delete canvas: %v", err)
	}
	fmt.Println("\ncleaned up")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
