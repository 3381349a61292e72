package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/canvasflow"
	"github.com/meikuraledutech/canvasflow/postgres"
)

// planRequest is the body of POST /canvas/:id/plan.
type planRequest struct {
	Variables  []canvasflow.WorkflowVariable `json:"variables"`
	StartNodes []string                      `json:"startNodes"`
	Mode       canvasflow.Mode               `json:"mode"`
}

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":3000"
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	var store canvasflow.Store = postgres.New(pool)

	app := fiber.New()

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := store.CreateSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := store.DropSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Canvases ──────────────────────────────────────────────────────
	app.Post("/canvas", func(c fiber.Ctx) error {
		var canvas canvasflow.CanvasData
		if err := c.Bind().JSON(&canvas); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		result, err := store.SaveCanvas(c.Context(), &canvas)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(result)
	})

	app.Get("/canvas/:id", func(c fiber.Ctx) error {
		canvas, err := store.GetCanvas(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if canvas == nil {
			return c.Status(404).JSON(fiber.Map{"error": "canvas not found"})
		}
		return c.JSON(canvas)
	})

	app.Delete("/canvas/:id", func(c fiber.Ctx) error {
		if err := store.DeleteCanvas(c.Context(), c.Params("id")); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	// ── Planning ──────────────────────────────────────────────────────
	app.Post("/canvas/:id/plan", func(c fiber.Ctx) error {
		var req planRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if req.Mode == "" {
			req.Mode = canvasflow.ModeUpdate
		}

		canvas, err := store.GetCanvas(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if canvas == nil {
			return c.Status(404).JSON(fiber.Map{"error": "canvas not found"})
		}

		plan, err := canvasflow.PrepareNodeExecutions(canvasflow.PlanRequest{
			Canvas:     *canvas,
			Variables:  req.Variables,
			StartNodes: req.StartNodes,
			Mode:       req.Mode,
		})
		if errors.Is(err, canvasflow.ErrEmptyCanvas) {
			return c.Status(422).JSON(fiber.Map{"error": "canvas has no nodes"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		ordered := canvasflow.Order(plan.NodeExecutions)
		run := &canvasflow.Run{
			CanvasID:   c.Params("id"),
			Mode:       req.Mode,
			StartNodes: plan.StartNodes,
		}
		for _, e := range ordered {
			run.Executions = append(run.Executions, canvasflow.NewStoredExecution(e))
		}

		if _, err := store.SaveRun(c.Context(), run); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		return c.Status(201).JSON(fiber.Map{
			"runId":          run.ID,
			"startNodes":     plan.StartNodes,
			"nodeExecutions": ordered,
		})
	})

	// ── Runs ──────────────────────────────────────────────────────────
	app.Get("/runs/:id", func(c fiber.Ctx) error {
		run, err := store.GetRun(c.Context(), c.Params("id"))
		if errors.Is(err, canvasflow.ErrRunNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "run not found"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(run)
	})

	app.Get("/runs/:id/executions", func(c fiber.Ctx) error {
		executions, err := store.ListExecutions(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(canvasflow.SortStoredExecutions(executions))
	})

	app.Delete("/runs/:id", func(c fiber.Ctx) error {
		if err := store.DeleteRun(c.Context(), c.Params("id")); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	log.Fatal(app.Listen(addr))
}
