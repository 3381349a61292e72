package canvasflow

import "github.com/google/uuid"

// IDGenerator produces fresh identifiers during canvas mirroring. Injected so
// tests can supply deterministic IDs.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the default IDGenerator, backed by random UUIDs so IDs are
// collision-free across concurrent mirrors without coordination.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string { return uuid.NewString() }

// NodeProcessor transforms a node before it is placed in a mirrored canvas.
// It receives and returns a value; the original canvas is never mutated.
type NodeProcessor func(CanvasNode) CanvasNode

// Mirror deep-clones a canvas under freshly generated node and entity IDs, so
// a fresh run can never alias or collide with a previous run's artifacts.
// Edges are remapped through the new node IDs; dangling edges are dropped.
// Context items pointing at mirrored entities are remapped to the new entity
// IDs. process (optional) is applied to each node before placement.
func Mirror(canvas CanvasData, gen IDGenerator, process NodeProcessor) CanvasData {
	if gen == nil {
		gen = UUIDGenerator{}
	}

	nodeIDMap := make(map[string]string, len(canvas.Nodes))
	entityIDMap := make(map[string]string, len(canvas.Nodes))
	for _, n := range canvas.Nodes {
		nodeIDMap[n.ID] = gen.NewID()
		if n.Data.EntityID != "" {
			entityIDMap[n.Data.EntityID] = gen.NewID()
		}
	}

	out := CanvasData{
		ID:    canvas.ID,
		Nodes: make([]CanvasNode, 0, len(canvas.Nodes)),
		Edges: make([]CanvasEdge, 0, len(canvas.Edges)),
	}

	for _, n := range canvas.Nodes {
		clone := n
		clone.ID = nodeIDMap[n.ID]
		clone.Data.Skill = n.Data.Skill.clone()
		if id, ok := entityIDMap[n.Data.EntityID]; ok {
			clone.Data.EntityID = id
		}
		if clone.Data.Skill != nil {
			for i, item := range clone.Data.Skill.ContextItems {
				if id, ok := entityIDMap[item.EntityID]; ok {
					clone.Data.Skill.ContextItems[i].EntityID = id
				}
			}
		}
		if process != nil {
			clone = process(clone)
		}
		out.Nodes = append(out.Nodes, clone)
	}

	for _, e := range canvas.Edges {
		src, okSrc := nodeIDMap[e.Source]
		dst, okDst := nodeIDMap[e.Target]
		if !okSrc || !okDst {
			continue
		}
		out.Edges = append(out.Edges, CanvasEdge{
			ID:     gen.NewID(),
			Source: src,
			Target: dst,
		})
	}

	return out
}
