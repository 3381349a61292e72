package canvasflow

import "sort"

// Mode selects how a planning pass treats node identities.
type Mode string

const (
	// ModeCreate plans a fresh run: the canvas is mirrored into new node and
	// entity identities first, so the run never touches prior artifacts.
	ModeCreate Mode = "create"
	// ModeUpdate plans a resume: existing identities are reused, so retrying
	// a failed node does not fork a new entity.
	ModeUpdate Mode = "update"
)

// PlanRequest is the input to PrepareNodeExecutions.
type PlanRequest struct {
	Canvas    CanvasData
	Variables []WorkflowVariable
	// StartNodes restricts the run to a subtree. Honored only in update
	// mode; create mode always starts from the graph's natural roots,
	// because caller-supplied IDs name pre-mirror identities.
	StartNodes []string
	Mode       Mode

	// Collaborators. Nil values fall back to DefaultMentionProcessor and
	// UUIDGenerator.
	Mentions MentionProcessor
	Toolsets ToolsetLookup
	IDs      IDGenerator
}

// Plan is a prepared, dispatch-ready execution plan.
type Plan struct {
	NodeExecutions []WorkflowNode `json:"nodeExecutions"`
	StartNodes     []string       `json:"startNodes"`
}

// PrepareNodeExecutions turns a canvas plus workflow variables into one
// execution record per node. An empty resolved start set yields an empty
// plan, not an error; a canvas with no nodes at all is the one input treated
// as a caller bug and rejected with ErrEmptyCanvas.
func PrepareNodeExecutions(req PlanRequest) (*Plan, error) {
	if len(req.Canvas.Nodes) == 0 {
		return nil, ErrEmptyCanvas
	}

	mp := req.Mentions
	if mp == nil {
		mp = DefaultMentionProcessor{}
	}

	canvas := req.Canvas
	startIDs := req.StartNodes

	if req.Mode == ModeCreate {
		canvas = Mirror(canvas, req.IDs, func(n CanvasNode) CanvasNode {
			n.Data.ContentPreview = ""
			return bindSkillNode(n, req.Variables, mp, req.Toolsets)
		})
		startIDs = nil
	} else {
		nodes := make([]CanvasNode, len(canvas.Nodes))
		for i, n := range canvas.Nodes {
			nodes[i] = bindSkillNode(n, req.Variables, mp, req.Toolsets)
		}
		canvas.Nodes = nodes
	}

	idx := BuildIndex(canvas.Nodes, canvas.Edges)

	starts := make([]string, 0, len(startIDs))
	for _, id := range startIDs {
		if _, ok := idx.NodeMap[id]; ok {
			starts = append(starts, id)
		}
	}
	if len(starts) == 0 {
		starts = RootNodeIDs(idx)
	}
	if len(starts) == 0 {
		return &Plan{NodeExecutions: []WorkflowNode{}, StartNodes: []string{}}, nil
	}

	subtree := ReachableFrom(starts, idx.ChildMap)

	entityToNode := make(map[string]CanvasNode, len(canvas.Nodes))
	for _, n := range canvas.Nodes {
		if n.Data.EntityID != "" {
			entityToNode[n.Data.EntityID] = n
		}
	}

	execs := make([]WorkflowNode, 0, len(canvas.Nodes))
	for _, n := range canvas.Nodes {
		exec := WorkflowNode{
			NodeID:        n.ID,
			NodeType:      n.Type,
			EntityID:      n.Data.EntityID,
			Title:         n.Data.Title,
			Status:        StatusFinish,
			ParentNodeIDs: dedupe(idx.ParentMap[n.ID]),
			ChildNodeIDs:  dedupe(idx.ChildMap[n.ID]),
		}

		// A node is re-executed only when it is both reachable from the
		// start set and of a type that produces new output. An orphaned
		// re-runnable node outside the subtree stays finish.
		if _, inScope := subtree[n.ID]; inScope && n.Type.producesOutput() {
			exec.Status = StatusInit
		}

		for _, pid := range exec.ParentNodeIDs {
			parent, ok := idx.NodeMap[pid]
			if !ok || parent.Data.EntityID == "" {
				continue
			}
			exec.ConnectTo = append(exec.ConnectTo, ConnectFilter{
				Type:       parent.Type,
				EntityID:   parent.Data.EntityID,
				HandleType: HandleTypeSource,
			})
		}

		if n.Type == NodeTypeSkillResponse && n.Data.Skill != nil {
			exec.OriginalQuery = n.Data.Skill.Query
			exec.ProcessedQuery = n.Data.Skill.LLMInputQuery
			exec.ResultHistory = collectResultHistory(idx, entityToNode, n.Data.Skill.ContextItems)
		}

		execs = append(execs, exec)
	}

	return &Plan{NodeExecutions: execs, StartNodes: starts}, nil
}

// bindSkillNode re-resolves a skillResponse node's query against the workflow
// variables. Non-skill nodes pass through unchanged. Returns a new value; the
// input node is not mutated.
func bindSkillNode(n CanvasNode, vars []WorkflowVariable, mp MentionProcessor, toolsets ToolsetLookup) CanvasNode {
	if n.Type != NodeTypeSkillResponse || n.Data.Skill == nil {
		return n
	}

	meta := n.Data.Skill.clone()
	b := BindVariables(meta.Query, vars, mp, toolsets)
	meta.Query = b.UpdatedQuery
	meta.LLMInputQuery = b.LLMInputQuery
	meta.ReferencedVariables = b.ReferencedVariables
	meta.ContextItems = UpdateContextItemsFromVariables(meta.ContextItems, vars)
	meta.ContextItems = appendResourceContextItems(meta.ContextItems, b.ResourceVars)

	n.Data.Skill = meta
	return n
}

// collectResultHistory resolves withHistory context items into prior result
// references by walking the response node's ancestry. Oldest result first.
func collectResultHistory(idx Index, entityToNode map[string]CanvasNode, items []ContextItem) []ResultRef {
	var refs []ResultRef
	seen := make(map[string]struct{})

	for _, item := range items {
		if !item.WithHistory {
			continue
		}
		for _, ref := range threadAncestry(idx, entityToNode, item.EntityID) {
			if _, dup := seen[ref.ResultID]; dup {
				continue
			}
			seen[ref.ResultID] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}

// threadAncestry walks parent edges upward from the response node identified
// by entityID, collecting every skillResponse on the way. Marking before
// recursing keeps the walk finite on cyclic graphs; parents are taken in
// lexicographic order so the chain is deterministic.
func threadAncestry(idx Index, entityToNode map[string]CanvasNode, entityID string) []ResultRef {
	start, ok := entityToNode[entityID]
	if !ok || start.Type != NodeTypeSkillResponse {
		return nil
	}

	var chain []ResultRef
	visited := make(map[string]struct{})

	var walk func(id string)
	walk = func(id string) {
		if _, done := visited[id]; done {
			return
		}
		visited[id] = struct{}{}

		n, ok := idx.NodeMap[id]
		if !ok {
			return
		}
		if n.Type == NodeTypeSkillResponse {
			chain = append(chain, ResultRef{ResultID: n.Data.EntityID, Title: n.Data.Title})
		}

		parents := append([]string(nil), idx.ParentMap[id]...)
		sort.Strings(parents)
		for _, p := range parents {
			walk(p)
		}
	}
	walk(start.ID)

	// The walk emits nearest-first; history reads oldest-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// dedupe removes duplicate IDs preserving first occurrence order.
func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
