package canvasflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture: start → research → (summary, chart), with research prompt-bearing.
func planCanvas() CanvasData {
	research := node("research", NodeTypeSkillResponse)
	research.Data.Skill = &SkillMetadata{Query: "Research {{topic}}"}
	return CanvasData{
		Nodes: []CanvasNode{
			node("start", NodeTypeStart),
			research,
			node("summary", NodeTypeDocument),
			node("chart", NodeTypeCodeArtifact),
		},
		Edges: []CanvasEdge{
			edge("start", "research"),
			edge("research", "summary"),
			edge("research", "chart"),
		},
	}
}

func statusByID(plan *Plan) map[string]ExecutionStatus {
	out := make(map[string]ExecutionStatus)
	for _, e := range plan.NodeExecutions {
		out[e.NodeID] = e.Status
	}
	return out
}

func TestPrepareNodeExecutionsSubtreeScoping(t *testing.T) {
	plan, err := PrepareNodeExecutions(PlanRequest{
		Canvas:     planCanvas(),
		Variables:  []WorkflowVariable{textVar("topic", "fusion")},
		StartNodes: []string{"research"},
		Mode:       ModeUpdate,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"research"}, plan.StartNodes)

	statuses := statusByID(plan)
	assert.Equal(t, StatusFinish, statuses["start"])
	assert.Equal(t, StatusInit, statuses["research"])
	assert.Equal(t, StatusInit, statuses["summary"])
	assert.Equal(t, StatusInit, statuses["chart"])
}

func TestPrepareNodeExecutionsConnectToAndQueries(t *testing.T) {
	plan, err := PrepareNodeExecutions(PlanRequest{
		Canvas:    planCanvas(),
		Variables: []WorkflowVariable{textVar("topic", "fusion")},
		Mode:      ModeUpdate,
	})
	require.NoError(t, err)

	byID := make(map[string]WorkflowNode)
	for _, e := range plan.NodeExecutions {
		byID[e.NodeID] = e
	}

	research := byID["research"]
	require.Len(t, research.ConnectTo, 1)
	assert.Equal(t, ConnectFilter{Type: NodeTypeStart, EntityID: "e-start", HandleType: HandleTypeSource}, research.ConnectTo[0])
	assert.Equal(t, "Research {{topic}}", research.OriginalQuery)
	assert.Equal(t, "Research fusion", research.ProcessedQuery)

	summary := byID["summary"]
	assert.Equal(t, []string{"research"}, summary.ParentNodeIDs)
	assert.Equal(t, []string{"summary", "chart"}, byID["research"].ChildNodeIDs)
}

func TestPrepareNodeExecutionsDefaultsToRoots(t *testing.T) {
	plan, err := PrepareNodeExecutions(PlanRequest{Canvas: planCanvas(), Mode: ModeUpdate})

	require.NoError(t, err)
	assert.Equal(t, []string{"start"}, plan.StartNodes)
	// Everything downstream of the root is in scope.
	statuses := statusByID(plan)
	assert.Equal(t, StatusInit, statuses["research"])
}

func TestPrepareNodeExecutionsUnknownStartIDsFallBackToRoots(t *testing.T) {
	plan, err := PrepareNodeExecutions(PlanRequest{
		Canvas:     planCanvas(),
		StartNodes: []string{"nope"},
		Mode:       ModeUpdate,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"start"}, plan.StartNodes)
}

func TestPrepareNodeExecutionsEmptyCanvas(t *testing.T) {
	_, err := PrepareNodeExecutions(PlanRequest{Mode: ModeUpdate})

	assert.ErrorIs(t, err, ErrEmptyCanvas)
}

func TestPrepareNodeExecutionsEmptyStartSetIsNoop(t *testing.T) {
	// Two nodes feeding each other: neither qualifies as a root.
	canvas := CanvasData{
		Nodes: []CanvasNode{node("a", NodeTypeDocument), node("b", NodeTypeDocument)},
		Edges: []CanvasEdge{edge("a", "b"), edge("b", "a")},
	}

	plan, err := PrepareNodeExecutions(PlanRequest{Canvas: canvas, Mode: ModeUpdate})

	require.NoError(t, err)
	assert.Empty(t, plan.NodeExecutions)
	assert.Empty(t, plan.StartNodes)
}

func TestPrepareNodeExecutionsDanglingParentIgnored(t *testing.T) {
	canvas := CanvasData{
		Nodes: []CanvasNode{node("x", NodeTypeDocument)},
		Edges: []CanvasEdge{edge("ghost", "x")},
	}

	plan, err := PrepareNodeExecutions(PlanRequest{Canvas: canvas, Mode: ModeUpdate})

	require.NoError(t, err)
	require.Len(t, plan.NodeExecutions, 1)
	assert.Empty(t, plan.NodeExecutions[0].ConnectTo)
	assert.Empty(t, plan.NodeExecutions[0].ParentNodeIDs)
}

func TestPrepareNodeExecutionsCreateModeMirrors(t *testing.T) {
	plan, err := PrepareNodeExecutions(PlanRequest{
		Canvas:    planCanvas(),
		Variables: []WorkflowVariable{textVar("topic", "fusion")},
		// Caller start ids name pre-mirror identities; create mode must
		// discard them and start from the natural roots.
		StartNodes: []string{"research"},
		Mode:       ModeCreate,
		IDs:        &seqGenerator{},
	})
	require.NoError(t, err)
	require.Len(t, plan.NodeExecutions, 4)

	original := map[string]struct{}{"start": {}, "research": {}, "summary": {}, "chart": {}}
	initCount := 0
	for _, e := range plan.NodeExecutions {
		_, collides := original[e.NodeID]
		assert.False(t, collides, "mirrored node reused canvas id %s", e.NodeID)
		if e.Status == StatusInit {
			initCount++
		}
		if e.NodeType == NodeTypeSkillResponse {
			assert.Equal(t, "Research fusion", e.ProcessedQuery)
		}
	}
	// The whole graph is reachable from the mirrored root; start is finish.
	assert.Equal(t, 3, initCount)
	assert.Len(t, plan.StartNodes, 1)
}

func TestPrepareNodeExecutionsUpdateModeIsIdempotent(t *testing.T) {
	req := PlanRequest{
		Canvas:     planCanvas(),
		Variables:  []WorkflowVariable{textVar("topic", "fusion")},
		StartNodes: []string{"research"},
		Mode:       ModeUpdate,
	}

	first, err := PrepareNodeExecutions(req)
	require.NoError(t, err)
	second, err := PrepareNodeExecutions(req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPrepareNodeExecutionsResultHistory(t *testing.T) {
	// Conversation chain ask1 → ask2, with ask3 pulling ask2's history.
	ask1 := node("ask1", NodeTypeSkillResponse)
	ask1.Data.Skill = &SkillMetadata{Query: "first"}
	ask2 := node("ask2", NodeTypeSkillResponse)
	ask2.Data.Skill = &SkillMetadata{Query: "second"}
	ask3 := node("ask3", NodeTypeSkillResponse)
	ask3.Data.Skill = &SkillMetadata{
		Query:        "third",
		ContextItems: []ContextItem{{EntityID: "e-ask2", Type: "skillResponse", WithHistory: true}},
	}
	canvas := CanvasData{
		Nodes: []CanvasNode{ask1, ask2, ask3},
		Edges: []CanvasEdge{edge("ask1", "ask2"), edge("ask2", "ask3")},
	}

	plan, err := PrepareNodeExecutions(PlanRequest{Canvas: canvas, Mode: ModeUpdate})
	require.NoError(t, err)

	var got []ResultRef
	for _, e := range plan.NodeExecutions {
		if e.NodeID == "ask3" {
			got = e.ResultHistory
		}
	}
	// Oldest first.
	require.Len(t, got, 2)
	assert.Equal(t, "e-ask1", got[0].ResultID)
	assert.Equal(t, "e-ask2", got[1].ResultID)
}

func TestPrepareNodeExecutionsSelfLoopRootScheduledOnce(t *testing.T) {
	loop := node("loop", NodeTypeSkillResponse)
	loop.Data.Skill = &SkillMetadata{Query: "q"}
	canvas := CanvasData{
		Nodes: []CanvasNode{loop},
		Edges: []CanvasEdge{edge("loop", "loop")},
	}

	plan, err := PrepareNodeExecutions(PlanRequest{Canvas: canvas, Mode: ModeUpdate})

	require.NoError(t, err)
	require.Len(t, plan.NodeExecutions, 1)
	assert.Equal(t, StatusInit, plan.NodeExecutions[0].Status)
	assert.Equal(t, []string{"loop"}, plan.StartNodes)
}
