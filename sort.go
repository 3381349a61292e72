package canvasflow

import (
	"encoding/json"
	"sort"
)

// Order arranges execution records so every node appears after all of its
// parents. The output is a pure function of record content: both the outer
// scan and parent selection use lexicographic nodeId order, so any
// permutation of the input yields byte-identical output. Cycles terminate
// because a node is marked visited before its parents are walked; the second
// visit short-circuits, breaking the cycle at the re-visitation point while
// every non-cyclic edge stays respected.
func Order(executions []WorkflowNode) []WorkflowNode {
	byID := make(map[string]WorkflowNode, len(executions))
	parents := make(map[string][]string, len(executions))
	for _, e := range executions {
		byID[e.NodeID] = e
		parents[e.NodeID] = e.ParentNodeIDs
	}

	ordered := topoOrder(nodeIDsOf(executions), parents)

	out := make([]WorkflowNode, 0, len(ordered))
	for _, id := range ordered {
		out = append(out, byID[id])
	}
	return out
}

// SortStoredExecutions orders rows read back from storage, where the
// parent/child ID lists arrive as JSON-encoded string arrays. Decoding
// happens here, at the serialization boundary; a row whose list fails to
// decode is treated as having no parents rather than failing the sort.
func SortStoredExecutions(rows []StoredExecution) []StoredExecution {
	byID := make(map[string]StoredExecution, len(rows))
	parents := make(map[string][]string, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		byID[r.NodeID] = r
		parents[r.NodeID] = decodeIDList(r.ParentNodeIDs)
		ids = append(ids, r.NodeID)
	}

	ordered := topoOrder(ids, parents)

	out := make([]StoredExecution, 0, len(ordered))
	for _, id := range ordered {
		out = append(out, byID[id])
	}
	return out
}

// topoOrder is the shared depth-first emit over parent edges. Parent IDs
// outside the node set are skipped (a rootless reference, not an error).
func topoOrder(ids []string, parents map[string][]string) []string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	inSet := make(map[string]struct{}, len(sorted))
	for _, id := range sorted {
		inSet[id] = struct{}{}
	}

	visited := make(map[string]struct{}, len(sorted))
	order := make([]string, 0, len(sorted))

	var visit func(id string)
	visit = func(id string) {
		if _, ok := visited[id]; ok {
			return
		}
		// Mark before recursing: a parent chain looping back here must
		// short-circuit instead of recursing forever.
		visited[id] = struct{}{}

		ps := append([]string(nil), parents[id]...)
		sort.Strings(ps)
		for _, p := range ps {
			if _, ok := inSet[p]; ok {
				visit(p)
			}
		}
		order = append(order, id)
	}

	for _, id := range sorted {
		visit(id)
	}
	return order
}

func nodeIDsOf(executions []WorkflowNode) []string {
	ids := make([]string, 0, len(executions))
	for _, e := range executions {
		ids = append(ids, e.NodeID)
	}
	return ids
}

func decodeIDList(encoded string) []string {
	if encoded == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(encoded), &ids); err != nil {
		return nil
	}
	return ids
}

// encodeIDList is the inverse boundary: native lists become JSON string
// arrays on the way into storage. A nil list encodes as "[]".
func encodeIDList(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}
