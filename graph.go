package canvasflow

import "sort"

// Index is the adjacency view of a canvas graph.
// ParentMap and ChildMap hold an entry (possibly empty) for every node ID;
// neighbor lists follow edge input order and carry no further guarantee.
type Index struct {
	NodeMap   map[string]CanvasNode
	ParentMap map[string][]string
	ChildMap  map[string][]string
}

// BuildIndex builds the id→node lookup and parent/child adjacency maps.
// Duplicate node IDs resolve last-write-wins; edges with endpoints missing
// from the node set are skipped without error.
func BuildIndex(nodes []CanvasNode, edges []CanvasEdge) Index {
	idx := Index{
		NodeMap:   make(map[string]CanvasNode, len(nodes)),
		ParentMap: make(map[string][]string, len(nodes)),
		ChildMap:  make(map[string][]string, len(nodes)),
	}

	for _, n := range nodes {
		idx.NodeMap[n.ID] = n
		if _, ok := idx.ParentMap[n.ID]; !ok {
			idx.ParentMap[n.ID] = []string{}
			idx.ChildMap[n.ID] = []string{}
		}
	}

	for _, e := range edges {
		if _, ok := idx.NodeMap[e.Source]; !ok {
			continue
		}
		if _, ok := idx.NodeMap[e.Target]; !ok {
			continue
		}
		idx.ChildMap[e.Source] = append(idx.ChildMap[e.Source], e.Target)
		idx.ParentMap[e.Target] = append(idx.ParentMap[e.Target], e.Source)
	}

	return idx
}

// ReachableFrom returns the set of node IDs reachable from startIDs via child
// edges, including the start nodes themselves. Breadth-first; the visited set
// makes it cycle-safe — a back-edge fails the check and is not re-enqueued.
func ReachableFrom(startIDs []string, childMap map[string][]string) map[string]struct{} {
	visited := make(map[string]struct{}, len(startIDs))
	queue := make([]string, 0, len(startIDs))

	for _, id := range startIDs {
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range childMap[id] {
			if _, ok := visited[child]; ok {
				continue
			}
			visited[child] = struct{}{}
			queue = append(queue, child)
		}
	}

	return visited
}

// RootNodeIDs returns the natural start set: nodes with no parents, plus
// nodes whose only parent is themselves. Without the self-loop case a node
// with a single A→A edge would never be scheduled.
func RootNodeIDs(idx Index) []string {
	roots := make([]string, 0)
	for _, n := range idx.NodeMap {
		isRoot := true
		for _, p := range idx.ParentMap[n.ID] {
			if p != n.ID {
				isRoot = false
				break
			}
		}
		if isRoot {
			roots = append(roots, n.ID)
		}
	}
	// Map iteration order is random; sort so the start set is reproducible.
	sort.Strings(roots)
	return roots
}
