package canvasflow

// NodeType identifies what kind of content or work a canvas node represents.
type NodeType string

const (
	NodeTypeStart         NodeType = "start"
	NodeTypeSkillResponse NodeType = "skillResponse"
	NodeTypeDocument      NodeType = "document"
	NodeTypeCodeArtifact  NodeType = "codeArtifact"
	NodeTypeImage         NodeType = "image"
	NodeTypeVideo         NodeType = "video"
	NodeTypeAudio         NodeType = "audio"
	NodeTypeMemo          NodeType = "memo"
)

// producesOutput reports whether nodes of this type are (re)executed when they
// fall inside the planned subtree. Types outside this set (start, memo, ...)
// are always considered already complete.
func (t NodeType) producesOutput() bool {
	switch t {
	case NodeTypeSkillResponse, NodeTypeDocument, NodeTypeCodeArtifact,
		NodeTypeImage, NodeTypeVideo, NodeTypeAudio:
		return true
	}
	return false
}

// CanvasData is a user-authored workflow graph.
type CanvasData struct {
	ID    string       `json:"id,omitempty"`
	Nodes []CanvasNode `json:"nodes"`
	Edges []CanvasEdge `json:"edges"`
}

// CanvasNode is a vertex in the canvas graph. ID is the graph-position
// identity; Data.EntityID is the stable identity of the underlying content.
type CanvasNode struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	Data NodeData `json:"data"`
}

// NodeData carries the per-node payload. Skill is populated only for
// skillResponse nodes; all other node types carry no planner-relevant
// metadata beyond the identity fields.
type NodeData struct {
	EntityID       string         `json:"entityId"`
	Title          string         `json:"title,omitempty"`
	ContentPreview string         `json:"contentPreview,omitempty"`
	Skill          *SkillMetadata `json:"metadata,omitempty"`
}

// SkillMetadata is the metadata variant attached to skillResponse nodes.
type SkillMetadata struct {
	Query               string        `json:"query,omitempty"`
	LLMInputQuery       string        `json:"llmInputQuery,omitempty"`
	ContextItems        []ContextItem `json:"contextItems,omitempty"`
	ReferencedVariables []string      `json:"referencedVariables,omitempty"`
}

// clone returns a deep copy so transforms never alias the original metadata.
func (m *SkillMetadata) clone() *SkillMetadata {
	if m == nil {
		return nil
	}
	c := *m
	c.ContextItems = append([]ContextItem(nil), m.ContextItems...)
	c.ReferencedVariables = append([]string(nil), m.ReferencedVariables...)
	return &c
}

// ContextItem references a piece of context (a resource, a prior response)
// attached to a skillResponse node.
type ContextItem struct {
	EntityID    string `json:"entityId"`
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	WithHistory bool   `json:"withHistory,omitempty"`
}

// ContextItemTypeResource marks context items that point at uploaded files.
const ContextItemTypeResource = "resource"

// CanvasEdge is a directed dependency source → target between two node IDs.
// Edges whose endpoints are missing from the node set are dropped during
// graph indexing; the canvas editor may emit dangling edges transiently.
type CanvasEdge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// VariableType values for WorkflowVariable.
const (
	VariableTypeString   = "string"
	VariableTypeResource = "resource"
	VariableTypeOption   = "option"
)

// WorkflowVariable is a named value referenced by {{name}} mentions inside
// node prompts. Read-only to the planner.
type WorkflowVariable struct {
	Name         string          `json:"name"`
	VariableType string          `json:"variableType"`
	Value        []VariableValue `json:"value"`
}

// VariableValue is one ordered entry of a variable's value list.
type VariableValue struct {
	Type     string         `json:"type"` // "text" | "resource"
	Text     string         `json:"text,omitempty"`
	Resource *ResourceValue `json:"resource,omitempty"`
}

// ResourceValue identifies a file-backed variable entry.
type ResourceValue struct {
	EntityID string `json:"entityId"`
	Name     string `json:"name"`
	FileType string `json:"fileType,omitempty"`
}

// ExecutionStatus of a planned node.
type ExecutionStatus string

const (
	// StatusInit marks nodes scheduled for (re)execution.
	StatusInit ExecutionStatus = "init"
	// StatusFinish marks nodes considered already complete.
	StatusFinish ExecutionStatus = "finish"
)

// ConnectFilter names an upstream output that must exist before a node runs.
type ConnectFilter struct {
	Type       NodeType `json:"type"`
	EntityID   string   `json:"entityId"`
	HandleType string   `json:"handleType"`
}

// HandleTypeSource is the only handle type emitted by the planner.
const HandleTypeSource = "source"

// ResultRef points at a prior skillResponse result pulled in as history.
type ResultRef struct {
	ResultID string `json:"resultId"`
	Title    string `json:"title,omitempty"`
}

// WorkflowNode is one execution record of a prepared plan, ready for the
// dispatcher. Records are created fresh on every planning pass.
type WorkflowNode struct {
	NodeID        string          `json:"nodeId"`
	NodeType      NodeType        `json:"nodeType"`
	EntityID      string          `json:"entityId"`
	Title         string          `json:"title,omitempty"`
	Status        ExecutionStatus `json:"status"`
	ConnectTo     []ConnectFilter `json:"connectTo,omitempty"`
	ParentNodeIDs []string        `json:"parentNodeIds,omitempty"`
	ChildNodeIDs  []string        `json:"childNodeIds,omitempty"`

	// Populated only for prompt-bearing (skillResponse) nodes.
	OriginalQuery  string      `json:"originalQuery,omitempty"`
	ProcessedQuery string      `json:"processedQuery,omitempty"`
	ResultHistory  []ResultRef `json:"resultHistory,omitempty"`
}
