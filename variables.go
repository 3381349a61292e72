package canvasflow

import (
	"regexp"
	"strings"
)

// ToolsetDefinition describes a tool integration referenced from a prompt.
type ToolsetDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ToolsetLookup resolves a toolset ID to its definition. Used only to render
// tool-mention display names; ordering correctness never depends on it.
type ToolsetLookup func(id string) (ToolsetDefinition, bool)

// ProcessOptions are passed through to the mention processor.
type ProcessOptions struct {
	Variables   []WorkflowVariable
	ReplaceVars bool
	Toolsets    ToolsetLookup
}

// ProcessResult is what a mention processor returns for one query.
type ProcessResult struct {
	UpdatedQuery  string
	LLMInputQuery string
	// ResourceVars are the resource-typed variables the query referenced.
	ResourceVars []WorkflowVariable
}

// MentionProcessor substitutes {{name}} mentions inside prompt text. The
// substitution grammar belongs to the processor; the planner only
// orchestrates the call and merges the result into node metadata.
type MentionProcessor interface {
	ProcessQuery(raw string, opts ProcessOptions) (ProcessResult, error)
}

// Binding is the outcome of binding one node's query against the variables.
type Binding struct {
	UpdatedQuery        string
	LLMInputQuery       string
	ReferencedVariables []string
	ResourceVars        []WorkflowVariable
}

// BindVariables resolves a raw query through the mention processor. A
// processor failure degrades to the unresolved query text so a single
// malformed prompt never fails the whole plan.
func BindVariables(raw string, vars []WorkflowVariable, mp MentionProcessor, toolsets ToolsetLookup) Binding {
	if mp == nil {
		mp = DefaultMentionProcessor{}
	}

	res, err := mp.ProcessQuery(raw, ProcessOptions{
		Variables:   vars,
		ReplaceVars: true,
		Toolsets:    toolsets,
	})
	if err != nil {
		return Binding{UpdatedQuery: raw, LLMInputQuery: raw}
	}

	return Binding{
		UpdatedQuery:        res.UpdatedQuery,
		LLMInputQuery:       res.LLMInputQuery,
		ReferencedVariables: referencedNames(raw, vars),
		ResourceVars:        res.ResourceVars,
	}
}

// referencedNames records which variables the raw query mentions, in variable
// declaration order.
func referencedNames(raw string, vars []WorkflowVariable) []string {
	var names []string
	for _, v := range vars {
		if strings.Contains(raw, "{{"+v.Name+"}}") {
			names = append(names, v.Name)
		}
	}
	return names
}

// UpdateContextItemsFromVariables refreshes the display titles of existing
// resource context items from resource-typed variables that point at the same
// entity. Update-only: variables without a matching context item are not
// inserted here, so a node's context never silently grows on re-planning.
func UpdateContextItemsFromVariables(items []ContextItem, vars []WorkflowVariable) []ContextItem {
	if len(items) == 0 || len(vars) == 0 {
		return items
	}

	nameByEntity := make(map[string]string)
	for _, v := range vars {
		if v.VariableType != VariableTypeResource {
			continue
		}
		for _, val := range v.Value {
			if val.Resource != nil && val.Resource.EntityID != "" {
				nameByEntity[val.Resource.EntityID] = val.Resource.Name
			}
		}
	}

	out := make([]ContextItem, len(items))
	for i, item := range items {
		if item.Type == ContextItemTypeResource {
			if name, ok := nameByEntity[item.EntityID]; ok {
				item.Title = name
			}
		}
		out[i] = item
	}
	return out
}

// appendResourceContextItems inserts context items for resource variables the
// query referenced, skipping entities already present. This is the caller-side
// insert that UpdateContextItemsFromVariables deliberately does not do.
func appendResourceContextItems(items []ContextItem, resourceVars []WorkflowVariable) []ContextItem {
	existing := make(map[string]struct{}, len(items))
	for _, item := range items {
		existing[item.EntityID] = struct{}{}
	}

	for _, v := range resourceVars {
		for _, val := range v.Value {
			if val.Resource == nil || val.Resource.EntityID == "" {
				continue
			}
			if _, ok := existing[val.Resource.EntityID]; ok {
				continue
			}
			existing[val.Resource.EntityID] = struct{}{}
			items = append(items, ContextItem{
				EntityID: val.Resource.EntityID,
				Type:     ContextItemTypeResource,
				Title:    val.Resource.Name,
			})
		}
	}
	return items
}

var mentionPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_.:-]+)\}\}`)

// DefaultMentionProcessor is a minimal {{name}} substitution used when no
// external processor is wired in. Variable mentions are replaced with the
// variable's text entries (resource entries render as the resource name);
// {{tool:<id>}} mentions render the toolset display name. Unknown mentions
// are left untouched.
type DefaultMentionProcessor struct{}

// ProcessQuery implements MentionProcessor.
func (DefaultMentionProcessor) ProcessQuery(raw string, opts ProcessOptions) (ProcessResult, error) {
	byName := make(map[string]WorkflowVariable, len(opts.Variables))
	for _, v := range opts.Variables {
		byName[v.Name] = v
	}

	var resourceVars []WorkflowVariable
	seen := make(map[string]struct{})

	replaced := mentionPattern.ReplaceAllStringFunc(raw, func(m string) string {
		name := m[2 : len(m)-2]

		if id, ok := strings.CutPrefix(name, "tool:"); ok {
			if opts.Toolsets != nil {
				if def, found := opts.Toolsets(id); found {
					return def.Name
				}
			}
			return m
		}

		v, ok := byName[name]
		if !ok {
			return m
		}
		if v.VariableType == VariableTypeResource {
			if _, dup := seen[v.Name]; !dup {
				seen[v.Name] = struct{}{}
				resourceVars = append(resourceVars, v)
			}
		}
		if !opts.ReplaceVars {
			return m
		}
		return renderValue(v)
	})

	llmInput := raw
	if opts.ReplaceVars {
		llmInput = replaced
	}
	// UpdatedQuery keeps the mention markup; only the LLM-facing form is
	// substituted.
	return ProcessResult{
		UpdatedQuery:  raw,
		LLMInputQuery: llmInput,
		ResourceVars:  resourceVars,
	}, nil
}

func renderValue(v WorkflowVariable) string {
	parts := make([]string, 0, len(v.Value))
	for _, val := range v.Value {
		switch {
		case val.Resource != nil:
			parts = append(parts, val.Resource.Name)
		case val.Text != "":
			parts = append(parts, val.Text)
		}
	}
	return strings.Join(parts, ", ")
}
