package canvasflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textVar(name, text string) WorkflowVariable {
	return WorkflowVariable{
		Name:         name,
		VariableType: VariableTypeString,
		Value:        []VariableValue{{Type: "text", Text: text}},
	}
}

func resourceVar(name, entityID, fileName string) WorkflowVariable {
	return WorkflowVariable{
		Name:         name,
		VariableType: VariableTypeResource,
		Value: []VariableValue{{
			Type:     "resource",
			Resource: &ResourceValue{EntityID: entityID, Name: fileName, FileType: "pdf"},
		}},
	}
}

func TestDefaultMentionProcessorReplacesVariables(t *testing.T) {
	vars := []WorkflowVariable{textVar("topic", "tidal energy"), resourceVar("brief", "res-1", "brief.pdf")}

	res, err := DefaultMentionProcessor{}.ProcessQuery("Research {{topic}} using {{brief}}", ProcessOptions{
		Variables:   vars,
		ReplaceVars: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "Research {{topic}} using {{brief}}", res.UpdatedQuery)
	assert.Equal(t, "Research tidal energy using brief.pdf", res.LLMInputQuery)
	require.Len(t, res.ResourceVars, 1)
	assert.Equal(t, "brief", res.ResourceVars[0].Name)
}

func TestDefaultMentionProcessorUnknownMentionKept(t *testing.T) {
	res, err := DefaultMentionProcessor{}.ProcessQuery("use {{missing}}", ProcessOptions{ReplaceVars: true})

	require.NoError(t, err)
	assert.Equal(t, "use {{missing}}", res.LLMInputQuery)
}

func TestDefaultMentionProcessorToolMention(t *testing.T) {
	lookup := func(id string) (ToolsetDefinition, bool) {
		if id == "search" {
			return ToolsetDefinition{ID: "search", Name: "Web Search"}, true
		}
		return ToolsetDefinition{}, false
	}

	res, err := DefaultMentionProcessor{}.ProcessQuery("run {{tool:search}} and {{tool:unknown}}", ProcessOptions{
		ReplaceVars: true,
		Toolsets:    lookup,
	})

	require.NoError(t, err)
	assert.Equal(t, "run Web Search and {{tool:unknown}}", res.LLMInputQuery)
}

type failingProcessor struct{}

func (failingProcessor) ProcessQuery(string, ProcessOptions) (ProcessResult, error) {
	return ProcessResult{}, errors.New("malformed mention")
}

func TestBindVariablesDegradesOnProcessorFailure(t *testing.T) {
	b := BindVariables("broken {{", []WorkflowVariable{textVar("x", "1")}, failingProcessor{}, nil)

	assert.Equal(t, "broken {{", b.UpdatedQuery)
	assert.Equal(t, "broken {{", b.LLMInputQuery)
	assert.Empty(t, b.ReferencedVariables)
}

func TestBindVariablesRecordsReferencedNames(t *testing.T) {
	vars := []WorkflowVariable{textVar("a", "1"), textVar("b", "2"), textVar("unused", "3")}

	b := BindVariables("{{a}} then {{b}}", vars, nil, nil)

	assert.Equal(t, []string{"a", "b"}, b.ReferencedVariables)
}

func TestUpdateContextItemsFromVariablesIsUpdateOnly(t *testing.T) {
	items := []ContextItem{
		{EntityID: "res-1", Type: ContextItemTypeResource, Title: "old name"},
		{EntityID: "e-doc", Type: "document", Title: "doc"},
	}
	vars := []WorkflowVariable{
		resourceVar("brief", "res-1", "renamed.pdf"),
		resourceVar("unmatched", "res-2", "new.pdf"),
	}

	updated := UpdateContextItemsFromVariables(items, vars)

	// Matching resource item gets the variable's resource name.
	require.Len(t, updated, 2)
	assert.Equal(t, "renamed.pdf", updated[0].Title)
	// Non-resource items untouched, unmatched variables not inserted.
	assert.Equal(t, "doc", updated[1].Title)
}

func TestAppendResourceContextItemsSkipsExisting(t *testing.T) {
	items := []ContextItem{{EntityID: "res-1", Type: ContextItemTypeResource, Title: "brief.pdf"}}
	vars := []WorkflowVariable{
		resourceVar("brief", "res-1", "brief.pdf"),
		resourceVar("sheet", "res-2", "sheet.csv"),
	}

	out := appendResourceContextItems(items, vars)

	require.Len(t, out, 2)
	assert.Equal(t, "res-2", out[1].EntityID)
	assert.Equal(t, "sheet.csv", out[1].Title)
}
