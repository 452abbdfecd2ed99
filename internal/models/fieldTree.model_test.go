package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderedTreeJSON = `{
	"unitTag": {"type": "text", "label": "Unit Tag", "validation": {"required": true}},
	"condition": {
		"type": "select",
		"label": "Condition",
		"validation": {"required": false},
		"options": [{"value": "good", "label": "Good"}, {"value": "poor", "label": "Poor"}]
	},
	"nameplate": {
		"type": "object",
		"label": "Nameplate",
		"validation": {"required": false},
		"fields": {
			"model": {"type": "text", "label": "Model", "validation": {"required": true}},
			"serial": {"type": "text", "label": "Serial", "validation": {"required": false}}
		}
	},
	"filters": {
		"type": "array",
		"label": "Filters",
		"validation": {"required": false},
		"itemTemplate": {
			"size": {"type": "text", "label": "Size", "validation": {"required": true}}
		}
	}
}`

func TestFieldTree_UnmarshalKeepsOrder(t *testing.T) {
	var tree FieldTree
	require.NoError(t, json.Unmarshal([]byte(orderedTreeJSON), &tree))

	assert.Equal(t, []string{"unitTag", "condition", "nameplate", "filters"}, tree.Keys())

	nameplate, ok := tree.Get("nameplate")
	require.True(t, ok)
	assert.Equal(t, []string{"model", "serial"}, nameplate.Fields.Keys())

	filters, ok := tree.Get("filters")
	require.True(t, ok)
	assert.Equal(t, []string{"size"}, filters.ItemTemplate.Keys())
	assert.Same(t, filters.ItemTemplate, filters.Children())

	condition, _ := tree.Get("condition")
	assert.Equal(t, []Option{{Value: "good", Label: "Good"}, {Value: "poor", Label: "Poor"}}, condition.Options)
}

func TestFieldTree_MarshalRoundTrip(t *testing.T) {
	var tree FieldTree
	require.NoError(t, json.Unmarshal([]byte(orderedTreeJSON), &tree))

	encoded, err := json.Marshal(tree)
	require.NoError(t, err)

	var decoded FieldTree
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.True(t, tree.Equal(&decoded))
	assert.Equal(t, tree.Keys(), decoded.Keys())
}

func TestFieldTree_NullAndEmpty(t *testing.T) {
	var tree FieldTree
	require.NoError(t, json.Unmarshal([]byte("null"), &tree))
	assert.Equal(t, 0, tree.Len())

	encoded, err := json.Marshal(FieldTree{})
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(encoded))

	err = json.Unmarshal([]byte(`["not", "an", "object"]`), &tree)
	assert.Error(t, err)
}

func TestFieldTree_SetReplaceKeepsPosition(t *testing.T) {
	tree := NewFieldTree()
	tree.Set("a", FieldDef{Type: FieldTypeText, Label: "A"})
	tree.Set("b", FieldDef{Type: FieldTypeText, Label: "B"})
	tree.Set("a", FieldDef{Type: FieldTypeNumber, Label: "A2"})

	assert.Equal(t, []string{"a", "b"}, tree.Keys())
	a, _ := tree.Get("a")
	assert.Equal(t, FieldTypeNumber, a.Type)

	tree.Delete("a")
	assert.Equal(t, []string{"b"}, tree.Keys())
	assert.False(t, tree.Has("a"))
}

func TestFieldTree_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tree    func() *FieldTree
		wantErr string
	}{
		{
			name: "valid nested tree",
			tree: func() *FieldTree {
				var tree FieldTree
				_ = json.Unmarshal([]byte(orderedTreeJSON), &tree)
				return &tree
			},
		},
		{
			name: "object without fields",
			tree: func() *FieldTree {
				tree := NewFieldTree()
				tree.Set("nameplate", FieldDef{Type: FieldTypeObject, Label: "Nameplate"})
				return tree
			},
			wantErr: "nameplate: object field requires fields",
		},
		{
			name: "array without item template",
			tree: func() *FieldTree {
				tree := NewFieldTree()
				tree.Set("filters", FieldDef{Type: FieldTypeArray, Label: "Filters"})
				return tree
			},
			wantErr: "filters: array field requires itemTemplate",
		},
		{
			name: "unknown type reported with nested path",
			tree: func() *FieldTree {
				inner := NewFieldTree()
				inner.Set("voltage", FieldDef{Type: "slider", Label: "Voltage"})
				tree := NewFieldTree()
				tree.Set("electrical", FieldDef{Type: FieldTypeObject, Label: "Electrical", Fields: inner})
				return tree
			},
			wantErr: `electrical.voltage: unknown field type "slider"`,
		},
		{
			name: "missing label",
			tree: func() *FieldTree {
				tree := NewFieldTree()
				tree.Set("notes", FieldDef{Type: FieldTypeTextarea})
				return tree
			},
			wantErr: "notes: label is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tree().Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseFieldType(t *testing.T) {
	for _, ft := range FieldTypes() {
		parsed, ok := ParseFieldType(string(ft))
		assert.True(t, ok)
		assert.Equal(t, ft, parsed)
	}

	parsed, ok := ParseFieldType("  Object ")
	assert.True(t, ok)
	assert.Equal(t, FieldTypeObject, parsed)
	assert.True(t, parsed.IsContainer())

	_, ok = ParseFieldType("checkbox")
	assert.False(t, ok)
	assert.False(t, FieldTypeText.IsContainer())
}

func TestSurveyTemplate_Validate(t *testing.T) {
	template := NewSurveyTemplate("", "", FieldTree{}, FieldTree{})
	err := template.Validate()
	assert.ErrorIs(t, err, ErrValidation)

	template.Name = "Rooftop Unit"
	assert.NoError(t, template.Validate())
}

func TestErrorHelpers(t *testing.T) {
	err := NotFound("survey template", "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, `survey template "abc" not found`, err.Error())

	err = Conflict("template %q already exists", "RTU")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), `"RTU"`)
}
