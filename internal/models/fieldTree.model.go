package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeFile     FieldType = "file"
	FieldTypeObject   FieldType = "object"
	FieldTypeArray    FieldType = "array"
)

var fieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeTextarea,
	FieldTypeNumber,
	FieldTypeDate,
	FieldTypeSelect,
	FieldTypeRadio,
	FieldTypeFile,
	FieldTypeObject,
	FieldTypeArray,
}

func FieldTypes() []FieldType {
	return append([]FieldType(nil), fieldTypes...)
}

func ParseFieldType(s string) (FieldType, bool) {
	candidate := FieldType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range fieldTypes {
		if t == candidate {
			return t, true
		}
	}
	return "", false
}

// IsContainer reports whether fields of this type carry a nested FieldTree.
func (t FieldType) IsContainer() bool {
	return t == FieldTypeObject || t == FieldTypeArray
}

type Validation struct {
	Required bool `json:"required"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type FieldDef struct {
	Type         FieldType  `json:"type"`
	Label        string     `json:"label"`
	Validation   Validation `json:"validation"`
	Options      []Option   `json:"options,omitempty"`
	Fields       *FieldTree `json:"fields,omitempty"`
	ItemTemplate *FieldTree `json:"itemTemplate,omitempty"`
}

// Children returns the nested tree of an object or array field.
func (d FieldDef) Children() *FieldTree {
	switch d.Type {
	case FieldTypeObject:
		return d.Fields
	case FieldTypeArray:
		return d.ItemTemplate
	default:
		return nil
	}
}

// FieldTree maps field ids to definitions and remembers insertion order, which
// is the order the JSON object was written in.
type FieldTree struct {
	keys   []string
	fields map[string]FieldDef
}

func NewFieldTree() *FieldTree {
	return &FieldTree{fields: map[string]FieldDef{}}
}

func (t *FieldTree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

func (t *FieldTree) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

func (t *FieldTree) Get(id string) (FieldDef, bool) {
	if t == nil {
		return FieldDef{}, false
	}
	def, ok := t.fields[id]
	return def, ok
}

func (t *FieldTree) Has(id string) bool {
	_, ok := t.Get(id)
	return ok
}

// Set adds or replaces a field. A replaced field keeps its position.
func (t *FieldTree) Set(id string, def FieldDef) {
	if t.fields == nil {
		t.fields = map[string]FieldDef{}
	}
	if _, exists := t.fields[id]; !exists {
		t.keys = append(t.keys, id)
	}
	t.fields[id] = def
}

func (t *FieldTree) Delete(id string) {
	if t == nil {
		return
	}
	if _, exists := t.fields[id]; !exists {
		return
	}
	delete(t.fields, id)
	for i, key := range t.keys {
		if key == id {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

// Each walks the top level in order and stops when fn returns false.
func (t *FieldTree) Each(fn func(id string, def FieldDef) bool) {
	if t == nil {
		return
	}
	for _, key := range t.keys {
		if !fn(key, t.fields[key]) {
			return
		}
	}
}

func (t *FieldTree) Equal(other *FieldTree) bool {
	left, err := json.Marshal(t)
	if err != nil {
		return false
	}
	right, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

func (t FieldTree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')

		encodedDef, err := json.Marshal(t.fields[key])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		buf.Write(encodedDef)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *FieldTree) UnmarshalJSON(data []byte) error {
	t.keys = nil
	t.fields = map[string]FieldDef{}

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	token, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("field tree must be a JSON object, got %v", token)
	}

	for dec.More() {
		token, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("unexpected field tree key %v", token)
		}

		var def FieldDef
		if err := dec.Decode(&def); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		t.Set(key, def)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	return nil
}

// Validate checks field types and that object/array fields carry their nested
// tree. Problems are reported with dotted paths.
func (t *FieldTree) Validate() error {
	var problems []string
	t.validate("", &problems)
	if len(problems) > 0 {
		return Invalid("%s", strings.Join(problems, "; "))
	}
	return nil
}

func (t *FieldTree) validate(prefix string, problems *[]string) {
	t.Each(func(id string, def FieldDef) bool {
		path := id
		if prefix != "" {
			path = prefix + "." + id
		}

		if strings.TrimSpace(id) == "" {
			*problems = append(*problems, fmt.Sprintf("%s: field id is empty", prefix))
			return true
		}
		if _, ok := ParseFieldType(string(def.Type)); !ok {
			*problems = append(*problems, fmt.Sprintf("%s: unknown field type %q", path, def.Type))
		}
		if strings.TrimSpace(def.Label) == "" {
			*problems = append(*problems, fmt.Sprintf("%s: label is required", path))
		}

		switch def.Type {
		case FieldTypeObject:
			if def.Fields == nil {
				*problems = append(*problems, fmt.Sprintf("%s: object field requires fields", path))
			}
		case FieldTypeArray:
			if def.ItemTemplate == nil {
				*problems = append(*problems, fmt.Sprintf("%s: array field requires itemTemplate", path))
			}
		}

		if children := def.Children(); children != nil {
			children.validate(path, problems)
		}
		return true
	})
}
