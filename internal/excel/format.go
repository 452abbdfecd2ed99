// Package excel converts survey templates to and from the flattened
// spreadsheet layout used for bulk editing:
//
//	Template Name | <name>
//	Description   | <description>
//	(blank)
//	Field ID | Type | Label | Required | Parent Field | Options | Notes
//	BASE FIELDS
//	<base field rows>
//	SPECIFIC FIELDS
//	<specific field rows>
//
// Nested rows of object and array fields name their parent in the Parent Field
// column (a dotted path below the first level) and prefix their label with an
// arrow per nesting level.
package excel

import (
	"fmt"
	"strings"
	"surveys/internal/models"
	"unicode/utf8"
)

const (
	MIMEType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	FileExtension = ".xlsx"

	ColumnFieldID  = "Field ID"
	ColumnType     = "Type"
	ColumnLabel    = "Label"
	ColumnRequired = "Required"
	ColumnParent   = "Parent Field"
	ColumnOptions  = "Options"
	ColumnNotes    = "Notes"

	LabelTemplateName = "Template Name"
	LabelDescription  = "Description"

	MarkerBase     = "BASE FIELDS"
	MarkerSpecific = "SPECIFIC FIELDS"

	InstructionsSheet = "Instructions"

	nestedPrefix    = "→ "
	optionSeparator = "; "
	maxSheetName    = 31
)

// Headers is the header row in column order.
var Headers = []string{
	ColumnFieldID,
	ColumnType,
	ColumnLabel,
	ColumnRequired,
	ColumnParent,
	ColumnOptions,
	ColumnNotes,
}

var requiredColumns = []string{
	ColumnFieldID,
	ColumnType,
	ColumnLabel,
	ColumnRequired,
	ColumnParent,
}

type Section string

const (
	SectionBase     Section = "BASE"
	SectionSpecific Section = "SPECIFIC"
)

func (s Section) marker() string {
	if s == SectionSpecific {
		return MarkerSpecific
	}
	return MarkerBase
}

// Row is one field line of a template sheet.
type Row struct {
	FieldID  string
	Type     models.FieldType
	Label    string
	Required bool
	Parent   string
	Options  string
	Notes    string
}

func (r Row) values() []any {
	return []any{
		r.FieldID,
		string(r.Type),
		r.Label,
		formatRequired(r.Required),
		r.Parent,
		r.Options,
		r.Notes,
	}
}

// FlattenTree lists every field of tree, each top-level field followed by its
// nested fields, depth first.
func FlattenTree(tree *models.FieldTree) []Row {
	var rows []Row
	tree.Each(func(id string, def models.FieldDef) bool {
		rows = append(rows, newRow(id, def, "", 0))
		rows = appendNested(rows, def, id, 1)
		return true
	})
	return rows
}

func appendNested(rows []Row, parent models.FieldDef, parentPath string, depth int) []Row {
	children := parent.Children()
	children.Each(func(id string, def models.FieldDef) bool {
		rows = append(rows, newRow(id, def, parentPath, depth))
		rows = appendNested(rows, def, parentPath+"."+id, depth+1)
		return true
	})
	return rows
}

func newRow(id string, def models.FieldDef, parentPath string, depth int) Row {
	return Row{
		FieldID:  id,
		Type:     def.Type,
		Label:    strings.Repeat(nestedPrefix, depth) + def.Label,
		Required: def.Validation.Required,
		Parent:   parentPath,
		Options:  FormatOptions(def.Options),
		Notes:    notesFor(def),
	}
}

func notesFor(def models.FieldDef) string {
	switch def.Type {
	case models.FieldTypeObject:
		return fmt.Sprintf("Object with %d fields", def.Fields.Len())
	case models.FieldTypeArray:
		return fmt.Sprintf("Array item template (%d fields)", def.ItemTemplate.Len())
	case models.FieldTypeSelect, models.FieldTypeRadio:
		if len(def.Options) == 0 {
			return "No options defined"
		}
	}
	return ""
}

// FormatOptions writes options as "value:label" pairs. A value that equals
// its label is written once. Backslash escapes ':', ';' and itself.
func FormatOptions(options []models.Option) string {
	parts := make([]string, 0, len(options))
	for _, option := range options {
		if option.Value == option.Label {
			parts = append(parts, escapeOption(option.Value))
			continue
		}
		parts = append(parts, escapeOption(option.Value)+":"+escapeOption(option.Label))
	}
	return strings.Join(parts, optionSeparator)
}

var optionEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`, ";", `\;`)

func escapeOption(s string) string {
	return optionEscaper.Replace(s)
}

// ParseOptions reads the FormatOptions encoding. Only the first unescaped
// ':' of a pair separates value from label.
func ParseOptions(s string) []models.Option {
	var (
		options      []models.Option
		value, label strings.Builder
		hasLabel     bool
		escaped      bool
	)
	current := &value

	flush := func() {
		v := strings.TrimSpace(value.String())
		l := strings.TrimSpace(label.String())
		if v != "" || l != "" {
			if !hasLabel || l == "" {
				l = v
			}
			options = append(options, models.Option{Value: v, Label: l})
		}
		value.Reset()
		label.Reset()
		hasLabel = false
		current = &value
	}

	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ';':
			flush()
		case r == ':' && !hasLabel:
			hasLabel = true
			current = &label
		default:
			current.WriteRune(r)
		}
	}
	if escaped {
		current.WriteRune('\\')
	}
	flush()

	return options
}

func formatRequired(required bool) string {
	if required {
		return "Yes"
	}
	return "No"
}

func parseRequired(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "x", "required":
		return true, true
	case "no", "n", "false", "0", "":
		return false, true
	default:
		return false, false
	}
}

func stripNestedPrefix(label string) string {
	return strings.TrimSpace(strings.TrimLeft(label, "→ \t"))
}

// SheetName makes name usable as a worksheet name and unique among used.
func SheetName(name string, used map[string]bool) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	cleaned = strings.Trim(cleaned, "'")
	if cleaned == "" {
		cleaned = "Template"
	}
	cleaned = truncateRunes(cleaned, maxSheetName)

	candidate := cleaned
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(cleaned, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}

	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
