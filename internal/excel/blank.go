package excel

import (
	"io"
	"strings"
	"surveys/internal/models"

	"github.com/xuri/excelize/v2"
)

const exampleTemplateName = "New Equipment Template"

// ExampleTemplate is the template pre-filled in the blank import sheet. It uses
// every container shape so the sheet shows how nesting is written.
func ExampleTemplate() *models.SurveyTemplate {
	base := models.NewFieldTree()
	base.Set("manufacturer", models.FieldDef{
		Type:       models.FieldTypeText,
		Label:      "Manufacturer",
		Validation: models.Validation{Required: true},
	})
	base.Set("condition", models.FieldDef{
		Type:  models.FieldTypeSelect,
		Label: "Condition",
		Options: []models.Option{
			{Value: "good", Label: "Good"},
			{Value: "fair", Label: "Fair"},
			{Value: "poor", Label: "Poor"},
		},
	})

	nameplate := models.NewFieldTree()
	nameplate.Set("model", models.FieldDef{Type: models.FieldTypeText, Label: "Model Number"})
	nameplate.Set("serial", models.FieldDef{Type: models.FieldTypeText, Label: "Serial Number"})
	base.Set("nameplate", models.FieldDef{
		Type:   models.FieldTypeObject,
		Label:  "Nameplate",
		Fields: nameplate,
	})

	specific := models.NewFieldTree()
	specific.Set("tonnage", models.FieldDef{Type: models.FieldTypeNumber, Label: "Cooling Capacity (tons)"})

	filter := models.NewFieldTree()
	filter.Set("size", models.FieldDef{Type: models.FieldTypeText, Label: "Filter Size"})
	filter.Set("quantity", models.FieldDef{Type: models.FieldTypeNumber, Label: "Quantity"})
	specific.Set("filters", models.FieldDef{
		Type:         models.FieldTypeArray,
		Label:        "Filters",
		ItemTemplate: filter,
	})

	return models.NewSurveyTemplate(
		exampleTemplateName,
		"Replace the example rows with the fields of your template",
		*base,
		*specific,
	)
}

var instructions = []string{
	"How to fill in a survey template sheet",
	"",
	"One sheet describes one template. Add more sheets to import several templates at once.",
	"Put the template name next to \"" + LabelTemplateName + "\" and an optional description next to \"" + LabelDescription + "\".",
	"List fields below the " + MarkerBase + " and " + MarkerSpecific + " marker rows.",
	"",
	"Columns",
	ColumnFieldID + ": unique key of the field within its parent. Must not contain '.'.",
	ColumnType + ": one of " + fieldTypeList() + ".",
	ColumnLabel + ": text shown to the surveyor. A leading \"→ \" is ignored.",
	ColumnRequired + ": Yes or No.",
	ColumnParent + ": empty for top-level fields. Otherwise the id of an object or array field listed above, dotted for deeper levels (nameplate.rating).",
	ColumnOptions + ": for select and radio fields, value:label pairs separated by \"; \". Write \\: or \\; for a literal colon or semicolon.",
	ColumnNotes + ": ignored on import.",
}

func fieldTypeList() string {
	types := models.FieldTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// WriteBlankTemplate streams the sheet users fill in to create templates by
// import: an example template sheet followed by an instructions sheet.
func WriteBlankTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	example := ExampleTemplate()
	sheet := SheetName(example.Name, map[string]bool{})
	if err := addSheet(f, sheet, true); err != nil {
		return err
	}
	if err := writeTemplateSheet(f, sheet, example, styles); err != nil {
		return err
	}

	if _, err := f.NewSheet(InstructionsSheet); err != nil {
		return err
	}
	sw := &sheetWriter{f: f, sheet: InstructionsSheet}
	for i, line := range instructions {
		row, err := sw.next(line)
		if err != nil {
			return err
		}
		if i == 0 {
			if err := sw.style(row, styles.label, 1); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(InstructionsSheet, "A", "A", 120); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}
