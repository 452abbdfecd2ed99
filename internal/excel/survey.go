package excel

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"surveys/internal/models"

	"github.com/xuri/excelize/v2"
)

const surveySheet = "Survey"

var surveyHeaders = []any{"Section", ColumnFieldID, ColumnLabel, "Value"}

type valueRow struct {
	section string
	path    string
	label   string
	value   string
}

// WriteSurvey streams a single-sheet workbook listing the answers of survey
// against the fields of its template. Answers for fields the template does not
// define are listed under OTHER.
func WriteSurvey(w io.Writer, survey *models.Survey, template *models.SurveyTemplate) error {
	data := map[string]any{}
	if len(survey.SurveyData) > 0 {
		if err := json.Unmarshal(survey.SurveyData, &data); err != nil {
			return models.Invalid("survey data is not a JSON object: %v", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := f.SetSheetName(f.GetSheetName(0), surveySheet); err != nil {
		return err
	}

	sw := &sheetWriter{f: f, sheet: surveySheet}
	for _, meta := range [][]any{
		{LabelTemplateName, template.Name},
		{"Equipment ID", survey.EquipmentID},
		{"Survey Date", survey.SurveyDate.Format("2006-01-02")},
		{"Prepared By", survey.PreparedBy},
	} {
		row, err := sw.next(meta...)
		if err != nil {
			return err
		}
		if err := sw.style(row, styles.label, 1); err != nil {
			return err
		}
	}

	if _, err := sw.next(); err != nil {
		return err
	}
	row, err := sw.next(surveyHeaders...)
	if err != nil {
		return err
	}
	if err := sw.style(row, styles.header, len(surveyHeaders)); err != nil {
		return err
	}

	known := map[string]bool{}
	var rows []valueRow
	for _, s := range []struct {
		section Section
		tree    *models.FieldTree
	}{
		{SectionBase, template.Base()},
		{SectionSpecific, template.Specific()},
	} {
		s.tree.Each(func(id string, def models.FieldDef) bool {
			known[id] = true
			rows = appendValues(rows, string(s.section), id, 0, def, data[id])
			return true
		})
	}

	var extra []string
	for id := range data {
		if !known[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		rows = append(rows, valueRow{section: "OTHER", path: id, label: id, value: formatValue(data[id], nil)})
	}

	for _, r := range rows {
		if _, err := sw.next(r.section, r.path, r.label, r.value); err != nil {
			return err
		}
	}

	for col, width := range map[string]float64{"A": 12, "B": 32, "C": 36, "D": 40} {
		if err := f.SetColWidth(surveySheet, col, col, width); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func appendValues(rows []valueRow, section, path string, depth int, def models.FieldDef, value any) []valueRow {
	label := strings.Repeat(nestedPrefix, depth) + def.Label

	switch def.Type {
	case models.FieldTypeObject:
		rows = append(rows, valueRow{section: section, path: path, label: label})
		nested, _ := value.(map[string]any)
		def.Fields.Each(func(id string, child models.FieldDef) bool {
			rows = appendValues(rows, section, path+"."+id, depth+1, child, nested[id])
			return true
		})
		return rows

	case models.FieldTypeArray:
		items, _ := value.([]any)
		rows = append(rows, valueRow{
			section: section,
			path:    path,
			label:   label,
			value:   fmt.Sprintf("%d item(s)", len(items)),
		})
		for i, item := range items {
			nested, _ := item.(map[string]any)
			def.ItemTemplate.Each(func(id string, child models.FieldDef) bool {
				rows = appendValues(rows, section, fmt.Sprintf("%s[%d].%s", path, i, id), depth+1, child, nested[id])
				return true
			})
		}
		return rows
	}

	return append(rows, valueRow{
		section: section,
		path:    path,
		label:   label,
		value:   formatValue(value, def.Options),
	})
}

// formatValue renders an answer for a cell. Select and radio answers are shown
// with their option label.
func formatValue(value any, options []models.Option) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		for _, option := range options {
			if option.Value == v {
				return option.Label
			}
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return formatRequired(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
