package excel

import (
	"fmt"
	"io"
	"strings"
	"surveys/internal/models"

	"github.com/xuri/excelize/v2"
)

// ValidationError points at the cell that could not be imported. Row is
// 1-based; sheet-level problems use row 0.
type ValidationError struct {
	Sheet   string `json:"sheet,omitempty"`
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	location := e.Sheet
	if e.Row > 0 {
		location = fmt.Sprintf("%s!%s%d", e.Sheet, e.Column, e.Row)
	}
	return fmt.Sprintf("%s: %s", location, e.Message)
}

type ParsedTemplate struct {
	Sheet          string
	Name           string
	Description    string
	BaseFields     *models.FieldTree
	SpecificFields *models.FieldTree
}

func (p ParsedTemplate) Template() *models.SurveyTemplate {
	return models.NewSurveyTemplate(p.Name, p.Description, *p.BaseFields, *p.SpecificFields)
}

func HeaderList() string {
	return strings.Join(Headers, ", ")
}

// ParseWorkbook parses every template sheet of an .xlsx file. The returned
// error is only set when the file cannot be read as a workbook at all.
func ParseWorkbook(r io.Reader) ([]ParsedTemplate, []ValidationError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, models.Invalid("file is not a readable .xlsx workbook: %v", err)
	}
	defer f.Close()

	var (
		parsed   []ParsedTemplate
		problems []ValidationError
	)

	for _, sheet := range f.GetSheetList() {
		if strings.EqualFold(sheet, InstructionsSheet) {
			continue
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			problems = append(problems, ValidationError{Sheet: sheet, Message: "failed to read sheet: " + err.Error()})
			continue
		}
		if isBlank(rows) {
			continue
		}

		template, sheetProblems := ParseSheet(sheet, rows)
		if len(sheetProblems) > 0 {
			problems = append(problems, sheetProblems...)
			continue
		}
		parsed = append(parsed, template)
	}

	if len(parsed) == 0 && len(problems) == 0 {
		problems = append(problems, ValidationError{Message: "workbook contains no template sheets"})
	}

	names := map[string]string{}
	for _, p := range parsed {
		if other, seen := names[strings.ToLower(p.Name)]; seen {
			problems = append(problems, ValidationError{
				Sheet:   p.Sheet,
				Row:     1,
				Column:  "B",
				Message: fmt.Sprintf("template name %q is also used by sheet %q", p.Name, other),
			})
			continue
		}
		names[strings.ToLower(p.Name)] = p.Sheet
	}

	if len(problems) > 0 {
		return nil, problems, nil
	}
	return parsed, nil, nil
}

func isBlank(rows [][]string) bool {
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return false
			}
		}
	}
	return true
}

func isHeader(row []string) bool {
	for i := range row {
		if strings.EqualFold(cellAt(row, i), ColumnFieldID) {
			return true
		}
	}
	return false
}

func cellAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func columnName(index int) string {
	name, err := excelize.ColumnNumberToName(index + 1)
	if err != nil {
		return ""
	}
	return name
}

// sheetParser holds the state of one sheet scan.
type sheetParser struct {
	sheet    string
	columns  map[string]int
	section  Section
	trees    map[Section]*models.FieldTree
	scalars  map[Section]map[string]bool
	nested   map[Section]map[string]*models.FieldTree
	problems []ValidationError
}

func (p *sheetParser) fail(row int, column, format string, args ...any) {
	p.problems = append(p.problems, ValidationError{
		Sheet:   p.sheet,
		Row:     row,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	})
}

func (p *sheetParser) column(name string) string {
	return columnName(p.columns[name])
}

func (p *sheetParser) value(row []string, name string) string {
	index, ok := p.columns[name]
	if !ok {
		return ""
	}
	return cellAt(row, index)
}

// ParseSheet turns the rows of one sheet back into a template. Rows before the
// header carry the template name and description; rows after it are fields.
func ParseSheet(sheet string, rows [][]string) (ParsedTemplate, []ValidationError) {
	p := &sheetParser{
		sheet:   sheet,
		section: SectionBase,
		trees: map[Section]*models.FieldTree{
			SectionBase:     models.NewFieldTree(),
			SectionSpecific: models.NewFieldTree(),
		},
		scalars: map[Section]map[string]bool{
			SectionBase:     {},
			SectionSpecific: {},
		},
		nested: map[Section]map[string]*models.FieldTree{
			SectionBase:     {},
			SectionSpecific: {},
		},
	}

	result := ParsedTemplate{Sheet: sheet}
	headerRow := -1

	for i, row := range rows {
		first := cellAt(row, 0)
		switch {
		case strings.EqualFold(first, LabelTemplateName):
			result.Name = cellAt(row, 1)
			continue
		case strings.EqualFold(first, LabelDescription):
			result.Description = cellAt(row, 1)
			continue
		case isHeader(row):
			headerRow = i
		}
		if headerRow >= 0 {
			break
		}
	}

	if headerRow < 0 {
		p.fail(0, "", "missing header row; expected columns: %s", HeaderList())
		return ParsedTemplate{}, p.problems
	}

	if result.Name == "" {
		p.fail(1, "B", "missing template name; put it next to %q above the header row", LabelTemplateName)
	}

	before := len(p.problems)
	p.readHeader(headerRow+1, rows[headerRow])
	if len(p.problems) > before {
		return ParsedTemplate{}, p.problems
	}

	for i := headerRow + 1; i < len(rows); i++ {
		p.readRow(i+1, rows[i])
	}

	result.BaseFields = p.trees[SectionBase]
	result.SpecificFields = p.trees[SectionSpecific]

	if len(p.problems) == 0 {
		for _, tree := range []*models.FieldTree{result.BaseFields, result.SpecificFields} {
			if err := tree.Validate(); err != nil {
				p.fail(0, "", "%s", err.Error())
			}
		}
	}

	if len(p.problems) > 0 {
		return ParsedTemplate{}, p.problems
	}
	return result, nil
}

func (p *sheetParser) readHeader(rowNumber int, row []string) {
	p.columns = map[string]int{}
	for i := range row {
		name := cellAt(row, i)
		for _, known := range Headers {
			if strings.EqualFold(name, known) {
				p.columns[known] = i
			}
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := p.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		p.fail(rowNumber, "", "header row is missing columns %s; expected columns: %s",
			strings.Join(missing, ", "), HeaderList())
	}
}

func (p *sheetParser) readRow(rowNumber int, row []string) {
	if isBlank([][]string{row}) {
		return
	}

	first := cellAt(row, 0)
	switch {
	case strings.EqualFold(first, MarkerBase):
		p.section = SectionBase
		return
	case strings.EqualFold(first, MarkerSpecific):
		p.section = SectionSpecific
		return
	}

	id := p.value(row, ColumnFieldID)
	if id == "" {
		p.fail(rowNumber, p.column(ColumnFieldID), "missing field id")
		return
	}
	if strings.Contains(id, ".") {
		p.fail(rowNumber, p.column(ColumnFieldID), "field id %q must not contain '.'", id)
		return
	}

	rawType := p.value(row, ColumnType)
	fieldType, ok := models.ParseFieldType(rawType)
	if !ok {
		p.fail(rowNumber, p.column(ColumnType), "unknown field type %q", rawType)
		return
	}

	label := stripNestedPrefix(p.value(row, ColumnLabel))
	if label == "" {
		p.fail(rowNumber, p.column(ColumnLabel), "missing label for field %q", id)
		return
	}

	required, ok := parseRequired(p.value(row, ColumnRequired))
	if !ok {
		p.fail(rowNumber, p.column(ColumnRequired), "required must be Yes or No, got %q", p.value(row, ColumnRequired))
		return
	}

	target, path, ok := p.resolveParent(rowNumber, p.value(row, ColumnParent), id)
	if !ok {
		return
	}

	if target.Has(id) {
		p.fail(rowNumber, p.column(ColumnFieldID), "duplicate field id %q", id)
		return
	}

	def := models.FieldDef{
		Type:       fieldType,
		Label:      label,
		Validation: models.Validation{Required: required},
		Options:    ParseOptions(p.value(row, ColumnOptions)),
	}

	switch fieldType {
	case models.FieldTypeObject:
		def.Fields = models.NewFieldTree()
		p.nested[p.section][path] = def.Fields
	case models.FieldTypeArray:
		def.ItemTemplate = models.NewFieldTree()
		p.nested[p.section][path] = def.ItemTemplate
	default:
		p.scalars[p.section][path] = true
	}

	target.Set(id, def)
}

// resolveParent finds the tree a row belongs to. Parents are dotted paths; a
// bare id is accepted when it names exactly one container.
func (p *sheetParser) resolveParent(rowNumber int, parent, id string) (*models.FieldTree, string, bool) {
	if parent == "" {
		return p.trees[p.section], id, true
	}

	containers := p.nested[p.section]
	if tree, ok := containers[parent]; ok {
		return tree, parent + "." + id, true
	}

	if !strings.Contains(parent, ".") {
		var (
			match     *models.FieldTree
			matchPath string
			matches   int
		)
		for path, tree := range containers {
			if path == parent || strings.HasSuffix(path, "."+parent) {
				match, matchPath = tree, path
				matches++
			}
		}
		if matches == 1 {
			return match, matchPath + "." + id, true
		}
		if matches > 1 {
			p.fail(rowNumber, p.column(ColumnParent),
				"parent field %q is ambiguous; use the full path", parent)
			return nil, "", false
		}
	}

	if p.scalars[p.section][parent] {
		p.fail(rowNumber, p.column(ColumnParent),
			"parent field %q is not an object or array field", parent)
		return nil, "", false
	}

	p.fail(rowNumber, p.column(ColumnParent),
		"unknown parent field %q in %s section; parents must be listed before their fields",
		parent, strings.ToLower(string(p.section)))
	return nil, "", false
}
