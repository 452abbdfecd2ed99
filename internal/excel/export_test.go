package excel

import (
	"bytes"
	"os"
	"strings"
	"surveys/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readRows(t *testing.T, buf *bytes.Buffer) map[string][][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	sheets := map[string][][]string{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		require.NoError(t, err)
		sheets[sheet] = rows
	}
	return sheets
}

func TestWriteTemplates_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplates(&buf, []models.SurveyTemplate{*ExampleTemplate()}))

	sheets := readRows(t, &buf)
	rows, ok := sheets[exampleTemplateName]
	require.True(t, ok, "sheet named after the template")

	assert.Equal(t, []string{LabelTemplateName, exampleTemplateName}, rows[0])
	assert.Equal(t, LabelDescription, rows[1][0])
	assert.Empty(t, rows[2])
	assert.Equal(t, Headers, rows[3])
	assert.Equal(t, MarkerBase, rows[4][0])

	assert.Equal(t, []string{"manufacturer", "text", "Manufacturer", "Yes"}, rows[5])
	assert.Equal(t, []string{"condition", "select", "Condition", "No", "", "good:Good; fair:Fair; poor:Poor"}, rows[6])
	assert.Equal(t, []string{"nameplate", "object", "Nameplate", "No", "", "", "Object with 2 fields"}, rows[7])
	assert.Equal(t, []string{"model", "text", "→ Model Number", "No", "nameplate"}, rows[8])
	assert.Equal(t, []string{"serial", "text", "→ Serial Number", "No", "nameplate"}, rows[9])

	assert.Equal(t, MarkerSpecific, rows[10][0])
	assert.Equal(t, "tonnage", rows[11][0])
	assert.Equal(t, []string{"filters", "array", "Filters", "No", "", "", "Array item template (2 fields)"}, rows[12])
	assert.Equal(t, "filters", rows[13][4])
	assert.Equal(t, "filters", rows[14][4])
}

func TestWriteTemplates_OneSheetPerTemplate(t *testing.T) {
	first := models.NewSurveyTemplate("Rooftop Unit", "", *models.NewFieldTree(), *models.NewFieldTree())
	second := models.NewSurveyTemplate("Rooftop Unit", "", *models.NewFieldTree(), *models.NewFieldTree())
	third := models.NewSurveyTemplate("Chiller: Water/Air", "", *models.NewFieldTree(), *models.NewFieldTree())

	var buf bytes.Buffer
	require.NoError(t, WriteTemplates(&buf, []models.SurveyTemplate{*first, *second, *third}))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Rooftop Unit", "Rooftop Unit (2)", "Chiller- Water-Air"}, f.GetSheetList())
}

func TestWriteTemplates_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteTemplates(&buf, nil), ErrNoTemplates)
}

func TestExportTemplates_WritesTempFile(t *testing.T) {
	dir := t.TempDir()

	path, err := ExportTemplates([]models.SurveyTemplate{*ExampleTemplate()}, dir)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, dir))
	assert.True(t, strings.HasSuffix(path, FileExtension))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	parsed, problems, err := ParseWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	require.Empty(t, problems)
	require.Len(t, parsed, 1)
	assert.Equal(t, exampleTemplateName, parsed[0].Name)
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		used     map[string]bool
		expected string
	}{
		{"plain", "Rooftop Unit", map[string]bool{}, "Rooftop Unit"},
		{"forbidden characters", "AHU [north]/roof?", map[string]bool{}, "AHU -north--roof-"},
		{"empty", "   ", map[string]bool{}, "Template"},
		{"quotes trimmed", "'Boiler'", map[string]bool{}, "Boiler"},
		{"truncated", strings.Repeat("x", 40), map[string]bool{}, strings.Repeat("x", 31)},
		{"duplicate", "Boiler", map[string]bool{"boiler": true}, "Boiler (2)"},
		{
			"duplicate truncated",
			strings.Repeat("y", 31),
			map[string]bool{strings.Repeat("y", 31): true},
			strings.Repeat("y", 27) + " (2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SheetName(tt.input, tt.used)
			assert.Equal(t, tt.expected, got)
			assert.True(t, tt.used[strings.ToLower(got)])
		})
	}
}

func TestFormatAndParseOptions(t *testing.T) {
	options := []models.Option{
		{Value: "r410a", Label: "R-410A"},
		{Value: "other", Label: "other"},
	}

	formatted := FormatOptions(options)
	assert.Equal(t, "r410a:R-410A; other", formatted)
	assert.Equal(t, options, ParseOptions(formatted))

	assert.Nil(t, ParseOptions(""))
	assert.Equal(t, []models.Option{{Value: "a", Label: "a"}, {Value: "b", Label: "B"}}, ParseOptions(" a ;; b: B ;"))
}

func TestOptions_SeparatorsRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		options   []models.Option
		formatted string
	}{
		{
			name:      "colon in value",
			options:   []models.Option{{Value: "08:00", Label: "Morning"}},
			formatted: `08\:00:Morning`,
		},
		{
			name:      "semicolon in value",
			options:   []models.Option{{Value: "a;b", Label: "A or B"}},
			formatted: `a\;b:A or B`,
		},
		{
			name:      "separators in label",
			options:   []models.Option{{Value: "ratio", Label: "Ratio 1:2; nominal"}},
			formatted: `ratio:Ratio 1\:2\; nominal`,
		},
		{
			name:      "backslash",
			options:   []models.Option{{Value: `C:\temp`, Label: `C:\temp`}},
			formatted: `C\:\\temp`,
		},
		{
			name: "mixed list",
			options: []models.Option{
				{Value: "08:00", Label: "Morning"},
				{Value: "12:00", Label: "12:00"},
				{Value: "late", Label: "Late; after 5"},
			},
			formatted: `08\:00:Morning; 12\:00; late:Late\; after 5`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatted := FormatOptions(tt.options)
			assert.Equal(t, tt.formatted, formatted)
			assert.Equal(t, tt.options, ParseOptions(formatted))
		})
	}
}

func TestWriteTemplates_OptionSeparatorsSurviveImport(t *testing.T) {
	options := []models.Option{
		{Value: "08:00", Label: "Morning"},
		{Value: "a;b", Label: "A or B"},
	}
	base := models.NewFieldTree()
	base.Set("shift", models.FieldDef{Type: models.FieldTypeSelect, Label: "Shift", Options: options})
	template := models.NewSurveyTemplate("Schedules", "", *base, *models.NewFieldTree())

	var buf bytes.Buffer
	require.NoError(t, WriteTemplates(&buf, []models.SurveyTemplate{*template}))

	parsed, problems, err := ParseWorkbook(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Empty(t, problems)

	shift, ok := parsed[0].BaseFields.Get("shift")
	require.True(t, ok)
	assert.Equal(t, options, shift.Options)
}

func TestParseRequired(t *testing.T) {
	for _, value := range []string{"Yes", "y", "TRUE", "1", "x"} {
		required, ok := parseRequired(value)
		assert.True(t, ok, value)
		assert.True(t, required, value)
	}
	for _, value := range []string{"No", "n", "false", "0", ""} {
		required, ok := parseRequired(value)
		assert.True(t, ok, value)
		assert.False(t, required, value)
	}
	_, ok := parseRequired("maybe")
	assert.False(t, ok)
}

func TestWriteBlankTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBlankTemplate(&buf))

	sheets := readRows(t, &buf)
	require.Contains(t, sheets, InstructionsSheet)
	require.Contains(t, sheets, exampleTemplateName)
	assert.Equal(t, Headers, sheets[exampleTemplateName][3])

	parsed, problems, err := ParseWorkbook(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Empty(t, problems)
	require.Len(t, parsed, 1, "instructions sheet is skipped")
	assert.True(t, parsed[0].BaseFields.Equal(ExampleTemplate().Base()))
}
