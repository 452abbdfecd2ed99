package seed

import (
	"bytes"
	"path/filepath"
	"strings"
	"surveys/config"
	"surveys/internal/database"
	"surveys/internal/logger"
	. "surveys/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTemplates_Default(t *testing.T) {
	templates, err := LoadTemplates(bytes.NewReader(defaultTemplates))
	require.NoError(t, err)
	require.Len(t, templates, 2)

	rooftop := templates[0]
	assert.Equal(t, "Rooftop Unit", rooftop.Name)
	assert.Equal(t, []string{"manufacturer", "nameplate", "installDate", "condition"}, rooftop.Base().Keys())
	assert.Equal(t, []string{"tonnage", "heatType", "filters"}, rooftop.Specific().Keys())

	nameplate, ok := rooftop.Base().Get("nameplate")
	require.True(t, ok)
	assert.Equal(t, FieldTypeObject, nameplate.Type)
	assert.Equal(t, []string{"model", "serial"}, nameplate.Fields.Keys())

	model, _ := nameplate.Fields.Get("model")
	assert.True(t, model.Validation.Required)

	filters, _ := rooftop.Specific().Get("filters")
	assert.Equal(t, []string{"size", "quantity"}, filters.ItemTemplate.Keys())

	condition, _ := rooftop.Base().Get("condition")
	assert.Equal(t, []Option{
		{Value: "good", Label: "Good"},
		{Value: "fair", Label: "Fair"},
		{Value: "poor", Label: "Poor"},
	}, condition.Options)
}

func TestLoadTemplates_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "not yaml",
			input:   "templates: [",
			wantErr: "failed to decode seed yaml",
		},
		{
			name: "unknown type",
			input: `templates:
  - name: Bad
    baseFields:
      x:
        type: colour
        label: X
`,
			wantErr: `unknown field type "colour"`,
		},
		{
			name: "missing name",
			input: `templates:
  - description: nameless
`,
			wantErr: "template name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTemplates(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadTemplates_Empty(t *testing.T) {
	templates, err := LoadTemplates(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestSeed_Idempotent(t *testing.T) {
	cfg := config.Config{
		DatabaseDbPath: filepath.Join(t.TempDir(), "seed.db"),
		ServerPort:     8280,
	}
	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logger.New("seed_test")
	require.NoError(t, Seed(db.SQL, cfg, log))
	require.NoError(t, Seed(db.SQL, cfg, log))

	var count int64
	require.NoError(t, db.SQL.Model(&SurveyTemplate{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var boiler SurveyTemplate
	require.NoError(t, db.SQL.First(&boiler, "name = ?", "Boiler").Error)
	assert.Equal(t, []string{"manufacturer", "condition", "photo"}, boiler.Base().Keys())
}
