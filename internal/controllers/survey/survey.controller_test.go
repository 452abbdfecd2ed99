package surveyController

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"surveys/config"
	"surveys/internal/database"
	. "surveys/internal/models"
	"surveys/internal/repositories"
	"surveys/internal/services"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newController(t *testing.T) (*SurveyController, *SurveyTemplate) {
	t.Helper()

	db, err := database.New(config.Config{
		DatabaseDbPath: filepath.Join(t.TempDir(), "surveys.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	templates := repositories.NewSurveyTemplateRepository(db, time.Minute)
	controller := New(repositories.NewSurveyRepository(db), templates, services.NewTransactionService(db))
	controller.now = func() time.Time { return fixedNow }

	base := NewFieldTree()
	base.Set("manufacturer", FieldDef{Type: FieldTypeText, Label: "Manufacturer"})
	base.Set("condition", FieldDef{
		Type:    FieldTypeRadio,
		Label:   "Condition",
		Options: []Option{{Value: "ok", Label: "Operational"}},
	})
	template := NewSurveyTemplate("Rooftop Unit", "", *base, *NewFieldTree())
	require.NoError(t, templates.Create(context.Background(), template))

	return controller, template
}

func TestCreateSurvey(t *testing.T) {
	controller, template := newController(t)
	ctx := context.Background()

	survey, err := controller.CreateSurvey(ctx, CreateSurveyRequest{
		EquipmentID: " RTU-1 ",
		TemplateID:  template.ID,
		SurveyDate:  "2025-03-14",
		PreparedBy:  "tech",
		SurveyData:  json.RawMessage(`{"manufacturer":"Lennox"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, survey.ID)
	assert.Equal(t, "RTU-1", survey.EquipmentID)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), survey.SurveyDate)
	require.NotNil(t, survey.Template)
	assert.Equal(t, "Rooftop Unit", survey.Template.Name)

	got, err := controller.GetSurvey(ctx, survey.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"manufacturer":"Lennox"}`, string(got.SurveyData))
}

func TestCreateSurvey_Defaults(t *testing.T) {
	controller, template := newController(t)

	survey, err := controller.CreateSurvey(context.Background(), CreateSurveyRequest{
		EquipmentID: "RTU-2",
		TemplateID:  template.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, survey.SurveyDate)
	assert.JSONEq(t, `{}`, string(survey.SurveyData))
}

func TestCreateSurvey_Errors(t *testing.T) {
	controller, template := newController(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		req      CreateSurveyRequest
		expected error
	}{
		{"missing equipment", CreateSurveyRequest{TemplateID: template.ID}, ErrValidation},
		{"missing template id", CreateSurveyRequest{EquipmentID: "EQ"}, ErrValidation},
		{"unknown template", CreateSurveyRequest{EquipmentID: "EQ", TemplateID: "missing"}, ErrNotFound},
		{"bad date", CreateSurveyRequest{EquipmentID: "EQ", TemplateID: template.ID, SurveyDate: "someday"}, ErrValidation},
		{
			"data not an object",
			CreateSurveyRequest{EquipmentID: "EQ", TemplateID: template.ID, SurveyData: json.RawMessage(`[1]`)},
			ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := controller.CreateSurvey(ctx, tt.req)
			assert.ErrorIs(t, err, tt.expected)
		})
	}

	surveys, err := controller.GetSurveys(ctx, SurveyFilter{})
	require.NoError(t, err)
	assert.Empty(t, surveys)
}

func TestUpdateSurvey(t *testing.T) {
	controller, template := newController(t)
	ctx := context.Background()

	created, err := controller.CreateSurvey(ctx, CreateSurveyRequest{EquipmentID: "EQ-1", TemplateID: template.ID})
	require.NoError(t, err)

	date := "2025-02-01"
	preparedBy := "lead"
	updated, err := controller.UpdateSurvey(ctx, created.ID, UpdateSurveyRequest{
		SurveyDate: &date,
		PreparedBy: &preparedBy,
		SurveyData: json.RawMessage(`{"condition":"ok"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "EQ-1", updated.EquipmentID)
	assert.Equal(t, time.February, updated.SurveyDate.Month())
	assert.Equal(t, "lead", updated.PreparedBy)

	got, err := controller.GetSurvey(ctx, created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"condition":"ok"}`, string(got.SurveyData))

	missing := "missing"
	_, err = controller.UpdateSurvey(ctx, created.ID, UpdateSurveyRequest{TemplateID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)

	blank := " "
	_, err = controller.UpdateSurvey(ctx, created.ID, UpdateSurveyRequest{EquipmentID: &blank})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = controller.UpdateSurvey(ctx, "missing", UpdateSurveyRequest{PreparedBy: &preparedBy})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSurvey(t *testing.T) {
	controller, template := newController(t)
	ctx := context.Background()

	created, err := controller.CreateSurvey(ctx, CreateSurveyRequest{EquipmentID: "EQ-1", TemplateID: template.ID})
	require.NoError(t, err)

	require.NoError(t, controller.DeleteSurvey(ctx, created.ID))
	_, err = controller.GetSurvey(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, controller.DeleteSurvey(ctx, created.ID), ErrNotFound)
}

func TestGetSurveys_Filter(t *testing.T) {
	controller, template := newController(t)
	ctx := context.Background()

	for _, equipment := range []string{"EQ-1", "EQ-2", "EQ-1"} {
		_, err := controller.CreateSurvey(ctx, CreateSurveyRequest{EquipmentID: equipment, TemplateID: template.ID})
		require.NoError(t, err)
	}

	surveys, err := controller.GetSurveys(ctx, SurveyFilter{EquipmentID: "EQ-1"})
	require.NoError(t, err)
	assert.Len(t, surveys, 2)
}

func TestExportSurvey(t *testing.T) {
	controller, template := newController(t)
	ctx := context.Background()

	created, err := controller.CreateSurvey(ctx, CreateSurveyRequest{
		EquipmentID: "RTU-9",
		TemplateID:  template.ID,
		SurveyDate:  "2025-03-14",
		SurveyData:  json.RawMessage(`{"manufacturer":"York","condition":"ok"}`),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	filename, err := controller.ExportSurvey(ctx, created.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, "survey-RTU-9-2025-03-14.xlsx", filename)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	value, err := f.GetCellValue("Survey", "D8")
	require.NoError(t, err)
	assert.Equal(t, "Operational", value)

	_, err = controller.ExportSurvey(ctx, "missing", &buf)
	assert.ErrorIs(t, err, ErrNotFound)
}
