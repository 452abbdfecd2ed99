package surveyController

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"surveys/internal/excel"
	"surveys/internal/logger"
	. "surveys/internal/models"
	"surveys/internal/repositories"
	"surveys/internal/services"
	"surveys/internal/utils"
	"time"

	"gorm.io/datatypes"
)

type SurveyController struct {
	surveyRepo         repositories.SurveyRepository
	templateRepo       repositories.SurveyTemplateRepository
	transactionService *services.TransactionService
	dates              *utils.DateValidator
	now                func() time.Time
	log                logger.Logger
}

func New(
	surveyRepo repositories.SurveyRepository,
	templateRepo repositories.SurveyTemplateRepository,
	transactionService *services.TransactionService,
) *SurveyController {
	return &SurveyController{
		surveyRepo:         surveyRepo,
		templateRepo:       templateRepo,
		transactionService: transactionService,
		dates:              utils.NewDateValidator(),
		now:                time.Now,
		log:                logger.New("SurveyController"),
	}
}

func (sc *SurveyController) GetSurveys(ctx context.Context, filter SurveyFilter) ([]*Survey, error) {
	log := sc.log.Function("GetSurveys")

	surveys, err := sc.surveyRepo.GetAll(ctx, filter)
	if err != nil {
		return nil, log.Err("failed to get surveys", err,
			"equipmentID", filter.EquipmentID, "templateID", filter.TemplateID)
	}

	return surveys, nil
}

func (sc *SurveyController) GetSurvey(ctx context.Context, id string) (*Survey, error) {
	if strings.TrimSpace(id) == "" {
		return nil, Invalid("survey id is required")
	}

	return sc.surveyRepo.GetByID(ctx, id)
}

func (sc *SurveyController) CreateSurvey(ctx context.Context, req CreateSurveyRequest) (*Survey, error) {
	log := sc.log.Function("CreateSurvey")

	equipmentID := strings.TrimSpace(req.EquipmentID)
	if equipmentID == "" {
		return nil, Invalid("equipmentId is required")
	}
	if strings.TrimSpace(req.TemplateID) == "" {
		return nil, Invalid("templateId is required")
	}

	surveyDate, err := sc.dates.ParseOrDefault(req.SurveyDate, sc.now())
	if err != nil {
		return nil, Invalid("surveyDate: %v", err)
	}

	data, err := surveyData(req.SurveyData)
	if err != nil {
		return nil, err
	}

	survey := &Survey{
		EquipmentID: equipmentID,
		TemplateID:  req.TemplateID,
		SurveyDate:  surveyDate,
		PreparedBy:  strings.TrimSpace(req.PreparedBy),
		SurveyData:  data,
	}

	err = sc.transactionService.Execute(ctx, func(txCtx context.Context) error {
		template, err := sc.templateRepo.GetByID(txCtx, req.TemplateID)
		if err != nil {
			return err
		}

		if err := sc.surveyRepo.Create(txCtx, survey); err != nil {
			return err
		}

		survey.Template = template
		return nil
	})
	if err != nil {
		return nil, log.Err("failed to create survey", err,
			"equipmentID", equipmentID, "templateID", req.TemplateID)
	}

	log.Info("created survey", "id", survey.ID, "equipmentID", equipmentID)
	return survey, nil
}

func (sc *SurveyController) UpdateSurvey(
	ctx context.Context,
	id string,
	req UpdateSurveyRequest,
) (*Survey, error) {
	log := sc.log.Function("UpdateSurvey")

	var survey *Survey
	err := sc.transactionService.Execute(ctx, func(txCtx context.Context) error {
		existing, err := sc.surveyRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		if req.EquipmentID != nil {
			existing.EquipmentID = strings.TrimSpace(*req.EquipmentID)
			if existing.EquipmentID == "" {
				return Invalid("equipmentId must not be empty")
			}
		}
		if req.TemplateID != nil && *req.TemplateID != existing.TemplateID {
			template, err := sc.templateRepo.GetByID(txCtx, *req.TemplateID)
			if err != nil {
				return err
			}
			existing.TemplateID = template.ID
			existing.Template = template
		}
		if req.SurveyDate != nil {
			surveyDate, err := sc.dates.Parse(*req.SurveyDate)
			if err != nil {
				return Invalid("surveyDate: %v", err)
			}
			existing.SurveyDate = surveyDate
		}
		if req.PreparedBy != nil {
			existing.PreparedBy = strings.TrimSpace(*req.PreparedBy)
		}
		if req.SurveyData != nil {
			data, err := surveyData(req.SurveyData)
			if err != nil {
				return err
			}
			existing.SurveyData = data
		}

		if err := sc.surveyRepo.Update(txCtx, existing); err != nil {
			return err
		}

		survey = existing
		return nil
	})
	if err != nil {
		return nil, log.Err("failed to update survey", err, "id", id)
	}

	return survey, nil
}

func (sc *SurveyController) DeleteSurvey(ctx context.Context, id string) error {
	log := sc.log.Function("DeleteSurvey")

	if err := sc.surveyRepo.Delete(ctx, id); err != nil {
		return log.Err("failed to delete survey", err, "id", id)
	}

	return nil
}

// ExportSurvey writes the filled-in survey as a workbook and returns the
// download file name.
func (sc *SurveyController) ExportSurvey(ctx context.Context, id string, w io.Writer) (string, error) {
	log := sc.log.Function("ExportSurvey")

	survey, err := sc.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return "", log.Err("failed to get survey for export", err, "id", id)
	}

	template := survey.Template
	if template == nil {
		if template, err = sc.templateRepo.GetByID(ctx, survey.TemplateID); err != nil {
			return "", log.Err("failed to get template for export", err, "templateID", survey.TemplateID)
		}
	}

	if err := excel.WriteSurvey(w, survey, template); err != nil {
		return "", log.Err("failed to write survey workbook", err, "id", id)
	}

	return "survey-" + survey.EquipmentID + "-" + survey.SurveyDate.Format("2006-01-02") + excel.FileExtension, nil
}

// surveyData accepts a JSON object keyed by field id. A missing body is stored
// as an empty object.
func surveyData(raw json.RawMessage) (datatypes.JSON, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return datatypes.JSON("{}"), nil
	}

	var object map[string]any
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, Invalid("surveyData must be a JSON object")
	}

	return datatypes.JSON(trimmed), nil
}
