package repositories

import (
	"context"
	"errors"
	"surveys/internal/database"
	"surveys/internal/logger"
	. "surveys/internal/models"
	"surveys/internal/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const surveyEntity = "survey"

type SurveyRepository interface {
	GetByID(ctx context.Context, id string) (*Survey, error)
	GetAll(ctx context.Context, filter SurveyFilter) ([]*Survey, error)
	Create(ctx context.Context, survey *Survey) error
	Update(ctx context.Context, survey *Survey) error
	Delete(ctx context.Context, id string) error
}

type surveyRepository struct {
	db  database.DB
	log logger.Logger
}

func NewSurveyRepository(db database.DB) SurveyRepository {
	return &surveyRepository{
		db:  db,
		log: logger.New("surveyRepository"),
	}
}

func (r *surveyRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *surveyRepository) GetByID(ctx context.Context, id string) (*Survey, error) {
	log := r.log.Function("GetByID")

	var survey Survey
	if err := r.getDB(ctx).Preload("Template").First(&survey, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound(surveyEntity, id)
		}
		return nil, log.Err("failed to get survey by id", err, "id", id)
	}

	return &survey, nil
}

// GetAll lists surveys newest first. Empty filter fields match everything.
func (r *surveyRepository) GetAll(ctx context.Context, filter SurveyFilter) ([]*Survey, error) {
	log := r.log.Function("GetAll")

	query := r.getDB(ctx)
	if filter.EquipmentID != "" {
		query = query.Where("equipment_id = ?", filter.EquipmentID)
	}
	if filter.TemplateID != "" {
		query = query.Where("template_id = ?", filter.TemplateID)
	}

	surveys := []*Survey{}
	if err := query.Order("survey_date DESC").Order("created_at DESC").Find(&surveys).Error; err != nil {
		return nil, log.Err("failed to get surveys", err,
			"equipmentID", filter.EquipmentID, "templateID", filter.TemplateID)
	}

	return surveys, nil
}

func (r *surveyRepository) Create(ctx context.Context, survey *Survey) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Omit(clause.Associations).Create(survey).Error; err != nil {
		return log.Err("failed to create survey", err,
			"equipmentID", survey.EquipmentID, "templateID", survey.TemplateID)
	}

	return nil
}

func (r *surveyRepository) Update(ctx context.Context, survey *Survey) error {
	log := r.log.Function("Update")

	result := r.getDB(ctx).
		Model(survey).
		Omit(clause.Associations).
		Select("equipment_id", "template_id", "survey_date", "prepared_by", "survey_data", "updated_at").
		Updates(survey)
	if result.Error != nil {
		return log.Err("failed to update survey", result.Error, "id", survey.ID)
	}
	if result.RowsAffected == 0 {
		return NotFound(surveyEntity, survey.ID)
	}

	return nil
}

func (r *surveyRepository) Delete(ctx context.Context, id string) error {
	log := r.log.Function("Delete")

	result := r.getDB(ctx).Delete(&Survey{}, "id = ?", id)
	if result.Error != nil {
		return log.Err("failed to delete survey", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return NotFound(surveyEntity, id)
	}

	return nil
}
