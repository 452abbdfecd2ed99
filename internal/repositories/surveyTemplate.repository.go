package repositories

import (
	"context"
	"errors"
	"surveys/internal/database"
	"surveys/internal/logger"
	. "surveys/internal/models"
	"surveys/internal/services"
	"time"

	"gorm.io/gorm"
)

const surveyTemplateEntity = "survey template"

type SurveyTemplateRepository interface {
	GetByID(ctx context.Context, id string) (*SurveyTemplate, error)
	GetByName(ctx context.Context, name string) (*SurveyTemplate, error)
	GetAll(ctx context.Context) ([]*SurveyTemplate, error)
	GetByIDs(ctx context.Context, ids []string) ([]*SurveyTemplate, error)
	Create(ctx context.Context, template *SurveyTemplate) error
	Update(ctx context.Context, template *SurveyTemplate) error
	Delete(ctx context.Context, id string) error
	CountSurveys(ctx context.Context, templateID string) (int64, error)
}

type surveyTemplateRepository struct {
	db       database.DB
	cacheTTL time.Duration
	log      logger.Logger
}

func NewSurveyTemplateRepository(db database.DB, cacheTTL time.Duration) SurveyTemplateRepository {
	return &surveyTemplateRepository{
		db:       db,
		cacheTTL: cacheTTL,
		log:      logger.New("surveyTemplateRepository"),
	}
}

func (r *surveyTemplateRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *surveyTemplateRepository) cache(ctx context.Context, id string) *database.CacheBuilder {
	return database.NewCacheBuilder(r.db.Cache.Template, id).
		WithHashPattern(services.TemplateCachePattern).
		WithContext(ctx)
}

func (r *surveyTemplateRepository) GetByID(ctx context.Context, id string) (*SurveyTemplate, error) {
	log := r.log.Function("GetByID")

	// reads inside a transaction must see uncommitted writes
	_, inTx := services.GetTransaction(ctx)

	var template SurveyTemplate
	if !inTx {
		found, err := r.cache(ctx, id).Get(&template)
		if err != nil {
			log.Warn("failed to read template from cache", "id", id, "error", err)
		} else if found {
			return &template, nil
		}
	}

	if err := r.getDB(ctx).First(&template, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound(surveyTemplateEntity, id)
		}
		return nil, log.Err("failed to get survey template by id", err, "id", id)
	}

	if !inTx {
		if err := r.cache(ctx, id).WithStruct(&template).WithTTL(r.cacheTTL).Set(); err != nil {
			log.Warn("failed to cache template", "id", id, "error", err)
		}
	}

	return &template, nil
}

func (r *surveyTemplateRepository) GetByName(ctx context.Context, name string) (*SurveyTemplate, error) {
	log := r.log.Function("GetByName")

	var template SurveyTemplate
	if err := r.getDB(ctx).First(&template, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound(surveyTemplateEntity, name)
		}
		return nil, log.Err("failed to get survey template by name", err, "name", name)
	}

	return &template, nil
}

func (r *surveyTemplateRepository) GetAll(ctx context.Context) ([]*SurveyTemplate, error) {
	log := r.log.Function("GetAll")

	templates := []*SurveyTemplate{}
	if err := r.getDB(ctx).Order("name ASC").Find(&templates).Error; err != nil {
		return nil, log.Err("failed to get survey templates", err)
	}

	return templates, nil
}

// GetByIDs returns the templates in the order of ids. Every id must exist.
func (r *surveyTemplateRepository) GetByIDs(ctx context.Context, ids []string) ([]*SurveyTemplate, error) {
	log := r.log.Function("GetByIDs")

	var found []*SurveyTemplate
	if err := r.getDB(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, log.Err("failed to get survey templates by ids", err, "count", len(ids))
	}

	byID := make(map[string]*SurveyTemplate, len(found))
	for _, template := range found {
		byID[template.ID] = template
	}

	templates := make([]*SurveyTemplate, 0, len(ids))
	for _, id := range ids {
		template, ok := byID[id]
		if !ok {
			return nil, NotFound(surveyTemplateEntity, id)
		}
		templates = append(templates, template)
	}

	return templates, nil
}

func (r *surveyTemplateRepository) Create(ctx context.Context, template *SurveyTemplate) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(template).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Conflict("survey template %q already exists", template.Name)
		}
		return log.Err("failed to create survey template", err, "name", template.Name)
	}

	return nil
}

func (r *surveyTemplateRepository) Update(ctx context.Context, template *SurveyTemplate) error {
	log := r.log.Function("Update")

	result := r.getDB(ctx).
		Model(template).
		Select("name", "description", "base_fields", "specific_fields", "updated_at").
		Updates(template)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return Conflict("survey template %q already exists", template.Name)
		}
		return log.Err("failed to update survey template", result.Error, "id", template.ID)
	}
	if result.RowsAffected == 0 {
		return NotFound(surveyTemplateEntity, template.ID)
	}

	if err := r.cache(ctx, template.ID).Delete(); err != nil {
		log.Warn("failed to evict template from cache", "id", template.ID, "error", err)
	}

	return nil
}

func (r *surveyTemplateRepository) Delete(ctx context.Context, id string) error {
	log := r.log.Function("Delete")

	result := r.getDB(ctx).Delete(&SurveyTemplate{}, "id = ?", id)
	if result.Error != nil {
		return log.Err("failed to delete survey template", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return NotFound(surveyTemplateEntity, id)
	}

	if err := r.cache(ctx, id).Delete(); err != nil {
		log.Warn("failed to evict template from cache", "id", id, "error", err)
	}

	log.Info("deleted survey template", "id", id)
	return nil
}

func (r *surveyTemplateRepository) CountSurveys(ctx context.Context, templateID string) (int64, error) {
	log := r.log.Function("CountSurveys")

	var count int64
	if err := r.getDB(ctx).Model(&Survey{}).Where("template_id = ?", templateID).Count(&count).Error; err != nil {
		return 0, log.Err("failed to count surveys for template", err, "templateID", templateID)
	}

	return count, nil
}
