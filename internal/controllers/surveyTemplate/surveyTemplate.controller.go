package surveyTemplateController

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"surveys/internal/excel"
	"surveys/internal/logger"
	. "surveys/internal/models"
	"surveys/internal/repositories"
	"surveys/internal/services"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

type SurveyTemplateController struct {
	templateRepo       repositories.SurveyTemplateRepository
	transactionService *services.TransactionService
	cacheInvalidation  *services.CacheInvalidationService
	exportDir          string
	log                logger.Logger
}

func New(
	templateRepo repositories.SurveyTemplateRepository,
	transactionService *services.TransactionService,
	cacheInvalidation *services.CacheInvalidationService,
	exportDir string,
) *SurveyTemplateController {
	return &SurveyTemplateController{
		templateRepo:       templateRepo,
		transactionService: transactionService,
		cacheInvalidation:  cacheInvalidation,
		exportDir:          exportDir,
		log:                logger.New("SurveyTemplateController"),
	}
}

func (tc *SurveyTemplateController) GetTemplates(ctx context.Context) ([]*SurveyTemplate, error) {
	log := tc.log.Function("GetTemplates")

	templates, err := tc.templateRepo.GetAll(ctx)
	if err != nil {
		return nil, log.Err("failed to get survey templates", err)
	}

	return templates, nil
}

func (tc *SurveyTemplateController) GetTemplate(ctx context.Context, id string) (*SurveyTemplate, error) {
	if strings.TrimSpace(id) == "" {
		return nil, Invalid("template id is required")
	}

	return tc.templateRepo.GetByID(ctx, id)
}

func (tc *SurveyTemplateController) CreateTemplate(
	ctx context.Context,
	req CreateSurveyTemplateRequest,
) (*SurveyTemplate, error) {
	log := tc.log.Function("CreateTemplate")

	template := NewSurveyTemplate(
		strings.TrimSpace(req.Name),
		req.Description,
		req.BaseFields,
		req.SpecificFields,
	)
	if err := template.Validate(); err != nil {
		return nil, err
	}

	if err := tc.templateRepo.Create(ctx, template); err != nil {
		return nil, log.Err("failed to create survey template", err, "name", template.Name)
	}

	tc.notify(ctx, template.ID, ActionCreated)
	log.Info("created survey template", "id", template.ID, "name", template.Name)
	return template, nil
}

// UpdateTemplate applies the fields present in req. Omitted fields keep their
// stored value.
func (tc *SurveyTemplateController) UpdateTemplate(
	ctx context.Context,
	id string,
	req UpdateSurveyTemplateRequest,
) (*SurveyTemplate, error) {
	log := tc.log.Function("UpdateTemplate")

	var template *SurveyTemplate
	err := tc.transactionService.Execute(ctx, func(txCtx context.Context) error {
		existing, err := tc.templateRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			existing.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			existing.Description = *req.Description
		}
		if req.BaseFields != nil {
			existing.SetBase(*req.BaseFields)
		}
		if req.SpecificFields != nil {
			existing.SetSpecific(*req.SpecificFields)
		}

		if err := existing.Validate(); err != nil {
			return err
		}

		if err := tc.templateRepo.Update(txCtx, existing); err != nil {
			return err
		}

		template = existing
		return nil
	})
	if err != nil {
		return nil, log.Err("failed to update survey template", err, "id", id)
	}

	tc.notify(ctx, template.ID, ActionUpdated)
	return template, nil
}

// DeleteTemplate removes a template. Templates that surveys still point at
// are refused; the foreign key refuses them too if a survey races the check.
func (tc *SurveyTemplateController) DeleteTemplate(ctx context.Context, id string) error {
	log := tc.log.Function("DeleteTemplate")

	count, err := tc.templateRepo.CountSurveys(ctx, id)
	if err != nil {
		return log.Err("failed to count surveys for template", err, "id", id)
	}
	if count > 0 {
		return log.Err(
			"failed to delete survey template",
			fmt.Errorf("survey template %q is used by %d survey(s)", id, count),
			"id", id,
		)
	}

	if err := tc.templateRepo.Delete(ctx, id); err != nil {
		return log.Err("failed to delete survey template", err, "id", id)
	}

	tc.notify(ctx, id, ActionDeleted)
	return nil
}

// ExportTemplates writes the requested templates, or all of them when ids is
// empty, to a temp workbook and returns its path with a download file name.
func (tc *SurveyTemplateController) ExportTemplates(
	ctx context.Context,
	ids []string,
) (string, string, error) {
	log := tc.log.Function("ExportTemplates")

	var (
		templates []*SurveyTemplate
		err       error
	)
	if len(ids) == 0 {
		templates, err = tc.templateRepo.GetAll(ctx)
	} else {
		templates, err = tc.templateRepo.GetByIDs(ctx, ids)
	}
	if err != nil {
		return "", "", log.Err("failed to load templates for export", err, "ids", ids)
	}
	if len(templates) == 0 {
		return "", "", fmt.Errorf("no survey templates to export: %w", ErrNotFound)
	}

	path, err := excel.ExportTemplates(derefTemplates(templates), tc.exportDir)
	if err != nil {
		return "", "", log.Err("failed to export templates", err, "count", len(templates))
	}

	filename := "survey-templates" + excel.FileExtension
	if len(templates) == 1 {
		filename = fileName(templates[0].Name) + excel.FileExtension
	}

	log.Info("exported survey templates", "count", len(templates), "path", path)
	return path, filename, nil
}

func (tc *SurveyTemplateController) ExportTemplate(ctx context.Context, id string) (string, string, error) {
	return tc.ExportTemplates(ctx, []string{id})
}

func (tc *SurveyTemplateController) WriteBlankTemplate(w io.Writer) error {
	log := tc.log.Function("WriteBlankTemplate")

	if err := excel.WriteBlankTemplate(w); err != nil {
		return log.Err("failed to write blank template sheet", err)
	}
	return nil
}

type ImportResult struct {
	Success   bool                    `json:"success"`
	Templates []*SurveyTemplate       `json:"templates,omitempty"`
	Created   int                     `json:"created"`
	Updated   int                     `json:"updated"`
	Errors    []excel.ValidationError `json:"errors,omitempty"`
	Message   string                  `json:"message,omitempty"`
}

// ImportTemplates parses the whole workbook before touching the database and
// then saves every template in one transaction. With updateExisting false a
// template whose name is taken aborts the import.
func (tc *SurveyTemplateController) ImportTemplates(
	ctx context.Context,
	r io.Reader,
	updateExisting bool,
) (*ImportResult, error) {
	log := tc.log.Function("ImportTemplates")

	parsed, problems, err := excel.ParseWorkbook(r)
	if err != nil {
		return &ImportResult{Message: err.Error()}, err
	}
	if len(problems) > 0 {
		log.Info("rejected workbook", "problems", len(problems))
		return &ImportResult{
			Errors:  problems,
			Message: fmt.Sprintf("workbook has %d problem(s)", len(problems)),
		}, Invalid("workbook has %d problem(s)", len(problems))
	}

	result := &ImportResult{}
	actions := map[string]string{}

	err = tc.transactionService.Execute(ctx, func(txCtx context.Context) error {
		for _, p := range parsed {
			existing, err := tc.templateRepo.GetByName(txCtx, p.Name)
			switch {
			case errors.Is(err, ErrNotFound):
				template := p.Template()
				if err := tc.templateRepo.Create(txCtx, template); err != nil {
					return err
				}
				actions[template.ID] = ActionCreated
				result.Templates = append(result.Templates, template)
				result.Created++

			case err != nil:
				return err

			case !updateExisting:
				result.Message = fmt.Sprintf(
					"Template %q already exists. Enable updateExisting to overwrite it.", p.Name)
				return Conflict("%s", result.Message)

			default:
				existing.Description = p.Description
				existing.SetBase(*p.BaseFields)
				existing.SetSpecific(*p.SpecificFields)
				if err := tc.templateRepo.Update(txCtx, existing); err != nil {
					return err
				}
				actions[existing.ID] = ActionUpdated
				result.Templates = append(result.Templates, existing)
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			log.Info("import aborted", "reason", result.Message)
			return &ImportResult{Message: result.Message}, err
		}
		return &ImportResult{Message: err.Error()}, log.Err("failed to import templates", err)
	}

	for id, action := range actions {
		tc.notify(ctx, id, action)
	}

	result.Success = true
	log.Info("imported survey templates", "created", result.Created, "updated", result.Updated)
	return result, nil
}

func (tc *SurveyTemplateController) notify(ctx context.Context, id, action string) {
	if tc.cacheInvalidation == nil {
		return
	}
	if err := tc.cacheInvalidation.InvalidateTemplate(ctx, id, action); err != nil {
		tc.log.Function("notify").Warn("failed to publish template change", "id", id, "action", action, "error", err)
	}
}

func derefTemplates(templates []*SurveyTemplate) []SurveyTemplate {
	values := make([]SurveyTemplate, len(templates))
	for i, template := range templates {
		values[i] = *template
	}
	return values
}

// fileName keeps letters, digits, dashes and underscores of name.
func fileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, strings.TrimSpace(name))
	if cleaned == "" {
		return "survey-template"
	}
	return cleaned
}
