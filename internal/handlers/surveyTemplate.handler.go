package handlers

import (
	"bytes"
	"errors"
	"strconv"
	"surveys/internal/app"
	surveyTemplateController "surveys/internal/controllers/surveyTemplate"
	"surveys/internal/logger"
	. "surveys/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SurveyTemplateHandler struct {
	Handler
	controller *surveyTemplateController.SurveyTemplateController
}

func NewSurveyTemplateHandler(app app.App, router fiber.Router) *SurveyTemplateHandler {
	log := logger.New("handlers").File("surveyTemplate_handler")
	return &SurveyTemplateHandler{
		controller: app.SurveyTemplateController,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *SurveyTemplateHandler) Register() {
	templates := h.router.Group("/survey-templates")
	templates.Get("/", h.getTemplates)
	templates.Post("/", h.createTemplate)

	// static paths before /:id
	templates.Get("/import-template", h.getImportTemplate)
	templates.Post("/import", h.importTemplates)
	templates.Post("/export", h.exportTemplates)

	templates.Get("/:id", h.getTemplate)
	templates.Put("/:id", h.updateTemplate)
	templates.Delete("/:id", h.deleteTemplate)
	templates.Get("/:id/export", h.exportTemplate)
}

func (h *SurveyTemplateHandler) getTemplates(c *fiber.Ctx) error {
	log := h.log.Function("getTemplates")

	templates, err := h.controller.GetTemplates(c.Context())
	if err != nil {
		return respondError(c, log, "failed to get survey templates", err)
	}

	return c.JSON(fiber.Map{"message": "success", "templates": templates})
}

func (h *SurveyTemplateHandler) getTemplate(c *fiber.Ctx) error {
	log := h.log.Function("getTemplate")

	template, err := h.controller.GetTemplate(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, log, "failed to get survey template", err)
	}

	return c.JSON(fiber.Map{"message": "success", "template": template})
}

func (h *SurveyTemplateHandler) createTemplate(c *fiber.Ctx) error {
	log := h.log.Function("createTemplate")

	var request CreateSurveyTemplateRequest
	if err := c.BodyParser(&request); err != nil {
		log.Er("failed to parse survey template request", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse survey template request", "error": err.Error()})
	}

	template, err := h.controller.CreateTemplate(c.Context(), request)
	if err != nil {
		return respondError(c, log, "failed to create survey template", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "success", "template": template})
}

func (h *SurveyTemplateHandler) updateTemplate(c *fiber.Ctx) error {
	log := h.log.Function("updateTemplate")

	var request UpdateSurveyTemplateRequest
	if err := c.BodyParser(&request); err != nil {
		log.Er("failed to parse survey template update", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse survey template update", "error": err.Error()})
	}

	template, err := h.controller.UpdateTemplate(c.Context(), c.Params("id"), request)
	if err != nil {
		return respondError(c, log, "failed to update survey template", err)
	}

	return c.JSON(fiber.Map{"message": "success", "template": template})
}

func (h *SurveyTemplateHandler) deleteTemplate(c *fiber.Ctx) error {
	log := h.log.Function("deleteTemplate")

	if err := h.controller.DeleteTemplate(c.Context(), c.Params("id")); err != nil {
		return respondError(c, log, "failed to delete survey template", err)
	}

	return c.JSON(fiber.Map{"message": "success"})
}

func (h *SurveyTemplateHandler) exportTemplate(c *fiber.Ctx) error {
	log := h.log.Function("exportTemplate")

	path, filename, err := h.controller.ExportTemplate(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, log, "failed to export survey template", err)
	}

	return sendTempWorkbook(c, log, path, filename)
}

func (h *SurveyTemplateHandler) exportTemplates(c *fiber.Ctx) error {
	log := h.log.Function("exportTemplates")

	var request ExportSurveyTemplatesRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			log.Er("failed to parse export request", err)
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"message": "failed to parse export request", "error": err.Error()})
		}
	}

	path, filename, err := h.controller.ExportTemplates(c.Context(), request.IDs)
	if err != nil {
		return respondError(c, log, "failed to export survey templates", err)
	}

	return sendTempWorkbook(c, log, path, filename)
}

func (h *SurveyTemplateHandler) getImportTemplate(c *fiber.Ctx) error {
	log := h.log.Function("getImportTemplate")

	var buf bytes.Buffer
	if err := h.controller.WriteBlankTemplate(&buf); err != nil {
		return respondError(c, log, "failed to build import template", err)
	}

	return sendWorkbook(c, "survey-template-import.xlsx", &buf)
}

func (h *SurveyTemplateHandler) importTemplates(c *fiber.Ctx) error {
	log := h.log.Function("importTemplates")

	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "a spreadsheet must be uploaded in the \"file\" field",
		})
	}

	updateExisting, err := parseBool(c.FormValue("updateExisting", c.Query("updateExisting")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "updateExisting must be true or false",
		})
	}

	file, err := header.Open()
	if err != nil {
		return respondError(c, log, "failed to read uploaded file", err)
	}
	defer file.Close()

	result, err := h.controller.ImportTemplates(c.Context(), file, updateExisting)
	if err != nil {
		status := statusFor(err)
		if status == fiber.StatusInternalServerError {
			log.Er("failed to import survey templates", err)
		}
		if result == nil {
			result = &surveyTemplateController.ImportResult{Message: err.Error()}
		}
		return c.Status(status).JSON(result)
	}

	return c.JSON(result)
}

func parseBool(value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.New("not a boolean")
	}
	return parsed, nil
}
