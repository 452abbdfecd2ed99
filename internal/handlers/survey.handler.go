package handlers

import (
	"bytes"
	"surveys/internal/app"
	surveyController "surveys/internal/controllers/survey"
	"surveys/internal/logger"
	. "surveys/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SurveyHandler struct {
	Handler
	controller *surveyController.SurveyController
}

func NewSurveyHandler(app app.App, router fiber.Router) *SurveyHandler {
	log := logger.New("handlers").File("survey_handler")
	return &SurveyHandler{
		controller: app.SurveyController,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *SurveyHandler) Register() {
	surveys := h.router.Group("/surveys")
	surveys.Get("/", h.getSurveys)
	surveys.Post("/", h.createSurvey)
	surveys.Get("/:id", h.getSurvey)
	surveys.Put("/:id", h.updateSurvey)
	surveys.Delete("/:id", h.deleteSurvey)
	surveys.Get("/:id/export", h.exportSurvey)
}

func (h *SurveyHandler) getSurveys(c *fiber.Ctx) error {
	log := h.log.Function("getSurveys")

	filter := SurveyFilter{
		EquipmentID: c.Query("equipmentId"),
		TemplateID:  c.Query("templateId"),
	}

	surveys, err := h.controller.GetSurveys(c.Context(), filter)
	if err != nil {
		return respondError(c, log, "failed to get surveys", err)
	}

	return c.JSON(fiber.Map{"message": "success", "surveys": surveys})
}

func (h *SurveyHandler) getSurvey(c *fiber.Ctx) error {
	log := h.log.Function("getSurvey")

	survey, err := h.controller.GetSurvey(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, log, "failed to get survey", err)
	}

	return c.JSON(fiber.Map{"message": "success", "survey": survey})
}

func (h *SurveyHandler) createSurvey(c *fiber.Ctx) error {
	log := h.log.Function("createSurvey")

	var request CreateSurveyRequest
	if err := c.BodyParser(&request); err != nil {
		log.Er("failed to parse survey request", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse survey request", "error": err.Error()})
	}

	survey, err := h.controller.CreateSurvey(c.Context(), request)
	if err != nil {
		return respondError(c, log, "failed to create survey", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "success", "survey": survey})
}

func (h *SurveyHandler) updateSurvey(c *fiber.Ctx) error {
	log := h.log.Function("updateSurvey")

	var request UpdateSurveyRequest
	if err := c.BodyParser(&request); err != nil {
		log.Er("failed to parse survey update", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse survey update", "error": err.Error()})
	}

	survey, err := h.controller.UpdateSurvey(c.Context(), c.Params("id"), request)
	if err != nil {
		return respondError(c, log, "failed to update survey", err)
	}

	return c.JSON(fiber.Map{"message": "success", "survey": survey})
}

func (h *SurveyHandler) deleteSurvey(c *fiber.Ctx) error {
	log := h.log.Function("deleteSurvey")

	if err := h.controller.DeleteSurvey(c.Context(), c.Params("id")); err != nil {
		return respondError(c, log, "failed to delete survey", err)
	}

	return c.JSON(fiber.Map{"message": "success"})
}

func (h *SurveyHandler) exportSurvey(c *fiber.Ctx) error {
	log := h.log.Function("exportSurvey")

	var buf bytes.Buffer
	filename, err := h.controller.ExportSurvey(c.Context(), c.Params("id"), &buf)
	if err != nil {
		return respondError(c, log, "failed to export survey", err)
	}

	return sendWorkbook(c, filename, &buf)
}
