package services

import (
	"context"
	"surveys/internal/database"
	"surveys/internal/events"
	"surveys/internal/logger"
	"time"

	"github.com/google/uuid"
)

const TemplateCachePattern = "survey-template:%s"

type CacheInvalidationService struct {
	db       database.DB
	eventBus *events.EventBus
	log      logger.Logger
}

func NewCacheInvalidationService(
	db database.DB,
	eventBus *events.EventBus,
) *CacheInvalidationService {
	return &CacheInvalidationService{
		db:       db,
		eventBus: eventBus,
		log:      logger.New("CacheInvalidationService"),
	}
}

// InvalidateTemplate drops the cached template and tells connected clients
// what happened to it.
func (s *CacheInvalidationService) InvalidateTemplate(
	ctx context.Context,
	templateID string,
	action string,
) error {
	log := s.log.Function("InvalidateTemplate")

	if err := database.NewCacheBuilder(s.db.Cache.Template, templateID).
		WithHashPattern(TemplateCachePattern).
		WithContext(ctx).
		Delete(); err != nil {
		log.Warn("failed to delete template from cache", "templateID", templateID, "error", err)
	}

	if s.eventBus == nil {
		return nil
	}

	event := events.Event{
		ID:        uuid.NewString(),
		Type:      "survey-template." + action,
		Channel:   events.TemplateChannel,
		Action:    action,
		Data:      map[string]any{"templateId": templateID},
		Timestamp: time.Now().UTC(),
	}

	if err := s.eventBus.Publish(ctx, events.TemplateChannel, event); err != nil {
		return log.Err("failed to publish template event", err, "templateID", templateID)
	}

	return nil
}
