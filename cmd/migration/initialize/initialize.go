package initialize

import (
	"os"
	"surveys/config"
	"surveys/internal/database"
	"surveys/internal/logger"

	"gorm.io/gorm"
)

// Initialize prepares a migrated database for serving: every migration must
// be applied and the export directory must exist.
func Initialize(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("Initialize")
	log.Info("Initializing production environment")

	statuses, err := database.MigrationStatuses(db)
	if err != nil {
		return log.Err("failed to read migration status", err)
	}

	for _, status := range statuses {
		if !status.Applied {
			return log.Error("migration not applied", "migration", status.ID)
		}
	}

	if config.ExportTempDir != "" {
		if err := os.MkdirAll(config.ExportTempDir, 0o755); err != nil {
			return log.Err("failed to create export directory", err, "path", config.ExportTempDir)
		}
	}

	log.Info("Initialization complete", "migrations", len(statuses))
	return nil
}
