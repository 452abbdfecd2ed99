package database

import (
	"embed"
	"surveys/internal/logger"

	migrate "github.com/rubenv/sql-migrate"
	"gorm.io/gorm"
)

const migrationTable = "schema_migrations"

//go:embed migrations/*.sql
var migrationFiles embed.FS

func migrationSet() migrate.MigrationSet {
	return migrate.MigrationSet{TableName: migrationTable}
}

func migrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFiles,
		Root:       "migrations",
	}
}

// Migrate applies every pending migration.
func Migrate(db *gorm.DB, log logger.Logger) error {
	log = log.Function("Migrate")

	sqlDB, err := db.DB()
	if err != nil {
		return log.Err("failed to get sql database", err)
	}

	set := migrationSet()
	applied, err := set.Exec(sqlDB, "sqlite3", migrationSource(), migrate.Up)
	if err != nil {
		return log.Err("failed to apply migrations", err)
	}

	log.Info("Applied migrations", "count", applied)
	return nil
}

// Rollback reverts up to steps migrations; steps <= 0 reverts all of them.
func Rollback(db *gorm.DB, steps int, log logger.Logger) (int, error) {
	log = log.Function("Rollback")

	sqlDB, err := db.DB()
	if err != nil {
		return 0, log.Err("failed to get sql database", err)
	}

	set := migrationSet()
	reverted, err := set.ExecMax(sqlDB, "sqlite3", migrationSource(), migrate.Down, max(steps, 0))
	if err != nil {
		return 0, log.Err("failed to roll back migrations", err, "steps", steps)
	}

	log.Info("Rolled back migrations", "count", reverted)
	return reverted, nil
}

type MigrationStatus struct {
	ID      string
	Applied bool
}

func MigrationStatuses(db *gorm.DB) ([]MigrationStatus, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	migrations, err := migrationSource().FindMigrations()
	if err != nil {
		return nil, err
	}

	set := migrationSet()
	records, err := set.GetMigrationRecords(sqlDB, "sqlite3")
	if err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(records))
	for _, record := range records {
		applied[record.Id] = true
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		statuses = append(statuses, MigrationStatus{ID: m.Id, Applied: applied[m.Id]})
	}

	return statuses, nil
}
