package migration

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

type MigrationInterface interface {
	UpMigration(*sql.DB) error
}

// Named: миграция, которую учитываем в migrations.migrations по имени.
type Named struct {
	Name    string
	Queries []string
}

// UpMigration выполняет запросы один раз и отмечает миграцию как завершённую.
func (m *Named) UpMigration(db *sql.DB) error {
	var migrationExists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations.migrations WHERE name = $1)", m.Name).Scan(&migrationExists)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if migrationExists {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.Name, err)
	}
	defer tx.Rollback()

	for _, q := range m.Queries {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
	}
	if _, err := tx.Exec("INSERT INTO migrations.migrations (name, time) VALUES ($1, current_timestamp)", m.Name); err != nil {
		return fmt.Errorf("failed to mark %s migration as complete: %w", m.Name, err)
	}
	return tx.Commit()
}

// MigrationsSchema создаёт служебную таблицу учёта миграций.
type MigrationsSchema struct{}

func (m *MigrationsSchema) UpMigration(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE SCHEMA IF NOT EXISTS migrations;
		CREATE TABLE IF NOT EXISTS migrations.migrations (
			name VARCHAR(255) PRIMARY KEY,
			time TIMESTAMP NOT NULL
		);`)
	if err != nil {
		return fmt.Errorf("failed to create migrations schema: %w", err)
	}
	return nil
}

// Apply применяет миграции по порядку.
func Apply(db *sql.DB, log *zap.Logger, migrations ...MigrationInterface) error {
	for _, m := range migrations {
		if err := m.UpMigration(db); err != nil {
			return err
		}
	}
	log.Info("Migrations applied successfully", zap.Int("count", len(migrations)))
	return nil
}
