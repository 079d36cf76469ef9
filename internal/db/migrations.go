package db

import (
	_ "embed"
	"fmt"
	"log"
	"time"
)

//go:embed schema.sql
var schemaSQL string

// Migration represents a database migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
	AppliedAt   time.Time
}

// InitializeSchema creates the initial database schema.
func (db *DB) InitializeSchema() error {
	// Create migrations table if it doesn't exist
	migrationTableSQL := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := db.Exec(migrationTableSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Check if schema is already initialized
	var count int
	err := db.Get(&count, "SELECT COUNT(*) FROM schema_migrations WHERE version = 1")
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}

	if count > 0 {
		log.Println("Database schema already initialized")
		return nil
	}

	// Execute the schema
	log.Println("Initializing database schema...")
	if execErr := db.ExecuteSchema(schemaSQL); execErr != nil {
		return fmt.Errorf("failed to initialize schema: %w", execErr)
	}

	// Record the migration
	_, err = db.Exec(
		"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
		1, "Initial schema",
	)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	log.Println("Database schema initialized")
	return nil
}
