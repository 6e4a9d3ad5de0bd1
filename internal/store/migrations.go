package store

import "fmt"

// schema lists the migration steps in order. The database records how many
// have been applied in PRAGMA user_version; append new steps, never edit old ones.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS layouts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// position keeps the zone order, which decides hit priority.
	`CREATE TABLE IF NOT EXISTS layout_zones (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		layout_id TEXT NOT NULL REFERENCES layouts(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		zone_id TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		width INTEGER NOT NULL CHECK(width > 0),
		height INTEGER NOT NULL CHECK(height > 0),
		inactive_uri TEXT NOT NULL DEFAULT '',
		active_uri TEXT NOT NULL DEFAULT '',
		transparency REAL,
		UNIQUE(layout_id, zone_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_layout_zones_layout_id ON layout_zones(layout_id, position)`,

	// Bindings name zones by id, not by layout, so they survive layout switches.
	`CREATE TABLE IF NOT EXISTS bindings (
		id TEXT PRIMARY KEY,
		zone_id TEXT NOT NULL,
		event TEXT NOT NULL CHECK(event IN ('window-in', 'window-out')),
		plugin_name TEXT NOT NULL,
		action_name TEXT NOT NULL,
		config TEXT NOT NULL DEFAULT '{}',
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bindings_zone_event ON bindings(zone_id, event)`,

	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// SchemaVersion is the number of migration steps this build knows.
func SchemaVersion() int { return len(schema) }

// migrate applies the steps past the recorded version in one transaction.
func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(schema) {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, len(schema))
	}
	if version == len(schema) {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, step := range schema[version:] {
		if _, err := tx.Exec(step); err != nil {
			return fmt.Errorf("migration %d: %w", version+i+1, err)
		}
	}
	// PRAGMA does not take bound parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(schema))); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}
