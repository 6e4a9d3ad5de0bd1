package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ZoneRecord is one stored zone of a layout.
type ZoneRecord struct {
	ZoneID       string
	X            int
	Y            int
	Width        int
	Height       int
	InactiveURI  string
	ActiveURI    string
	Transparency *float64
}

// Layout is a named, ordered set of zones.
type Layout struct {
	ID        string
	Name      string
	Zones     []ZoneRecord
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LayoutRepository provides CRUD operations for layouts.
type LayoutRepository struct {
	db *sql.DB
}

// Layouts returns the layout repository for this store.
func (s *Store) Layouts() *LayoutRepository {
	return &LayoutRepository{db: s.db}
}

// Create inserts a layout and its zones in one transaction.
func (r *LayoutRepository) Create(l *Layout) error {
	now := time.Now()
	l.CreatedAt = now
	l.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO layouts (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		l.ID, l.Name, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err := insertZones(tx, l.ID, l.Zones); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID retrieves a layout with its zones in configured order.
func (r *LayoutRepository) GetByID(id string) (*Layout, error) {
	l := &Layout{}
	err := r.db.QueryRow(
		`SELECT id, name, created_at, updated_at FROM layouts WHERE id = ?`,
		id,
	).Scan(&l.ID, &l.Name, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	zones, err := r.zones(id)
	if err != nil {
		return nil, err
	}
	l.Zones = zones
	return l, nil
}

// List retrieves all layouts ordered by name, without their zones.
func (r *LayoutRepository) List() ([]*Layout, error) {
	rows, err := r.db.Query(`SELECT id, name, created_at, updated_at FROM layouts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var layouts []*Layout
	for rows.Next() {
		l := &Layout{}
		if err := rows.Scan(&l.ID, &l.Name, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		layouts = append(layouts, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return layouts, nil
}

// Update renames a layout and replaces its zones.
func (r *LayoutRepository) Update(l *Layout) error {
	l.UpdatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE layouts SET name = ?, updated_at = ? WHERE id = ?`,
		l.Name, l.UpdatedAt, l.ID,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM layout_zones WHERE layout_id = ?`, l.ID); err != nil {
		return err
	}
	if err := insertZones(tx, l.ID, l.Zones); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a layout and, through the foreign key, its zones.
func (r *LayoutRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM layouts WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LayoutRepository) zones(layoutID string) ([]ZoneRecord, error) {
	rows, err := r.db.Query(
		`SELECT zone_id, x, y, width, height, inactive_uri, active_uri, transparency
		 FROM layout_zones WHERE layout_id = ? ORDER BY position`,
		layoutID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []ZoneRecord
	for rows.Next() {
		var z ZoneRecord
		var transparency sql.NullFloat64
		if err := rows.Scan(&z.ZoneID, &z.X, &z.Y, &z.Width, &z.Height, &z.InactiveURI, &z.ActiveURI, &transparency); err != nil {
			return nil, err
		}
		if transparency.Valid {
			v := transparency.Float64
			z.Transparency = &v
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

func insertZones(tx *sql.Tx, layoutID string, zones []ZoneRecord) error {
	stmt, err := tx.Prepare(
		`INSERT INTO layout_zones (layout_id, position, zone_id, x, y, width, height, inactive_uri, active_uri, transparency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, z := range zones {
		var transparency sql.NullFloat64
		if z.Transparency != nil {
			transparency = sql.NullFloat64{Float64: *z.Transparency, Valid: true}
		}
		if _, err := stmt.Exec(layoutID, i, z.ZoneID, z.X, z.Y, z.Width, z.Height, z.InactiveURI, z.ActiveURI, transparency); err != nil {
			return fmt.Errorf("zone %q: %w", z.ZoneID, err)
		}
	}
	return nil
}
