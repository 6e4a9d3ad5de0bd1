package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Setting keys.
const (
	KeyActiveLayout    = "active_layout"
	KeyColorTarget     = "color_target"
	KeyShowLayout      = "show_layout"
	KeyEmitEvents      = "emit_events"
	KeyShowDebugRegion = "show_debug_region"
)

// ColorTarget is the stored hue/saturation range.
type ColorTarget struct {
	HueMin int `json:"h_min"`
	HueMax int `json:"h_max"`
	SatMin int `json:"s_min"`
	SatMax int `json:"s_max"`
}

// SettingsRepository stores key/value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key, or ErrNotFound.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Delete removes key. Missing keys are not an error.
func (r *SettingsRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// Bool returns the boolean stored under key, or def when it is unset.
func (r *SettingsRepository) Bool(key string, def bool) (bool, error) {
	v, err := r.Get(key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("setting %s: %w", key, err)
	}
	return b, nil
}

// SetBool stores a boolean under key.
func (r *SettingsRepository) SetBool(key string, v bool) error {
	return r.Set(key, strconv.FormatBool(v))
}

// ActiveLayoutID returns the id of the layout to restore on start, or "".
func (r *SettingsRepository) ActiveLayoutID() (string, error) {
	v, err := r.Get(KeyActiveLayout)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SetActiveLayoutID records the layout to restore on start.
func (r *SettingsRepository) SetActiveLayoutID(id string) error {
	return r.Set(KeyActiveLayout, id)
}

// ColorTarget returns the stored color range. ok is false when none is stored.
func (r *SettingsRepository) ColorTarget() (ColorTarget, bool, error) {
	var c ColorTarget
	v, err := r.Get(KeyColorTarget)
	if errors.Is(err, ErrNotFound) {
		return c, false, nil
	}
	if err != nil {
		return c, false, err
	}
	if err := json.Unmarshal([]byte(v), &c); err != nil {
		return c, false, fmt.Errorf("setting %s: %w", KeyColorTarget, err)
	}
	return c, true, nil
}

// SetColorTarget stores the color range.
func (r *SettingsRepository) SetColorTarget(c ColorTarget) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.Set(KeyColorTarget, string(data))
}
