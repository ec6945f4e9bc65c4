package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

const (
	keyNotificationsEnabled = "notifications_enabled"
	keyRememberName         = "remember_name"
	keyRememberPassword     = "remember_password"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(householdID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE household_id = ? AND key = ?`,
		householdID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(householdID int64, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (household_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(household_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		householdID, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) Delete(householdID int64, key string) error {
	_, err := s.db.Exec(
		`DELETE FROM settings WHERE household_id = ? AND key = ?`,
		householdID, key,
	)
	if err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}

// NotificationsEnabled defaults to true when the setting was never written.
func (s *SettingsStore) NotificationsEnabled(householdID int64) (bool, error) {
	value, err := s.Get(householdID, keyNotificationsEnabled)
	if err != nil {
		return false, err
	}
	if value == "" {
		return true, nil
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return true, nil
	}
	return enabled, nil
}

func (s *SettingsStore) SetNotificationsEnabled(householdID int64, enabled bool) error {
	return s.Set(householdID, keyNotificationsEnabled, strconv.FormatBool(enabled))
}

// SetRememberMe persists the last successful login so the client can
// prefill it. The password is stored as entered; see DESIGN.md.
func (s *SettingsStore) SetRememberMe(householdID int64, name, password string) error {
	if err := s.Set(householdID, keyRememberName, name); err != nil {
		return err
	}
	return s.Set(householdID, keyRememberPassword, password)
}

func (s *SettingsStore) RememberMe(householdID int64) (name, password string, err error) {
	name, err = s.Get(householdID, keyRememberName)
	if err != nil {
		return "", "", err
	}
	password, err = s.Get(householdID, keyRememberPassword)
	if err != nil {
		return "", "", err
	}
	return name, password, nil
}

func (s *SettingsStore) ClearRememberMe(householdID int64) error {
	if err := s.Delete(householdID, keyRememberName); err != nil {
		return err
	}
	return s.Delete(householdID, keyRememberPassword)
}

// SeedDefaults writes the initial settings for a new household.
func (s *SettingsStore) SeedDefaults(householdID int64) error {
	return s.Set(householdID, keyNotificationsEnabled, "true")
}
