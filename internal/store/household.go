package store

import (
	"database/sql"
	"fmt"

	"github.com/avelar/hometask/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Name, &h.Email, &h.PasswordHash, &h.Salt, &h.RemoteID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const householdCols = `id, name, email, password_hash, salt, remote_id, created_at, updated_at`

// Create inserts a household with already-hashed credentials. Returns
// ErrDuplicate when the name or email is taken.
func (s *HouseholdStore) Create(name, email, passwordHash, salt string) (*model.Household, error) {
	result, err := s.db.Exec(
		`INSERT INTO households (name, email, password_hash, salt) VALUES (?, ?, ?, ?)`,
		name, email, passwordHash, salt,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) GetByID(id int64) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) GetByName(name string) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE name = ?`, name)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household by name: %w", err)
	}
	return h, nil
}

// GetByNameOrEmail returns the first household matching either field.
// Used for the pre-insert duplicate check during registration.
func (s *HouseholdStore) GetByNameOrEmail(name, email string) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE name = ? OR email = ?`, name, email)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household by name or email: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) GetByRemoteID(remoteID string) (*model.Household, error) {
	if remoteID == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE remote_id = ?`, remoteID)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household by remote id: %w", err)
	}
	return h, nil
}

// SetRemoteID records the key the remote store assigned to this household.
func (s *HouseholdStore) SetRemoteID(id int64, remoteID string) error {
	_, err := s.db.Exec(
		`UPDATE households SET remote_id = ?, updated_at = datetime('now') WHERE id = ?`,
		remoteID, id,
	)
	if err != nil {
		return fmt.Errorf("set household remote id: %w", err)
	}
	return nil
}

func (s *HouseholdStore) ListIDs() ([]int64, error) {
	rows, err := s.db.Query(`SELECT id FROM households ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list household ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan household id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *HouseholdStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM households WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete household: %w", err)
	}
	return nil
}
