package store

import (
	"database/sql"
	"fmt"

	"github.com/avelar/hometask/internal/model"
)

type PersonStore struct {
	db *sql.DB
}

func NewPersonStore(db *sql.DB) *PersonStore {
	return &PersonStore{db: db}
}

func scanPerson(scanner interface{ Scan(...any) error }) (*model.Person, error) {
	var p model.Person
	err := scanner.Scan(&p.ID, &p.Name, &p.HouseholdID, &p.RemoteID, &p.RemoteHouseholdID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const personCols = `id, name, household_id, remote_id, remote_household_id, created_at, updated_at`

// Create inserts a person. Returns ErrDuplicate when the name is already
// taken within the household.
func (s *PersonStore) Create(name string, householdID int64) (*model.Person, error) {
	result, err := s.db.Exec(
		`INSERT INTO people (name, household_id) VALUES (?, ?)`,
		name, householdID,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PersonStore) GetByID(id int64) (*model.Person, error) {
	row := s.db.QueryRow(`SELECT `+personCols+` FROM people WHERE id = ?`, id)
	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

// GetByNameAndHousehold matches pulled remote people to local rows created
// before their remote key was known.
func (s *PersonStore) GetByNameAndHousehold(name string, householdID int64) (*model.Person, error) {
	row := s.db.QueryRow(
		`SELECT `+personCols+` FROM people WHERE name = ? AND household_id = ?`,
		name, householdID,
	)
	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person by name: %w", err)
	}
	return p, nil
}

func (s *PersonStore) GetByRemoteID(remoteID string) (*model.Person, error) {
	if remoteID == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+personCols+` FROM people WHERE remote_id = ?`, remoteID)
	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person by remote id: %w", err)
	}
	return p, nil
}

func (s *PersonStore) ListByHousehold(householdID int64) ([]model.Person, error) {
	rows, err := s.db.Query(
		`SELECT `+personCols+` FROM people WHERE household_id = ? ORDER BY name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, *p)
	}
	return people, rows.Err()
}

func (s *PersonStore) UpdateName(id int64, name string) (*model.Person, error) {
	_, err := s.db.Exec(
		`UPDATE people SET name = ?, updated_at = datetime('now') WHERE id = ?`,
		name, id,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("update person name: %w", err)
	}
	return s.GetByID(id)
}

// SetRemote records the remote keys assigned to this person and its household.
func (s *PersonStore) SetRemote(id int64, remoteID, remoteHouseholdID string) error {
	_, err := s.db.Exec(
		`UPDATE people SET remote_id = ?, remote_household_id = ?, updated_at = datetime('now') WHERE id = ?`,
		remoteID, remoteHouseholdID, id,
	)
	if err != nil {
		return fmt.Errorf("set person remote ids: %w", err)
	}
	return nil
}

func (s *PersonStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM people WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}
