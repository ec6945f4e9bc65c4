package store

import (
	"database/sql"
	"fmt"

	"github.com/avelar/hometask/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &t.DueMillis, &t.Priority, &t.AssigneeID,
		&t.IsRecurring, &t.RecurringInterval, &t.HouseholdID, &t.RemoteID,
		&t.RemoteHouseholdID, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const taskCols = `id, title, description, due_millis, priority, assignee_id, is_recurring,
	recurring_interval, household_id, remote_id, remote_household_id, status, created_at, updated_at`

func (s *TaskStore) Create(t model.Task) (*model.Task, error) {
	result, err := s.db.Exec(
		`INSERT INTO tasks (title, description, due_millis, priority, assignee_id, is_recurring,
		 recurring_interval, household_id, remote_id, remote_household_id, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, t.DueMillis, t.Priority, t.AssigneeID, t.IsRecurring,
		t.RecurringInterval, t.HouseholdID, t.RemoteID, t.RemoteHouseholdID, t.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) GetByRemoteID(remoteID string) (*model.Task, error) {
	if remoteID == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE remote_id = ?`, remoteID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task by remote id: %w", err)
	}
	return t, nil
}

// ListByHousehold orders undated tasks last, then by due date ascending.
func (s *TaskStore) ListByHousehold(householdID int64) ([]model.Task, error) {
	return s.list(
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ?
		 ORDER BY due_millis IS NULL, due_millis ASC, id ASC`,
		householdID,
	)
}

func (s *TaskStore) ListByAssignee(householdID, assigneeID int64) ([]model.Task, error) {
	return s.list(
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ? AND assignee_id = ?
		 ORDER BY due_millis IS NULL, due_millis ASC, id ASC`,
		householdID, assigneeID,
	)
}

// ListIncompleteByHousehold feeds the status sweep; completed tasks are
// sticky and never recomputed.
func (s *TaskStore) ListIncompleteByHousehold(householdID int64) ([]model.Task, error) {
	return s.list(
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ? AND status != ?
		 ORDER BY id ASC`,
		householdID, model.StatusCompleted,
	)
}

func (s *TaskStore) list(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(t model.Task) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, due_millis = ?, priority = ?,
		 assignee_id = ?, is_recurring = ?, recurring_interval = ?, status = ?,
		 updated_at = datetime('now') WHERE id = ?`,
		t.Title, t.Description, t.DueMillis, t.Priority, t.AssigneeID,
		t.IsRecurring, t.RecurringInterval, t.Status, t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(t.ID)
}

func (s *TaskStore) UpdateStatus(id int64, status model.TaskStatus) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// SetRemote records the remote keys assigned to this task and its household.
func (s *TaskStore) SetRemote(id int64, remoteID, remoteHouseholdID string) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET remote_id = ?, remote_household_id = ?, updated_at = datetime('now') WHERE id = ?`,
		remoteID, remoteHouseholdID, id,
	)
	if err != nil {
		return fmt.Errorf("set task remote ids: %w", err)
	}
	return nil
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
