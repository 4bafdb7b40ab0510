package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a task id does not resolve to a row.
var ErrNotFound = errors.New("task not found")

// Store provides database operations for tasks. Tasks reference users by id
// in storage; all queries join the users table twice so the domain layer
// works with usernames.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new task store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// taskColumns is the SELECT list shared by every task query.
const taskColumns = `t.id, t.title, t.description, t.completed, t.completed_at,
	a.username, c.username, t.created_at`

const taskFrom = `FROM tasks t
	JOIN users a ON t.assigned_to = a.id
	JOIN users c ON t.created_by = c.id`

// scanTask scans a single task row.
func scanTask(row pgx.Row) (*Task, error) {
	t := &Task{}
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Completed,
		&t.CompletedAt,
		&t.AssignedTo,
		&t.CreatedBy,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]*Task, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Create inserts a new, not-completed task. The assignee and creator are
// resolved by username; the caller is responsible for having checked that
// both exist.
func (s *Store) Create(ctx context.Context, in CreateTaskInput) (*Task, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, completed, assigned_to, created_by)
		 SELECT $1, $2, FALSE, a.id, c.id
		 FROM users a, users c
		 WHERE a.username = $3 AND c.username = $4
		 RETURNING id`,
		in.Title, in.Description, in.AssignedTo, in.CreatedBy,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID retrieves a task by primary key. Returns ErrNotFound when the id
// does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*Task, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE t.id = $1`, taskColumns, taskFrom)
	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting task by id: %w", err)
	}
	return t, nil
}

// All returns every task ordered by creation time.
func (s *Store) All(ctx context.Context) ([]*Task, error) {
	query := fmt.Sprintf(`SELECT %s %s ORDER BY t.created_at`, taskColumns, taskFrom)
	return s.queryTasks(ctx, query)
}

// FindByAssignedTo returns tasks assigned to the given username.
func (s *Store) FindByAssignedTo(ctx context.Context, username string) ([]*Task, error) {
	query := fmt.Sprintf(
		`SELECT %s %s WHERE a.username = $1 ORDER BY t.created_at`,
		taskColumns, taskFrom)
	return s.queryTasks(ctx, query, username)
}

// FindByAssignedToOrCreatedBy returns tasks where the given username is the
// assignee or the creator, without duplicates.
func (s *Store) FindByAssignedToOrCreatedBy(ctx context.Context, username string) ([]*Task, error) {
	query := fmt.Sprintf(
		`SELECT %s %s WHERE a.username = $1 OR c.username = $1 ORDER BY t.created_at`,
		taskColumns, taskFrom)
	return s.queryTasks(ctx, query, username)
}

// UpdateDetails changes a task's title and description.
func (s *Store) UpdateDetails(ctx context.Context, id int64, title, description string) (*Task, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2 WHERE id = $3`,
		title, description, id)
	if err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// SetCompletion sets the completion flag and timestamp in a single UPDATE so
// the two are never visible in an inconsistent state. The timestamp is set
// when completing and cleared when reopening.
func (s *Store) SetCompletion(ctx context.Context, id int64, completed bool, completedAt *time.Time) (*Task, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET completed = $1, completed_at = $2 WHERE id = $3`,
		completed, completedAt, id)
	if err != nil {
		return nil, fmt.Errorf("updating task completion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// Delete removes a task by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of tasks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return n, nil
}

// CountCompleted returns the number of completed tasks.
func (s *Store) CountCompleted(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE completed`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting completed tasks: %w", err)
	}
	return n, nil
}

// CountByAssignedTo returns the number of tasks assigned to the username.
func (s *Store) CountByAssignedTo(ctx context.Context, username string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks t JOIN users a ON t.assigned_to = a.id
		 WHERE a.username = $1`, username).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting assigned tasks: %w", err)
	}
	return n, nil
}

// CountByAssignedToAndCompleted returns the number of tasks assigned to the
// username with the given completion state.
func (s *Store) CountByAssignedToAndCompleted(ctx context.Context, username string, completed bool) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks t JOIN users a ON t.assigned_to = a.id
		 WHERE a.username = $1 AND t.completed = $2`, username, completed).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting assigned completed tasks: %w", err)
	}
	return n, nil
}
