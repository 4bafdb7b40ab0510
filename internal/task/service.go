package task

import (
	"context"
	"time"

	"github.com/rmoldovan/taskgate/internal/auth"
	"github.com/rmoldovan/taskgate/internal/policy"
	"github.com/rmoldovan/taskgate/internal/user"
)

// TaskStore is the storage interface consumed by the Service.
type TaskStore interface {
	GetByID(ctx context.Context, id int64) (*Task, error)
	All(ctx context.Context) ([]*Task, error)
	FindByAssignedTo(ctx context.Context, username string) ([]*Task, error)
	FindByAssignedToOrCreatedBy(ctx context.Context, username string) ([]*Task, error)
	Create(ctx context.Context, in CreateTaskInput) (*Task, error)
	UpdateDetails(ctx context.Context, id int64, title, description string) (*Task, error)
	SetCompletion(ctx context.Context, id int64, completed bool, completedAt *time.Time) (*Task, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	CountCompleted(ctx context.Context) (int64, error)
	CountByAssignedTo(ctx context.Context, username string) (int64, error)
	CountByAssignedToAndCompleted(ctx context.Context, username string, completed bool) (int64, error)
}

// UserDirectory is the slice of the user store the Service needs.
type UserDirectory interface {
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
}

// Service applies the authorization policy to task operations. Every
// operation takes the caller's identity explicitly; there is no ambient
// session state.
type Service struct {
	tasks TaskStore
	users UserDirectory
}

// NewService creates a task service over the given stores.
func NewService(tasks TaskStore, users UserDirectory) *Service {
	return &Service{tasks: tasks, users: users}
}

// ListForCaller returns the tasks visible to the caller. Visibility depends
// on role: admins see everything, managers see tasks assigned to them or
// created by them, regular users see only tasks assigned to them.
func (s *Service) ListForCaller(ctx context.Context, id *auth.Identity) ([]*Task, error) {
	if err := policy.RequireAuthenticated(id); err != nil {
		return nil, err
	}

	switch {
	case id.HasRole(user.RoleAdmin):
		return s.tasks.All(ctx)
	case id.HasRole(user.RoleManager):
		return s.tasks.FindByAssignedToOrCreatedBy(ctx, id.Username)
	default:
		return s.tasks.FindByAssignedTo(ctx, id.Username)
	}
}

// Get returns a single task. The record is fetched before the ownership
// check runs, so an unauthorized caller learns that the id exists; that
// ordering matches dynamic predicates needing the loaded record and is
// deliberate.
func (s *Service) Get(ctx context.Context, id *auth.Identity, taskID int64) (*Task, error) {
	if err := policy.RequireAuthenticated(id); err != nil {
		return nil, err
	}

	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !id.HasRole(user.RoleAdmin) && !policy.CanViewTask(t, id.Username) {
		return nil, policy.Denied("not allowed to view this task")
	}
	return t, nil
}

// Create creates a task on behalf of an assignee. Only managers and admins
// may create tasks at all; the assignment rule then constrains which
// assignee roles the creator may target. Both creator and assignee must
// resolve to existing accounts before the assignment rule is evaluated.
func (s *Service) Create(ctx context.Context, id *auth.Identity, title, description, assignTo string) (*Task, error) {
	if err := policy.RequireAnyRole(id, user.RoleManager, user.RoleAdmin); err != nil {
		return nil, err
	}

	creator, err := s.users.GetByUsername(ctx, id.Username)
	if err != nil {
		return nil, err
	}
	assignee, err := s.users.GetByUsername(ctx, assignTo)
	if err != nil {
		return nil, err
	}

	if err := policy.CanAssign(creator, assignee); err != nil {
		return nil, err
	}

	return s.tasks.Create(ctx, CreateTaskInput{
		Title:       title,
		Description: description,
		AssignedTo:  assignee.Username,
		CreatedBy:   creator.Username,
	})
}

// SetCompletion toggles a task's completion state. Only the assignee may,
// regardless of role. Completing stamps the time; reopening clears it. The
// flag and timestamp change in one atomic update.
func (s *Service) SetCompletion(ctx context.Context, id *auth.Identity, taskID int64, completed bool) (*Task, error) {
	if err := policy.RequireAuthenticated(id); err != nil {
		return nil, err
	}

	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !policy.CanCompleteTask(t, id.Username) {
		return nil, policy.Denied("only the assignee can change completion")
	}

	var completedAt *time.Time
	if completed {
		now := time.Now()
		completedAt = &now
	}
	return s.tasks.SetCompletion(ctx, taskID, completed, completedAt)
}

// UpdateDetails changes a task's title and description. Only the creator or
// an admin may.
func (s *Service) UpdateDetails(ctx context.Context, id *auth.Identity, taskID int64, title, description string) (*Task, error) {
	if err := policy.RequireAuthenticated(id); err != nil {
		return nil, err
	}

	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !id.HasRole(user.RoleAdmin) && !policy.IsTaskCreator(t, id.Username) {
		return nil, policy.Denied("only the creator can update this task")
	}
	return s.tasks.UpdateDetails(ctx, taskID, title, description)
}

// Delete removes a task. Only the creator or an admin may.
func (s *Service) Delete(ctx context.Context, id *auth.Identity, taskID int64) error {
	if err := policy.RequireAuthenticated(id); err != nil {
		return err
	}

	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	if !id.HasRole(user.RoleAdmin) && !policy.IsTaskCreator(t, id.Username) {
		return policy.Denied("only the creator can delete this task")
	}
	return s.tasks.Delete(ctx, taskID)
}

// AssignableUsers returns the accounts the caller may assign tasks to:
// everyone below admin for admins, pure-USER accounts for managers.
func (s *Service) AssignableUsers(ctx context.Context, id *auth.Identity) ([]*user.User, error) {
	if err := policy.RequireAnyRole(id, user.RoleManager, user.RoleAdmin); err != nil {
		return nil, err
	}

	all, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	assignable := []*user.User{}
	for _, u := range all {
		if id.HasRole(user.RoleAdmin) {
			if !u.IsAdmin() {
				assignable = append(assignable, u)
			}
		} else if u.IsPureUser() {
			assignable = append(assignable, u)
		}
	}
	return assignable, nil
}

// StatsForCaller returns task counts over the same scope ListForCaller uses.
func (s *Service) StatsForCaller(ctx context.Context, id *auth.Identity) (*Stats, error) {
	if err := policy.RequireAuthenticated(id); err != nil {
		return nil, err
	}

	var total, completed int64
	switch {
	case id.HasRole(user.RoleAdmin):
		var err error
		if total, err = s.tasks.Count(ctx); err != nil {
			return nil, err
		}
		if completed, err = s.tasks.CountCompleted(ctx); err != nil {
			return nil, err
		}
	case id.HasRole(user.RoleManager):
		visible, err := s.tasks.FindByAssignedToOrCreatedBy(ctx, id.Username)
		if err != nil {
			return nil, err
		}
		total = int64(len(visible))
		for _, t := range visible {
			if t.Completed {
				completed++
			}
		}
	default:
		var err error
		if total, err = s.tasks.CountByAssignedTo(ctx, id.Username); err != nil {
			return nil, err
		}
		if completed, err = s.tasks.CountByAssignedToAndCompleted(ctx, id.Username, true); err != nil {
			return nil, err
		}
	}

	return &Stats{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
	}, nil
}
