package task

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rmoldovan/taskgate/internal/auth"
	"github.com/rmoldovan/taskgate/internal/policy"
	"github.com/rmoldovan/taskgate/internal/user"
)

// --- in-memory stores ---

type memTaskStore struct {
	nextID int64
	tasks  map[int64]*Task
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[int64]*Task)}
}

func (s *memTaskStore) GetByID(_ context.Context, id int64) (*Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *memTaskStore) all() []*Task {
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memTaskStore) All(_ context.Context) ([]*Task, error) {
	return s.all(), nil
}

func (s *memTaskStore) FindByAssignedTo(_ context.Context, username string) ([]*Task, error) {
	var out []*Task
	for _, t := range s.all() {
		if t.AssignedTo == username {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memTaskStore) FindByAssignedToOrCreatedBy(_ context.Context, username string) ([]*Task, error) {
	var out []*Task
	for _, t := range s.all() {
		if t.AssignedTo == username || t.CreatedBy == username {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memTaskStore) Create(_ context.Context, in CreateTaskInput) (*Task, error) {
	s.nextID++
	t := &Task{
		ID:          s.nextID,
		Title:       in.Title,
		Description: in.Description,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   time.Now(),
	}
	s.tasks[t.ID] = t
	return t, nil
}

func (s *memTaskStore) UpdateDetails(_ context.Context, id int64, title, description string) (*Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Title = title
	t.Description = description
	return t, nil
}

func (s *memTaskStore) SetCompletion(_ context.Context, id int64, completed bool, completedAt *time.Time) (*Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Completed = completed
	t.CompletedAt = completedAt
	return t, nil
}

func (s *memTaskStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *memTaskStore) Count(_ context.Context) (int64, error) {
	return int64(len(s.tasks)), nil
}

func (s *memTaskStore) CountCompleted(_ context.Context) (int64, error) {
	var n int64
	for _, t := range s.tasks {
		if t.Completed {
			n++
		}
	}
	return n, nil
}

func (s *memTaskStore) CountByAssignedTo(_ context.Context, username string) (int64, error) {
	var n int64
	for _, t := range s.tasks {
		if t.AssignedTo == username {
			n++
		}
	}
	return n, nil
}

func (s *memTaskStore) CountByAssignedToAndCompleted(_ context.Context, username string, completed bool) (int64, error) {
	var n int64
	for _, t := range s.tasks {
		if t.AssignedTo == username && t.Completed == completed {
			n++
		}
	}
	return n, nil
}

type memUserDirectory struct {
	users []*user.User
}

func (d *memUserDirectory) GetByUsername(_ context.Context, username string) (*user.User, error) {
	for _, u := range d.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (d *memUserDirectory) List(_ context.Context) ([]*user.User, error) {
	return d.users, nil
}

// --- fixtures ---

func identity(username string, roles ...string) *auth.Identity {
	return &auth.Identity{Username: username, Roles: roles, Authenticated: true}
}

// newFixture builds a service with admin/mary(manager)/bob,carol(users) and
// three tasks: #1 mary→bob, #2 admin→mary, #3 admin→carol.
func newFixture(t *testing.T) (*Service, *memTaskStore) {
	t.Helper()

	users := &memUserDirectory{users: []*user.User{
		{ID: 1, Username: "admin", Roles: []string{user.RoleAdmin}},
		{ID: 2, Username: "mary", Roles: []string{user.RoleManager}},
		{ID: 3, Username: "bob", Roles: []string{user.RoleUser}},
		{ID: 4, Username: "carol", Roles: []string{user.RoleUser}},
	}}

	tasks := newMemTaskStore()
	ctx := context.Background()
	seed := []CreateTaskInput{
		{Title: "write report", AssignedTo: "bob", CreatedBy: "mary"},
		{Title: "plan quarter", AssignedTo: "mary", CreatedBy: "admin"},
		{Title: "file expenses", AssignedTo: "carol", CreatedBy: "admin"},
	}
	for _, in := range seed {
		if _, err := tasks.Create(ctx, in); err != nil {
			t.Fatalf("seeding task: %v", err)
		}
	}

	return NewService(tasks, users), tasks
}

func taskIDs(tasks []*Task) []int64 {
	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- tests ---

func TestListForCaller_Visibility(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  *auth.Identity
		wantIDs []int64
	}{
		{"admin sees all", identity("admin", user.RoleAdmin), []int64{1, 2, 3}},
		{"manager sees assigned or created", identity("mary", user.RoleManager), []int64{1, 2}},
		{"user sees only assigned", identity("bob", user.RoleUser), []int64{1}},
		{"other user sees own assignment only", identity("carol", user.RoleUser), []int64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListForCaller(ctx, tt.caller)
			if err != nil {
				t.Fatalf("ListForCaller() error: %v", err)
			}
			if !equalIDs(taskIDs(got), tt.wantIDs) {
				t.Errorf("got ids %v, want %v", taskIDs(got), tt.wantIDs)
			}
		})
	}
}

func TestListForCaller_Anonymous(t *testing.T) {
	svc, _ := newFixture(t)
	if _, err := svc.ListForCaller(context.Background(), nil); !policy.IsDenied(err) {
		t.Errorf("expected denial for anonymous caller, got %v", err)
	}
}

func TestGet(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  *auth.Identity
		taskID  int64
		denied  bool
		missing bool
	}{
		{name: "assignee views", caller: identity("bob", user.RoleUser), taskID: 1},
		{name: "creator views", caller: identity("mary", user.RoleManager), taskID: 1},
		{name: "admin bypasses ownership", caller: identity("admin", user.RoleAdmin), taskID: 1},
		{name: "unrelated user denied", caller: identity("carol", user.RoleUser), taskID: 1, denied: true},
		{name: "missing task", caller: identity("bob", user.RoleUser), taskID: 99, missing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Get(ctx, tt.caller, tt.taskID)
			switch {
			case tt.denied:
				if !policy.IsDenied(err) {
					t.Errorf("expected denial, got %v", err)
				}
			case tt.missing:
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("Get() error: %v", err)
				}
				if got.ID != tt.taskID {
					t.Errorf("got task %d, want %d", got.ID, tt.taskID)
				}
			}
		})
	}
}

func TestCreate_AssignmentRule(t *testing.T) {
	users := &memUserDirectory{users: []*user.User{
		{ID: 1, Username: "admin", Roles: []string{user.RoleAdmin}},
		{ID: 2, Username: "mary", Roles: []string{user.RoleManager}},
		{ID: 3, Username: "bob", Roles: []string{user.RoleUser}},
		{ID: 4, Username: "eve", Roles: []string{user.RoleUser, user.RoleAdmin}},
		{ID: 5, Username: "root", Roles: []string{user.RoleAdmin}},
	}}
	svc := NewService(newMemTaskStore(), users)
	ctx := context.Background()

	tests := []struct {
		name     string
		caller   *auth.Identity
		assignTo string
		denied   bool
	}{
		{"manager to pure user", identity("mary", user.RoleManager), "bob", false},
		{"manager to user holding admin", identity("mary", user.RoleManager), "eve", true},
		{"admin to manager", identity("admin", user.RoleAdmin), "mary", false},
		{"admin to admin", identity("admin", user.RoleAdmin), "root", true},
		{"plain user may not create", identity("bob", user.RoleUser), "bob", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Create(ctx, tt.caller, "task", "desc", tt.assignTo)
			if tt.denied {
				if !policy.IsDenied(err) {
					t.Errorf("expected denial, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error: %v", err)
			}
			if got.AssignedTo != tt.assignTo {
				t.Errorf("assigned to %q, want %q", got.AssignedTo, tt.assignTo)
			}
			if got.CreatedBy != tt.caller.Username {
				t.Errorf("created by %q, want %q", got.CreatedBy, tt.caller.Username)
			}
			if got.Completed || got.CompletedAt != nil {
				t.Error("new tasks must start not completed with no timestamp")
			}
		})
	}
}

func TestCreate_UnknownAssignee(t *testing.T) {
	svc, _ := newFixture(t)
	_, err := svc.Create(context.Background(), identity("mary", user.RoleManager), "t", "d", "nobody")
	if !errors.Is(err, user.ErrNotFound) {
		t.Errorf("expected user.ErrNotFound, got %v", err)
	}
}

func TestSetCompletion(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	bob := identity("bob", user.RoleUser)

	// Task 1 is assigned to bob, created by mary.
	got, err := svc.SetCompletion(ctx, bob, 1, true)
	if err != nil {
		t.Fatalf("SetCompletion(true) error: %v", err)
	}
	if !got.Completed || got.CompletedAt == nil {
		t.Fatal("completing must set the flag and timestamp together")
	}
	first := *got.CompletedAt

	// Reopening clears the timestamp.
	got, err = svc.SetCompletion(ctx, bob, 1, false)
	if err != nil {
		t.Fatalf("SetCompletion(false) error: %v", err)
	}
	if got.Completed || got.CompletedAt != nil {
		t.Fatal("reopening must clear the flag and timestamp together")
	}

	// Completing again produces a fresh timestamp.
	got, err = svc.SetCompletion(ctx, bob, 1, true)
	if err != nil {
		t.Fatalf("SetCompletion(true) again error: %v", err)
	}
	if got.CompletedAt == nil || got.CompletedAt.Before(first) {
		t.Error("re-completing should stamp a fresh, non-nil timestamp")
	}
}

func TestSetCompletion_OnlyAssignee(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	// The creator relationship alone must not allow completion; neither
	// does admin.
	for _, caller := range []*auth.Identity{
		identity("mary", user.RoleManager),
		identity("admin", user.RoleAdmin),
		identity("carol", user.RoleUser),
	} {
		if _, err := svc.SetCompletion(ctx, caller, 1, true); !policy.IsDenied(err) {
			t.Errorf("caller %s: expected denial, got %v", caller.Username, err)
		}
	}
}

func TestUpdateDetails(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	if _, err := svc.UpdateDetails(ctx, identity("mary", user.RoleManager), 1, "new", "desc"); err != nil {
		t.Errorf("creator should update, got %v", err)
	}
	if _, err := svc.UpdateDetails(ctx, identity("admin", user.RoleAdmin), 1, "newer", "desc"); err != nil {
		t.Errorf("admin should update, got %v", err)
	}
	if _, err := svc.UpdateDetails(ctx, identity("bob", user.RoleUser), 1, "x", "y"); !policy.IsDenied(err) {
		t.Errorf("assignee must not update details, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, store := newFixture(t)
	ctx := context.Background()

	if err := svc.Delete(ctx, identity("bob", user.RoleUser), 1); !policy.IsDenied(err) {
		t.Errorf("assignee must not delete, got %v", err)
	}
	if err := svc.Delete(ctx, identity("mary", user.RoleManager), 1); err != nil {
		t.Errorf("creator should delete, got %v", err)
	}
	if err := svc.Delete(ctx, identity("admin", user.RoleAdmin), 2); err != nil {
		t.Errorf("admin should delete, got %v", err)
	}
	if len(store.tasks) != 1 {
		t.Errorf("expected 1 task left, got %d", len(store.tasks))
	}
}

func TestAssignableUsers(t *testing.T) {
	users := &memUserDirectory{users: []*user.User{
		{ID: 1, Username: "admin", Roles: []string{user.RoleAdmin}},
		{ID: 2, Username: "mary", Roles: []string{user.RoleManager}},
		{ID: 3, Username: "bob", Roles: []string{user.RoleUser}},
		{ID: 4, Username: "eve", Roles: []string{user.RoleUser, user.RoleManager}},
	}}
	svc := NewService(newMemTaskStore(), users)
	ctx := context.Background()

	got, err := svc.AssignableUsers(ctx, identity("admin", user.RoleAdmin))
	if err != nil {
		t.Fatalf("AssignableUsers(admin) error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("admin should see all non-admins, got %d users", len(got))
	}

	got, err = svc.AssignableUsers(ctx, identity("mary", user.RoleManager))
	if err != nil {
		t.Fatalf("AssignableUsers(manager) error: %v", err)
	}
	if len(got) != 1 || got[0].Username != "bob" {
		t.Errorf("manager should see only pure users, got %v", got)
	}

	if _, err := svc.AssignableUsers(ctx, identity("bob", user.RoleUser)); !policy.IsDenied(err) {
		t.Errorf("plain user must be denied, got %v", err)
	}
}

func TestStatsForCaller(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	// bob completes his one task.
	if _, err := svc.SetCompletion(ctx, identity("bob", user.RoleUser), 1, true); err != nil {
		t.Fatalf("completing task: %v", err)
	}

	tests := []struct {
		name      string
		caller    *auth.Identity
		total     int64
		completed int64
	}{
		{"admin counts everything", identity("admin", user.RoleAdmin), 3, 1},
		{"manager counts own scope", identity("mary", user.RoleManager), 2, 1},
		{"user counts assigned", identity("bob", user.RoleUser), 1, 1},
		{"user with open task", identity("carol", user.RoleUser), 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.StatsForCaller(ctx, tt.caller)
			if err != nil {
				t.Fatalf("StatsForCaller() error: %v", err)
			}
			if got.Total != tt.total || got.Completed != tt.completed {
				t.Errorf("got total=%d completed=%d, want total=%d completed=%d",
					got.Total, got.Completed, tt.total, tt.completed)
			}
			if got.Pending != got.Total-got.Completed {
				t.Errorf("pending %d should equal total-completed", got.Pending)
			}
		})
	}
}
