// Package policy evaluates authorization predicates. Two families exist:
// static role predicates over the caller's identity alone, and dynamic
// ownership predicates over a fetched record. Static checks run before any
// storage access; dynamic checks necessarily run after the fetch.
package policy

import (
	"errors"

	"github.com/rmoldovan/taskgate/internal/auth"
	"github.com/rmoldovan/taskgate/internal/user"
)

// DeniedError signals an authorization denial with a human-readable reason.
// It is a typed outcome, not an internal failure: callers map it uniformly
// to a forbidden response.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return e.Reason }

// Denied constructs a DeniedError with the given reason.
func Denied(reason string) error {
	return &DeniedError{Reason: reason}
}

// IsDenied reports whether err is an authorization denial.
func IsDenied(err error) bool {
	var de *DeniedError
	return errors.As(err, &de)
}

// RequireAuthenticated denies anonymous callers.
func RequireAuthenticated(id *auth.Identity) error {
	if id == nil || !id.Authenticated {
		return Denied("authentication required")
	}
	return nil
}

// RequireAnyRole denies callers that are anonymous or hold none of the
// given roles.
func RequireAnyRole(id *auth.Identity, roles ...string) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if !id.HasAnyRole(roles...) {
		return Denied("insufficient role")
	}
	return nil
}

// Resource is the minimal view of a record that ownership predicates need.
// A task has two independent relationship edges, each conferring different
// permissions.
type Resource interface {
	AssignedToUsername() string
	CreatedByUsername() string
}

// CanCompleteTask reports whether the named user may toggle the record's
// completion state. Only the assignee may.
func CanCompleteTask(r Resource, username string) bool {
	return r.AssignedToUsername() == username
}

// IsTaskCreator reports whether the named user created the record.
func IsTaskCreator(r Resource, username string) bool {
	return r.CreatedByUsername() == username
}

// CanViewTask reports whether the named user is related to the record as
// assignee or creator. The ADMIN bypass is handled by the caller, since
// admin authority is a static fact independent of the resource.
func CanViewTask(r Resource, username string) bool {
	return r.AssignedToUsername() == username || r.CreatedByUsername() == username
}

// CanAssign enforces the role-hierarchy assignment rule: a MANAGER creator
// may assign only to pure-USER accounts; an ADMIN creator may assign to
// pure-USER or MANAGER accounts but never to another ADMIN. The denial is
// distinct from the "may not create tasks at all" role gate.
func CanAssign(creator, assignee *user.User) error {
	// ADMIN wins when the creator holds both elevated roles.
	if creator.IsAdmin() {
		if assignee.IsPureUser() || (assignee.IsManager() && !assignee.IsAdmin()) {
			return nil
		}
		return Denied("admins can only assign tasks to users and managers")
	}
	if creator.IsManager() {
		if assignee.IsPureUser() {
			return nil
		}
		return Denied("managers can only assign tasks to regular users")
	}
	return Denied("insufficient role")
}
