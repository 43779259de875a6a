// Package policy holds the authorization rules for task operations.
// Every function here is pure: the result depends only on its arguments.
package policy

import (
	"fmt"

	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Action is an operation an actor attempts on a task.
type Action string

// Actions checked by the task lifecycle.
const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Decision is the outcome of an authorization check.
type Decision bool

// Possible decisions
const (
	Deny  Decision = false
	Allow Decision = true
)

// CanPerform decides whether actor may perform action on task.
//
//   - read: the creator or the current assignee.
//   - update: ADMIN, MANAGER, or the creator.
//   - delete: ADMIN only.
//
// A nil task or an unknown action is denied.
func CanPerform(actor domain.Actor, task *domain.Task, action Action) Decision {
	if task == nil {
		return Deny
	}

	switch action {
	case ActionRead:
		return Decision(task.IsCreatedBy(actor.ID) || task.IsAssignedTo(actor.ID))
	case ActionUpdate:
		switch actor.Role {
		case domain.RoleAdmin, domain.RoleManager:
			return Allow
		}
		return Decision(task.IsCreatedBy(actor.ID))
	case ActionDelete:
		return Decision(actor.Role == domain.RoleAdmin)
	default:
		return Deny
	}
}

// CanDelete reports whether actor's role permits deleting tasks at all.
// Deletion does not depend on the task, so it can be checked before a lookup.
func CanDelete(actor domain.Actor) Decision {
	return Decision(actor.Role == domain.RoleAdmin)
}

// Authorize wraps CanPerform and returns domain.ErrForbidden on denial.
func Authorize(actor domain.Actor, task *domain.Task, action Action) error {
	if !CanPerform(actor, task, action) {
		return fmt.Errorf("%w: %s on task not permitted for role %s",
			domain.ErrForbidden, action, actor.Role)
	}
	return nil
}
