// Package policy holds the access-control predicates for tasks. They are pure
// functions and the single source of truth for authorization: every entry
// point touching a task (HTTP handlers, the client cache's broadcast filter)
// decides through these, never through inline role checks.
package policy

// AdminRole matches entity.RoleAdmin; kept as a plain string so this package
// imports nothing.
const AdminRole = "admin"

// Actor is the authenticated identity making a request.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == AdminRole }

// TaskRefs carries the ownership references of a task. AssignedTo is empty
// for unassigned tasks.
type TaskRefs struct {
	CreatedBy  string
	AssignedTo string
}

func ownsOrAssigned(a Actor, r TaskRefs) bool {
	if a.ID == "" {
		return false
	}
	return a.ID == r.CreatedBy || (r.AssignedTo != "" && a.ID == r.AssignedTo)
}

// CanRead reports whether the actor may see the task. Also the visibility
// predicate for list results and broadcast events.
func CanRead(a Actor, r TaskRefs) bool {
	return a.IsAdmin() || ownsOrAssigned(a, r)
}

// CanUpdate reports whether the actor may modify the task.
func CanUpdate(a Actor, r TaskRefs) bool {
	return a.IsAdmin() || ownsOrAssigned(a, r)
}

// CanDelete reports whether the actor may remove the task. Assignees may not.
func CanDelete(a Actor, r TaskRefs) bool {
	return a.IsAdmin() || (a.ID != "" && a.ID == r.CreatedBy)
}
