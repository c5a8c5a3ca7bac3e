package policy

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicdesk-be/models"
)

// Field names an issue attribute for per-field mutation checks.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldAddress     Field = "address"
	FieldStatus      Field = "status"
	FieldPriority    Field = "priority"
	FieldDepartment  Field = "department"
	FieldAssignee    Field = "assignedTo"
)

// Scope is the query predicate derived from an actor's role. The
// repository translates it into its filter language; Matches applies it
// to a single issue.
type Scope struct {
	All        bool
	Department string
	AssigneeID primitive.ObjectID
}

// ScopeFor derives the visibility scope for an actor: ADMIN sees
// everything, DEPARTMENT_HEAD its own department, TEAM_MEMBER only the
// issues assigned to it.
func ScopeFor(actor models.Actor) Scope {
	switch actor.Role {
	case models.RoleAdmin:
		return Scope{All: true}
	case models.RoleDepartmentHead:
		return Scope{Department: actor.Department}
	default:
		return Scope{AssigneeID: actor.ID}
	}
}

// Matches reports whether the issue falls inside the scope.
func (s Scope) Matches(issue *models.Issue) bool {
	if s.All {
		return true
	}
	if s.Department != "" {
		return issue.Department == s.Department
	}
	return issue.AssignedTo != nil && *issue.AssignedTo == s.AssigneeID
}

// CanMutate decides whether the actor may change the given field on the
// given issue. ADMIN may change anything. DEPARTMENT_HEAD may change
// status, priority, and assignment within its own department.
// TEAM_MEMBER may change status only on issues assigned to itself.
func CanMutate(actor models.Actor, issue *models.Issue, field Field) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDepartmentHead:
		if issue.Department != actor.Department {
			return false
		}
		switch field {
		case FieldStatus, FieldPriority, FieldAssignee:
			return true
		}
		return false
	case models.RoleTeamMember:
		if issue.AssignedTo == nil || *issue.AssignedTo != actor.ID {
			return false
		}
		return field == FieldStatus
	}
	return false
}

// CanDelete decides whether the actor may hard-delete issues. Deletion
// is Admin-only; a DEPARTMENT_HEAD may not delete even within its own
// department.
func CanDelete(actor models.Actor) bool {
	return actor.Role == models.RoleAdmin
}

// CanComment decides whether the actor may comment on the issue. An
// actor may comment exactly on the issues its scope makes visible.
func CanComment(actor models.Actor, issue *models.Issue) bool {
	return ScopeFor(actor).Matches(issue)
}
