// Package repository defines the persistence contract the issue service
// and lifecycle engine call into, plus its MongoDB implementation. The
// interface is what tests substitute with in-memory fakes.
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicdesk-be/models"
	"civicdesk-be/policy"
)

// IssueFilter combines the actor's role scope with caller-supplied
// filters. Scope always applies; the rest are optional and intersect.
type IssueFilter struct {
	Scope      policy.Scope
	Status     models.IssueStatus
	Priority   models.IssuePriority
	Department string
	AssigneeID *primitive.ObjectID
	Search     string
}

// Pagination carries validated paging and sort parameters.
type Pagination struct {
	Page  int
	Limit int
	Sort  string // "newest" or "oldest"
}

// PageInfo describes the result window of a list query.
type PageInfo struct {
	TotalIssues int64 `json:"totalIssues"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
}

// MutateFunc is applied to a freshly read issue inside the repository's
// atomic read-modify-write. Returning an error aborts the mutation and
// propagates the error unchanged.
type MutateFunc func(issue *models.Issue) error

// DailyCount is one bucket of the last-7-days series.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Analytics aggregates issue counts inside a scope.
type Analytics struct {
	TotalIssues  int64                          `json:"totalIssues"`
	OpenIssues   int64                          `json:"openIssues"`
	ByStatus     map[models.IssueStatus]int64   `json:"issuesByStatus"`
	ByPriority   map[models.IssuePriority]int64 `json:"issuesByPriority"`
	ByDepartment map[string]int64               `json:"issuesByDepartment"`
	Last7Days    []DailyCount                   `json:"last7Days"`
}

// IssueRepository is the persistence contract. Implementations must
// make Mutate an atomic read-modify-write per issue and Delete a
// transactional cascade over the issue's dependent records.
type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	FindMany(ctx context.Context, filter IssueFilter, page Pagination) ([]models.Issue, PageInfo, error)
	Mutate(ctx context.Context, id primitive.ObjectID, fn MutateFunc) (*models.Issue, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddComment(ctx context.Context, comment *models.Comment) error
	FindComments(ctx context.Context, issueID primitive.ObjectID) ([]models.Comment, error)
	Analytics(ctx context.Context, scope policy.Scope) (*Analytics, error)
}
