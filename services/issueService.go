// Package services orchestrates the role policy, the SLA calculator,
// the lifecycle engine, the repository, and the cache coordinator into
// the operations the HTTP layer exposes. All authorization decisions
// are delegated to the policy package; controllers never duplicate
// them.
package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicdesk-be/cache"
	"civicdesk-be/errs"
	"civicdesk-be/events"
	"civicdesk-be/lifecycle"
	"civicdesk-be/models"
	"civicdesk-be/policy"
	"civicdesk-be/repository"
	"civicdesk-be/sla"
)

const (
	minTitleLen       = 5
	minDescriptionLen = 10
	maxPageLimit      = 100
	defaultPageLimit  = 10
)

type IssueService struct {
	repo    repository.IssueRepository
	cache   *cache.Coordinator
	emitter events.Emitter
	clock   sla.Clock
}

func NewIssueService(repo repository.IssueRepository, coordinator *cache.Coordinator, emitter events.Emitter, clock sla.Clock) *IssueService {
	return &IssueService{repo: repo, cache: coordinator, emitter: emitter, clock: clock}
}

// IssueView is an issue decorated with its computed SLA string.
type IssueView struct {
	models.Issue
	SLA string `json:"sla"`
}

// IssueList is one page of scoped, filtered issues.
type IssueList struct {
	Issues      []IssueView `json:"issues"`
	TotalIssues int64       `json:"totalIssues"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
}

// ListQuery carries the caller-supplied list parameters before
// validation.
type ListQuery struct {
	Status     string
	Priority   string
	Department string
	Assignee   string
	Search     string
	Sort       string
	Page       int
	Limit      int
}

// List returns the issues visible to the actor, intersected with the
// caller's filters, paginated and SLA-decorated. Results are served
// from the short-TTL cache when present.
func (s *IssueService) List(ctx context.Context, actor models.Actor, query ListQuery) (*IssueList, error) {
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = defaultPageLimit
	}
	if query.Sort == "" {
		query.Sort = "newest"
	}

	if query.Page < 1 {
		return nil, errs.Validationf("page", "must be at least 1")
	}
	if query.Limit < 1 || query.Limit > maxPageLimit {
		return nil, errs.Validationf("limit", "must be between 1 and %d", maxPageLimit)
	}
	if query.Sort != "newest" && query.Sort != "oldest" {
		return nil, errs.Validationf("sort", "must be newest or oldest")
	}
	if query.Status != "" && !models.IsValidStatus(models.IssueStatus(query.Status)) {
		return nil, errs.Validationf("status", "unknown status %q", query.Status)
	}
	if query.Priority != "" && !models.IsValidPriority(models.IssuePriority(query.Priority)) {
		return nil, errs.Validationf("priority", "unknown priority %q", query.Priority)
	}

	var assigneeID *primitive.ObjectID
	if query.Assignee != "" {
		oid, err := primitive.ObjectIDFromHex(query.Assignee)
		if err != nil {
			return nil, errs.Validationf("assignee", "not a valid user id")
		}
		assigneeID = &oid
	}

	scope := policy.ScopeFor(actor)
	key := cache.ListKey(scopeKey(scope),
		query.Status, query.Priority, query.Department, query.Assignee,
		query.Search, query.Sort,
		strconv.Itoa(query.Page), strconv.Itoa(query.Limit))

	if raw, ok := s.cache.Get(ctx, key); ok {
		var cached IssueList
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, nil
		}
	}

	filter := repository.IssueFilter{
		Scope:      scope,
		Status:     models.IssueStatus(query.Status),
		Priority:   models.IssuePriority(query.Priority),
		Department: query.Department,
		AssigneeID: assigneeID,
		Search:     query.Search,
	}
	page := repository.Pagination{Page: query.Page, Limit: query.Limit, Sort: query.Sort}

	issues, info, err := s.repo.FindMany(ctx, filter, page)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	views := make([]IssueView, 0, len(issues))
	for _, issue := range issues {
		views = append(views, s.view(issue, now))
	}

	list := &IssueList{
		Issues:      views,
		TotalIssues: info.TotalIssues,
		TotalPages:  info.TotalPages,
		CurrentPage: info.CurrentPage,
	}
	if raw, err := json.Marshal(list); err == nil {
		s.cache.Set(ctx, key, string(raw))
	}
	return list, nil
}

// Get returns a single issue if it exists and falls inside the actor's
// scope.
func (s *IssueService) Get(ctx context.Context, actor models.Actor, id string) (*IssueView, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, err
	}

	issue, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !policy.ScopeFor(actor).Matches(issue) {
		return nil, &errs.AuthorizationError{Field: "issue"}
	}

	view := s.view(*issue, s.clock.Now())
	return &view, nil
}

// CreateIssueInput is the validated creation payload.
type CreateIssueInput struct {
	Title       string
	Description string
	Department  string
	Latitude    float64
	Longitude   float64
	Address     *string
	Priority    string
	Attachments []string
}

// Create validates the report, opens the lifecycle trail, and persists
// the new issue as PENDING.
func (s *IssueService) Create(ctx context.Context, actor models.Actor, input CreateIssueInput) (*IssueView, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	department := strings.TrimSpace(input.Department)

	if len(title) < minTitleLen {
		return nil, errs.Validationf("title", "must be at least %d characters", minTitleLen)
	}
	if len(description) < minDescriptionLen {
		return nil, errs.Validationf("description", "must be at least %d characters", minDescriptionLen)
	}
	if department == "" {
		return nil, errs.Validationf("department", "must not be empty")
	}
	if input.Latitude < -90 || input.Latitude > 90 {
		return nil, errs.Validationf("latitude", "must be between -90 and 90")
	}
	if input.Longitude < -180 || input.Longitude > 180 {
		return nil, errs.Validationf("longitude", "must be between -180 and 180")
	}

	priority := models.PriorityMedium
	if input.Priority != "" {
		priority = models.IssuePriority(input.Priority)
		if !models.IsValidPriority(priority) {
			return nil, errs.Validationf("priority", "unknown priority %q", input.Priority)
		}
	}

	now := s.clock.Now()
	reportedBy := actor.ID
	issue := &models.Issue{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: description,
		Department:  department,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Address:     input.Address,
		Priority:    priority,
		Status:      models.StatusPending,
		ReportedBy:  &reportedBy,
		Lifecycle:   lifecycle.NewTrail(now),
		Attachments: input.Attachments,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, issue); err != nil {
		return nil, err
	}

	s.cache.InvalidateIssueViews(ctx)
	s.emitter.Emit(ctx, events.Event{
		Type:    events.IssueCreated,
		IssueID: issue.ID.Hex(),
		ActorID: actor.ID.Hex(),
		At:      now,
	})

	view := s.view(*issue, now)
	return &view, nil
}

// UpdatePatch carries the fields an update wants to change. Nil means
// "leave alone". For AssignedTo an empty string clears the assignment.
type UpdatePatch struct {
	Title       *string
	Description *string
	Address     *string
	Status      *string
	Priority    *string
	Department  *string
	AssignedTo  *string
}

// Update applies the patch atomically: every changed field is checked
// against the role policy first and any single denial rejects the whole
// update; status and assignment changes are routed through the
// lifecycle engine against freshly read state.
func (s *IssueService) Update(ctx context.Context, actor models.Actor, id string, patch UpdatePatch) (*IssueView, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, err
	}

	if patch.Priority != nil && !models.IsValidPriority(models.IssuePriority(*patch.Priority)) {
		return nil, errs.Validationf("priority", "unknown priority %q", *patch.Priority)
	}
	if patch.Title != nil && len(strings.TrimSpace(*patch.Title)) < minTitleLen {
		return nil, errs.Validationf("title", "must be at least %d characters", minTitleLen)
	}
	if patch.Description != nil && len(strings.TrimSpace(*patch.Description)) < minDescriptionLen {
		return nil, errs.Validationf("description", "must be at least %d characters", minDescriptionLen)
	}
	if patch.Department != nil && strings.TrimSpace(*patch.Department) == "" {
		return nil, errs.Validationf("department", "must not be empty")
	}

	var assignee *primitive.ObjectID
	if patch.AssignedTo != nil && *patch.AssignedTo != "" {
		parsed, err := primitive.ObjectIDFromHex(*patch.AssignedTo)
		if err != nil {
			return nil, errs.Validationf("assignedTo", "not a valid user id")
		}
		assignee = &parsed
	}

	now := s.clock.Now()
	updated, err := s.repo.Mutate(ctx, oid, func(issue *models.Issue) error {
		changed := []struct {
			set   bool
			field policy.Field
		}{
			{patch.Title != nil, policy.FieldTitle},
			{patch.Description != nil, policy.FieldDescription},
			{patch.Address != nil, policy.FieldAddress},
			{patch.Status != nil, policy.FieldStatus},
			{patch.Priority != nil, policy.FieldPriority},
			{patch.Department != nil, policy.FieldDepartment},
			{patch.AssignedTo != nil, policy.FieldAssignee},
		}
		for _, c := range changed {
			if c.set && !policy.CanMutate(actor, issue, c.field) {
				return &errs.AuthorizationError{Field: string(c.field)}
			}
		}

		// Assignment first so a paired move to IN_PROGRESS sees the
		// new assignee.
		if patch.AssignedTo != nil {
			lifecycle.ApplyAssignment(issue, assignee, now)
		}
		if patch.Status != nil {
			if err := lifecycle.ApplyStatusChange(issue, models.IssueStatus(*patch.Status), now); err != nil {
				return err
			}
		}
		if patch.Priority != nil {
			issue.Priority = models.IssuePriority(*patch.Priority)
		}
		if patch.Department != nil {
			issue.Department = strings.TrimSpace(*patch.Department)
		}
		if patch.Title != nil {
			issue.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			issue.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Address != nil {
			issue.Address = patch.Address
		}

		if issue.Status == models.StatusInProgress && issue.AssignedTo == nil {
			return errs.Validationf("assignedTo", "an IN_PROGRESS issue must stay assigned")
		}

		issue.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateIssueViews(ctx)
	s.emitter.Emit(ctx, events.Event{
		Type:    events.IssueUpdated,
		IssueID: updated.ID.Hex(),
		ActorID: actor.ID.Hex(),
		At:      now,
	})

	view := s.view(*updated, now)
	return &view, nil
}

// Verify appends the CITIZEN_VERIFIED acknowledgment. Only the
// reporter of the issue or an admin may verify, and only once the
// issue carries a completed RESOLVED record.
func (s *IssueService) Verify(ctx context.Context, actor models.Actor, id string, notes *string) (*IssueView, error) {
	oid, err := parseIssueID(id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	updated, err := s.repo.Mutate(ctx, oid, func(issue *models.Issue) error {
		if actor.Role != models.RoleAdmin &&
			(issue.ReportedBy == nil || *issue.ReportedBy != actor.ID) {
			return &errs.AuthorizationError{Field: "verification"}
		}
		return lifecycle.ApplyVerification(issue, notes, now)
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateIssueViews(ctx)
	s.emitter.Emit(ctx, events.Event{
		Type:    events.IssueUpdated,
		IssueID: updated.ID.Hex(),
		ActorID: actor.ID.Hex(),
		At:      now,
	})

	view := s.view(*updated, now)
	return &view, nil
}

// Delete hard-deletes the issue and everything it owns. Admin-only.
func (s *IssueService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !policy.CanDelete(actor) {
		return &errs.AuthorizationError{Field: "delete"}
	}

	oid, err := parseIssueID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return err
	}

	s.cache.InvalidateIssueViews(ctx)
	s.emitter.Emit(ctx, events.Event{
		Type:    events.IssueDeleted,
		IssueID: oid.Hex(),
		ActorID: actor.ID.Hex(),
		At:      s.clock.Now(),
	})
	return nil
}

// AddComment attaches a comment to an issue inside the actor's scope.
func (s *IssueService) AddComment(ctx context.Context, actor models.Actor, issueID string, content string) (*models.Comment, error) {
	oid, err := parseIssueID(issueID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.Validationf("content", "must not be empty")
	}

	issue, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !policy.CanComment(actor, issue) {
		return nil, &errs.AuthorizationError{Field: "comment"}
	}

	now := s.clock.Now()
	comment := &models.Comment{
		ID:        primitive.NewObjectID(),
		Issue:     oid,
		Author:    actor.ID,
		Content:   content,
		CreatedAt: now,
	}
	if err := s.repo.AddComment(ctx, comment); err != nil {
		return nil, err
	}

	s.cache.InvalidateIssueViews(ctx)
	s.emitter.Emit(ctx, events.Event{
		Type:    events.CommentAdded,
		IssueID: oid.Hex(),
		ActorID: actor.ID.Hex(),
		At:      now,
		Payload: comment,
	})
	return comment, nil
}

// ListComments returns an issue's comments, oldest first.
func (s *IssueService) ListComments(ctx context.Context, actor models.Actor, issueID string) ([]models.Comment, error) {
	oid, err := parseIssueID(issueID)
	if err != nil {
		return nil, err
	}

	issue, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !policy.ScopeFor(actor).Matches(issue) {
		return nil, &errs.AuthorizationError{Field: "issue"}
	}

	return s.repo.FindComments(ctx, oid)
}

// Analytics returns scope-aware issue counts, cached with the same
// short TTL as list reads.
func (s *IssueService) Analytics(ctx context.Context, actor models.Actor) (*repository.Analytics, error) {
	scope := policy.ScopeFor(actor)
	key := cache.AnalyticsKey(scopeKey(scope))

	if raw, ok := s.cache.Get(ctx, key); ok {
		var cached repository.Analytics
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, nil
		}
	}

	analytics, err := s.repo.Analytics(ctx, scope)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(analytics); err == nil {
		s.cache.Set(ctx, key, string(raw))
	}
	return analytics, nil
}

func (s *IssueService) view(issue models.Issue, now time.Time) IssueView {
	return IssueView{
		Issue: issue,
		SLA:   sla.Status(issue.CreatedAt, issue.Status, issue.Priority, now),
	}
}

func parseIssueID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errs.Validationf("id", "not a valid issue id")
	}
	return oid, nil
}

func scopeKey(scope policy.Scope) string {
	switch {
	case scope.All:
		return "all"
	case scope.Department != "":
		return "dept=" + scope.Department
	default:
		return "asg=" + scope.AssigneeID.Hex()
	}
}
