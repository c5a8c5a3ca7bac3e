package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicdesk-be/cache"
	"civicdesk-be/errs"
	"civicdesk-be/events"
	"civicdesk-be/models"
	"civicdesk-be/policy"
	"civicdesk-be/repository"
)

// fakeRepo is an in-memory IssueRepository. Mutate mirrors the real
// implementation's contract: the mutator runs against a fresh copy and
// nothing is persisted when it errors.
type fakeRepo struct {
	mu        sync.Mutex
	issues    map[primitive.ObjectID]*models.Issue
	comments  map[primitive.ObjectID][]models.Comment
	findCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		issues:   make(map[primitive.ObjectID]*models.Issue),
		comments: make(map[primitive.ObjectID][]models.Comment),
	}
}

func copyIssue(src *models.Issue) *models.Issue {
	dup := *src
	dup.Lifecycle = append([]models.LifecycleRecord(nil), src.Lifecycle...)
	dup.Attachments = append([]string(nil), src.Attachments...)
	if src.ReportedBy != nil {
		id := *src.ReportedBy
		dup.ReportedBy = &id
	}
	if src.AssignedTo != nil {
		id := *src.AssignedTo
		dup.AssignedTo = &id
	}
	if src.Address != nil {
		addr := *src.Address
		dup.Address = &addr
	}
	return &dup
}

func (r *fakeRepo) Create(_ context.Context, issue *models.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issues[issue.ID] = copyIssue(issue)
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok {
		return nil, &errs.NotFoundError{Resource: "issue", ID: id.Hex()}
	}
	return copyIssue(issue), nil
}

func (r *fakeRepo) FindMany(_ context.Context, filter repository.IssueFilter, page repository.Pagination) ([]models.Issue, repository.PageInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++

	var matched []models.Issue
	for _, issue := range r.issues {
		if !filter.Scope.Matches(issue) {
			continue
		}
		if filter.Status != "" && issue.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && issue.Priority != filter.Priority {
			continue
		}
		if filter.Department != "" && issue.Department != filter.Department {
			continue
		}
		if filter.AssigneeID != nil && (issue.AssignedTo == nil || *issue.AssignedTo != *filter.AssigneeID) {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(issue.Title), needle) &&
				!strings.Contains(strings.ToLower(issue.Description), needle) {
				continue
			}
		}
		matched = append(matched, *copyIssue(issue))
	}

	sort.Slice(matched, func(i, j int) bool {
		if page.Sort == "oldest" {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (page.Page - 1) * page.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}

	info := repository.PageInfo{
		TotalIssues: total,
		TotalPages:  int((total + int64(page.Limit) - 1) / int64(page.Limit)),
		CurrentPage: page.Page,
	}
	return matched[start:end], info, nil
}

func (r *fakeRepo) Mutate(_ context.Context, id primitive.ObjectID, fn repository.MutateFunc) (*models.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	issue, ok := r.issues[id]
	if !ok {
		return nil, &errs.NotFoundError{Resource: "issue", ID: id.Hex()}
	}

	dup := copyIssue(issue)
	if err := fn(dup); err != nil {
		return nil, err
	}
	dup.Version++
	r.issues[id] = dup
	return copyIssue(dup), nil
}

func (r *fakeRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.issues[id]; !ok {
		return &errs.NotFoundError{Resource: "issue", ID: id.Hex()}
	}
	delete(r.issues, id)
	delete(r.comments, id)
	return nil
}

func (r *fakeRepo) AddComment(_ context.Context, comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments[comment.Issue] = append(r.comments[comment.Issue], *comment)
	return nil
}

func (r *fakeRepo) FindComments(_ context.Context, issueID primitive.ObjectID) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Comment(nil), r.comments[issueID]...), nil
}

func (r *fakeRepo) Analytics(_ context.Context, scope policy.Scope) (*repository.Analytics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	analytics := &repository.Analytics{
		ByStatus:     make(map[models.IssueStatus]int64),
		ByPriority:   make(map[models.IssuePriority]int64),
		ByDepartment: make(map[string]int64),
	}
	for _, issue := range r.issues {
		if !scope.Matches(issue) {
			continue
		}
		analytics.TotalIssues++
		if issue.Status == models.StatusPending || issue.Status == models.StatusInProgress {
			analytics.OpenIssues++
		}
		analytics.ByStatus[issue.Status]++
		analytics.ByPriority[issue.Priority]++
		analytics.ByDepartment[issue.Department]++
	}
	return analytics, nil
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (e *fakeEmitter) Emit(_ context.Context, event events.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *fakeEmitter) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	svc     *IssueService
	repo    *fakeRepo
	emitter *fakeEmitter
	clock   *fakeClock
}

func newTestEnv() *testEnv {
	repo := newFakeRepo()
	emitter := &fakeEmitter{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewIssueService(repo, cache.NewCoordinator(cache.NewMemoryCache()), emitter, clock)
	return &testEnv{svc: svc, repo: repo, emitter: emitter, clock: clock}
}

func adminActor() models.Actor {
	return models.Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
}

func headActor(department string) models.Actor {
	return models.Actor{ID: primitive.NewObjectID(), Role: models.RoleDepartmentHead, Department: department}
}

func memberActor(department string) models.Actor {
	return models.Actor{ID: primitive.NewObjectID(), Role: models.RoleTeamMember, Department: department}
}

func validInput(department string) CreateIssueInput {
	return CreateIssueInput{
		Title:       "Large pothole on Main Street",
		Description: "Deep pothole near the bus stop, growing after the rains",
		Department:  department,
		Latitude:    23.6139,
		Longitude:   85.2790,
		Priority:    "CRITICAL",
	}
}

func strPtr(s string) *string { return &s }

func TestCreateThenGetRoundTrip(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != models.StatusPending {
		t.Fatalf("status = %s, want PENDING", created.Status)
	}

	got, err := env.svc.Get(ctx, admin, created.ID.Hex())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Lifecycle) != 2 {
		t.Fatalf("lifecycle length = %d, want 2", len(got.Lifecycle))
	}
	if got.Lifecycle[0].Step != models.StepReported || got.Lifecycle[0].Status != models.StepCompleted {
		t.Fatalf("lifecycle[0] = %+v, want REPORTED COMPLETED", got.Lifecycle[0])
	}
	if got.Lifecycle[1].Step != models.StepAcknowledged || got.Lifecycle[1].Status != models.StepCurrent {
		t.Fatalf("lifecycle[1] = %+v, want ACKNOWLEDGED CURRENT", got.Lifecycle[1])
	}
	if types := env.emitter.types(); len(types) != 1 || types[0] != events.IssueCreated {
		t.Fatalf("emitted = %v, want [issue-created]", types)
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	cases := []struct {
		name   string
		mutate func(*CreateIssueInput)
		field  string
	}{
		{"short title", func(in *CreateIssueInput) { in.Title = "Pot" }, "title"},
		{"short description", func(in *CreateIssueInput) { in.Description = "bad road" }, "description"},
		{"missing department", func(in *CreateIssueInput) { in.Department = "  " }, "department"},
		{"latitude out of range", func(in *CreateIssueInput) { in.Latitude = 91 }, "latitude"},
		{"longitude out of range", func(in *CreateIssueInput) { in.Longitude = -181 }, "longitude"},
		{"unknown priority", func(in *CreateIssueInput) { in.Priority = "URGENT" }, "priority"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput("Public Works")
			tc.mutate(&input)
			_, err := env.svc.Create(ctx, admin, input)
			var validation *errs.ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if validation.Field != tc.field {
				t.Fatalf("field = %s, want %s", validation.Field, tc.field)
			}
		})
	}
}

func TestCreateDefaultsToMediumPriority(t *testing.T) {
	env := newTestEnv()
	input := validInput("Public Works")
	input.Priority = ""

	created, err := env.svc.Create(context.Background(), adminActor(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Priority != models.PriorityMedium {
		t.Fatalf("priority = %s, want MEDIUM", created.Priority)
	}
}

func TestCriticalSLAScenario(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.SLA != "4h left" {
		t.Fatalf("fresh SLA = %q, want 4h left", created.SLA)
	}

	env.clock.Advance(5 * time.Hour)
	got, err := env.svc.Get(ctx, admin, created.ID.Hex())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SLA != "Overdue" {
		t.Fatalf("SLA after 5h = %q, want Overdue", got.SLA)
	}

	resolved := "RESOLVED"
	updated, err := env.svc.Update(ctx, admin, created.ID.Hex(), UpdatePatch{Status: &resolved})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if updated.SLA != "Closed" {
		t.Fatalf("SLA after resolve = %q, want Closed", updated.SLA)
	}
}

func TestResolveTwiceKeepsOneRecord(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved := "RESOLVED"
	for i := 0; i < 2; i++ {
		if _, err := env.svc.Update(ctx, admin, created.ID.Hex(), UpdatePatch{Status: &resolved}); err != nil {
			t.Fatalf("resolve attempt %d: %v", i+1, err)
		}
	}

	got, err := env.svc.Get(ctx, admin, created.ID.Hex())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	count := 0
	for _, rec := range got.Lifecycle {
		if rec.Step == models.StepResolved {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("RESOLVED records = %d, want exactly 1", count)
	}
}

func TestConcurrentResolveBothSucceed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved := "RESOLVED"
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Update(ctx, admin, created.ID.Hex(), UpdatePatch{Status: &resolved})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("concurrent resolve failed: %v", err)
		}
	}

	got, err := env.svc.Get(ctx, admin, created.ID.Hex())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	count := 0
	for _, rec := range got.Lifecycle {
		if rec.Step == models.StepResolved {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("RESOLVED records = %d, want exactly 1", count)
	}
}

func TestTeamMemberCannotChangePriority(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()
	member := memberActor("Public Works")

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Even with the issue assigned to the member, priority stays out of
	// reach.
	assignee := member.ID.Hex()
	if _, err := env.svc.Update(ctx, admin, created.ID.Hex(), UpdatePatch{AssignedTo: &assignee}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	high := "HIGH"
	_, err = env.svc.Update(ctx, member, created.ID.Hex(), UpdatePatch{Priority: &high})
	var authorization *errs.AuthorizationError
	if !errors.As(err, &authorization) {
		t.Fatalf("got %v, want AuthorizationError", err)
	}
	if authorization.Field != "priority" {
		t.Fatalf("denied field = %s, want priority", authorization.Field)
	}
}

func TestUpdateIsAllOrNothing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()
	head := headActor("Public Works")

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Status alone would be allowed, but the title change is not; the
	// whole patch must be rejected with nothing applied.
	resolved := "RESOLVED"
	_, err = env.svc.Update(ctx, head, created.ID.Hex(), UpdatePatch{
		Status: &resolved,
		Title:  strPtr("Renamed by department head"),
	})
	var authorization *errs.AuthorizationError
	if !errors.As(err, &authorization) {
		t.Fatalf("got %v, want AuthorizationError", err)
	}

	got, err := env.svc.Get(ctx, admin, created.ID.Hex())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusPending {
		t.Fatalf("status = %s, want PENDING untouched", got.Status)
	}
	if got.Title != "Large pothole on Main Street" {
		t.Fatalf("title = %q, want untouched", got.Title)
	}
}

func TestAssignmentPairedWithInProgress(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	head := headActor("Public Works")
	admin := adminActor()
	member := memberActor("Public Works")

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	assignee := member.ID.Hex()
	inProgress := "IN_PROGRESS"
	updated, err := env.svc.Update(ctx, head, created.ID.Hex(), UpdatePatch{
		AssignedTo: &assignee,
		Status:     &inProgress,
	})
	if err != nil {
		t.Fatalf("assign+start: %v", err)
	}
	if updated.Status != models.StatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", updated.Status)
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != member.ID {
		t.Fatal("assignee not set")
	}
	if updated.StepState(models.StepAssigned) != models.StepCompleted {
		t.Fatal("expected a completed ASSIGNED record")
	}

	// Clearing the assignee while IN_PROGRESS violates the invariant.
	cleared := ""
	_, err = env.svc.Update(ctx, head, created.ID.Hex(), UpdatePatch{AssignedTo: &cleared})
	var validation *errs.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("got %v, want ValidationError", err)
	}
}

func TestInProgressWithoutAssigneeRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inProgress := "IN_PROGRESS"
	_, err = env.svc.Update(ctx, admin, created.ID.Hex(), UpdatePatch{Status: &inProgress})
	var validation *errs.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("got %v, want ValidationError", err)
	}
}

func TestCloseBeforeResolveRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	closed := "CLOSED"
	_, err = env.svc.Update(ctx, admin, created.ID.Hex(), UpdatePatch{Status: &closed})
	var transition *errs.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
}

func TestVerifyBeforeResolveRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = env.svc.Verify(ctx, admin, created.ID.Hex(), nil)
	var transition *errs.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
}

func TestVerifyOnlyByReporterOrAdmin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	reporter := adminActor()
	head := headActor("Public Works")

	created, err := env.svc.Create(ctx, reporter, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	resolved := "RESOLVED"
	if _, err := env.svc.Update(ctx, reporter, created.ID.Hex(), UpdatePatch{Status: &resolved}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	_, err = env.svc.Verify(ctx, head, created.ID.Hex(), nil)
	var authorization *errs.AuthorizationError
	if !errors.As(err, &authorization) {
		t.Fatalf("head verifying someone else's report: got %v, want AuthorizationError", err)
	}

	verified, err := env.svc.Verify(ctx, reporter, created.ID.Hex(), strPtr("fixed, thanks"))
	if err != nil {
		t.Fatalf("reporter verify: %v", err)
	}
	if verified.StepState(models.StepCitizenVerified) != models.StepCompleted {
		t.Fatal("expected a completed CITIZEN_VERIFIED record")
	}
}

func TestDepartmentHeadListIsScoped(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	if _, err := env.svc.Create(ctx, admin, validInput("Public Works")); err != nil {
		t.Fatalf("create: %v", err)
	}
	sanitation := validInput("Sanitation")
	sanitation.Title = "Overflowing garbage bins at market"
	if _, err := env.svc.Create(ctx, admin, sanitation); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := env.svc.List(ctx, headActor("Public Works"), ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.TotalIssues != 1 {
		t.Fatalf("total = %d, want 1", list.TotalIssues)
	}
	for _, issue := range list.Issues {
		if issue.Department != "Public Works" {
			t.Fatalf("leaked issue from department %q", issue.Department)
		}
	}
}

func TestListValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	cases := []struct {
		name  string
		query ListQuery
	}{
		{"negative page", ListQuery{Page: -1}},
		{"oversized limit", ListQuery{Limit: 1000}},
		{"bad sort", ListQuery{Sort: "hottest"}},
		{"bad status", ListQuery{Status: "OPEN"}},
		{"bad priority", ListQuery{Priority: "URGENT"}},
		{"bad assignee", ListQuery{Assignee: "not-an-id"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.List(ctx, admin, tc.query)
			var validation *errs.ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("got %v, want ValidationError", err)
			}
		})
	}
}

func TestListCacheHitAndInvalidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	if _, err := env.svc.Create(ctx, admin, validInput("Public Works")); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.svc.List(ctx, admin, ListQuery{}); err != nil {
		t.Fatalf("first list: %v", err)
	}
	if _, err := env.svc.List(ctx, admin, ListQuery{}); err != nil {
		t.Fatalf("second list: %v", err)
	}
	if env.repo.findCalls != 1 {
		t.Fatalf("repo queried %d times, want 1 (second read from cache)", env.repo.findCalls)
	}

	// A mutation must drop the cached view.
	if _, err := env.svc.Create(ctx, admin, validInput("Public Works")); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, err := env.svc.List(ctx, admin, ListQuery{})
	if err != nil {
		t.Fatalf("third list: %v", err)
	}
	if env.repo.findCalls != 2 {
		t.Fatalf("repo queried %d times, want 2 after invalidation", env.repo.findCalls)
	}
	if list.TotalIssues != 2 {
		t.Fatalf("total = %d, want 2", list.TotalIssues)
	}
}

func TestGetOutsideScopeAndMissing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = env.svc.Get(ctx, headActor("Sanitation"), created.ID.Hex())
	var authorization *errs.AuthorizationError
	if !errors.As(err, &authorization) {
		t.Fatalf("out-of-scope get: got %v, want AuthorizationError", err)
	}

	_, err = env.svc.Get(ctx, admin, primitive.NewObjectID().Hex())
	var notFound *errs.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("missing get: got %v, want NotFoundError", err)
	}

	_, err = env.svc.Get(ctx, admin, "not-an-id")
	var validation *errs.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("malformed id: got %v, want ValidationError", err)
	}
}

func TestDeleteIsAdminOnlyAndCascades(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()
	head := headActor("Public Works")

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.AddComment(ctx, admin, created.ID.Hex(), "crew dispatched"); err != nil {
		t.Fatalf("comment: %v", err)
	}

	err = env.svc.Delete(ctx, head, created.ID.Hex())
	var authorization *errs.AuthorizationError
	if !errors.As(err, &authorization) {
		t.Fatalf("head delete: got %v, want AuthorizationError", err)
	}

	if err := env.svc.Delete(ctx, admin, created.ID.Hex()); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	_, err = env.svc.Get(ctx, admin, created.ID.Hex())
	var notFound *errs.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("get after delete: got %v, want NotFoundError", err)
	}
	if comments := env.repo.comments[created.ID]; len(comments) != 0 {
		t.Fatalf("comments survived deletion: %d", len(comments))
	}
}

func TestAddComment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()
	member := memberActor("Public Works")

	created, err := env.svc.Create(ctx, admin, validInput("Public Works"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = env.svc.AddComment(ctx, admin, created.ID.Hex(), "   ")
	var validation *errs.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("empty comment: got %v, want ValidationError", err)
	}

	_, err = env.svc.AddComment(ctx, member, created.ID.Hex(), "on my way")
	var authorization *errs.AuthorizationError
	if !errors.As(err, &authorization) {
		t.Fatalf("out-of-scope comment: got %v, want AuthorizationError", err)
	}

	comment, err := env.svc.AddComment(ctx, admin, created.ID.Hex(), "crew dispatched")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if comment.Author != admin.ID || comment.Content != "crew dispatched" {
		t.Fatalf("comment = %+v", comment)
	}

	comments, err := env.svc.ListComments(ctx, admin, created.ID.Hex())
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(comments))
	}

	types := env.emitter.types()
	if types[len(types)-1] != events.CommentAdded {
		t.Fatalf("last event = %s, want comment-added", types[len(types)-1])
	}
}

func TestAnalyticsScoped(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := adminActor()

	if _, err := env.svc.Create(ctx, admin, validInput("Public Works")); err != nil {
		t.Fatalf("create: %v", err)
	}
	sanitation := validInput("Sanitation")
	sanitation.Title = "Streetlight out on Elm Avenue"
	if _, err := env.svc.Create(ctx, admin, sanitation); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := env.svc.Analytics(ctx, admin)
	if err != nil {
		t.Fatalf("admin analytics: %v", err)
	}
	if all.TotalIssues != 2 {
		t.Fatalf("admin total = %d, want 2", all.TotalIssues)
	}

	scoped, err := env.svc.Analytics(ctx, headActor("Sanitation"))
	if err != nil {
		t.Fatalf("head analytics: %v", err)
	}
	if scoped.TotalIssues != 1 || scoped.ByDepartment["Sanitation"] != 1 {
		t.Fatalf("head analytics = %+v, want only Sanitation", scoped)
	}
}
