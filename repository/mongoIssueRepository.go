package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"civicdesk-be/errs"
	"civicdesk-be/models"
	"civicdesk-be/policy"
)

// mutateAttempts bounds the optimistic read-modify-write loop. A lost
// race re-reads fresh state and re-runs the mutator, so an idempotent
// loser converges to a no-op instead of failing; only a persistently
// contended issue surfaces a ConflictError.
const mutateAttempts = 3

type mongoIssueRepository struct {
	client   *mongo.Client
	issues   *mongo.Collection
	comments *mongo.Collection
}

// NewMongoIssueRepository builds the MongoDB-backed repository over the
// issues and comments collections.
func NewMongoIssueRepository(client *mongo.Client, db *mongo.Database) IssueRepository {
	return &mongoIssueRepository{
		client:   client,
		issues:   db.Collection("issues"),
		comments: db.Collection("comments"),
	}
}

func (r *mongoIssueRepository) Create(ctx context.Context, issue *models.Issue) error {
	if _, err := r.issues.InsertOne(ctx, issue); err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

func (r *mongoIssueRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := r.issues.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &errs.NotFoundError{Resource: "issue", ID: id.Hex()}
		}
		return nil, fmt.Errorf("find issue: %w", err)
	}
	return &issue, nil
}

func (r *mongoIssueRepository) FindMany(ctx context.Context, filter IssueFilter, page Pagination) ([]models.Issue, PageInfo, error) {
	query := scopeQuery(filter.Scope)

	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Priority != "" {
		query["priority"] = filter.Priority
	}
	if filter.Department != "" {
		query["department"] = filter.Department
	}
	if filter.AssigneeID != nil {
		query["assignedTo"] = *filter.AssigneeID
	}
	if filter.Search != "" {
		query["$or"] = []bson.M{
			{"title": bson.M{"$regex": filter.Search, "$options": "i"}},
			{"description": bson.M{"$regex": filter.Search, "$options": "i"}},
			{"address": bson.M{"$regex": filter.Search, "$options": "i"}},
		}
	}

	totalCount, err := r.issues.CountDocuments(ctx, query)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("count issues: %w", err)
	}

	sortOptions := bson.D{{Key: "createdAt", Value: -1}}
	if page.Sort == "oldest" {
		sortOptions = bson.D{{Key: "createdAt", Value: 1}}
	}

	skip := (page.Page - 1) * page.Limit
	findOptions := options.Find().
		SetSort(sortOptions).
		SetSkip(int64(skip)).
		SetLimit(int64(page.Limit))

	cursor, err := r.issues.Find(ctx, query, findOptions)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("find issues: %w", err)
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, PageInfo{}, fmt.Errorf("decode issues: %w", err)
	}

	info := PageInfo{
		TotalIssues: totalCount,
		TotalPages:  int((totalCount + int64(page.Limit) - 1) / int64(page.Limit)),
		CurrentPage: page.Page,
	}
	return issues, info, nil
}

// Mutate reads the issue fresh, applies fn, and writes the result back
// conditioned on the version it read. The re-read happens on every
// attempt, so fn always plans against current lifecycle state, never a
// stale in-memory copy.
func (r *mongoIssueRepository) Mutate(ctx context.Context, id primitive.ObjectID, fn MutateFunc) (*models.Issue, error) {
	for attempt := 0; attempt < mutateAttempts; attempt++ {
		issue, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		readVersion := issue.Version
		if err := fn(issue); err != nil {
			return nil, err
		}
		issue.Version = readVersion + 1

		result, err := r.issues.ReplaceOne(ctx, bson.M{"_id": id, "version": readVersion}, issue)
		if err != nil {
			return nil, fmt.Errorf("update issue: %w", err)
		}
		if result.MatchedCount == 1 {
			return issue, nil
		}
		// Lost the race; retry against fresh state.
	}
	return nil, &errs.ConflictError{Resource: "issue", ID: id.Hex()}
}

// Delete removes the issue and its comments in one transaction. The
// lifecycle trail is embedded in the issue document and goes with it.
func (r *mongoIssueRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.comments.DeleteMany(sc, bson.M{"issue": id}); err != nil {
			return nil, fmt.Errorf("delete comments: %w", err)
		}
		result, err := r.issues.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return nil, fmt.Errorf("delete issue: %w", err)
		}
		if result.DeletedCount == 0 {
			return nil, &errs.NotFoundError{Resource: "issue", ID: id.Hex()}
		}
		return nil, nil
	})
	return err
}

func (r *mongoIssueRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	if _, err := r.comments.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *mongoIssueRepository) FindComments(ctx context.Context, issueID primitive.ObjectID) ([]models.Comment, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.comments.Find(ctx, bson.M{"issue": issueID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := make([]models.Comment, 0)
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

func (r *mongoIssueRepository) Analytics(ctx context.Context, scope policy.Scope) (*Analytics, error) {
	base := scopeQuery(scope)

	analytics := &Analytics{
		ByStatus:     make(map[models.IssueStatus]int64),
		ByPriority:   make(map[models.IssuePriority]int64),
		ByDepartment: make(map[string]int64),
	}

	total, err := r.issues.CountDocuments(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}
	analytics.TotalIssues = total

	open, err := r.issues.CountDocuments(ctx, merge(base, bson.M{
		"status": bson.M{"$in": []models.IssueStatus{models.StatusPending, models.StatusInProgress}},
	}))
	if err != nil {
		return nil, fmt.Errorf("count open issues: %w", err)
	}
	analytics.OpenIssues = open

	if err := r.groupCounts(ctx, base, "$status", func(key string, count int64) {
		analytics.ByStatus[models.IssueStatus(key)] = count
	}); err != nil {
		return nil, err
	}
	if err := r.groupCounts(ctx, base, "$priority", func(key string, count int64) {
		analytics.ByPriority[models.IssuePriority(key)] = count
	}); err != nil {
		return nil, err
	}
	if err := r.groupCounts(ctx, base, "$department", func(key string, count int64) {
		analytics.ByDepartment[key] = count
	}); err != nil {
		return nil, err
	}

	for i := 6; i >= 0; i-- {
		date := time.Now().AddDate(0, 0, -i)
		date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		nextDate := date.AddDate(0, 0, 1)

		count, err := r.issues.CountDocuments(ctx, merge(base, bson.M{
			"createdAt": bson.M{"$gte": date, "$lt": nextDate},
		}))
		if err != nil {
			count = 0
		}
		analytics.Last7Days = append(analytics.Last7Days, DailyCount{
			Date:  date.Format("2006-01-02"),
			Count: count,
		})
	}

	return analytics, nil
}

func (r *mongoIssueRepository) groupCounts(ctx context.Context, base bson.M, field string, collect func(key string, count int64)) error {
	pipeline := []bson.M{
		{"$match": base},
		{"$group": bson.M{"_id": field, "count": bson.M{"$sum": 1}}},
	}

	cursor, err := r.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Key   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return fmt.Errorf("decode %s aggregation: %w", field, err)
	}
	for _, row := range rows {
		collect(row.Key, row.Count)
	}
	return nil
}

// scopeQuery translates a role scope into a Mongo filter.
func scopeQuery(scope policy.Scope) bson.M {
	query := bson.M{}
	if scope.All {
		return query
	}
	if scope.Department != "" {
		query["department"] = scope.Department
		return query
	}
	query["assignedTo"] = scope.AssigneeID
	return query
}

func merge(base bson.M, extra bson.M) bson.M {
	out := bson.M{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
