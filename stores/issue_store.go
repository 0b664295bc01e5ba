package stores

import (
	"context"
	"time"

	"civicgrid-be/apperrors"
	"civicgrid-be/geo"
	"civicgrid-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GeoNear narrows a listing to issues within RadiusMeters of a point.
type GeoNear struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

// IssueFilter is the query surface exposed to listings.
type IssueFilter struct {
	Status     models.IssueStatus
	Category   models.IssueCategory
	Priority   models.IssuePriority
	AssignedTo *primitive.ObjectID
	ReportedBy *primitive.ObjectID
	Search     string
	Near       *GeoNear
	PublicOnly bool
}

// IssueSort orders a listing by a single field.
type IssueSort struct {
	Field string
	Desc  bool
}

// Page is 1-based pagination.
type Page struct {
	Number int
	Size   int
}

// IssueStore is the persistence boundary for issue records. Update is a
// conditional write keyed on the issue version; a lost race surfaces as
// apperrors.ErrConflict.
type IssueStore interface {
	Insert(ctx context.Context, issue *models.Issue) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	Find(ctx context.Context, filter IssueFilter, sort IssueSort, page Page) ([]models.Issue, int64, error)
	Update(ctx context.Context, issue *models.Issue) error
	DeleteByID(ctx context.Context, id primitive.ObjectID) error

	// FindOverdue returns active issues whose escalation deadline has lapsed,
	// excluding the terminal tier.
	FindOverdue(ctx context.Context, now time.Time) ([]models.Issue, error)
	// FindUnassignedReported returns reported issues that never got an
	// assignee, the sweep's bootstrap pool.
	FindUnassignedReported(ctx context.Context) ([]models.Issue, error)

	AddUpvote(ctx context.Context, issueID, userID primitive.ObjectID) error
	RemoveUpvote(ctx context.Context, issueID, userID primitive.ObjectID) error
}

// MongoIssueStore implements IssueStore on a mongo collection.
type MongoIssueStore struct {
	col *mongo.Collection
}

// NewMongoIssueStore wraps the given issues collection.
func NewMongoIssueStore(col *mongo.Collection) *MongoIssueStore {
	return &MongoIssueStore{col: col}
}

var _ IssueStore = (*MongoIssueStore)(nil)

func (s *MongoIssueStore) Insert(ctx context.Context, issue *models.Issue) error {
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	issue.Version = 1
	_, err := s.col.InsertOne(ctx, issue)
	return err
}

func (s *MongoIssueStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err == mongo.ErrNoDocuments {
		return nil, &apperrors.NotFoundError{Kind: "issue", ID: id.Hex()}
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (s *MongoIssueStore) Find(ctx context.Context, filter IssueFilter, sort IssueSort, page Page) ([]models.Issue, int64, error) {
	query := bson.M{}
	if filter.PublicOnly {
		query["isPublic"] = true
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Priority != "" {
		query["priority"] = filter.Priority
	}
	if filter.AssignedTo != nil {
		query["assignedTo"] = *filter.AssignedTo
	}
	if filter.ReportedBy != nil {
		query["reportedBy"] = *filter.ReportedBy
	}
	if filter.Search != "" {
		query["$or"] = []bson.M{
			{"title": bson.M{"$regex": filter.Search, "$options": "i"}},
			{"description": bson.M{"$regex": filter.Search, "$options": "i"}},
			{"location.name": bson.M{"$regex": filter.Search, "$options": "i"}},
		}
	}
	if filter.Near != nil {
		// Bounding-box prefilter; exact Haversine check happens after decode.
		latDelta := filter.Near.RadiusMeters / 111320.0
		lngDelta := latDelta * 1.5
		query["location.coordinates.latitude"] = bson.M{
			"$gte": filter.Near.Latitude - latDelta,
			"$lte": filter.Near.Latitude + latDelta,
		}
		query["location.coordinates.longitude"] = bson.M{
			"$gte": filter.Near.Longitude - lngDelta,
			"$lte": filter.Near.Longitude + lngDelta,
		}
	}

	total, err := s.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 || page.Size > 100 {
		page.Size = 20
	}
	sortField := sort.Field
	if sortField == "" {
		sortField = "createdAt"
	}
	order := 1
	if sort.Desc {
		order = -1
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: sortField, Value: order}}).
		SetSkip(int64((page.Number - 1) * page.Size)).
		SetLimit(int64(page.Size))

	cursor, err := s.col.Find(ctx, query, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, 0, err
	}

	if filter.Near != nil {
		issues = filterByRadius(issues, filter.Near)
	}
	return issues, total, nil
}

func filterByRadius(issues []models.Issue, near *GeoNear) []models.Issue {
	kept := issues[:0]
	for _, issue := range issues {
		d := geo.DistanceMeters(near.Latitude, near.Longitude,
			issue.Location.Coordinates.Latitude, issue.Location.Coordinates.Longitude)
		if d <= near.RadiusMeters {
			kept = append(kept, issue)
		}
	}
	return kept
}

// Update writes the full issue document conditioned on the version it was
// read at. A zero-match with an existing document means another writer won.
func (s *MongoIssueStore) Update(ctx context.Context, issue *models.Issue) error {
	readVersion := issue.Version
	issue.Version = readVersion + 1
	issue.UpdatedAt = time.Now()

	result, err := s.col.ReplaceOne(ctx, bson.M{"_id": issue.ID, "version": readVersion}, issue)
	if err != nil {
		issue.Version = readVersion
		return err
	}
	if result.MatchedCount == 0 {
		issue.Version = readVersion
		count, err := s.col.CountDocuments(ctx, bson.M{"_id": issue.ID})
		if err != nil {
			return err
		}
		if count == 0 {
			return &apperrors.NotFoundError{Kind: "issue", ID: issue.ID.Hex()}
		}
		return apperrors.ErrConflict
	}
	return nil
}

func (s *MongoIssueStore) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return &apperrors.NotFoundError{Kind: "issue", ID: id.Hex()}
	}
	return nil
}

func (s *MongoIssueStore) FindOverdue(ctx context.Context, now time.Time) ([]models.Issue, error) {
	query := bson.M{
		"status":             bson.M{"$in": []models.IssueStatus{models.StatusInProgress, models.StatusEscalated}},
		"escalationDeadline": bson.M{"$lte": now},
		"assignedRole":       bson.M{"$ne": models.RoleCommissioner},
	}
	cursor, err := s.col.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (s *MongoIssueStore) FindUnassignedReported(ctx context.Context) ([]models.Issue, error) {
	query := bson.M{
		"status":     models.StatusReported,
		"assignedTo": bson.M{"$exists": false},
	}
	cursor, err := s.col.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// AddUpvote is an atomic set insert; repeating it is a no-op.
func (s *MongoIssueStore) AddUpvote(ctx context.Context, issueID, userID primitive.ObjectID) error {
	result, err := s.col.UpdateOne(ctx, bson.M{"_id": issueID}, bson.M{
		"$addToSet": bson.M{"upvotes": userID},
		"$set":      bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return &apperrors.NotFoundError{Kind: "issue", ID: issueID.Hex()}
	}
	return nil
}

// RemoveUpvote is an atomic set removal; removing an absent vote is a no-op.
func (s *MongoIssueStore) RemoveUpvote(ctx context.Context, issueID, userID primitive.ObjectID) error {
	result, err := s.col.UpdateOne(ctx, bson.M{"_id": issueID}, bson.M{
		"$pull": bson.M{"upvotes": userID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return &apperrors.NotFoundError{Kind: "issue", ID: issueID.Hex()}
	}
	return nil
}
