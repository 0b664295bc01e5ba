package stores

import (
	"context"

	"civicgrid-be/apperrors"
	"civicgrid-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserQuery selects escalation target candidates. Departments is a list of
// acceptable department values; empty means any department.
type UserQuery struct {
	Role        models.Role
	Departments []string
}

// UserDirectory is the read-only view of users the escalation engine needs.
// The auth subsystem owns the activity flags and login counters.
type UserDirectory interface {
	// FindActive returns the best-matching active user for the query, ordered
	// by loginCount ascending then lastLogin descending (least loaded, most
	// recently seen first), or nil when none match.
	FindActive(ctx context.Context, query UserQuery) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindAdmins(ctx context.Context) ([]models.User, error)
}

// MongoUserDirectory implements UserDirectory on the users collection.
type MongoUserDirectory struct {
	col *mongo.Collection
}

// NewMongoUserDirectory wraps the given users collection.
func NewMongoUserDirectory(col *mongo.Collection) *MongoUserDirectory {
	return &MongoUserDirectory{col: col}
}

var _ UserDirectory = (*MongoUserDirectory)(nil)

func (d *MongoUserDirectory) FindActive(ctx context.Context, query UserQuery) (*models.User, error) {
	filter := bson.M{
		"role":     query.Role,
		"isActive": true,
	}
	if len(query.Departments) > 0 {
		filter["departments"] = bson.M{"$in": query.Departments}
	}

	findOptions := options.FindOne().SetSort(bson.D{
		{Key: "loginCount", Value: 1},
		{Key: "lastLogin", Value: -1},
	})

	var user models.User
	err := d.col.FindOne(ctx, filter, findOptions).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *MongoUserDirectory) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := d.col.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, &apperrors.NotFoundError{Kind: "user", ID: id.Hex()}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *MongoUserDirectory) FindAdmins(ctx context.Context) ([]models.User, error) {
	cursor, err := d.col.Find(ctx, bson.M{"role": models.RoleAdmin, "isActive": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var admins []models.User
	if err := cursor.All(ctx, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}
