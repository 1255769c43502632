package repository

import (
	"context"
	"errors"
	"fmt"

	"finman-sync-server/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ErrUserNotFound reports an email with no registered user behind it.
var ErrUserNotFound = errors.New("user not found")

// UserRepository is the thin identity-lookup collaborator. Registration and
// verification live in another service; this side only resolves ids.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(client *mongo.Client, dbName string) UserRepository {
	return &userRepository{
		coll: client.Database(dbName).Collection(UsersCollection),
	}
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}

	return &user, nil
}
