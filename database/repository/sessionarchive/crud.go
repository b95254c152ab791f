package sessionArchiveRepo

import (
	"context"
	"fmt"
	"log"
	"time"

	"salescompagent/database"
	"salescompagent/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSessionArchiveRepo is the MongoDB implementation of
// SessionArchiveRepository.
type MongoSessionArchiveRepo struct {
	coll *mongo.Collection
}

func NewMongoSessionArchiveRepo() *MongoSessionArchiveRepo {
	coll := database.MongoClient.Database("salescomp").Collection("session_archive")
	repo := &MongoSessionArchiveRepo{coll: coll}
	repo.ensureIndexes()
	return repo
}

func (repo *MongoSessionArchiveRepo) Insert(ctx context.Context, session *models.Session) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to archive session %s: %w", session.ID, err)
	}
	return nil
}

func (repo *MongoSessionArchiveRepo) GetByID(ctx context.Context, id string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var session models.Session
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&session); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch archived session %s: %w", id, err)
	}
	return &session, nil
}

func (repo *MongoSessionArchiveRepo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("updated_idx"),
		},
	}

	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Printf("failed to create session archive indexes: %v", err)
	}
}
