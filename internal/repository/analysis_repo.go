package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"personaquiz/internal/model"
)

// AnalysisRepo persists at most one analysis per chat session
type AnalysisRepo interface {
	EnsureIndexes(ctx context.Context) error
	// Insert returns ErrDuplicate if the session already has an analysis
	Insert(ctx context.Context, result *model.AnalysisResult) error
	GetBySession(ctx context.Context, sessionID string) (*model.AnalysisResult, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

type analysisRepo struct {
	collection *mongo.Collection
}

func NewAnalysisRepo(db *mongo.Database) AnalysisRepo {
	return &analysisRepo{collection: db.Collection("chat_analysis")}
}

func (r *analysisRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sessionId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *analysisRepo) Insert(ctx context.Context, result *model.AnalysisResult) error {
	if result.ID == "" {
		result.ID = newID()
	}
	_, err := r.collection.InsertOne(ctx, result)
	return mapWriteErr(err)
}

func (r *analysisRepo) GetBySession(ctx context.Context, sessionID string) (*model.AnalysisResult, error) {
	var result model.AnalysisResult
	err := r.collection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *analysisRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"sessionId": sessionID})
	return err
}
