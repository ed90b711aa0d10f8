package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"personaquiz/internal/model"
)

// ResultRepo stores quiz attempts
type ResultRepo interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, result *model.QuizResult) error
	GetByID(ctx context.Context, id string) (*model.QuizResult, error)

	// ListByUser returns a user's attempts oldest first
	ListByUser(ctx context.Context, userID string) ([]model.QuizResult, error)
	CountAttempts(ctx context.Context, userID, quizID string) (int, error)

	// CodeDistribution counts results per personality code, most frequent first
	CodeDistribution(ctx context.Context, quizID string) ([]model.CodeCount, error)
}

type resultRepo struct {
	collection *mongo.Collection
}

func NewResultRepo(db *mongo.Database) ResultRepo {
	return &resultRepo{collection: db.Collection("quiz_results")}
}

func (r *resultRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "submittedAt", Value: 1}}},
		{Keys: bson.D{{Key: "quizId", Value: 1}}},
	})
	return err
}

func (r *resultRepo) Create(ctx context.Context, result *model.QuizResult) error {
	if result.ID == "" {
		result.ID = newID()
	}
	if result.SubmittedAt.IsZero() {
		result.SubmittedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, result)
	return mapWriteErr(err)
}

func (r *resultRepo) GetByID(ctx context.Context, id string) (*model.QuizResult, error) {
	var result model.QuizResult
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *resultRepo) ListByUser(ctx context.Context, userID string) ([]model.QuizResult, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []model.QuizResult
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepo) CountAttempts(ctx context.Context, userID, quizID string) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"userId": userID, "quizId": quizID})
	return int(n), err
}

func (r *resultRepo) CodeDistribution(ctx context.Context, quizID string) ([]model.CodeCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"quizId": quizID}}},
		{{Key: "$group", Value: bson.M{"_id": "$result.personalityCode", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Code  string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	out := make([]model.CodeCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.CodeCount{Code: row.Code, Count: row.Count})
	}
	return out, nil
}
