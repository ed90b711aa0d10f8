package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"personaquiz/internal/model"
)

// StandardRepo stores the personality code catalogue
type StandardRepo interface {
	EnsureIndexes(ctx context.Context) error
	Upsert(ctx context.Context, s *model.PersonalityStandard) error
	GetByCode(ctx context.Context, std model.Standard, code string) (*model.PersonalityStandard, error)
	ListByStandard(ctx context.Context, std model.Standard) ([]*model.PersonalityStandard, error)
}

type standardRepo struct {
	collection *mongo.Collection
}

func NewStandardRepo(db *mongo.Database) StandardRepo {
	return &standardRepo{collection: db.Collection("personality_standards")}
}

func (r *standardRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "standard", Value: 1}, {Key: "personalityCode", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *standardRepo) Upsert(ctx context.Context, s *model.PersonalityStandard) error {
	if s.ID == "" {
		s.ID = newID()
	}
	filter := bson.M{"standard": s.Standard, "personalityCode": s.PersonalityCode}
	update := bson.M{
		"$set": bson.M{
			"nickname":    s.Nickname,
			"keyTraits":   s.KeyTraits,
			"description": s.Description,
			"careers":     s.Careers,
		},
		"$setOnInsert": bson.M{"_id": s.ID},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *standardRepo) GetByCode(ctx context.Context, std model.Standard, code string) (*model.PersonalityStandard, error) {
	var s model.PersonalityStandard
	err := r.collection.FindOne(ctx, bson.M{"standard": std, "personalityCode": code}).Decode(&s)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *standardRepo) ListByStandard(ctx context.Context, std model.Standard) ([]*model.PersonalityStandard, error) {
	opts := options.Find().SetSort(bson.D{{Key: "personalityCode", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"standard": std}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.PersonalityStandard
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
