package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"personaquiz/internal/model"
)

type QuizRepo interface {
	Create(ctx context.Context, quiz *model.Quiz) error
	GetByID(ctx context.Context, id string) (*model.Quiz, error)
	List(ctx context.Context) ([]*model.Quiz, error)

	// Questions are returned ordered by OrderNumber
	AddQuestions(ctx context.Context, quizID string, questions []model.QuizQuestion) error
	GetQuestions(ctx context.Context, quizID string) ([]model.QuizQuestion, error)
}

type quizRepo struct {
	quizzes   *mongo.Collection
	questions *mongo.Collection
}

func NewQuizRepo(db *mongo.Database) QuizRepo {
	return &quizRepo{
		quizzes:   db.Collection("quizzes"),
		questions: db.Collection("quiz_questions"),
	}
}

func (r *quizRepo) Create(ctx context.Context, quiz *model.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = newID()
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now()
	}
	_, err := r.quizzes.InsertOne(ctx, quiz)
	return mapWriteErr(err)
}

func (r *quizRepo) GetByID(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.quizzes.FindOne(ctx, bson.M{"_id": id}).Decode(&quiz)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepo) List(ctx context.Context) ([]*model.Quiz, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.quizzes.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var quizzes []*model.Quiz
	if err = cursor.All(ctx, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (r *quizRepo) AddQuestions(ctx context.Context, quizID string, questions []model.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(questions))
	for i := range questions {
		q := questions[i]
		if q.ID == "" {
			q.ID = newID()
		}
		q.QuizID = quizID
		for j := range q.Options {
			if q.Options[j].ID == "" {
				q.Options[j].ID = newID()
			}
			q.Options[j].QuestionID = q.ID
		}
		questions[i] = q
		docs = append(docs, q)
	}

	if _, err := r.questions.InsertMany(ctx, docs); err != nil {
		return mapWriteErr(err)
	}
	_, err := r.quizzes.UpdateOne(ctx,
		bson.M{"_id": quizID},
		bson.M{"$inc": bson.M{"questionQuantity": len(questions)}},
	)
	return err
}

func (r *quizRepo) GetQuestions(ctx context.Context, quizID string) ([]model.QuizQuestion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderNumber", Value: 1}})
	cursor, err := r.questions.Find(ctx, bson.M{"quizId": quizID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []model.QuizQuestion
	if err = cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}
