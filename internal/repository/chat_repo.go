package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"personaquiz/internal/model"
)

// ChatRepo stores chat sessions and their append-only message logs
type ChatRepo interface {
	EnsureIndexes(ctx context.Context) error

	CreateSession(ctx context.Context, session *model.ChatSession) error
	GetSession(ctx context.Context, id string) (*model.ChatSession, error)
	CountSessions(ctx context.Context, userID string) (int, error)
	ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error)

	// DeleteSession removes the session and all of its messages
	DeleteSession(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
	// ListMessages returns messages in (createdAt, seq) order
	ListMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	CountMessages(ctx context.Context, sessionID string, sender model.Sender) (int, error)
}

type chatRepo struct {
	sessions *mongo.Collection
	messages *mongo.Collection
}

func NewChatRepo(db *mongo.Database) ChatRepo {
	return &chatRepo{
		sessions: db.Collection("chat_sessions"),
		messages: db.Collection("chat_messages"),
	}
}

func (r *chatRepo) EnsureIndexes(ctx context.Context) error {
	if _, err := r.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return err
	}
	_, err := r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "seq", Value: 1}},
	})
	return err
}

func (r *chatRepo) CreateSession(ctx context.Context, session *model.ChatSession) error {
	_, err := r.sessions.InsertOne(ctx, session)
	return mapWriteErr(err)
}

func (r *chatRepo) GetSession(ctx context.Context, id string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *chatRepo) CountSessions(ctx context.Context, userID string) (int, error) {
	n, err := r.sessions.CountDocuments(ctx, bson.M{"userId": userID})
	return int(n), err
}

func (r *chatRepo) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.sessions.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []model.ChatSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *chatRepo) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.messages.DeleteMany(ctx, bson.M{"sessionId": id}); err != nil {
		return err
	}
	_, err := r.sessions.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *chatRepo) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = newID()
	}
	_, err := r.messages.InsertOne(ctx, msg)
	return mapWriteErr(err)
}

func (r *chatRepo) ListMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "seq", Value: 1}})
	cursor, err := r.messages.Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []model.ChatMessage
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatRepo) CountMessages(ctx context.Context, sessionID string, sender model.Sender) (int, error) {
	n, err := r.messages.CountDocuments(ctx, bson.M{"sessionId": sessionID, "sender": sender})
	return int(n), err
}
