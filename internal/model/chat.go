package model

import "time"

// Sender identifies who authored a chat message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatSession is owned by exactly one user
type ChatSession struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// ChatMessage is append-only. Seq breaks ties between identical timestamps.
type ChatMessage struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	SessionID string    `json:"sessionId" bson:"sessionId"`
	UserID    string    `json:"userId" bson:"userId"`
	Sender    Sender    `json:"sender" bson:"sender"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	Seq       int64     `json:"-" bson:"seq"`
}

// PostMessageRequest is the body of POST /chat/sessions/{id}/messages
type PostMessageRequest struct {
	Message string `json:"message" validate:"required,max=8000"`
}

// ChatReply is returned after a user message is processed
type ChatReply struct {
	SessionID         string `json:"sessionId"`
	BotReply          string `json:"botReply"`
	AnalysisAvailable bool   `json:"analysisAvailable"`
	AnalysisPrompt    string `json:"analysisPrompt,omitempty"`
}
