package service

// Event types pushed to a user's websocket connections
const (
	EventMessageAppended = "message_appended"
	EventAnalysisReady   = "analysis_ready"
	EventSessionDeleted  = "session_deleted"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	PublishToUser(userID, msgType string, payload interface{})
}

type noopBroadcaster struct{}

func (noopBroadcaster) PublishToUser(string, string, interface{}) {}
