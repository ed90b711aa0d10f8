package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"personaquiz/internal/cache"
	"personaquiz/internal/model"
	"personaquiz/internal/repository"
)

// sessionGuard resolves a chat session and checks its owner. The Redis copy
// is consulted first; a cache failure falls through to Mongo.
type sessionGuard struct {
	repo   repository.ChatRepo
	cache  cache.SessionCache
	logger *zap.Logger
}

func (g *sessionGuard) owned(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrValidation)
	}

	var session *model.ChatSession
	if g.cache != nil {
		cached, err := g.cache.Get(ctx, sessionID)
		if err != nil {
			g.logger.Warn("session cache read failed", zap.String("session", sessionID), zap.Error(err))
		}
		session = cached
	}

	if session == nil {
		stored, err := g.repo.GetSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		if stored == nil {
			return nil, fmt.Errorf("%w: chat session %s", ErrNotFound, sessionID)
		}
		session = stored
		if g.cache != nil {
			if err := g.cache.Set(ctx, session); err != nil {
				g.logger.Warn("session cache write failed", zap.String("session", sessionID), zap.Error(err))
			}
		}
	}

	if session.UserID != userID {
		return nil, fmt.Errorf("%w: chat session %s belongs to another user", ErrForbidden, sessionID)
	}
	return session, nil
}

func (g *sessionGuard) forget(ctx context.Context, sessionID string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Delete(ctx, sessionID); err != nil {
		g.logger.Warn("session cache delete failed", zap.String("session", sessionID), zap.Error(err))
	}
}
