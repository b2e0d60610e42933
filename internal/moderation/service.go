package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"uniqiita/internal/users"
)

// UserDirectory is the subset of users.Service moderation needs.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	SetRole(ctx context.Context, id int64, role users.Role) (*users.User, error)
}

// TokenRevoker invalidates identity-provider sessions for an account.
type TokenRevoker interface {
	RevokeByEmail(ctx context.Context, email string) error
}

// Service carries out administrative actions and records them in the audit log.
type Service struct {
	repo    Repository
	users   UserDirectory
	revoker TokenRevoker
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires a Service. revoker may be nil.
func NewService(repo Repository, directory UserDirectory, revoker TokenRevoker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, users: directory, revoker: revoker, logger: logger, now: time.Now}
}

// PurgeByEmail deletes everything the user with email has posted.
func (s *Service) PurgeByEmail(ctx context.Context, actor *users.User, email string) (PurgeResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return PurgeResult{}, &ValidationError{Message: "email is required"}
	}

	target, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		return PurgeResult{}, ErrUserNotFound
	}
	if err != nil {
		return PurgeResult{}, fmt.Errorf("find purge target: %w", err)
	}

	articles, err := s.repo.PurgeUserContent(ctx, target.ID)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("purge user %d: %w", target.ID, err)
	}

	s.revoke(ctx, target.Email)
	s.audit(ctx, actor, ActionPurgeByEmail, &target.ID, map[string]any{
		"email":    target.Email,
		"articles": articles,
	})

	return PurgeResult{Users: 1, Articles: articles}, nil
}

// PurgeDummy purges the content of every seeded test account.
func (s *Service) PurgeDummy(ctx context.Context, actor *users.User) (PurgeResult, error) {
	ids, err := s.repo.DummyUserIDs(ctx)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("list dummy users: %w", err)
	}

	result := PurgeResult{}
	for _, id := range ids {
		articles, err := s.repo.PurgeUserContent(ctx, id)
		if err != nil {
			return result, fmt.Errorf("purge user %d: %w", id, err)
		}
		result.Users++
		result.Articles += articles
	}

	s.audit(ctx, actor, ActionPurgeDummy, nil, map[string]any{
		"pattern":  DummyEmailPattern,
		"users":    result.Users,
		"articles": result.Articles,
	})
	return result, nil
}

// SetRole changes the role of a user.
func (s *Service) SetRole(ctx context.Context, actor *users.User, targetID int64, role string) (*users.User, error) {
	parsed, err := users.ParseRole(role)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	updated, err := s.users.SetRole(ctx, targetID, parsed)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, ActionSetRole, &targetID, map[string]any{"role": string(parsed)})
	return updated, nil
}

func (s *Service) revoke(ctx context.Context, email string) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.RevokeByEmail(ctx, email); err != nil {
		s.logger.Warn("refresh token revocation failed", "error", err)
	}
}

// audit failures are logged; the action itself already happened.
func (s *Service) audit(ctx context.Context, actor *users.User, action string, targetID *int64, meta map[string]any) {
	entry := AuditEntry{
		Action:     action,
		TargetType: "user",
		TargetID:   targetID,
		Meta:       meta,
		CreatedAt:  s.now().UTC(),
	}
	if actor != nil {
		id := actor.ID
		entry.ActorID = &id
	}
	if err := s.repo.RecordAudit(ctx, entry); err != nil {
		s.logger.Error("failed to record audit log", "action", action, "error", err)
		return
	}
	s.logger.Info("admin action", "action", action, "actor_id", entry.ActorID, "target_id", targetID)
}
