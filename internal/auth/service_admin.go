package auth

import (
	"context"
	"errors"
	"log"
	"time"
)

// AdminUserInfo is the per-user summary shown on the admin dashboard.
type AdminUserInfo struct {
	ID            string `json:"id"`
	Fullname      string `json:"fullname"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	Status        string `json:"status"` // active, expired or inactive
	LastActive    string `json:"lastActive"`
	SessionsCount int    `json:"sessionsCount"`
}

func (s *Service) requireAdmin(actor Actor) *Error {
	if !actor.IsAdmin() {
		return newError(CodeForbidden, "Access denied. You must be an admin to perform this action.")
	}
	return nil
}

// ListUsers returns every verified user except the requesting admin, with
// session activity summarized.
func (s *Service) ListUsers(ctx context.Context, actor Actor) ([]AdminUserInfo, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	users, err := s.users.ListVerified(ctx, actor.UserID)
	if err != nil {
		return nil, internalError(err)
	}

	now := time.Now().UTC()
	infos := make([]AdminUserInfo, 0, len(users))
	for _, u := range users {
		info := AdminUserInfo{
			ID:       u.ID,
			Fullname: capitalize(u.Fullname),
			Email:    u.Email,
			Role:     u.Role,
			Status:   "inactive",
		}

		count, err := s.sessions.CountByUser(ctx, u.ID)
		if err != nil {
			return nil, internalError(err)
		}
		info.SessionsCount = count

		latest, err := s.sessions.LatestByUser(ctx, u.ID)
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			return nil, internalError(err)
		}
		if latest != nil {
			info.Status = "expired"
			if !latest.Expired(now) {
				info.Status = "active"
			}
			info.LastActive = latest.UpdatedAt.Format("2/1/2006, 3:04:05 PM")
		}

		infos = append(infos, info)
	}
	return infos, nil
}

// UserSessions returns a target user's sessions, enriched for display.
func (s *Service) UserSessions(ctx context.Context, actor Actor, userID string) ([]SessionInfo, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}

	now := time.Now().UTC()
	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, FormatSession(ctx, sess, s.locator, now))
	}
	return infos, nil
}

// RevokeSession ends any user's session by id. The ownership check is
// relaxed to "requester is admin".
func (s *Service) RevokeSession(ctx context.Context, actor Actor, sessionID string) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	return s.LogoutSession(ctx, actor, sessionID)
}

// UpdateUserRole changes a user's role.
func (s *Service) UpdateUserRole(ctx context.Context, actor Actor, userID string, req UpdateRoleRequest) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	if err := s.users.UpdateRole(ctx, userID, req.Role); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return newError(CodeNotFound, "User not found")
		}
		return internalError(err)
	}

	log.Printf("Role of user %s changed to %s by admin %s", userID, req.Role, actor.UserID)
	return nil
}

// DeleteUser removes an account and all of its sessions.
func (s *Service) DeleteUser(ctx context.Context, actor Actor, userID string) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}

	// Session rows cascade on user deletion, but delete them explicitly so
	// sqlite databases created without foreign keys enabled behave the same.
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return internalError(err)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return newError(CodeNotFound, "User not found")
		}
		return internalError(err)
	}

	log.Printf("User %s deleted by admin %s", userID, actor.UserID)
	return nil
}
