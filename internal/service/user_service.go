package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/shivam222343/aura/internal/apperr"
	"github.com/shivam222343/aura/internal/repository"
)

var ErrEmptyPushToken = apperr.Validation("push token is required")

// UserService covers per-user device state. Message history and
// presence live elsewhere; this only owns the push token lifecycle.
type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// RegisterPushToken stores the device token pushes are sent to. A
// user has at most one token; registering replaces the previous one.
func (s *UserService) RegisterPushToken(ctx context.Context, userID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyPushToken
	}
	return s.userRepo.SetPushToken(ctx, userID, &token)
}

// ClearPushToken removes the device token, stopping all pushes.
func (s *UserService) ClearPushToken(ctx context.Context, userID uuid.UUID) error {
	return s.userRepo.SetPushToken(ctx, userID, nil)
}
