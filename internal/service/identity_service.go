package service

import (
	"context"

	"finman-sync-server/internal/repository"
)

// IdentityService resolves user ids for clients that still key their local
// storage by email. Lookup only; account management lives elsewhere.
type IdentityService struct {
	userRepo repository.UserRepository
}

func NewIdentityService(userRepo repository.UserRepository) *IdentityService {
	return &IdentityService{
		userRepo: userRepo,
	}
}

func (s *IdentityService) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
