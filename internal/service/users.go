package service

import (
	"context"
	"errors"
	"strings"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/repo"
	"tender-marketplace-api/internal/repo/repo_errors"
)

type UserService struct {
	userRepo repo.User
}

func NewUserService(repos *repo.Repositories) *UserService {
	return &UserService{userRepo: repos.User}
}

func (s *UserService) ResolveActor(ctx context.Context, username string) (*entity.Actor, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUserNotFound
	}

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &entity.Actor{
		Id:       user.Id,
		Username: user.Username,
		Name:     user.Name,
		Role:     user.Role,
	}, nil
}
