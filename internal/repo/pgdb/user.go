package pgdb

import (
	"context"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/repo/repo_errors"
	"tender-marketplace-api/pkg/postgres"

	"github.com/google/uuid"
)

var userColumns = []string{"id", "username", "name", "email", "role", "created_at"}

type UserRepo struct {
	*postgres.Postgres
}

func NewUserRepo(pgdb *postgres.Postgres) *UserRepo {
	return &UserRepo{pgdb}
}

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select(userColumns...).
		From("users").
		Where("username = ?", username).
		ToSql()

	var user entity.User
	if err := r.Database.GetContext(ctx, &user, sqlReq, args...); err != nil {
		return nil, repo_errors.Map(err)
	}

	return &user, nil
}

func (r *UserRepo) GetUserById(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select(userColumns...).
		From("users").
		Where("id = ?", id).
		ToSql()

	var user entity.User
	if err := r.Database.GetContext(ctx, &user, sqlReq, args...); err != nil {
		return nil, repo_errors.Map(err)
	}

	return &user, nil
}
