package pgdb

import (
	"context"
	"tender-marketplace-api/pkg/postgres"

	"github.com/google/uuid"
)

type NotificationRepo struct {
	*postgres.Postgres
}

func NewNotificationRepo(pgdb *postgres.Postgres) *NotificationRepo {
	return &NotificationRepo{pgdb}
}

func (r *NotificationRepo) CreateNotification(ctx context.Context, userId uuid.UUID, kind string, data []byte) (uuid.UUID, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Insert("notification").
		Columns("user_id", "kind", "data").
		Values(userId, kind, string(data)).
		Suffix("RETURNING id").
		ToSql()

	var id uuid.UUID
	if err := r.Database.GetContext(ctx, &id, sqlReq, args...); err != nil {
		return uuid.Nil, err
	}

	return id, nil
}
