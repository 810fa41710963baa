package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aanganwadi/internal/repository"
	custom_error "aanganwadi/pkg/errors"
	"aanganwadi/pkg/models"
	"aanganwadi/pkg/roles"

	"github.com/doug-martin/goqu/v9"
)

// UserRepository reads accounts owned by the external identity service.
type UserRepository interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUsers(ctx context.Context, role roles.Role) ([]models.User, error)
	ListIDsByRole(ctx context.Context, role roles.Role) ([]int, error)
}

type userRepositoryImpl struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) UserRepository {
	return &userRepositoryImpl{repository: r}
}

func (r *userRepositoryImpl) selectUsers() *goqu.SelectDataset {
	return r.repository.GoquDBWrapper.
		Select("id", "name", "email", "role", "center_code", "center_name").
		From("users")
}

func (r *userRepositoryImpl) GetUsers(ctx context.Context, role roles.Role) ([]models.User, error) {
	query := r.selectUsers().Order(goqu.I("id").Asc())
	if role != "" {
		query = query.Where(goqu.Ex{"role": role})
	}

	var users []models.User
	if err := query.Executor().ScanStructsContext(ctx, &users); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return users, nil
}

func (r *userRepositoryImpl) GetUser(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	found, err := r.selectUsers().Where(goqu.Ex{"id": id}).Executor().ScanStructContext(ctx, &user)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("user", id)
	}

	return &user, nil
}

func (r *userRepositoryImpl) ListIDsByRole(ctx context.Context, role roles.Role) ([]int, error) {
	var ids []int
	err := r.repository.GoquDBWrapper.
		From("users").
		Select("id").
		Where(goqu.Ex{"role": role}).
		Order(goqu.I("id").Asc()).
		Executor().
		ScanValsContext(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s users: %w", role, err)
	}

	return ids, nil
}
