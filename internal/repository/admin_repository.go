package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selekta/portal-backend/internal/model"
)

// AdminRepository handles admin user data access.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// GetByEmail retrieves an admin user by email.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	a := &model.AdminUser{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, role, password_hash, created_at
		 FROM admin_users WHERE email = $1`, email,
	).Scan(&a.ID, &a.Email, &a.FullName, &a.Role, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an admin user by UUID.
func (r *AdminRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AdminUser, error) {
	a := &model.AdminUser{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, role, password_hash, created_at
		 FROM admin_users WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.FullName, &a.Role, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new admin user.
func (r *AdminRepository) Create(ctx context.Context, a *model.AdminUser) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO admin_users (email, full_name, role, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		a.Email, a.FullName, a.Role, a.PasswordHash,
	).Scan(&a.ID, &a.CreatedAt)
}
