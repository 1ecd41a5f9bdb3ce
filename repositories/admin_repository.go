package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/matchday-system/models"
	"github.com/lib/pq"
)

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminEmailConflict = errors.New("admin email already registered")
)

type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByID(ctx context.Context, id int) (*models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
}

type postgresAdminRepository struct {
	db *sql.DB
}

func NewPostgresAdminRepository(db *sql.DB) AdminRepository {
	return &postgresAdminRepository{db: db}
}

func (r *postgresAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	query := `
		INSERT INTO admins (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	if admin.Role == "" {
		admin.Role = models.RoleAdmin
	}

	err := r.db.QueryRowContext(ctx, query,
		admin.Email, admin.PasswordHash, admin.Role,
	).Scan(&admin.ID, &admin.CreatedAt)

	return r.handleAdminError(err)
}

func (r *postgresAdminRepository) GetByID(ctx context.Context, id int) (*models.Admin, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM admins
		WHERE id = $1`

	admin := &models.Admin{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&admin.ID, &admin.Email, &admin.PasswordHash, &admin.Role, &admin.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return admin, nil
}

func (r *postgresAdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM admins
		WHERE email = $1`

	admin := &models.Admin{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&admin.ID, &admin.Email, &admin.PasswordHash, &admin.Role, &admin.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return admin, nil
}

func (r *postgresAdminRepository) handleAdminError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23505" && pqErr.Constraint == "admins_email_key" {
			return ErrAdminEmailConflict
		}
	}
	return err
}
