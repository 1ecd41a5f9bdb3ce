package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/matchday-system/models"
	"github.com/Dosada05/matchday-system/repositories"
	"github.com/Dosada05/matchday-system/utils"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.Admin, error)
	Login(ctx context.Context, input LoginInput) (*models.Admin, error)
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authService struct {
	adminRepo repositories.AdminRepository
}

func NewAuthService(adminRepo repositories.AdminRepository) AuthService {
	return &authService{
		adminRepo: adminRepo,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.Admin, error) {
	if !utils.IsValidEmail(input.Email) {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	admin := &models.Admin{
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
	}

	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrAdminEmailConflict) {
			return nil, ErrAdminEmailConflict
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return admin, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find admin by email: %w", err)
	}

	if !utils.CheckPasswordHash(input.Password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	admin.PasswordHash = ""

	return admin, nil
}
