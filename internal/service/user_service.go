package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/dto"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	appErrors "github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	All(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// UserService manages the student and staff directory.
type UserService struct {
	repo      userRepository
	roles     *models.RoleRegistry
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, roles *models.RoleRegistry, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if roles == nil {
		roles = models.NewRoleRegistry()
	}
	return &UserService{repo: repo, roles: roles, cache: cache, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	return users, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

// Create adds a directory entry.
func (s *UserService) Create(ctx context.Context, req dto.UserRequest) (*models.User, error) {
	user, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, user.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check email uniqueness")
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to create user")
	}
	s.invalidate(ctx)
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Update replaces a directory entry.
func (s *UserService) Update(ctx context.Context, id string, req dto.UserRequest) (*models.User, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}

	if user.Email != existing.Email {
		if other, err := s.repo.FindByEmail(ctx, user.Email); err == nil && other.ID != id {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to check email uniqueness")
		}
	}

	user.ID = existing.ID
	user.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to update user")
	}
	s.invalidate(ctx)
	return user, nil
}

// Delete removes a directory entry.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to delete user")
	}
	s.invalidate(ctx)
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

// Roles lists built-in and custom roles.
func (s *UserService) Roles() []models.Role {
	return s.roles.Roles()
}

// RegisterRole adds a custom role to the registry.
func (s *UserService) RegisterRole(req dto.RoleRequest) (models.Role, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	role := s.roles.Register(req.Name)
	if role == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "role name is required")
	}
	return role, nil
}

func (s *UserService) fromRequest(req dto.UserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	role := models.NormalizeRole(req.Role)
	if !s.roles.Known(role) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role "+req.Role)
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Role:         role,
		Department:   strings.TrimSpace(req.Department),
		StudentClass: req.StudentClass,
	}
	if req.AssignedCategory != nil {
		category := models.GrievanceCategory(*req.AssignedCategory)
		user.AssignedCategory = &category
	}
	return user, nil
}

// Directory edits change names and roles seen by the analytics leaderboards.
func (s *UserService) invalidate(ctx context.Context) {
	_ = s.cache.InvalidateNamespace(ctx, analyticsCacheNamespace)
}

func paginationFor(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
