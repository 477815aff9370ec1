package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/roofops/services/portal/internal/database"
	"example.com/roofops/services/portal/internal/models"
)

// UserRepository defines the interface for portal user persistence
type UserRepository interface {
	Create(ctx context.Context, user *models.PortalUser) (*models.PortalUser, error)
	Update(ctx context.Context, user *models.PortalUser) (*models.PortalUser, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PortalUser, error)
	GetByEmail(ctx context.Context, email string) (*models.PortalUser, error)
	List(ctx context.Context) ([]*models.PortalUser, error)
}

// userRepository implements UserRepository
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new portal user
func (r *userRepository) Create(ctx context.Context, user *models.PortalUser) (*models.PortalUser, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Update saves changes to a portal user
func (r *userRepository) Update(ctx context.Context, user *models.PortalUser) (*models.PortalUser, error) {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID gets a portal user by ID
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PortalUser, error) {
	var user models.PortalUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail gets a portal user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.PortalUser, error) {
	var user models.PortalUser
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List lists all portal users
func (r *userRepository) List(ctx context.Context) ([]*models.PortalUser, error) {
	var users []*models.PortalUser
	if err := r.db.WithContext(ctx).Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
