package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"thsnd/pkg/database"
	"thsnd/services/profile/internal/entity"
	"thsnd/services/profile/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var assetColumns = map[entity.AssetKind]string{
	entity.AssetProfileImage:    "profile_image_url",
	entity.AssetBackgroundVideo: "background_video_url",
	entity.AssetMusic:           "music_url",
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	ExistsAny(ctx context.Context, username, email, customURL string) (bool, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByCustomURL(ctx context.Context, customURL string) (*entity.User, error)
	UpdateProfile(ctx context.Context, id string, update entity.ProfileUpdate) error
	SetAssetURL(ctx context.Context, id string, kind entity.AssetKind, url string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts user and fills in the generated fields. A unique index
// rejection is reported as entity.ErrConflict.
func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	userModel := ToUserModel(user)
	if userModel.ID == "" {
		userModel.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(userModel).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return entity.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	*user = *ToUserEntity(userModel)
	return nil
}

func (r *userRepository) ExistsAny(ctx context.Context, username, email, customURL string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("username = ? OR email = ? OR custom_url = ?", username, email, customURL).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing users: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) GetByCustomURL(ctx context.Context, customURL string) (*entity.User, error) {
	return r.first(ctx, "custom_url = ?", customURL)
}

func (r *userRepository) first(ctx context.Context, query string, arg string) (*entity.User, error) {
	var userModel model.UserModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&userModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return ToUserEntity(&userModel), nil
}

// UpdateProfile writes the customization columns named by update in one
// statement. Columns left nil in update are not part of it, and neither are
// identity or credential columns.
func (r *userRepository) UpdateProfile(ctx context.Context, id string, update entity.ProfileUpdate) error {
	changes := &model.UserModel{ID: id, UpdatedAt: time.Now()}
	columns := []string{"updated_at"}
	if update.Bio != nil {
		changes.Bio = *update.Bio
		columns = append(columns, "bio")
	}
	if update.Links != nil {
		changes.Links = toLinkModels(*update.Links)
		columns = append(columns, "links")
	}
	if update.SpecialText != nil {
		changes.SpecialText = *update.SpecialText
		columns = append(columns, "special_text")
	}
	if update.AnimationName != nil {
		changes.AnimationName = *update.AnimationName
		columns = append(columns, "animation_name")
	}

	result := r.db.WithContext(ctx).
		Model(&model.UserModel{ID: id}).
		Select(columns).
		Updates(changes)
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *userRepository) SetAssetURL(ctx context.Context, id string, kind entity.AssetKind, url string) error {
	column, ok := assetColumns[kind]
	if !ok {
		return fmt.Errorf("unknown asset kind %q", kind)
	}

	result := r.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{column: url, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to bind asset: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}
