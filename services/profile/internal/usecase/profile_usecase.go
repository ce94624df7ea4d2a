package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"thsnd/pkg/logger"
	"thsnd/pkg/password"
	"thsnd/pkg/queue"
	"thsnd/services/profile/internal/entity"
	"thsnd/services/profile/internal/repo/persistent"

	"github.com/google/uuid"
)

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	CustomURL string
}

type ProfileUpdate = entity.ProfileUpdate

type ProfileUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*entity.User, string, error)
	GetProfile(ctx context.Context, userID string) (*entity.User, error)
	GetPublicProfile(ctx context.Context, customURL string) (*entity.PublicProfile, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*entity.User, error)
	BindAsset(ctx context.Context, userID string, kind entity.AssetKind, url string) (*entity.User, error)
	UploadAsset(ctx context.Context, userID string, kind entity.AssetKind, body io.Reader, filename, contentType string) (string, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type TokenIssuer interface {
	GenerateToken(userID string) (string, error)
}

type BlobStore interface {
	UploadFile(key string, body io.Reader, contentType string) (string, error)
	DeleteFile(key string) error
}

// ProfileCache returns a generation with every miss; Set drops the profile if
// the entry was invalidated after that generation was read.
type ProfileCache interface {
	Get(ctx context.Context, customURL string) (*entity.PublicProfile, int64, bool)
	Set(ctx context.Context, profile *entity.PublicProfile, generation int64)
	Invalidate(ctx context.Context, customURL string)
}

type EventPublisher interface {
	PublishProfileEvent(event queue.ProfileEvent) error
}

type profileUseCase struct {
	userRepo  persistent.UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	blobs     BlobStore
	cache     ProfileCache
	events    EventPublisher
	logger    *logger.Logger
	validator *registrationValidator

	dummyOnce   sync.Once
	dummyDigest string
}

// NewProfileUseCase wires the directory. cache and events may be nil.
func NewProfileUseCase(
	userRepo persistent.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	blobs BlobStore,
	cache ProfileCache,
	events EventPublisher,
	logger *logger.Logger,
) ProfileUseCase {
	return &profileUseCase{
		userRepo:  userRepo,
		hasher:    hasher,
		tokens:    tokens,
		blobs:     blobs,
		cache:     cache,
		events:    events,
		logger:    logger,
		validator: newRegistrationValidator(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (uc *profileUseCase) Register(ctx context.Context, input RegisterInput) (*entity.User, error) {
	input.Email = normalizeEmail(input.Email)
	if err := uc.validator.Validate(input); err != nil {
		return nil, err
	}

	taken, err := uc.userRepo.ExistsAny(ctx, input.Username, input.Email, input.CustomURL)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, entity.ErrConflict
	}

	digest, err := uc.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return nil, entity.NewValidationError("password", "Password must be at most 72 bytes long.")
		}
		return nil, err
	}

	user := &entity.User{
		Username:       input.Username,
		Email:          input.Email,
		PasswordDigest: digest,
		CustomURL:      input.CustomURL,
		Links:          []entity.Link{},
	}
	// a concurrent registration can still win the unique index; Create
	// reports that as ErrConflict
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	uc.publish(queue.ProfileEvent{Type: queue.EventUserRegistered, UserID: user.ID, CustomURL: user.CustomURL})
	return user.Sanitized(), nil
}

func (uc *profileUseCase) Login(ctx context.Context, email, plaintext string) (*entity.User, string, error) {
	user, err := uc.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			// burn the same bcrypt work as a real comparison
			uc.hasher.Verify(plaintext, uc.dummyPasswordDigest())
			return nil, "", entity.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !uc.hasher.Verify(plaintext, user.PasswordDigest) {
		return nil, "", entity.ErrInvalidCredentials
	}

	token, err := uc.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user.Sanitized(), token, nil
}

func (uc *profileUseCase) dummyPasswordDigest() string {
	uc.dummyOnce.Do(func() {
		digest, err := uc.hasher.Hash(uuid.New().String())
		if err != nil {
			uc.logger.Error("Failed to prepare dummy password digest: %v", err)
			return
		}
		uc.dummyDigest = digest
	})
	return uc.dummyDigest
}

func (uc *profileUseCase) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (uc *profileUseCase) GetPublicProfile(ctx context.Context, customURL string) (*entity.PublicProfile, error) {
	var generation int64
	if uc.cache != nil {
		profile, gen, ok := uc.cache.Get(ctx, customURL)
		if ok {
			return profile, nil
		}
		generation = gen
	}

	user, err := uc.userRepo.GetByCustomURL(ctx, customURL)
	if err != nil {
		return nil, err
	}

	profile := user.PublicProfile()
	if uc.cache != nil {
		uc.cache.Set(ctx, profile, generation)
	}
	return profile, nil
}

func (uc *profileUseCase) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*entity.User, error) {
	if update.Links != nil {
		links := append([]entity.Link{}, (*update.Links)...)
		update.Links = &links
	}

	if err := uc.userRepo.UpdateProfile(ctx, userID, update); err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, user.CustomURL)
	uc.publish(queue.ProfileEvent{Type: queue.EventProfileUpdated, UserID: user.ID, CustomURL: user.CustomURL})
	return user.Sanitized(), nil
}

func (uc *profileUseCase) BindAsset(ctx context.Context, userID string, kind entity.AssetKind, url string) (*entity.User, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown asset kind %q", kind)
	}

	if err := uc.userRepo.SetAssetURL(ctx, userID, kind, url); err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, user.CustomURL)
	uc.publish(queue.ProfileEvent{
		Type:      queue.EventAssetBound,
		UserID:    user.ID,
		CustomURL: user.CustomURL,
		AssetKind: string(kind),
		AssetURL:  url,
	})
	return user.Sanitized(), nil
}

// UploadAsset stores body in the blob store and binds the resulting URL to
// the user's profile. The user is checked first so no blob is written for an
// unknown account.
func (uc *profileUseCase) UploadAsset(ctx context.Context, userID string, kind entity.AssetKind, body io.Reader, filename, contentType string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown asset kind %q", kind)
	}
	if _, err := uc.userRepo.GetByID(ctx, userID); err != nil {
		return "", err
	}

	key := AssetKey(kind, userID, filename)
	url, err := uc.blobs.UploadFile(key, body, contentType)
	if err != nil {
		uc.logger.Error("Failed to upload %s for user %s: %v", kind, userID, err)
		return "", fmt.Errorf("%w: %v", entity.ErrUpload, err)
	}

	if _, err := uc.BindAsset(ctx, userID, kind, url); err != nil {
		if delErr := uc.blobs.DeleteFile(key); delErr != nil {
			uc.logger.Error("Failed to remove unbound upload %s: %v", key, delErr)
		}
		return "", err
	}
	return url, nil
}

// AssetKey names the blob for an upload: <kind dir>/<user id>/<uuid><ext>.
func AssetKey(kind entity.AssetKind, userID, filename string) string {
	return fmt.Sprintf("%s/%s/%s%s", kind.Dir(), userID, uuid.New().String(), strings.ToLower(filepath.Ext(filename)))
}

func (uc *profileUseCase) invalidate(ctx context.Context, customURL string) {
	if uc.cache != nil {
		uc.cache.Invalidate(ctx, customURL)
	}
}

func (uc *profileUseCase) publish(event queue.ProfileEvent) {
	if uc.events == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()

	go func() {
		if err := uc.events.PublishProfileEvent(event); err != nil {
			uc.logger.Error("Failed to publish %s event: %v", event.Type, err)
		}
	}()
}
