package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"thsnd/pkg/database"
	"thsnd/pkg/jwt"
	"thsnd/pkg/logger"
	"thsnd/pkg/password"
	"thsnd/pkg/queue"
	"thsnd/services/profile/internal/entity"
	"thsnd/services/profile/internal/model"
	"thsnd/services/profile/internal/repo/persistent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) UploadFile(key string, body io.Reader, contentType string) (string, error) {
	args := m.Called(key, body, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) DeleteFile(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

type memoryCache struct {
	mu          sync.Mutex
	profiles    map[string]*entity.PublicProfile
	generations map[string]int64
	hits        int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		profiles:    map[string]*entity.PublicProfile{},
		generations: map[string]int64{},
	}
}

func (c *memoryCache) Get(_ context.Context, customURL string) (*entity.PublicProfile, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.profiles[customURL]
	if ok {
		c.hits++
	}
	return p, c.generations[customURL], ok
}

func (c *memoryCache) Set(_ context.Context, profile *entity.PublicProfile, generation int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[profile.CustomURL] != generation {
		return
	}
	c.profiles[profile.CustomURL] = profile
}

func (c *memoryCache) Invalidate(_ context.Context, customURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[customURL]++
	delete(c.profiles, customURL)
}

// hookedRepository runs a one-shot hook inside a repository call so tests
// can interleave a second request with the first.
type hookedRepository struct {
	persistent.UserRepository
	afterCustomURLRead func()
	beforeUpdate       func()
}

func (r *hookedRepository) GetByCustomURL(ctx context.Context, customURL string) (*entity.User, error) {
	user, err := r.UserRepository.GetByCustomURL(ctx, customURL)
	if hook := r.afterCustomURLRead; hook != nil {
		r.afterCustomURLRead = nil
		hook()
	}
	return user, err
}

func (r *hookedRepository) UpdateProfile(ctx context.Context, id string, update entity.ProfileUpdate) error {
	if hook := r.beforeUpdate; hook != nil {
		r.beforeUpdate = nil
		hook()
	}
	return r.UserRepository.UpdateProfile(ctx, id, update)
}

type channelPublisher struct {
	events chan queue.ProfileEvent
}

func (p *channelPublisher) PublishProfileEvent(event queue.ProfileEvent) error {
	p.events <- event
	return nil
}

type testEnv struct {
	db     *gorm.DB
	uc     ProfileUseCase
	repo   persistent.UserRepository
	hooks  *hookedRepository
	blobs  *MockBlobStore
	cache  *memoryCache
	tokens *jwt.Service
}

func setupTestUseCase(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.UserModel{}))

	env := &testEnv{
		db:     db,
		repo:   persistent.NewUserRepository(db),
		blobs:  new(MockBlobStore),
		cache:  newMemoryCache(),
		tokens: jwt.NewService("test-secret-key"),
	}
	env.hooks = &hookedRepository{UserRepository: env.repo}
	env.uc = NewProfileUseCase(
		env.hooks,
		password.NewHasher(bcrypt.MinCost),
		env.tokens,
		env.blobs,
		env.cache,
		nil,
		logger.NewNop(),
	)
	return env
}

func registerAlice(t *testing.T, env *testEnv) *entity.User {
	t.Helper()
	user, err := env.uc.Register(context.Background(), RegisterInput{
		Username:  "alice1",
		Email:     "a@x.com",
		Password:  "longenough",
		CustomURL: "alice",
	})
	require.NoError(t, err)
	return user
}

func strPtr(s string) *string {
	return &s
}

func TestRegister_Success(t *testing.T) {
	env := setupTestUseCase(t)

	user := registerAlice(t, env)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice1", user.Username)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "alice", user.CustomURL)
	assert.Empty(t, user.PasswordDigest)

	stored, err := env.repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "longenough", stored.PasswordDigest)
	assert.True(t, password.NewHasher(bcrypt.MinCost).Verify("longenough", stored.PasswordDigest))
}

func TestRegister_NormalizesEmail(t *testing.T) {
	env := setupTestUseCase(t)

	user, err := env.uc.Register(context.Background(), RegisterInput{
		Username:  "alice1",
		Email:     "  Alice@X.com ",
		Password:  "longenough",
		CustomURL: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", user.Email)
}

func TestRegister_ConflictOnAnySingleField(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"same username", RegisterInput{Username: "alice1", Email: "b@x.com", Password: "longenough", CustomURL: "bob"}},
		{"same email", RegisterInput{Username: "bob123", Email: "a@x.com", Password: "longenough", CustomURL: "bob"}},
		{"same email other case", RegisterInput{Username: "bob123", Email: "A@X.COM", Password: "longenough", CustomURL: "bob"}},
		{"same custom url", RegisterInput{Username: "bob123", Email: "b@x.com", Password: "longenough", CustomURL: "alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestUseCase(t)
			registerAlice(t, env)

			_, err := env.uc.Register(context.Background(), tt.input)
			assert.ErrorIs(t, err, entity.ErrConflict)
		})
	}
}

func TestRegister_ValidationBeforeUniqueness(t *testing.T) {
	env := setupTestUseCase(t)
	registerAlice(t, env)

	// colliding username but an invalid email: validation wins
	_, err := env.uc.Register(context.Background(), RegisterInput{
		Username:  "alice1",
		Email:     "not-an-email",
		Password:  "longenough",
		CustomURL: "alice",
	})

	var validationErr *entity.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "email", validationErr.Field)
}

func TestRegister_PasswordTooLongForBcrypt(t *testing.T) {
	env := setupTestUseCase(t)

	_, err := env.uc.Register(context.Background(), RegisterInput{
		Username:  "alice1",
		Email:     "a@x.com",
		Password:  strings.Repeat("p", 80),
		CustomURL: "alice",
	})

	var validationErr *entity.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "password", validationErr.Field)
}

func TestRegister_PublishesEvent(t *testing.T) {
	env := setupTestUseCase(t)
	publisher := &channelPublisher{events: make(chan queue.ProfileEvent, 1)}
	uc := NewProfileUseCase(env.repo, password.NewHasher(bcrypt.MinCost), env.tokens, env.blobs, nil, publisher, logger.NewNop())

	user, err := uc.Register(context.Background(), RegisterInput{
		Username:  "alice1",
		Email:     "a@x.com",
		Password:  "longenough",
		CustomURL: "alice",
	})
	require.NoError(t, err)

	select {
	case event := <-publisher.events:
		assert.Equal(t, queue.EventUserRegistered, event.Type)
		assert.Equal(t, user.ID, event.UserID)
		assert.Equal(t, "alice", event.CustomURL)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a user_registered event")
	}
}

func TestLogin_Success(t *testing.T) {
	env := setupTestUseCase(t)
	registered := registerAlice(t, env)

	user, token, err := env.uc.Login(context.Background(), "a@x.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Empty(t, user.PasswordDigest)

	claims, err := env.tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
}

func TestLogin_InvalidCredentialsIndistinguishable(t *testing.T) {
	env := setupTestUseCase(t)
	registerAlice(t, env)

	_, _, wrongPassword := env.uc.Login(context.Background(), "a@x.com", "wrong-password")
	_, _, unknownEmail := env.uc.Login(context.Background(), "nobody@x.com", "longenough")

	assert.ErrorIs(t, wrongPassword, entity.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, entity.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLogin_RejectsSuffixBeyondBcryptLimit(t *testing.T) {
	env := setupTestUseCase(t)
	plaintext := strings.Repeat("p", 72)
	_, err := env.uc.Register(context.Background(), RegisterInput{
		Username:  "maxlen",
		Email:     "max@x.com",
		Password:  plaintext,
		CustomURL: "maxlen",
	})
	require.NoError(t, err)

	_, _, err = env.uc.Login(context.Background(), "max@x.com", plaintext+"anything-appended")
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)

	_, token, err := env.uc.Login(context.Background(), "max@x.com", plaintext)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestGetProfile(t *testing.T) {
	env := setupTestUseCase(t)
	registered := registerAlice(t, env)

	user, err := env.uc.GetProfile(context.Background(), registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice1", user.Username)
	assert.Empty(t, user.PasswordDigest)

	_, err = env.uc.GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestGetPublicProfile_UsesCache(t *testing.T) {
	env := setupTestUseCase(t)
	registerAlice(t, env)
	ctx := context.Background()

	first, err := env.uc.GetPublicProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice1", first.Username)
	assert.Equal(t, 0, env.cache.hits)

	second, err := env.uc.GetPublicProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, env.cache.hits)

	_, err = env.uc.GetPublicProfile(ctx, "doesnotexist")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestUpdateProfile_ReplacesLinksAndMerges(t *testing.T) {
	env := setupTestUseCase(t)
	registered := registerAlice(t, env)
	ctx := context.Background()

	_, err := env.uc.UpdateProfile(ctx, registered.ID, ProfileUpdate{
		SpecialText: strPtr("keep me"),
		Links:       &[]entity.Link{{Label: "a", URL: "https://a"}, {Label: "b", URL: "https://b"}},
	})
	require.NoError(t, err)

	links := []entity.Link{{Label: "x", URL: "https://x", Icon: ""}}
	user, err := env.uc.UpdateProfile(ctx, registered.ID, ProfileUpdate{
		Bio:   strPtr("new"),
		Links: &links,
	})
	require.NoError(t, err)

	assert.Equal(t, "new", user.Bio)
	assert.Equal(t, links, user.Links)
	assert.Equal(t, "keep me", user.SpecialText)
	assert.Empty(t, user.PasswordDigest)
}

func TestUpdateProfile_NeverTouchesDigest(t *testing.T) {
	env := setupTestUseCase(t)
	registered := registerAlice(t, env)
	ctx := context.Background()

	before, err := env.repo.GetByID(ctx, registered.ID)
	require.NoError(t, err)

	_, err = env.uc.UpdateProfile(ctx, registered.ID, ProfileUpdate{Bio: strPtr("hello")})
	require.NoError(t, err)

	after, err := env.repo.GetByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordDigest, after.PasswordDigest)

	_, _, err = env.uc.Login(ctx, "a@x.com", "longenough")
	assert.NoError(t, err)
}

func TestUpdateProfile_InvalidatesCache(t *testing.T) {
	env := setupTestUseCase(t)
	registered := registerAlice(t, env)
	ctx := context.Background()

	_, err := env.uc.GetPublicProfile(ctx, "alice")
	require.NoError(t, err)

	_, err = env.uc.UpdateProfile(ctx, registered.ID, ProfileUpdate{Bio: strPtr("fresh")})
	require.NoError(t, err)

	profile, err := env.uc.GetPublicProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "fresh", profile.Bio)
}

func TestUpdateProfile_ConcurrentPartialUpdatesKeepBothFields(t *testing.T) {
	env := setupTestUseCase(t)
	registered := registerAlice(t, env)
	ctx := context.Background()
	links := []entity.Link{{Label: "x", URL: "https://x"}}

	// a links-only update lands while the bio-only update is in flight
	env.hooks.beforeUpdate = func() {
		_, err := env.uc.UpdateProfile(ctx, registered.ID, ProfileUpdate{Links: &links})
		require.NoError(t, err)
	}
	user, err := env.uc.UpdateProfile(ctx, registered.ID, ProfileUpdate{Bio: strPtr("new")})
	require.NoError(t, err)

	assert.Equal(t, "new", user.Bio)
	assert.Equal(t, links, user.Links)

	stored, err := env.repo.GetByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", stored.Bio)
	assert.Equal(t, links, stored.Links)
}

func TestGetPublicProfile_DoesNotCacheProfileInvalidatedDuringRead(t *testing.T) {
	env := setupTestUseCase(t)
	registered := registerAlice(t, env)
	ctx := context.Background()

	// an update commits and invalidates between the miss's read and its Set
	env.hooks.afterCustomURLRead = func() {
		_, err := env.uc.UpdateProfile(ctx, registered.ID, ProfileUpdate{Bio: strPtr("fresh")})
		require.NoError(t, err)
	}
	stale, err := env.uc.GetPublicProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, stale.Bio)

	current, err := env.uc.GetPublicProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "fresh", current.Bio)
	assert.Equal(t, 0, env.cache.hits)

	_, err = env.uc.GetPublicProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, env.cache.hits)
}

func TestUpdateProfile_NotFound(t *testing.T) {
	env := setupTestUseCase(t)

	_, err := env.uc.UpdateProfile(context.Background(), "missing", ProfileUpdate{Bio: strPtr("x")})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestBindAsset(t *testing.T) {
	env := setupTestUseCase(t)
	registered := registerAlice(t, env)
	ctx := context.Background()

	user, err := env.uc.BindAsset(ctx, registered.ID, entity.AssetBackgroundVideo, "https://cdn/v.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/v.mp4", user.BackgroundVideoURL)

	profile, err := env.uc.GetPublicProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/v.mp4", profile.BackgroundVideoURL)

	_, err = env.uc.BindAsset(ctx, "missing", entity.AssetMusic, "https://cdn/m.mp3")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = env.uc.BindAsset(ctx, registered.ID, entity.AssetKind("avatar"), "https://cdn/a.png")
	assert.Error(t, err)
}

func TestUploadAsset_Success(t *testing.T) {
	env := setupTestUseCase(t)
	registered := registerAlice(t, env)
	body := strings.NewReader("png-bytes")

	keyPrefix := "profile-images/" + registered.ID + "/"
	env.blobs.On("UploadFile", mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, keyPrefix) && strings.HasSuffix(key, ".png")
	}), body, "image/png").Return("https://cdn/profile-images/a.png", nil)

	url, err := env.uc.UploadAsset(context.Background(), registered.ID, entity.AssetProfileImage, body, "Me.PNG", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/profile-images/a.png", url)

	user, err := env.uc.GetProfile(context.Background(), registered.ID)
	require.NoError(t, err)
	assert.Equal(t, url, user.ProfileImageURL)
	env.blobs.AssertExpectations(t)
}

func TestUploadAsset_UnknownUserSkipsUpload(t *testing.T) {
	env := setupTestUseCase(t)

	_, err := env.uc.UploadAsset(context.Background(), "missing", entity.AssetMusic, strings.NewReader("x"), "a.mp3", "audio/mpeg")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	env.blobs.AssertNotCalled(t, "UploadFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadAsset_StoreFailure(t *testing.T) {
	env := setupTestUseCase(t)
	registered := registerAlice(t, env)

	env.blobs.On("UploadFile", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket unavailable"))

	_, err := env.uc.UploadAsset(context.Background(), registered.ID, entity.AssetMusic, strings.NewReader("x"), "a.mp3", "audio/mpeg")
	assert.ErrorIs(t, err, entity.ErrUpload)

	user, err := env.uc.GetProfile(context.Background(), registered.ID)
	require.NoError(t, err)
	assert.Empty(t, user.MusicURL)
}

func TestUploadAsset_RemovesBlobWhenBindFails(t *testing.T) {
	env := setupTestUseCase(t)
	registered := registerAlice(t, env)

	var uploadedKey string
	env.blobs.On("UploadFile", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			uploadedKey = args.String(0)
			// account disappears while the upload is in flight
			require.NoError(t, env.db.Exec("DELETE FROM users WHERE id = ?", registered.ID).Error)
		}).
		Return("https://cdn/bg.mp4", nil)
	env.blobs.On("DeleteFile", mock.Anything).Return(nil)

	_, err := env.uc.UploadAsset(context.Background(), registered.ID, entity.AssetBackgroundVideo, strings.NewReader("x"), "bg.mp4", "video/mp4")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	env.blobs.AssertCalled(t, "DeleteFile", uploadedKey)
}

func TestAssetKey(t *testing.T) {
	key := AssetKey(entity.AssetMusic, "u1", "Song.MP3")

	assert.True(t, strings.HasPrefix(key, "music/u1/"))
	assert.True(t, strings.HasSuffix(key, ".mp3"))
	assert.NotEqual(t, key, AssetKey(entity.AssetMusic, "u1", "Song.MP3"))
}
