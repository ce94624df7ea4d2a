package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"thsnd/pkg/config"
	"thsnd/pkg/database"
	"thsnd/pkg/jwt"
	"thsnd/pkg/logger"
	"thsnd/pkg/password"
	"thsnd/pkg/s3"
	"thsnd/services/profile/internal/entity"
	"thsnd/services/profile/internal/model"
	"thsnd/services/profile/internal/repo/persistent"
	"thsnd/services/profile/internal/usecase"
)

type demoProfile struct {
	username  string
	email     string
	customURL string
	bio       string
	special   string
	animation string
	links     []entity.Link
}

var demoProfiles = []demoProfile{
	{
		username:  "alice_demo",
		email:     "alice@test.com",
		customURL: "alice",
		bio:       "Drums, synths and late night coding.",
		special:   "welcome to my corner",
		animation: "fade",
		links: []entity.Link{
			{Label: "GitHub", URL: "https://github.com/alice", Icon: "github"},
			{Label: "Blog", URL: "https://alice.example.com", Icon: "globe"},
		},
	},
	{
		username:  "bob_demo",
		email:     "bob@test.com",
		customURL: "bob",
		bio:       "Photographer.",
		animation: "glitch",
		links: []entity.Link{
			{Label: "Portfolio", URL: "https://bob.example.com", Icon: "camera"},
		},
	},
}

const demoPassword = "password123"

func main() {
	var avatarURL string
	flag.StringVar(&avatarURL, "avatar-url", "", "Optional image URL uploaded as every demo profile picture")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.NewDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}
	if err := db.AutoMigrate(&model.UserModel{}); err != nil {
		log.Error("Failed to migrate database: %v", err)
		panic(err)
	}

	var blobs usecase.BlobStore
	if avatarURL != "" {
		s3Client, err := s3.NewClient(cfg)
		if err != nil {
			log.Error("Failed to create S3 client: %v", err)
			panic(err)
		}
		blobs = s3Client
	}

	profiles := usecase.NewProfileUseCase(
		persistent.NewUserRepository(db),
		password.NewHasher(cfg.BcryptCost),
		jwt.NewService(cfg.JWTSecret),
		blobs,
		nil,
		nil,
		log,
	)

	if err := seedProfiles(context.Background(), profiles, avatarURL, log); err != nil {
		log.Error("Failed to seed database: %v", err)
		panic(err)
	}

	log.Info("Database seeded successfully!")
}

func seedProfiles(ctx context.Context, profiles usecase.ProfileUseCase, avatarURL string, log *logger.Logger) error {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	for _, demo := range demoProfiles {
		user, err := profiles.Register(ctx, usecase.RegisterInput{
			Username:  demo.username,
			Email:     demo.email,
			Password:  demoPassword,
			CustomURL: demo.customURL,
		})
		if errors.Is(err, entity.ErrConflict) {
			log.Info("User %s already exists, skipping", demo.username)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", demo.username, err)
		}
		log.Info("Created user: %s (%s)", user.Username, user.Email)

		links := demo.links
		if _, err := profiles.UpdateProfile(ctx, user.ID, usecase.ProfileUpdate{
			Bio:           &demo.bio,
			Links:         &links,
			SpecialText:   &demo.special,
			AnimationName: &demo.animation,
		}); err != nil {
			return fmt.Errorf("failed to customise %s: %w", demo.username, err)
		}

		if avatarURL == "" {
			continue
		}
		if err := uploadAvatar(ctx, profiles, httpClient, user.ID, avatarURL, log); err != nil {
			log.Error("Failed to upload avatar for %s: %v", demo.username, err)
		}
	}

	return nil
}

func uploadAvatar(ctx context.Context, profiles usecase.ProfileUseCase, httpClient *http.Client, userID, avatarURL string, log *logger.Logger) error {
	log.Info("Fetching avatar from %s", avatarURL)
	resp, err := httpClient.Get(avatarURL)
	if err != nil {
		return fmt.Errorf("failed to fetch avatar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("avatar host returned status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read avatar: %w", err)
	}
	if len(imageData) == 0 {
		return fmt.Errorf("received empty image data")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	url, err := profiles.UploadAsset(ctx, userID, entity.AssetProfileImage, bytes.NewReader(imageData), "avatar.jpg", contentType)
	if err != nil {
		return err
	}
	log.Info("Avatar uploaded successfully: %s", url)
	return nil
}
