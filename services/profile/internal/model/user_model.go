package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LinkModel struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
}

type UserModel struct {
	ID                 string      `gorm:"type:varchar(36);primaryKey"`
	Username           string      `gorm:"type:varchar(20);uniqueIndex;not null"`
	Email              string      `gorm:"type:varchar(320);uniqueIndex;not null"`
	Password           string      `gorm:"not null"`
	CustomURL          string      `gorm:"column:custom_url;type:varchar(255);uniqueIndex;not null"`
	ProfileImageURL    string      `gorm:"column:profile_image_url;type:varchar(1024);not null;default:''"`
	BackgroundVideoURL string      `gorm:"column:background_video_url;type:varchar(1024);not null;default:''"`
	MusicURL           string      `gorm:"column:music_url;type:varchar(1024);not null;default:''"`
	Bio                string      `gorm:"type:text;not null;default:''"`
	Links              []LinkModel `gorm:"type:text;serializer:json"`
	SpecialText        string      `gorm:"type:text;not null;default:''"`
	AnimationName      string      `gorm:"type:varchar(100);not null;default:''"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (UserModel) TableName() string {
	return "users"
}

func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}
