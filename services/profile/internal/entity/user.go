package entity

import "time"

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
}

type User struct {
	ID                 string    `json:"id"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	PasswordDigest     string    `json:"-"`
	CustomURL          string    `json:"customUrl"`
	ProfileImageURL    string    `json:"profileImageUrl"`
	BackgroundVideoURL string    `json:"backgroundVideoUrl"`
	MusicURL           string    `json:"musicUrl"`
	Bio                string    `json:"bio"`
	Links              []Link    `json:"links"`
	SpecialText        string    `json:"specialText"`
	AnimationName      string    `json:"animationName"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// ProfileUpdate carries the customization fields a caller wants to change.
// Nil fields are left as stored; Links replaces the whole list.
type ProfileUpdate struct {
	Bio           *string
	Links         *[]Link
	SpecialText   *string
	AnimationName *string
}

// PublicProfile is what anonymous visitors of a custom URL get to see.
type PublicProfile struct {
	Username           string `json:"username"`
	CustomURL          string `json:"customUrl"`
	ProfileImageURL    string `json:"profileImageUrl"`
	BackgroundVideoURL string `json:"backgroundVideoUrl"`
	MusicURL           string `json:"musicUrl"`
	Bio                string `json:"bio"`
	Links              []Link `json:"links"`
	SpecialText        string `json:"specialText"`
	AnimationName      string `json:"animationName"`
}

func (u *User) PublicProfile() *PublicProfile {
	links := u.Links
	if links == nil {
		links = []Link{}
	}
	return &PublicProfile{
		Username:           u.Username,
		CustomURL:          u.CustomURL,
		ProfileImageURL:    u.ProfileImageURL,
		BackgroundVideoURL: u.BackgroundVideoURL,
		MusicURL:           u.MusicURL,
		Bio:                u.Bio,
		Links:              links,
		SpecialText:        u.SpecialText,
		AnimationName:      u.AnimationName,
	}
}

// Sanitized returns a copy without the password digest.
func (u *User) Sanitized() *User {
	clean := *u
	clean.PasswordDigest = ""
	if clean.Links == nil {
		clean.Links = []Link{}
	}
	return &clean
}
