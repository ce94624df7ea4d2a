package persistent

import (
	"thsnd/services/profile/internal/entity"
	"thsnd/services/profile/internal/model"
)

func ToUserEntity(m *model.UserModel) *entity.User {
	if m == nil {
		return nil
	}

	links := make([]entity.Link, len(m.Links))
	for i, l := range m.Links {
		links[i] = entity.Link{Label: l.Label, URL: l.URL, Icon: l.Icon}
	}

	return &entity.User{
		ID:                 m.ID,
		Username:           m.Username,
		Email:              m.Email,
		PasswordDigest:     m.Password,
		CustomURL:          m.CustomURL,
		ProfileImageURL:    m.ProfileImageURL,
		BackgroundVideoURL: m.BackgroundVideoURL,
		MusicURL:           m.MusicURL,
		Bio:                m.Bio,
		Links:              links,
		SpecialText:        m.SpecialText,
		AnimationName:      m.AnimationName,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func ToUserModel(e *entity.User) *model.UserModel {
	if e == nil {
		return nil
	}

	return &model.UserModel{
		ID:                 e.ID,
		Username:           e.Username,
		Email:              e.Email,
		Password:           e.PasswordDigest,
		CustomURL:          e.CustomURL,
		ProfileImageURL:    e.ProfileImageURL,
		BackgroundVideoURL: e.BackgroundVideoURL,
		MusicURL:           e.MusicURL,
		Bio:                e.Bio,
		Links:              toLinkModels(e.Links),
		SpecialText:        e.SpecialText,
		AnimationName:      e.AnimationName,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

func toLinkModels(links []entity.Link) []model.LinkModel {
	models := make([]model.LinkModel, len(links))
	for i, l := range links {
		models[i] = model.LinkModel{Label: l.Label, URL: l.URL, Icon: l.Icon}
	}
	return models
}
