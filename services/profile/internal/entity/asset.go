package entity

// AssetKind names the profile field an uploaded file is bound to.
type AssetKind string

const (
	AssetProfileImage    AssetKind = "profileImage"
	AssetBackgroundVideo AssetKind = "backgroundVideo"
	AssetMusic           AssetKind = "music"
)

func (k AssetKind) Valid() bool {
	switch k {
	case AssetProfileImage, AssetBackgroundVideo, AssetMusic:
		return true
	}
	return false
}

// Dir is the blob store prefix for assets of this kind.
func (k AssetKind) Dir() string {
	switch k {
	case AssetProfileImage:
		return "profile-images"
	case AssetBackgroundVideo:
		return "background-videos"
	case AssetMusic:
		return "music"
	}
	return "misc"
}
