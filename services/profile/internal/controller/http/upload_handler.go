package http

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"thsnd/pkg/middleware"
	"thsnd/services/profile/internal/entity"

	"github.com/gin-gonic/gin"
)

// Multipart field names per upload endpoint.
const (
	FieldProfileImage = "profileImage"
	FieldBgVideo      = "bgVideo"
	FieldMusic        = "musicFile"
)

var allowedExtensions = map[entity.AssetKind]map[string]bool{
	entity.AssetProfileImage:    {".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true},
	entity.AssetBackgroundVideo: {".mp4": true, ".webm": true, ".mov": true},
	entity.AssetMusic:           {".mp3": true, ".wav": true, ".ogg": true, ".m4a": true},
}

var fallbackContentTypes = map[entity.AssetKind]string{
	entity.AssetProfileImage:    "image/jpeg",
	entity.AssetBackgroundVideo: "video/mp4",
	entity.AssetMusic:           "audio/mpeg",
}

type UploadResponse struct {
	URL string `json:"url"`
}

// UploadProfileImage godoc
// @Summary      Upload profile image
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        profileImage formData file true "Image file"
// @Success      200  {object}  UploadResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /upload-profile-image [post]
func (h *ProfileHandler) UploadProfileImage(c *gin.Context) {
	h.uploadForCaller(c, entity.AssetProfileImage, FieldProfileImage)
}

// UploadProfileImageForUser godoc
// @Summary      Upload profile image by user id
// @Description  Id-addressed variant of /upload-profile-image; the id must belong to the token holder.
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        profileImage formData file true "Image file"
// @Success      200  {object}  UploadResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /upload-profile-image/{id} [post]
func (h *ProfileHandler) UploadProfileImageForUser(c *gin.Context) {
	userID, ok := h.ownerFromPath(c)
	if !ok {
		return
	}
	h.upload(c, userID, entity.AssetProfileImage, FieldProfileImage)
}

// UploadBackgroundVideo godoc
// @Summary      Upload background video
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        bgVideo formData file true "Video file"
// @Success      200  {object}  UploadResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /upload-bg-video [post]
func (h *ProfileHandler) UploadBackgroundVideo(c *gin.Context) {
	h.uploadForCaller(c, entity.AssetBackgroundVideo, FieldBgVideo)
}

// UploadMusic godoc
// @Summary      Upload profile music
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        musicFile formData file true "Audio file"
// @Success      200  {object}  UploadResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /upload-music [post]
func (h *ProfileHandler) UploadMusic(c *gin.Context) {
	h.uploadForCaller(c, entity.AssetMusic, FieldMusic)
}

func (h *ProfileHandler) uploadForCaller(c *gin.Context, kind entity.AssetKind, field string) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Access denied. No token provided."})
		return
	}
	h.upload(c, userID, kind, field)
}

func (h *ProfileHandler) upload(c *gin.Context, userID string, kind entity.AssetKind, field string) {
	file, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No file uploaded."})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[kind][ext] {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid file type."})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded %s: %v", kind, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process file."})
		return
	}
	defer src.Close()

	url, err := h.profileUseCase.UploadAsset(c.Request.Context(), userID, kind, src, file.Filename, contentType(kind, ext, file.Header.Get("Content-Type")))
	if err != nil {
		h.respondError(c, "Upload", err)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{URL: url})
}

func contentType(kind entity.AssetKind, ext, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	return fallbackContentTypes[kind]
}
