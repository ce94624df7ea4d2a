package http

import (
	"errors"
	"net/http"

	"thsnd/pkg/logger"
	"thsnd/pkg/middleware"
	"thsnd/services/profile/internal/entity"
	"thsnd/services/profile/internal/usecase"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileUseCase usecase.ProfileUseCase
	logger         *logger.Logger
}

func NewProfileHandler(profileUseCase usecase.ProfileUseCase, logger *logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileUseCase: profileUseCase,
		logger:         logger,
	}
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	CustomURL string `json:"customUrl"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LinkRequest struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
}

// UpdateProfileRequest lists every writable field. Anything else in the
// payload, password and passwordDigest included, is dropped by decoding.
type UpdateProfileRequest struct {
	Bio           *string        `json:"bio"`
	Links         *[]LinkRequest `json:"links"`
	SpecialText   *string        `json:"specialText"`
	AnimationName *string        `json:"animationName"`
}

func (r UpdateProfileRequest) toUpdate() usecase.ProfileUpdate {
	update := usecase.ProfileUpdate{
		Bio:           r.Bio,
		SpecialText:   r.SpecialText,
		AnimationName: r.AnimationName,
	}
	if r.Links != nil {
		links := make([]entity.Link, len(*r.Links))
		for i, l := range *r.Links {
			links[i] = entity.Link{Label: l.Label, URL: l.URL, Icon: l.Icon}
		}
		update.Links = &links
	}
	return update
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *entity.User `json:"user"`
}

type UserResponse struct {
	Message string       `json:"message"`
	User    *entity.User `json:"user"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Register godoc
// @Summary      Register a new user
// @Description  Create an account with a unique username, email and custom URL
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /register [post]
func (h *ProfileHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body."})
		return
	}

	_, err := h.profileUseCase.Register(c.Request.Context(), usecase.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		CustomURL: req.CustomURL,
	})
	if err != nil {
		h.respondError(c, "Register", err)
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Message: "User registered successfully."})
}

// Login godoc
// @Summary      Login user
// @Description  Authenticate with email and password and receive a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200  {object}  LoginResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /login [post]
func (h *ProfileHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body."})
		return
	}

	user, token, err := h.profileUseCase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, "Login", err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Message: "Login successful.",
		Token:   token,
		User:    user,
	})
}

// GetProfile godoc
// @Summary      Get own profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.User
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Access denied. No token provided."})
		return
	}

	user, err := h.profileUseCase.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, "GetProfile", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary      Update own profile
// @Description  Partial update of bio, links, specialText and animationName. Links are replaced as a whole.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateProfileRequest true "Profile fields"
// @Success      200  {object}  UserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Access denied. No token provided."})
		return
	}
	h.updateProfile(c, userID)
}

// UpdateUser godoc
// @Summary      Update a profile by id
// @Description  Same as PUT /profile; the id must belong to the token holder.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body UpdateProfileRequest true "Profile fields"
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /user/{id} [put]
func (h *ProfileHandler) UpdateUser(c *gin.Context) {
	userID, ok := h.ownerFromPath(c)
	if !ok {
		return
	}
	h.updateProfile(c, userID)
}

func (h *ProfileHandler) updateProfile(c *gin.Context, userID string) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body."})
		return
	}

	user, err := h.profileUseCase.UpdateProfile(c.Request.Context(), userID, req.toUpdate())
	if err != nil {
		h.respondError(c, "UpdateProfile", err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{Message: "Profile updated successfully.", User: user})
}

// GetPublicProfile godoc
// @Summary      Get a public profile
// @Tags         profile
// @Produce      json
// @Param        customUrl path string true "Custom URL"
// @Success      200  {object}  entity.PublicProfile
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /user/{customUrl} [get]
func (h *ProfileHandler) GetPublicProfile(c *gin.Context) {
	profile, err := h.profileUseCase.GetPublicProfile(c.Request.Context(), c.Param("customUrl"))
	if err != nil {
		h.respondError(c, "GetPublicProfile", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// ownerFromPath returns the :id path parameter when it matches the token
// holder, otherwise it aborts with 403.
func (h *ProfileHandler) ownerFromPath(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Access denied. No token provided."})
		return "", false
	}
	if c.Param("id") != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "You can only modify your own profile."})
		return "", false
	}
	return userID, true
}

func (h *ProfileHandler) respondError(c *gin.Context, op string, err error) {
	var validationErr *entity.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Message})
	case errors.Is(err, entity.ErrConflict):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Username, email or custom URL already taken."})
	case errors.Is(err, entity.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid email or password."})
	case errors.Is(err, entity.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found."})
	case errors.Is(err, entity.ErrUpload):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "File upload failed."})
	default:
		h.logger.Error("%s error: %v", op, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error."})
	}
}
