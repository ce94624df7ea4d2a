package http

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"thsnd/services/profile/internal/entity"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PageTemplates parses the embedded profile page templates. html/template
// escapes every field, so stored bios and links are rendered inert.
func PageTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))
}

type profilePage struct {
	Title   string
	Profile *entity.PublicProfile
}

// RenderProfilePage serves the public HTML page for /:customUrl.
func (h *ProfileHandler) RenderProfilePage(c *gin.Context) {
	customURL := c.Param("customUrl")

	profile, err := h.profileUseCase.GetPublicProfile(c.Request.Context(), customURL)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			c.HTML(http.StatusNotFound, "not_found.html", gin.H{"CustomURL": customURL})
			return
		}
		h.logger.Error("RenderProfilePage error: %v", err)
		c.String(http.StatusInternalServerError, "Server error.")
		return
	}

	c.HTML(http.StatusOK, "profile.html", profilePage{
		Title:   profile.Username,
		Profile: profile,
	})
}
