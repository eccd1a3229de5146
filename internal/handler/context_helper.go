package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// actorFromContext returns the resolved identity or writes 401.
func actorFromContext(c *gin.Context) (models.Identity, bool) {
	actor := middleware.IdentityFrom(c)
	if actor == nil {
		middleware.Fail(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return actor, true
}

func claimsFromContext(c *gin.Context) *models.Claims {
	return middleware.ClaimsFrom(c)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		middleware.Fail(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+name))
		return 0, false
	}
	return id, true
}

func optionalQueryID(c *gin.Context, name string) (*int64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.Fail(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+name))
		return nil, false
	}
	return &id, true
}

// studentScope picks the student a read is about: students always read
// themselves, everyone else names the student with ?student_id.
func studentScope(c *gin.Context, actor models.Identity) (int64, bool) {
	if s, ok := actor.(models.StudentIdentity); ok {
		return s.ID, true
	}
	id, ok := optionalQueryID(c, "student_id")
	if !ok {
		return 0, false
	}
	if id == nil {
		middleware.Fail(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return 0, false
	}
	return *id, true
}

// lecturerScope mirrors studentScope for ?lecturer_id.
func lecturerScope(c *gin.Context, actor models.Identity) (int64, bool) {
	if l, ok := actor.(models.LecturerIdentity); ok {
		return l.ID, true
	}
	id, ok := optionalQueryID(c, "lecturer_id")
	if !ok {
		return 0, false
	}
	if id == nil {
		middleware.Fail(c, appErrors.Clone(appErrors.ErrValidation, "lecturer_id is required"))
		return 0, false
	}
	return *id, true
}

func pageFromQuery(c *gin.Context) models.Page {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return models.Page{Limit: size, Offset: (page - 1) * size}
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}
