package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-records-api/internal/middleware"
	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// paging reads page and limit query parameters; bad values fall back to defaults.
func paging(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		size = 20
	}
	return page, size
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be an integer")
	}
	return v, nil
}

// queryFloat parses a required float query parameter.
func queryFloat(c *gin.Context, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a number")
	}
	return v, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
