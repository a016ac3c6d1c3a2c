package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stockcount/internal/api/middleware"
	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/service"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

func actor(c *gin.Context) domain.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

// dateParam reads an optional yyyy-MM-dd query value in the site zone,
// defaulting to now.
func dateParam(c *gin.Context, key string, now service.Clock) (time.Time, error) {
	current := now()
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return current, nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, current.Location())
	if err != nil {
		return time.Time{}, apperrors.Newf(apperrors.CodeValidation, "%s must be yyyy-mm-dd", key)
	}
	// Noon keeps the date stable under any later zone conversion.
	return day.Add(12 * time.Hour), nil
}

func intParam(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.Newf(apperrors.CodeValidation, "%s must be a non-negative integer", key)
	}
	return v, nil
}

func bindError(err error) error {
	return apperrors.Wrap(apperrors.CodeValidation, err, "invalid request body")
}
