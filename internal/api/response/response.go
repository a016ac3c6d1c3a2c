// Package response writes the JSON envelope shared by every API route.
package response

import (
	"errors"
	"net/http"

	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func OK(c *gin.Context, data any) {
	Status(c, http.StatusOK, data)
}

func Status(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Error maps err onto its HTTP status. Untyped errors become INTERNAL_ERROR
// and their text is never shown to the caller.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := apperrors.As(err)
	if typed == nil {
		typed = apperrors.Wrap(apperrors.CodeInternal, err, "unexpected error")
	}

	meta := apperrors.MetadataFor(typed.Code())
	body := &APIError{Code: string(typed.Code()), Message: meta.PublicMessage}
	if meta.DetailsAllowed {
		if m := typed.Message(); m != "" {
			body.Message = m
		}
		body.Details = typed.Details()
	}

	event := log.Warn()
	if meta.HTTPStatus >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("code", body.Code).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("request failed")

	c.AbortWithStatusJSON(meta.HTTPStatus, Envelope{Success: false, Error: body})
}
