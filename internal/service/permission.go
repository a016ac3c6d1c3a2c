package service

import (
	"github.com/andresuchdata/stockcount/internal/domain"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
)

// ensureManager rejects callers whose role may not mutate items or orders.
func ensureManager(actor domain.Actor, action string) error {
	if actor.Role.CanManage() {
		return nil
	}
	role := string(actor.Role)
	if role == "" {
		role = "anonymous"
	}
	return apperrors.Newf(apperrors.CodeForbidden, "role %s may not %s", role, action)
}
