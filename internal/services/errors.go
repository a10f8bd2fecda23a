package services

import (
	"fmt"

	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
)

func fail(code domainagg.ErrorCode, op, format string, args ...any) error {
	return domainagg.NewError(code, op, fmt.Sprintf(format, args...), nil)
}

func requireActiveParticipant(op string, actorID string, isActive bool) error {
	if actorID == "" {
		return fail(domainagg.CodeValidation, op, "missing user id")
	}
	if !isActive {
		return fail(domainagg.CodePermission, op, "user %s is not an active participant", actorID)
	}
	return nil
}
