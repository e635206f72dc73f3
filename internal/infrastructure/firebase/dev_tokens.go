package firebase

import (
	"context"
	"strings"

	"farmconnect/internal/domain/entity"
	"farmconnect/pkg/errors"
)

const devTokenPrefix = "dev:"

// DevAuthenticator accepts "dev:<uid>:<role>" tokens for local development
// against the memory store. Never wire it outside development.
type DevAuthenticator struct{}

func NewDevAuthenticator() *DevAuthenticator {
	return &DevAuthenticator{}
}

func (DevAuthenticator) Authenticate(_ context.Context, token string) (entity.Identity, error) {
	if !strings.HasPrefix(token, devTokenPrefix) {
		return entity.Identity{}, errors.Unauthenticated("Invalid development token", nil)
	}

	parts := strings.Split(strings.TrimPrefix(token, devTokenPrefix), ":")
	if len(parts) != 2 {
		return entity.Identity{}, errors.Unauthenticated("Development token must look like dev:<uid>:<role>", nil)
	}

	identity := entity.Identity{UserID: parts[0], Role: entity.Role(parts[1])}
	if !identity.Valid() {
		return entity.Identity{}, errors.Unauthenticated("Development token carries no buyer or farmer role", nil)
	}
	return identity, nil
}

// DevToken builds a token DevAuthenticator accepts.
func DevToken(userID string, role entity.Role) string {
	return devTokenPrefix + userID + ":" + string(role)
}
