package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"farmconnect/internal/domain/entity"
	"farmconnect/pkg/errors"
)

// RoleClaim is the custom claim carrying the marketplace role.
const RoleClaim = "role"

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// Authenticate verifies a Firebase ID token and resolves the caller's role
// from its custom claims.
func (f *FirebaseAuthClient) Authenticate(ctx context.Context, idToken string) (entity.Identity, error) {
	if idToken == "" {
		return entity.Identity{}, errors.Unauthenticated("Token is required", nil)
	}

	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return entity.Identity{}, errors.Unauthenticated("Invalid or expired token", err)
	}

	role, _ := token.Claims[RoleClaim].(string)
	identity := entity.Identity{UserID: token.UID, Role: entity.Role(role)}
	if !identity.Valid() {
		return entity.Identity{}, errors.Unauthenticated("Token carries no buyer or farmer role", nil)
	}

	return identity, nil
}
