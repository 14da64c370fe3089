package identity

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"fieldlog/internal/fieldlog"
	"fieldlog/internal/model"
)

// TokenIdentity implements fieldlog.Identity by reading the claims of the
// configured access token. The token is parsed without verification: the
// remote store verifies the signature on every request; the client only
// needs the identity the server will enforce anyway.
type TokenIdentity struct {
	token string
}

var _ fieldlog.Identity = (*TokenIdentity)(nil)

// NewTokenIdentity creates an identity provider for the given access token.
func NewTokenIdentity(token string) *TokenIdentity {
	return &TokenIdentity{token: token}
}

// CurrentUser extracts the user id, email and role from the token claims.
func (i *TokenIdentity) CurrentUser(_ context.Context) (*model.User, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(i.token, claims); err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("access token has no subject claim")
	}

	user := &model.User{ID: sub, Role: model.RoleFieldWorker}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if role, ok := claims["user_role"].(string); ok && role != "" {
		user.Role = model.Role(role)
	}
	return user, nil
}
