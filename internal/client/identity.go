package client

import (
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityFromToken reads the subject and role of a bearer token without verifying it. The
// server stays the authority; a forged token only gets the caller an anonymous view there.
func IdentityFromToken(token string) (domain.Identity, error) {
	if token == "" {
		return domain.Anonymous(), nil
	}
	var claims auth.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return domain.Identity{}, fmt.Errorf("failed to read token: %w", err)
	}
	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("token has no subject")
	}
	role := domain.RoleBuyer
	if claims.Role == domain.RoleAdmin {
		role = domain.RoleAdmin
	}
	return domain.Identity{UserID: claims.Subject, Role: role, Token: token}, nil
}
