package auth

import (
	"net/http"
	"strings"

	"restaurant-hub/domain"
)

// IdentityResolver turns the handshake credentials into an Identity.
type IdentityResolver struct {
	tokens TokenService
}

func NewIdentityResolver(tokens TokenService) IdentityResolver {
	return IdentityResolver{tokens: tokens}
}

// Resolve returns the anonymous identity when no token is given.
// A token that is present but invalid is rejected with ErrUnauthenticated.
func (r IdentityResolver) Resolve(token string) (domain.Identity, error) {
	if token == "" {
		return domain.AnonymousIdentity(), nil
	}
	claims, err := r.tokens.Parse(token)
	if err != nil {
		return domain.Identity{}, err
	}
	return claims.Identity(), nil
}

// TokenFromRequest reads a bearer token from the Authorization header,
// falling back to the token query parameter used by browser sockets.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
