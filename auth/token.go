package auth

import (
	"fmt"
	"time"

	"restaurant-hub/domain"
	"restaurant-hub/errors"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "restaurant-hub"

// Claims defines the structure of the data stored inside the JWT.
// The payload is shared with the back office: {id, role, username}.
type Claims struct {
	ID       string      `json:"id" validate:"required,max=128"`
	Role     domain.Role `json:"role" validate:"omitempty,oneof=admin staff employee customer"`
	Username string      `json:"username,omitempty" validate:"max=128"`
	jwt.RegisteredClaims
}

func (c Claims) Identity() domain.Identity {
	role := c.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	return domain.NewIdentity(c.ID, role, c.Username)
}

type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) TokenService {
	return TokenService{secret: []byte(secret), now: time.Now}
}

// Issue creates a signed HS256 token for a user.
func (s TokenService) Issue(userID string, role domain.Role, username string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		ID:       userID,
		Role:     role,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	if err := ValidateClaims(claims); err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates the signature, the expiration and the payload of a token.
// Every failure is reported as ErrUnauthenticated.
func (s TokenService) Parse(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	if !token.Valid {
		return Claims{}, fmt.Errorf("%w: invalid token", errors.ErrUnauthenticated)
	}
	if err := ValidateClaims(claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	return claims, nil
}
