package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

func (g *Gate) issue(s Session) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   s.Email,
		IssuedAt:  jwt.NewNumericDate(s.LoggedInAt),
		ExpiresAt: jwt.NewNumericDate(s.LoggedInAt.Add(g.cfg.TTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (g *Gate) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return g.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
