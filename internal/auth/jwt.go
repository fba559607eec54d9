package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/fueldispenser/internal/config"
)

// Claims carried by an admin session token. Admin is the capability flag the
// middleware checks; handlers never compare raw tags.
type Claims struct {
	Tag   string `json:"tag"`
	Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// GenerateToken issues an HS256 session token for a scanned tag.
func GenerateToken(cfg *config.JWTConfig, tag string, admin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		Tag:   tag,
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ParseToken validates a session token.
func ParseToken(cfg *config.JWTConfig, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
