package gateway

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("gateway: invalid session token")

// JWTAuth HS256 会话令牌；payload 只带用户 ID 与过期时间
type JWTAuth struct {
    secret []byte
}

func NewJWTAuth(secret string) *JWTAuth {
    return &JWTAuth{secret: []byte(secret)}
}

func (a *JWTAuth) Issue(userID string, ttl time.Duration) (string, error) {
    claims := jwt.RegisteredClaims{
        Subject:   userID,
        IssuedAt:  jwt.NewNumericDate(time.Now()),
        ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
    }
    return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *JWTAuth) UserID(token string) (string, error) {
    parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return a.secret, nil
    })
    if err != nil || !parsed.Valid {
        return "", ErrInvalidToken
    }
    claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
    if !ok || claims.Subject == "" {
        return "", ErrInvalidToken
    }
    return claims.Subject, nil
}
