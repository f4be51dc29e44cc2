package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtIssuer はローカル開発用トークンの発行者。
const jwtIssuer = "smartdeals-dev"

// Claims はローカル開発用JWTのクレーム。
type Claims struct {
	jwt.RegisteredClaims
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
}

// GenerateToken はHS256で署名したローカル開発用トークンを発行する。
func GenerateToken(secret, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
			Subject:   email,
		},
		Email: email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// JWTVerifier は共有シークレットでHS256署名のJWTを検証する。
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier は新しいJWTVerifierを生成する。
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(jwtIssuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify はトークンの署名と有効期限を検証し、emailクレームを返す。
func (v *JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", invalidToken("JWTの検証に失敗", err)
	}
	if claims.Email == "" {
		return "", invalidToken("emailクレームがありません", nil)
	}
	return claims.Email, nil
}
