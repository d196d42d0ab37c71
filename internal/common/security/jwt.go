package security

import (
	"context"
	"errors"
	"time"

	"accounts_api/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

// TokenPair is the session credential issued on login: a short-lived access
// token and a longer-lived refresh token that can mint new pairs.
type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

func GenerateAccessToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    userID,
		"token_type": TokenTypeAccess,
		"exp":        now.Add(config.AppConfig.AccessTokenExp).Unix(),
		"iat":        now.Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

// GenerateRefreshToken returns the signed token plus its jti so callers can
// record it in the rotation store.
func GenerateRefreshToken(userID string) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"user_id":    userID,
		"token_type": TokenTypeRefresh,
		"jti":        jti,
		"exp":        now.Add(config.AppConfig.RefreshTokenExp).Unix(),
		"iat":        now.Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, jti, err
}

// ParseToken verifies a raw token string (signature and expiry) and returns
// its claims as a map.
func ParseToken(ctx context.Context, tokenString string) (map[string]interface{}, error) {
	token, err := jwtauth.VerifyToken(TokenAuth, tokenString)
	if err != nil {
		return nil, err
	}
	return token.AsMap(ctx)
}

// Helper functions to extract claims, used in middleware and services
func GetUserIDFromClaims(claims map[string]interface{}) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetTokenTypeFromClaims(claims map[string]interface{}) (string, error) {
	typ, ok := claims["token_type"].(string)
	if !ok {
		return "", errors.New("token_type claim is missing or not a string")
	}
	return typ, nil
}

func GetJTIFromClaims(claims map[string]interface{}) (string, error) {
	jti, ok := claims["jti"].(string)
	if !ok {
		return "", errors.New("jti claim is missing or not a string")
	}
	return jti, nil
}
