package util

import (
	"errors"
	"time"

	"learnhub_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Identity 认证中间件解析出的当前用户
type Identity struct {
	UserID string
	Email  string
	Role   model.UserRole
}

// Claims 托管认证服务签发的 HS256 token，sub 为用户 ID
type Claims struct {
	Email    string `json:"email"`
	UserRole string `json:"user_role,omitempty"`
	jwt.RegisteredClaims
}

func GenerateJWT(identity Identity, secret, issuer string, expiration time.Duration) (string, error) {
	claims := &Claims{
		Email:    identity.Email,
		UserRole: string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(tokenString, secret, issuer string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func SetIdentity(c *gin.Context, identity *Identity) {
	c.Set(ContextIdentityKey, identity)
}

func GetIdentity(c *gin.Context) *Identity {
	v, exists := c.Get(ContextIdentityKey)
	if !exists {
		return nil
	}
	identity, ok := v.(*Identity)
	if !ok {
		return nil
	}
	return identity
}
