package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator 校验 token 并返回调用方身份
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*util.Identity, error)
}

// JWTAuthenticator 托管认证服务签发的 HS256 token
type JWTAuthenticator struct {
	Secret string
	Issuer string
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (*util.Identity, error) {
	claims, err := util.ParseJWT(token, a.Secret, a.Issuer)
	if err != nil {
		return nil, err
	}
	return &util.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   model.UserRole(claims.UserRole),
	}, nil
}

type CasdoorAuthenticator struct {
	client *casdoorsdk.Client
}

func NewCasdoorAuthenticator(cfg config.CasdoorConfig) *CasdoorAuthenticator {
	return &CasdoorAuthenticator{client: casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)}
}

func (a *CasdoorAuthenticator) Authenticate(_ context.Context, token string) (*util.Identity, error) {
	claims, err := a.client.ParseJwtToken(token)
	if err != nil {
		return nil, err
	}
	if claims.User.Id == "" {
		return nil, errors.New("token has no user id")
	}

	identity := &util.Identity{UserID: claims.User.Id, Email: claims.User.Email}
	if claims.User.IsAdmin {
		identity.Role = model.RoleAdmin
	}
	return identity, nil
}

func NewAuthenticator(cfg *config.Config) (Authenticator, error) {
	switch cfg.Auth.Provider {
	case util.AuthProviderJWT:
		return &JWTAuthenticator{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}, nil
	case util.AuthProviderCasdoor:
		return NewCasdoorAuthenticator(cfg.Casdoor), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		identity, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			logger.Log.Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		util.SetIdentity(c, identity)
		c.Next()
	}
}

// RoleLookup 角色以 profiles 表为准，token 中的角色只作为后备
type RoleLookup interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

func RequireRole(profiles RoleLookup, roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := util.GetIdentity(c)
		if identity == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		role := identity.Role
		profile, err := profiles.FindByID(c.Request.Context(), identity.UserID)
		switch {
		case err == nil && profile.Role != "":
			role = profile.Role
		case err != nil && !errors.Is(err, util.ErrProfileNotFound):
			util.LogInternalError(c, err)
			c.Abort()
			return
		}

		// 管理员拥有所有权限
		allowed := role == model.RoleAdmin
		for _, r := range roles {
			if role == r {
				allowed = true
				break
			}
		}
		if !allowed {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
