package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"dotaciones/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// Context keys set by Authenticate.
const (
	CtxUserID   = "userID"
	CtxUsername = "username"
	CtxUserRole = "userRole"
)

// PermissionSource resolves the permission codes granted to a role.
type PermissionSource interface {
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
}

// permCacheEntry stores cached permission codes for a role with TTL
type permCacheEntry struct {
	codes     []string
	expiresAt time.Time
}

// Authenticator validates JWTs and checks role permissions.
type Authenticator struct {
	secret       []byte
	perms        PermissionSource
	secureCookie bool
	permCache    sync.Map // roleName -> permCacheEntry
	permCacheTTL time.Duration
	now          func() time.Time
}

func NewAuthenticator(secret []byte, perms PermissionSource, secureCookie bool) *Authenticator {
	return &Authenticator{
		secret:       secret,
		perms:        perms,
		secureCookie: secureCookie,
		permCacheTTL: 5 * time.Minute,
		now:          time.Now,
	}
}

// Secret returns the HMAC key used to sign access tokens.
func (a *Authenticator) Secret() []byte {
	return a.secret
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (a *Authenticator) SetTokenCookies(c *gin.Context, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration) {
	sameSite := http.SameSiteLaxMode
	if a.secureCookie {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, int(accessTTL.Seconds()), "/", "", a.secureCookie, true)
	c.SetCookie("refresh_token", refreshToken, int(refreshTTL.Seconds()), "/", "", a.secureCookie, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (a *Authenticator) ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	if a.secureCookie {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", a.secureCookie, true)
	c.SetCookie("refresh_token", "", -1, "/", "", a.secureCookie, true)
}

// Authenticate validates the token from the access_token cookie or the
// Authorization header and stores the claims on the context.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authenticate(c) {
			return
		}
		c.Next()
	}
}

// RequirePermission authenticates and checks that the role holds every code.
func (a *Authenticator) RequirePermission(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, done := c.Get(CtxUserRole); !done && !a.authenticate(c) {
			return
		}
		role := c.GetString(CtxUserRole)

		userPerms, err := a.PermissionsForRole(c.Request.Context(), role)
		if err != nil {
			log.Error().Err(err).Str("role", role).Msg("failed to load permissions")
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}

		permSet := make(map[string]bool, len(userPerms))
		for _, p := range userPerms {
			permSet[p] = true
		}
		for _, required := range requiredPerms {
			if !permSet[required] {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}

		c.Next()
	}
}

func (a *Authenticator) authenticate(c *gin.Context) bool {
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr != nil || tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return false
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
			return false
		}
		tokenString = parts[1]
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return false
	}

	userRole, ok := claims["role"].(string)
	if !ok || userRole == "" {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
		return false
	}
	sub, _ := claims["sub"].(string)
	username, _ := claims["username"].(string)

	c.Set(CtxUserID, sub)
	c.Set(CtxUsername, username)
	c.Set(CtxUserRole, userRole)
	return true
}

// PermissionsForRole returns cached or freshly loaded permission codes.
func (a *Authenticator) PermissionsForRole(ctx context.Context, roleName string) ([]string, error) {
	if entry, ok := a.permCache.Load(roleName); ok {
		cached := entry.(permCacheEntry)
		if a.now().Before(cached.expiresAt) {
			return cached.codes, nil
		}
	}

	codes, err := a.perms.GetPermissionsByRoleName(ctx, roleName)
	if err != nil {
		return nil, err
	}

	a.permCache.Store(roleName, permCacheEntry{
		codes:     codes,
		expiresAt: a.now().Add(a.permCacheTTL),
	})
	return codes, nil
}

// ClearPermissionCache removes cached permissions for a specific role (or all roles if empty)
func (a *Authenticator) ClearPermissionCache(roleName string) {
	if roleName == "" {
		a.permCache.Range(func(key, _ interface{}) bool {
			a.permCache.Delete(key)
			return true
		})
		return
	}
	a.permCache.Delete(roleName)
}
