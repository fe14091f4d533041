package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "principal"

var ErrNoPrincipal = errors.New("request has no authenticated principal")

type AuthzConfig struct {
	Secret   string
	Issuer   string
	Audience string
	LoginURL string
}

type Authz struct {
	cfg AuthzConfig
}

func NewAuthz(cfg AuthzConfig) *Authz {
	return &Authz{cfg: cfg}
}

// Claims is the token shape issued by the external auth service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate verifies the bearer token and stores the caller's principal.
// WebSocket upgrades may pass the token as the access_token query parameter instead.
func (a *Authz) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			a.unauth(c, "invalid_request", "missing bearer token")
			return
		}

		p, err := a.Verify(raw)
		if err != nil {
			a.unauth(c, "invalid_token", err.Error())
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// Verify parses an HS256 token and maps its claims onto a principal.
func (a *Authz) Verify(raw string) (domain.Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.cfg.Issuer),
		jwt.WithAudience(a.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second), // small clock skew
	)
	if err != nil || !token.Valid {
		return domain.Principal{}, errors.New("invalid jwt")
	}
	if claims.Subject == "" {
		return domain.Principal{}, errors.New("token has no subject")
	}
	role := domain.RoleCustomer
	if domain.Role(claims.Role) == domain.RoleAdmin {
		role = domain.RoleAdmin
	}
	return domain.Principal{UserID: claims.Subject, Role: role}, nil
}

// RequireAdmin rejects authenticated callers without the admin role.
func (a *Authz) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := PrincipalFrom(c)
		if err != nil {
			a.unauth(c, "invalid_request", err.Error())
			return
		}
		if !p.IsAdmin() {
			forbidden(c, "insufficient_scope", "admin role required")
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal set by Authenticate.
func PrincipalFrom(c *gin.Context) (domain.Principal, error) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, ErrNoPrincipal
	}
	p, ok := v.(domain.Principal)
	if !ok || p.UserID == "" {
		return domain.Principal{}, ErrNoPrincipal
	}
	return p, nil
}

func bearer(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if websocketUpgrade(c.Request) {
		return c.Query("access_token")
	}
	return ""
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func (a *Authz) unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             code,
		"error_description": desc,
		"login_url":         a.cfg.LoginURL,
	})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code, "error_description": desc})
}
