package middleware

import (
	"errors"
	"strings"

	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// AuthConfig holds the Supabase JWT settings. Issuer and Audience are
// optional.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type supabaseClaims struct {
	jwt.RegisteredClaims
	Role         string         `json:"role"`         // usually "authenticated" / "anon"
	AppMetadata  map[string]any `json:"app_metadata"` // put {"role":"admin"} here
	UserMetadata map[string]any `json:"user_metadata"`
}

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
	errIssuer       = errors.New("invalid token issuer")
	errAudience     = errors.New("invalid token audience")
	errSubject      = errors.New("missing subject")
)

// JWTAuth sets user_id and role on the context. WebSocket upgrades may
// carry the token in the access_token query parameter since browsers
// cannot set headers on them.
func JWTAuth(cfg AuthConfig) gin.HandlerFunc {
	const op = "middleware.JWTAuth"

	return func(c *gin.Context) {
		if cfg.Secret == "" {
			abortWithError(c, utils.E(utils.CodeInternal, op, "SUPABASE_JWT_SECRET is not set", nil))
			return
		}

		userID, role, err := authenticate(cfg, bearerToken(c))
		if err != nil {
			abortWithError(c, utils.E(utils.CodeUnauthorized, op, err.Error(), err))
			return
		}

		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return strings.TrimSpace(c.Query("access_token"))
	}
	return ""
}

// authenticate validates raw and returns the subject and the app-level role.
func authenticate(cfg AuthConfig, raw string) (string, string, error) {
	if raw == "" {
		return "", "", errMissingToken
	}

	claims := &supabaseClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || tok == nil || !tok.Valid {
		return "", "", errInvalidToken
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return "", "", errIssuer
	}
	if cfg.Audience != "" {
		valid := false
		for _, aud := range claims.Audience {
			if aud == cfg.Audience {
				valid = true
				break
			}
		}
		if !valid {
			return "", "", errAudience
		}
	}

	// Supabase puts the user UUID in "sub"
	if claims.Subject == "" {
		return "", "", errSubject
	}

	return claims.Subject, roleFromClaims(claims), nil
}
