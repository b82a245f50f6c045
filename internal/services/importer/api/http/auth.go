package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	"github.com/marcusguelfi/rpg-plataform/internal/platform/httpx"
)

// Roles allowed to submit import jobs. Read endpoints accept any
// authenticated role.
const (
	RoleAdmin      = "ADMIN"
	RoleGameMaster = "GM"
)

type contextKey string

const claimsContextKey contextKey = "importer.claims"

// authEnv holds raw env values before post-parse validation.
type authEnv struct {
	Secret   string `env:"RPG_PLATAFORM_IMPORTER_JWT_SECRET"`
	Issuer   string `env:"RPG_PLATAFORM_IMPORTER_JWT_ISSUER" envDefault:"rpg-plataform"`
	Audience string `env:"RPG_PLATAFORM_IMPORTER_JWT_AUDIENCE" envDefault:"importer"`
}

// AuthConfig defines how bearer tokens are verified.
type AuthConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	Now      func() time.Time
}

// Claims captures the validated identity attached to a request.
type Claims struct {
	Subject string
	Role    string
}

// tokenClaims is the internal claims type used for JWT parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// LoadAuthConfigFromEnv reads token verification configuration.
func LoadAuthConfigFromEnv(now func() time.Time) (AuthConfig, error) {
	var raw authEnv
	if err := env.Parse(&raw); err != nil {
		return AuthConfig{}, fmt.Errorf("parse auth env: %w", err)
	}
	secret := strings.TrimSpace(raw.Secret)
	if secret == "" {
		return AuthConfig{}, fmt.Errorf("RPG_PLATAFORM_IMPORTER_JWT_SECRET is required")
	}
	if now == nil {
		now = time.Now
	}
	return AuthConfig{
		Secret:   []byte(secret),
		Issuer:   strings.TrimSpace(raw.Issuer),
		Audience: strings.TrimSpace(raw.Audience),
		Now:      now,
	}, nil
}

// verifyToken parses and validates a bearer token.
func verifyToken(token string, cfg AuthConfig) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, errors.New("bearer token is required")
	}
	if len(cfg.Secret) == 0 {
		return Claims{}, errors.New("token verifier is not configured")
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now().UTC() }),
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return cfg.Secret, nil
	}, options...)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	role := strings.ToUpper(strings.TrimSpace(parsed.Role))
	if role == "" {
		return Claims{}, errors.New("token role claim is required")
	}
	return Claims{Subject: parsed.Subject, Role: role}, nil
}

// mapJWTError translates jwt library errors into stable messages.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.New("token is expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.New("token signature is invalid")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return errors.New("token alg is invalid")
	default:
		return errors.New("token is invalid")
	}
}

// Authenticate validates the Authorization header and stores the claims
// on the request context. Missing or invalid tokens terminate with 401.
func Authenticate(cfg AuthConfig) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				_ = httpx.WriteJSONError(w, http.StatusUnauthorized, "authorization bearer token is required")
				return
			}
			claims, err := verifyToken(token, cfg)
			if err != nil {
				_ = httpx.WriteJSONError(w, http.StatusUnauthorized, err.Error())
				return
			}
			ctx := context.WithValue(httpx.RequestContext(r), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole terminates with 403 unless the authenticated role is one of
// the allowed roles. It must run after Authenticate.
func RequireRole(roles ...string) httpx.Middleware {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[strings.ToUpper(strings.TrimSpace(role))] = true
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromContext(httpx.RequestContext(r))
			if !ok {
				_ = httpx.WriteJSONError(w, http.StatusUnauthorized, "authentication is required")
				return
			}
			if !allowed[claims.Role] {
				_ = httpx.WriteJSONError(w, http.StatusForbidden, "role is not allowed to import")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func claimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(Claims)
	return claims, ok
}
