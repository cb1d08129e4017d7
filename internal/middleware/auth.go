package middleware

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// TenantClaim is the namespaced Auth0 claim carrying the caller's tenant
const TenantClaim = "https://tpm.app/tenant_id"

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	TenantID int32  `json:"https://tpm.app/tenant_id"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// Auth0IDKey is the context key for the Auth0 user ID (subject)
	Auth0IDKey contextKey = "auth0_id"
	// TenantIDKey is the context key for the caller's tenant ID
	TenantIDKey contextKey = "tenant_id"
)

// TenantProvider resolves the tenant of a user whose token carries no tenant claim
type TenantProvider interface {
	GetTenantByAuth0ID(ctx context.Context, auth0ID string) (tenantID int32, err error)
}

// AuthMiddleware provides JWT validation middleware
type AuthMiddleware struct {
	validator      *validator.Validator
	tenantProvider TenantProvider
}

// NewAuthMiddleware creates a new AuthMiddleware with Auth0 configuration
func NewAuthMiddleware(domain, audience string, tenantProvider TenantProvider) (*AuthMiddleware, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return &AuthMiddleware{
		validator:      jwtValidator,
		tenantProvider: tenantProvider,
	}, nil
}

// Authenticate returns an Echo middleware that validates JWT tokens and resolves the tenant
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return unauthorizedError(c, "missing or malformed authorization header")
			}

			claims, err := m.validator.ValidateToken(c.Request().Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "invalid token")
			}

			validatedClaims, ok := claims.(*validator.ValidatedClaims)
			if !ok {
				return unauthorizedError(c, "invalid claims")
			}

			auth0ID := validatedClaims.RegisteredClaims.Subject

			ctx := context.WithValue(c.Request().Context(), ClaimsKey, validatedClaims)
			ctx = context.WithValue(ctx, Auth0IDKey, auth0ID)

			tenantID, err := m.resolveTenant(ctx, validatedClaims, auth0ID)
			if err != nil {
				log.Debug().Err(err).Str("auth0_id", auth0ID).Msg("Tenant lookup failed")
				return unauthorizedError(c, "tenant not found")
			}
			if tenantID != 0 {
				ctx = context.WithValue(ctx, TenantIDKey, tenantID)
			}

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func (m *AuthMiddleware) resolveTenant(ctx context.Context, claims *validator.ValidatedClaims, auth0ID string) (int32, error) {
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok && custom != nil && custom.TenantID != 0 {
		return custom.TenantID, nil
	}
	if m.tenantProvider == nil {
		return 0, nil
	}
	return m.tenantProvider.GetTenantByAuth0ID(ctx, auth0ID)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetAuth0ID extracts the Auth0 user ID from the context
func GetAuth0ID(c echo.Context) string {
	if id, ok := c.Request().Context().Value(Auth0IDKey).(string); ok {
		return id
	}
	return ""
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}

// GetCustomClaims extracts the custom claims from the context
func GetCustomClaims(c echo.Context) *CustomClaims {
	claims := GetClaims(c)
	if claims == nil {
		return nil
	}
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok {
		return custom
	}
	return nil
}

// GetTenantID extracts the tenant ID from the context, 0 when absent
func GetTenantID(c echo.Context) int32 {
	if id, ok := c.Request().Context().Value(TenantIDKey).(int32); ok {
		return id
	}
	return 0
}

// RequireTenant rejects requests whose tenant could not be resolved
func RequireTenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetTenantID(c) == 0 {
				return unauthorizedError(c, "tenant context is required")
			}
			return next(c)
		}
	}
}

// Actor returns a display identity for audit fields such as lockedBy
func Actor(c echo.Context) string {
	if custom := GetCustomClaims(c); custom != nil && custom.Email != "" {
		return custom.Email
	}
	return GetAuth0ID(c)
}
