package websocket

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// ErrTenantNotFound is returned when tenant lookup fails
var ErrTenantNotFound = errors.New("tenant not found")

// TenantLookup resolves the tenant of a user whose token carries no tenant claim
type TenantLookup interface {
	GetTenantByAuth0ID(ctx context.Context, auth0ID string) (tenantID int32, err error)
}

// CustomClaims carries the namespaced tenant claim
type CustomClaims struct {
	TenantID int32 `json:"https://tpm.app/tenant_id"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// Auth0JWTValidator validates Auth0 JWT tokens for WebSocket connections.
// Browsers cannot set headers on the upgrade request, so the token arrives as a query parameter.
type Auth0JWTValidator struct {
	validator    *validator.Validator
	tenantLookup TenantLookup
}

// NewAuth0JWTValidator creates a new Auth0JWTValidator
func NewAuth0JWTValidator(domain, audience string, tenantLookup TenantLookup) (*Auth0JWTValidator, error) {
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

	return &Auth0JWTValidator{
		validator:    jwtValidator,
		tenantLookup: tenantLookup,
	}, nil
}

// ValidateToken validates a JWT token and returns the associated tenant ID
func (v *Auth0JWTValidator) ValidateToken(ctx context.Context, token string) (int32, error) {
	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return 0, ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	return v.tenantFor(ctx, validatedClaims)
}

func (v *Auth0JWTValidator) tenantFor(ctx context.Context, claims *validator.ValidatedClaims) (int32, error) {
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok && custom != nil && custom.TenantID != 0 {
		return custom.TenantID, nil
	}
	if v.tenantLookup == nil {
		return 0, ErrTenantNotFound
	}

	tenantID, err := v.tenantLookup.GetTenantByAuth0ID(ctx, claims.RegisteredClaims.Subject)
	if err != nil || tenantID == 0 {
		return 0, ErrTenantNotFound
	}
	return tenantID, nil
}
