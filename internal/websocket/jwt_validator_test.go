package websocket

import (
	"context"
	"errors"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTenantLookup struct {
	tenantID int32
	err      error
	subject  string
}

func (m *mockTenantLookup) GetTenantByAuth0ID(ctx context.Context, auth0ID string) (int32, error) {
	m.subject = auth0ID
	return m.tenantID, m.err
}

func TestCustomClaims_Validate(t *testing.T) {
	claims := &CustomClaims{}
	assert.NoError(t, claims.Validate(context.Background()))
}

func TestNewAuth0JWTValidator_Success(t *testing.T) {
	lookup := &mockTenantLookup{tenantID: 1}

	v, err := NewAuth0JWTValidator("test.auth0.com", "https://api.tpm.app", lookup)
	require.NoError(t, err)
	assert.NotNil(t, v.validator)
	assert.Equal(t, lookup, v.tenantLookup)
}

func TestAuth0JWTValidator_ValidateToken_InvalidJWT(t *testing.T) {
	v, err := NewAuth0JWTValidator("test.auth0.com", "https://api.tpm.app", &mockTenantLookup{tenantID: 1})
	require.NoError(t, err)

	tenantID, err := v.ValidateToken(context.Background(), "invalid-token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
	assert.Equal(t, int32(0), tenantID)
}

func TestAuth0JWTValidator_TenantFor(t *testing.T) {
	ctx := context.Background()
	subjectClaims := func(custom *CustomClaims) *validator.ValidatedClaims {
		return &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|planner"},
			CustomClaims:     custom,
		}
	}

	t.Run("claim wins", func(t *testing.T) {
		lookup := &mockTenantLookup{tenantID: 9}
		v := &Auth0JWTValidator{tenantLookup: lookup}

		id, err := v.tenantFor(ctx, subjectClaims(&CustomClaims{TenantID: 4}))
		require.NoError(t, err)
		assert.Equal(t, int32(4), id)
		assert.Empty(t, lookup.subject)
	})

	t.Run("lookup by subject", func(t *testing.T) {
		lookup := &mockTenantLookup{tenantID: 9}
		v := &Auth0JWTValidator{tenantLookup: lookup}

		id, err := v.tenantFor(ctx, subjectClaims(&CustomClaims{}))
		require.NoError(t, err)
		assert.Equal(t, int32(9), id)
		assert.Equal(t, "auth0|planner", lookup.subject)
	})

	t.Run("nil custom claims use the lookup", func(t *testing.T) {
		lookup := &mockTenantLookup{tenantID: 6}
		v := &Auth0JWTValidator{tenantLookup: lookup}

		id, err := v.tenantFor(ctx, subjectClaims(nil))
		require.NoError(t, err)
		assert.Equal(t, int32(6), id)
		assert.Equal(t, "auth0|planner", lookup.subject)
	})

	t.Run("lookup failure", func(t *testing.T) {
		v := &Auth0JWTValidator{tenantLookup: &mockTenantLookup{err: errors.New("boom")}}

		_, err := v.tenantFor(ctx, subjectClaims(nil))
		assert.ErrorIs(t, err, ErrTenantNotFound)
	})

	t.Run("no lookup configured", func(t *testing.T) {
		v := &Auth0JWTValidator{}

		_, err := v.tenantFor(ctx, subjectClaims(nil))
		assert.ErrorIs(t, err, ErrTenantNotFound)
	})
}
