package access

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		role   Role
		policy Policy
		method string
		want   Decision
	}{
		{Anonymous, AdminOrAuthenticatedReadOnly, http.MethodGet, Unauthenticated},
		{Anonymous, AdminOrAuthenticatedReadOnly, http.MethodHead, Unauthenticated},
		{Anonymous, AdminOrAuthenticatedReadOnly, http.MethodPost, Unauthenticated},
		{Authenticated, AdminOrAuthenticatedReadOnly, http.MethodOptions, Allow},
		{Authenticated, AdminOrAuthenticatedReadOnly, http.MethodGet, Allow},
		{Authenticated, AdminOrAuthenticatedReadOnly, http.MethodPut, Forbidden},
		{Authenticated, AdminOrAuthenticatedReadOnly, http.MethodDelete, Forbidden},
		{Admin, AdminOrAuthenticatedReadOnly, http.MethodPatch, Allow},

		{Anonymous, AuthenticatedOnly, http.MethodGet, Unauthenticated},
		{Authenticated, AuthenticatedOnly, http.MethodPost, Allow},
		{Admin, AuthenticatedOnly, http.MethodDelete, Allow},

		{Anonymous, AdminOnly, http.MethodPost, Unauthenticated},
		{Authenticated, AdminOnly, http.MethodPost, Forbidden},
		{Authenticated, AdminOnly, http.MethodGet, Forbidden},
		{Admin, AdminOnly, http.MethodPost, Allow},
	}
	for _, tt := range tests {
		t.Run(tt.role.String()+" "+tt.method, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.role, tt.policy, tt.method))
		})
	}
}

func TestDecisionStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, Allow.Status())
	assert.Equal(t, http.StatusUnauthorized, Unauthenticated.Status())
	assert.Equal(t, http.StatusForbidden, Forbidden.Status())
}

func TestRoleFromClaim(t *testing.T) {
	assert.Equal(t, Admin, RoleFromClaim("ADMIN"))
	assert.Equal(t, Authenticated, RoleFromClaim("USER"))
	assert.Equal(t, Authenticated, RoleFromClaim(""))
}
