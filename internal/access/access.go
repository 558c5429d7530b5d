// Package access decides whether a caller may perform a request.  Decisions
// are pure functions of the caller's role, the policy attached to the route
// and the HTTP method, so they can be tested without a server.
package access

import (
	"net/http"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// Role is the caller's identity class.
type Role int

const (
	Anonymous Role = iota
	Authenticated
	Admin
)

func (r Role) String() string {
	switch r {
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	default:
		return "anonymous"
	}
}

// RoleFromClaim maps the JWT role claim onto a Role.  Any signed-in user
// that is not staff is Authenticated.
func RoleFromClaim(claim string) Role {
	if claim == model.RoleAdmin {
		return Admin
	}
	return Authenticated
}

// Policy is attached to a group of routes.
type Policy int

const (
	// AdminOrAuthenticatedReadOnly lets signed-in users read and only
	// admins write.  Anonymous callers are always refused.
	AdminOrAuthenticatedReadOnly Policy = iota
	// AuthenticatedOnly requires a signed-in user for every method.
	AuthenticatedOnly
	// AdminOnly requires an admin for every method.
	AdminOnly
)

// Decision is the outcome of Decide.
type Decision int

const (
	Allow Decision = iota
	Unauthenticated
	Forbidden
)

// Status returns the HTTP status a denial maps to, or 200 for Allow.
func (d Decision) Status() int {
	switch d {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusOK
	}
}

// IsSafeMethod reports whether method only reads.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Decide applies policy to a caller.  Denied anonymous callers get
// Unauthenticated, denied signed-in callers get Forbidden.
func Decide(role Role, policy Policy, method string) Decision {
	var ok bool
	switch policy {
	case AdminOrAuthenticatedReadOnly:
		ok = role == Admin || (role == Authenticated && IsSafeMethod(method))
	case AuthenticatedOnly:
		ok = role != Anonymous
	case AdminOnly:
		ok = role == Admin
	}
	switch {
	case ok:
		return Allow
	case role == Anonymous:
		return Unauthenticated
	default:
		return Forbidden
	}
}
