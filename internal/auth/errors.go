package auth

import "errors"

// Every login and guard failure maps to exactly one of these. Handlers
// translate them to HTTP statuses; nothing in this package recovers from
// them or retries.
var (
	// ErrMalformedUsername: the supplied username has no @tenant_id suffix.
	ErrMalformedUsername = errors.New("auth: malformed username")
	// ErrTenantNotFound: the tenant suffix does not exist in the registry.
	ErrTenantNotFound = errors.New("auth: tenant not found")
	// ErrTenantInactive: the tenant exists but is deactivated.
	ErrTenantInactive = errors.New("auth: tenant account is inactive")
	// ErrInvalidCredentials covers both unknown user and wrong password;
	// callers cannot distinguish the two.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrUserInactive: the credential record is deactivated.
	ErrUserInactive = errors.New("auth: user account is inactive")
	// ErrInvalidToken: bad signature, malformed payload, or expired.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrForbidden: tenant mismatch or missing permission/role.
	ErrForbidden = errors.New("auth: forbidden")
	// ErrNotFound: resource absent within an authorized tenant.
	ErrNotFound = errors.New("auth: not found")
)
