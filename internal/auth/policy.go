package auth

// Access policy: three independent pure predicates over decoded claims.
// Endpoints compose them by AND; there is no role hierarchy and no override
// that bypasses the tenant check.

// TenantMatch reports whether the claims belong to tenantID. Every
// tenant-scoped endpoint must pass this before touching tenant data; a
// mismatch is always a hard deny.
func (c *Claims) TenantMatch(tenantID string) bool {
	return c.TenantID == tenantID
}

// HasPermission reports whether the permission set contains perm.
func (c *Claims) HasPermission(perm string) bool {
	if c.permSet != nil {
		_, ok := c.permSet[perm]
		return ok
	}
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HasRole reports whether the claims carry exactly this role.
func (c *Claims) HasRole(role string) bool {
	return c.Role == role
}
