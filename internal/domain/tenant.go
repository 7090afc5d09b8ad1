package domain

// TenantContext identifies the authenticated caller and the site (tenant)
// their request operates on. It is built once per request from validated
// token claims and passed explicitly to every service and repository call;
// it is never stored in package-level state.
type TenantContext struct {
	UserID        int64
	SiteID        int64
	IsDefaultSite bool
}

// Scoped reports whether the context carries a usable tenant. Repository
// methods require this as their first precondition; the site repository is
// the documented tenant-discovery exception.
func (tc TenantContext) Scoped() bool {
	return tc.SiteID > 0
}
