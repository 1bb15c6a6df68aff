package dataguard

import "errors"

// ErrNoTenantStore is returned by Open when neither a database URL, a tenants
// file nor an explicit store is configured.
var ErrNoTenantStore = errors.New("dataguard: no tenant store configured")
